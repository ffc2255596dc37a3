package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "pCube1", false},
		{"namespaced", "char:L_arm_jnt", false},
		{"nested namespace", "a:b:c_geo", false},
		{"with pipe path", "grp|pCube1", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 600), true},
		{"leading colon", ":foo", true},
		{"trailing colon", "ns:", true},
		{"double colon", "a::b", true},
		{"space", "foo bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateNodeName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative file", "rig/skin.json", false},
		{"absolute", "/tmp/skin.json", false},
		{"dot segment inside", "rig/../skin.json", false},

		{"empty", "", true},
		{"escape", "../skin.json", true},
		{"escape only", "..", true},
		{"null byte", "skin\x00.json", true},
		{"too long", strings.Repeat("a", 2000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStoreKey(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"body_skin", false},
		{"rig:v2.json", false},
		{"3f2c1a9e-5b7d-4c1e-9a0b-2d4e6f8a0c1e", false},
		{"", true},
		{"a/b", true},
		{"a..b", true},
		{"sp ace", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateStoreKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStoreKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
