package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeUnknownType, "no handler for %q", "nurbsCurve")
	if got, want := err.Error(), `UNKNOWN_TYPE: no handler for "nurbsCurve"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("node exists")
	wrapped := Wrap(ErrCodeCreationFailed, cause, "create %s", "body_skin")
	if got, want := wrapped.Error(), "CREATION_FAILED: create body_skin: node exists"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if errors.Unwrap(wrapped) != cause || !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

// The chain a failed connection produces while loading a skin cluster:
// a plain scene error inside an attribute lookup inside a connection.
func connectionChain() error {
	scene := errors.New("plug does not exist")
	attr := Wrap(ErrCodeAttributeNotFound, scene, "bodyShape.inMesh")
	conn := Wrap(ErrCodeConnectionFailed, attr, "connect body_skin.outputGeometry[0] -> bodyShape.inMesh")
	return fmt.Errorf("load body_skin: %w", conn)
}

func TestCodeLookup(t *testing.T) {
	chain := connectionChain()
	tests := []struct {
		name string
		err  error
		code Code
		is   bool
		get  Code
	}{
		{"outer code", chain, ErrCodeConnectionFailed, true, ErrCodeConnectionFailed},
		{"inner code", chain, ErrCodeAttributeNotFound, true, ErrCodeConnectionFailed},
		{"absent code", chain, ErrCodeCreationFailed, false, ErrCodeConnectionFailed},
		{"plain error", errors.New("plain"), ErrCodeInvalidInput, false, ""},
		{"nil", nil, ErrCodeInvalidInput, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.is {
				t.Errorf("Is(%s) = %v, want %v", tt.code, got, tt.is)
			}
			if got := GetCode(tt.err); got != tt.get {
				t.Errorf("GetCode() = %q, want %q", got, tt.get)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(connectionChain()); got != "connect body_skin.outputGeometry[0] -> bodyShape.inMesh" {
		t.Errorf("UserMessage(coded) = %q", got)
	}
	if got := UserMessage(errors.New("disk full")); got != "disk full" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}

func TestIsFatal(t *testing.T) {
	fatal := map[Code]bool{
		ErrCodeCreationFailed:      true,
		ErrCodeMissingCreationData: true,
		ErrCodeUnknownType:         true,
		ErrCodeConnectionFailed:    false,
		ErrCodeAttributeNotFound:   false,
		ErrCodeInfluenceResolution: false,
		ErrCodeDegenerateBasis:     false,
	}
	for code, want := range fatal {
		if got := IsFatal(Wrap(code, errors.New("scene"), "load")); got != want {
			t.Errorf("IsFatal(%s) = %v, want %v", code, got, want)
		}
	}
	if IsFatal(connectionChain()) {
		t.Error("a skipped connection should not abort the load")
	}
	if IsFatal(errors.New("plain")) {
		t.Error("IsFatal(plain) = true, want false")
	}
}
