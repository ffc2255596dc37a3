package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxNameLength bounds node names accepted from records and command lines.
const maxNameLength = 512

// ValidateNodeName validates a scene node name read from a record or the
// command line.
//
// Accepted names follow the host convention "ns1:ns2:base" or "base":
//   - No empty names or empty namespace segments
//   - No whitespace or control characters
//   - No path separators
//   - Maximum length of 512 characters
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "node name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "node name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidName, "node name %q contains whitespace or control characters", name)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "node name %q contains path separators", name)
	}

	for _, seg := range strings.Split(name, ":") {
		if seg == "" {
			return New(ErrCodeInvalidName, "node name %q has an empty namespace segment", name)
		}
	}

	return nil
}

// ValidatePath validates a document path given on the command line or
// through the API. It rejects traversal out of the working directory when
// the path is relative.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - Relative paths cannot escape with ".."
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > 1024 {
		return New(ErrCodeInvalidPath, "path too long (max 1024 characters)")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}

	if !filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return New(ErrCodeInvalidPath, "path %q escapes the working directory", path)
		}
	}

	return nil
}

// ValidateStoreKey validates a document key used by record stores.
// Keys double as redis keys, mongo ids and file names. Allowed runes are
// letters, digits and '-', '_', '.', ':'.
func ValidateStoreKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "store key cannot be empty")
	}
	if len(key) > 256 {
		return New(ErrCodeInvalidInput, "store key too long (max 256 characters)")
	}
	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidInput, "store key %q contains '..'", key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return New(ErrCodeInvalidInput, "store key %q contains invalid character %q", key, r)
		}
	}
	return nil
}
