package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateBlobKey validates that a stored-file key is safe to join onto the
// upload directory. Keys are generated server-side, so anything containing
// path separators or traversal components is an attack, not a mistake.
func ValidateBlobKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}

	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("blob key contains path separator: %s", key)
	}

	if strings.Contains(key, "..") {
		return fmt.Errorf("blob key contains directory traversal: %s", key)
	}

	if filepath.Clean(key) != key {
		return fmt.Errorf("blob key is not a clean path element: %s", key)
	}

	return nil
}

// SanitizeExtension reduces a client-supplied file name to a safe extension
// that can be appended to a generated blob key. Anything that is not a short
// alphanumeric extension is dropped.
func SanitizeExtension(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext == "" || ext == "." {
		return ""
	}

	if len(ext) > 10 {
		return ""
	}

	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
