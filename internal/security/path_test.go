package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBlobKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid hex key", "a1b2c3d4e5f6a7b8.png", false},
		{"valid key without extension", "a1b2c3d4e5f6a7b8", false},
		{"empty", "", true},
		{"traversal", "../etc/passwd", true},
		{"embedded traversal", "a..b", true},
		{"forward slash", "dir/file", true},
		{"backslash", "dir\\file", true},
		{"dot", ".", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlobKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeExtension(t *testing.T) {
	assert.Equal(t, ".png", SanitizeExtension("photo.PNG"))
	assert.Equal(t, ".pdf", SanitizeExtension("/tmp/../report.pdf"))
	assert.Equal(t, "", SanitizeExtension("noext"))
	assert.Equal(t, "", SanitizeExtension("weird.p@g"))
	assert.Equal(t, "", SanitizeExtension("trailingdot."))
	assert.Equal(t, "", SanitizeExtension("file.waytoolongext"))
}
