package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCombinedIdentifier(t *testing.T) {
	tests := []struct {
		in       string
		wantID   int
		wantPath string
	}{
		{"1:/images/", 1, "/images/"},
		{"2:/user_upload/", 2, "/user_upload/"},
		{"/images/", DefaultStorageID, "/images/"},
		{"images", DefaultStorageID, "images"},
		{"abc:/images/", DefaultStorageID, "abc:/images/"},
		{"3:", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, p := ParseCombinedIdentifier(tt.in)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantPath, p)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", NormalizeFolder(""))
	assert.Equal(t, "/", NormalizeFolder("/"))
	assert.Equal(t, "/images/", NormalizeFolder("images"))
	assert.Equal(t, "/images/gallery/", NormalizeFolder("/images//gallery"))
	assert.Equal(t, "/images/logo.png", NormalizeFile("images/logo.png"))

	assert.Equal(t, "/images/", parentFolder("/images/logo.png"))
	assert.Equal(t, "/", parentFolder("/images/"))
	assert.Equal(t, "logo.png", baseName("/images/logo.png"))
	assert.Equal(t, "images", baseName("/images/"))
	assert.Equal(t, "1:/images/", CombinedIdentifier(1, "/images/"))
}
