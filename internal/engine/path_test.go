package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "viewport.camera", JoinPath("viewport", "camera"))
	assert.Equal(t, "gen", JoinPath("", "gen"))

	assert.Equal(t, "viewport", ParentPath("viewport.camera"))
	assert.Equal(t, "", ParentPath("viewport"))
	assert.Equal(t, "camera", BasePath("viewport.camera"))
	assert.Equal(t, "gen", BasePath("gen"))

	assert.Equal(t, "viewport.camera", RelativePath("viewport.draw", "camera"))
	assert.Equal(t, "other", RelativePath("gen", "other"))
}

func TestIsDescendant(t *testing.T) {
	tests := []struct {
		key, ancestor string
		want          bool
	}{
		{"a.b", "a", true},
		{"a.b.c", "a", true},
		{"a", "a", false},
		{"ab", "a", false},
		{"a", "a.b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDescendant(tt.key, tt.ancestor), "%s under %s", tt.key, tt.ancestor)
	}
}

func TestValidKey(t *testing.T) {
	for _, key := range []string{"a", "a.b", "viewport.camera.lens"} {
		assert.True(t, validKey(key), key)
	}
	for _, key := range []string{"", ".", "a.", ".a", "a..b"} {
		assert.False(t, validKey(key), key)
	}
}
