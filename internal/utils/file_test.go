package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKinds(t *testing.T) {
	tests := []struct {
		name     string
		image    bool
		landmark bool
	}{
		{"front.JPG", true, false},
		{"side.webp", true, false},
		{"pose.json", false, true},
		{"notes.txt", false, false},
		{"noext", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.image, IsImageFile(tt.name), tt.name)
		assert.Equal(t, tt.landmark, IsLandmarkFile(tt.name), tt.name)
	}

	assert.True(t, IsURL("https://example.com/front.jpg"))
	assert.False(t, IsURL("front.jpg"))
}

func TestGenerateOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "front_overlay.png"),
		GenerateOutputFilename("/photos/front.jpg", "out", "", "_overlay", "png"))
	assert.Equal(t, filepath.Join("out", "dbg_side.jpg"),
		GenerateOutputFilename("side", "out", "dbg_", "", ""))
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.False(t, FileExists(dir))

	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, FileExists(path))
}
