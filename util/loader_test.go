package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.png", "cover.webp", "notes.txt", "frame-1.JPEG"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
		assert.Equal(t, filepath.Base(f.Path), string(f.Data))
	}
	assert.Equal(t, []string{"cover.webp", "frame-1.JPEG", "frame-2.png", "frame-10.jpg"}, names)
	assert.Equal(t, -1, files[0].Frame)
	assert.Equal(t, 10, files[3].Frame)
}

func TestLoadDirectoryImageFiles_MissingDir(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSaveImageBytes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")

	path, err := SaveImageBytes(dir, "result.jpg", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result.jpg"), path)

	f, err := LoadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), f.Data)
	assert.Equal(t, -1, f.Frame)
}
