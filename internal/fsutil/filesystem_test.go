package fsutil

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "reports", "s1")
	require.NoError(t, osfs.MkdirAll(dir, 0755))
	assert.True(t, osfs.Exists(dir))

	name := filepath.Join(dir, "trial.csv")
	w, err := osfs.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte("a,b\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := osfs.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
	assert.False(t, osfs.Exists(filepath.Join(dir, "missing")))
}

func TestMemoryFileSystem(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/out/plots", 0755))
	assert.True(t, mfs.Exists("/out"))
	assert.True(t, mfs.Exists("/out/plots"))

	w, err := mfs.Create("/out/plots/a.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("png"))
	require.NoError(t, err)
	_, err = w.Write([]byte("!"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := mfs.ReadFile("/out/plots/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png!", string(data))

	// Returned data is a copy.
	data[0] = 'X'
	again, _ := mfs.ReadFile("/out/plots/a.png")
	assert.Equal(t, "png!", string(again))

	assert.Equal(t, []string{"/out/plots/a.png"}, mfs.Files("/out"))

	_, err = mfs.ReadFile("/out/none")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
