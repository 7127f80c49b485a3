package playground

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/testutil"
)

func TestSaveDataURL(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nested"))

	name, err := fs.SaveDataURL(testutil.TestPNGDataURL, "webp")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(name))

	path, ok := fs.Path(name)
	require.True(t, ok)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveDataURLFallbackExtension(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	name, err := fs.SaveDataURL("data:application/octet-stream;base64,AAEC", "webp")
	require.NoError(t, err)
	assert.Equal(t, ".webp", filepath.Ext(name))
}

func TestSaveDataURLRejectsMalformed(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	_, err := fs.SaveDataURL("https://example.com/a.png", "png")
	assert.ErrorIs(t, err, errNotDataURL)

	_, err = fs.SaveDataURL("data:image/png,plain", "png")
	assert.ErrorIs(t, err, errNotDataURL)

	_, err = fs.SaveDataURL("data:image/png;base64,!!!", "png")
	assert.Error(t, err)
}

func TestPathRejectsTraversal(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	for _, name := range []string{"", "../etc/passwd", "a/b.png", ".hidden"} {
		_, ok := fs.Path(name)
		assert.False(t, ok, name)
	}
	_, ok := fs.Path("0b7e.png")
	assert.True(t, ok)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)

	oldFile := filepath.Join(dir, "old.png")
	newFile := filepath.Join(dir, "new.png")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("y"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	removed, err := fs.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	assert.NoError(t, err)
}

func TestCleanupMissingDir(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing"))
	removed, err := fs.Cleanup(time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, removed)
}
