package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSave(t *testing.T) {
	dir := t.TempDir()

	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Zero(t, manager.GetSavedCount())
	assert.False(t, manager.Exists("instatrack_results_2024-03-01.json"))

	path, err := manager.Save(strings.NewReader(`{"count":0}`), "instatrack_results_2024-03-01.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "instatrack_results_2024-03-01.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"count":0}`, string(content))

	assert.True(t, manager.Exists("instatrack_results_2024-03-01.json"))
	assert.Equal(t, 1, manager.GetSavedCount())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should not remain")
}

func TestManagerSaveReplaces(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.Save(strings.NewReader("first"), "instatrack_results_2024-03-01.json")
	require.NoError(t, err)
	path, err := manager.Save(strings.NewReader("second"), "instatrack_results_2024-03-01.json")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
	assert.Equal(t, 1, manager.GetSavedCount())
}

func TestManagerRejectsPaths(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.json", "sub/file.json"} {
		_, err := manager.Save(strings.NewReader("x"), name)
		assert.Error(t, err, name)
	}
}

func TestManagerScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instatrack_results_2024-01-02.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instatrack_results_2024-01-01.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"instatrack_results_2024-01-01.json",
		"instatrack_results_2024-01-02.json",
	}, manager.List())
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")

	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, manager.GetOutputDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
