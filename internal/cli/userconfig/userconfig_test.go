package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectedServerRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	selected, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, selected, "missing file means nothing selected")

	require.NoError(t, SetSelectedServer("http://localhost:8000"))
	require.NoError(t, SetLastEmail("ada@example.com"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.SelectedServerURL)
	assert.Equal(t, "ada@example.com", cfg.LastEmail)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "taskwiz", "config.json"), path)
}

func TestLoad_Corrupt(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := GetConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse user config file")
}
