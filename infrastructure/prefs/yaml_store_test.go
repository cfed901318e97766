package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLStore_DefaultsToLight(t *testing.T) {
	s := NewYAMLStore(filepath.Join(t.TempDir(), "prefs.yaml"))

	enabled, err := s.DarkMode()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestYAMLStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s := NewYAMLStore(path)

	require.NoError(t, s.SetDarkMode(true))
	enabled, err := NewYAMLStore(path).DarkMode()
	require.NoError(t, err)
	assert.True(t, enabled, "a fresh store should read the persisted value")

	require.NoError(t, s.SetDarkMode(false))
	enabled, err = s.DarkMode()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestYAMLStore_PreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fontSize: 14\n"), 0o600))

	s := NewYAMLStore(path)
	require.NoError(t, s.SetDarkMode(true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fontSize: 14")
	assert.Contains(t, string(data), "darkMode: true")
}

func TestYAMLStore_WrongTypeIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("darkMode: sometimes\n"), 0o600))

	_, err := NewYAMLStore(path).DarkMode()
	assert.Error(t, err)
}

func TestYAMLStore_CorruptFileIsReplacedOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::not yaml"), 0o600))

	s := NewYAMLStore(path)
	_, err := s.DarkMode()
	require.Error(t, err)

	require.NoError(t, s.SetDarkMode(true))
	enabled, err := s.DarkMode()
	require.NoError(t, err)
	assert.True(t, enabled)
}
