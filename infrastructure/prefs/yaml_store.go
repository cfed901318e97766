// Package prefs persists client-side preferences in a small YAML file.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/ragconsole/internal/ports"
)

// DarkModeKey is the stored key of the theme preference.
const DarkModeKey = "darkMode"

// FileName is the default preference file name inside the config dir.
const FileName = "preferences.yaml"

// YAMLStore stores preferences as a flat YAML mapping. Unknown keys
// written by other versions are preserved on save.
type YAMLStore struct {
	mu   sync.Mutex
	path string
}

var _ ports.PreferenceStore = (*YAMLStore)(nil)

// NewYAMLStore returns a store backed by path. The file is created lazily
// on the first write.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// DefaultPath returns the preference file location under the user config
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "ragconsole", FileName), nil
}

// Path returns the backing file path.
func (s *YAMLStore) Path() string { return s.path }

// DarkMode returns the stored theme preference, false when unset.
func (s *YAMLStore) DarkMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return false, err
	}
	v, ok := values[DarkModeKey]
	if !ok {
		return false, nil
	}
	enabled, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("preference %q is %T, want bool", DarkModeKey, v)
	}
	return enabled, nil
}

// SetDarkMode writes the theme preference.
func (s *YAMLStore) SetDarkMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		// A corrupt file is replaced rather than blocking the toggle.
		values = map[string]any{}
	}
	values[DarkModeKey] = enabled
	return s.save(values)
}

func (s *YAMLStore) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func (s *YAMLStore) save(values map[string]any) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preference dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
