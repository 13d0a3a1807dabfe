// Package dotdir manages the .relay/ and ~/.relay directories, which hold the
// relay's config.toml, credentials.toml and the default SQLite session store.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the relay directory.
const DirName = ".relay"

// Manager resolves the relay directory. The home directory lookup is a field
// so tests can point it elsewhere.
type Manager struct {
	home func() (string, error)
}

func NewManager() *Manager {
	return &Manager{home: os.UserHomeDir}
}

// Find returns the existing relay directory without creating anything.
// Precedence: the override, then ./.relay/, then ~/.relay/. An override that
// does not exist yet is not found.
func (m *Manager) Find(overrideDir string) (string, bool) {
	for _, dir := range m.candidates(overrideDir) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return "", false
			}
			return abs, true
		}
		if overrideDir != "" {
			return "", false
		}
	}
	return "", false
}

// Target returns the absolute path of the relay directory, creating it when
// missing. The override wins; otherwise an existing ./.relay/ is used and
// ~/.relay/ is the fallback.
func (m *Manager) Target(overrideDir string) (string, error) {
	if dir, ok := m.Find(overrideDir); ok {
		return dir, nil
	}

	dir := overrideDir
	if dir == "" {
		home, err := m.home()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating relay directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Path joins name onto the Target directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, name), nil
}

func (m *Manager) candidates(overrideDir string) []string {
	if overrideDir != "" {
		return []string{overrideDir}
	}

	dirs := []string{DirName}
	if home, err := m.home(); err == nil {
		dirs = append(dirs, filepath.Join(home, DirName))
	}
	return dirs
}
