// Package dotdir resolves the .factory/ directory that holds config.toml,
// credentials.toml and the default on-disk stores.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the factory state directory.
const DirName = ".factory"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .factory/ directory, creating it
// when missing. Precedence:
//  1. overrideDir when non-empty
//  2. ./.factory/ when it exists
//  3. ~/.factory/
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating factory directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Path joins name onto the resolved target directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
