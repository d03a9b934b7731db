package paths

import (
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the per-user flowbridge directory
const HomeEnvVar = "FLOWBRIDGE_HOME"

// DefaultHomeDir is the per-user directory name under $HOME
const DefaultHomeDir = ".flowbridge"

// Canonical returns the absolute, symlink-resolved form of path.
// Paths that do not exist yet are made absolute and cleaned only.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", err
	}
	return resolved, nil
}

// FindUp walks from start towards the filesystem root and returns the first
// directory containing a regular file named marker.
func FindUp(start, marker string) (string, bool) {
	dir, err := Canonical(start)
	if err != nil {
		return "", false
	}

	for {
		info, err := os.Stat(filepath.Join(dir, marker))
		if err == nil && !info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Home returns the per-user flowbridge directory, honouring FLOWBRIDGE_HOME
func Home() (string, error) {
	if h := os.Getenv(HomeEnvVar); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userHome, DefaultHomeDir), nil
}

// DefaultLogPath is where long-running modes log when no file is configured
func DefaultLogPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "logs", "flowbridge.log"), nil
}
