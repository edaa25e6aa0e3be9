package global

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigDir returns ~/.config/ollaterm.
func DefaultConfigDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("OLLATERM_CONFIG_DIR")); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ollaterm"), nil
}

// DatabasePath returns the sqlite file inside the config dir.
func DatabasePath(dir string) string {
	return filepath.Join(dir, "ollaterm.db")
}
