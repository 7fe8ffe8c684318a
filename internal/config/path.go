// Package config loads application settings from viper, environment files and
// the categories file.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultDir returns $HOME/.config/budgetbuddy.
func DefaultDir() string {
	return ExpandPath("~/.config/budgetbuddy")
}
