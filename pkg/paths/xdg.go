// Package paths resolves the XDG-style directories used by hyakvnc.
package paths

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the directory holding hyakvnc.yml.
// HYAKVNC_CONFIG_DIR overrides the XDG default.
func ConfigDir() string {
	if dir := os.Getenv("HYAKVNC_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hyakvnc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hyakvnc"
	}
	return filepath.Join(home, ".config", "hyakvnc")
}

// StateDir returns the directory holding session records and logs.
// HYAKVNC_STATE_DIR overrides the XDG default.
func StateDir() string {
	if dir := os.Getenv("HYAKVNC_STATE_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "hyakvnc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hyakvnc"
	}
	return filepath.Join(home, ".local", "state", "hyakvnc")
}

// SessionsDir returns the root directory of per-session state directories.
func SessionsDir() string {
	return filepath.Join(StateDir(), "sessions")
}

// LogsDir returns the directory log files are written to.
func LogsDir() string {
	return filepath.Join(StateDir(), "logs")
}
