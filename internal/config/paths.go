package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the dais config directory under the user config base.
// On Linux this typically resolves to $XDG_CONFIG_HOME/dais; on macOS to
// ~/Library/Application Support/dais. Falls back to HOME when
// UserConfigDir is unavailable.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		if home, herr := os.UserHomeDir(); herr == nil {
			base = home
		} else {
			return "", errors.New("cannot determine config directory")
		}
	}
	return filepath.Join(base, "dais"), nil
}

// HistoryPath returns the command history file location.
func HistoryPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "history"), nil
}

// PluginDir returns the extension scripts directory.
func PluginDir() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "plugins"), nil
}

// AgentDir returns the directory holding prebuilt remote agent binaries
// (dais-agent-linux-amd64 and friends).
func AgentDir() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "agents"), nil
}
