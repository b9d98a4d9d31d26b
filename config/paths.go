package config

import (
	"path/filepath"
	"runtime"
)

const appName = "codeinterp"

// DefaultPath returns the config file location:
// $XDG_CONFIG_HOME/codeinterp/config.toml, else ~/.config/codeinterp/config.toml.
func DefaultPath(lookup func(string) (string, bool)) string {
	if dir, ok := lookup("XDG_CONFIG_HOME"); ok && dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	return filepath.Join(homeDir(lookup), ".config", appName, "config.toml")
}

// DefaultDataDir returns where histories and the Python venv live:
// $XDG_DATA_HOME/codeinterp, else ~/.local/share/codeinterp, or
// %LOCALAPPDATA%\codeinterp on Windows.
func DefaultDataDir(lookup func(string) (string, bool)) string {
	if runtime.GOOS == "windows" {
		if dir, ok := lookup("LOCALAPPDATA"); ok && dir != "" {
			return filepath.Join(dir, appName)
		}
		return filepath.Join(homeDir(lookup), "AppData", "Local", appName)
	}
	if dir, ok := lookup("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(lookup), ".local", "share", appName)
}

func homeDir(lookup func(string) (string, bool)) string {
	if runtime.GOOS == "windows" {
		if home, ok := lookup("USERPROFILE"); ok && home != "" {
			return home
		}
	}
	if home, ok := lookup("HOME"); ok && home != "" {
		return home
	}
	return "."
}
