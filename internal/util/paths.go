package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the conflictfix configuration directory.
const HomeEnv = "CONFLICTFIX_HOME"

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ConfigPath returns the conflictfix configuration directory.
// CONFLICTFIX_HOME takes precedence over ~/.config/conflictfix.
func ConfigPath() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	return filepath.Join(HomeDir(), ".config", "conflictfix")
}

// BackupsPath returns the directory holding file backups and their index.
func BackupsPath() string {
	return filepath.Join(ConfigPath(), "backups")
}

// ExpandPath expands a leading ~ to the home directory and resolves
// relative paths against baseDir. An empty baseDir leaves relative paths alone.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
