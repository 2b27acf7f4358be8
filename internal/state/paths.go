package state

import (
	"errors"
	"path/filepath"
)

// Directory and file names of the global state.
const (
	AppDirName      = "katac"
	WorkspacesFile  = "katac.json"
	GlobalKatasFile = "global_katas.json"
	HistoryFile     = "history.db"
)

// DataDir returns the per-OS user data directory: %USERPROFILE%\katac on
// Windows, $HOME/.local/share/katac elsewhere.
func DataDir(goos string, getenv func(string) string) (string, error) {
	if goos == "windows" {
		profile := getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("state: USERPROFILE is not set")
		}
		return filepath.Join(profile, AppDirName), nil
	}
	home := getenv("HOME")
	if home == "" {
		return "", errors.New("state: HOME is not set")
	}
	return filepath.Join(home, ".local", "share", AppDirName), nil
}

// Author returns the current user name, "unknown" when not set.
func Author(goos string, getenv func(string) string) string {
	keys := []string{"USER"}
	if goos == "windows" {
		keys = []string{"USERNAME", "USER"}
	}
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return "unknown"
}
