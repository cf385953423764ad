package store

import (
	"os"
	"path/filepath"
)

// AppDirName is the per-user configuration directory name.
const AppDirName = "stmt-forensics"

// FindConfigFile looks for filename as given, then under ./config, then in
// $HOME/.config/stmt-forensics.
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", AppDirName, filename))
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// DefaultDatabasePath is where the history database lives when none is configured.
func DefaultDatabasePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", AppDirName, "history.db")
	}
	return "history.db"
}
