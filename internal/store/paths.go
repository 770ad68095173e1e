package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
)

// HistoryFileName is the default database file inside ~/.dynpop.
const HistoryFileName = "history.db"

// GlobalDynpopPath returns the path to the global .dynpop directory.
// On Unix: ~/.dynpop
// On Windows: %USERPROFILE%\.dynpop
func GlobalDynpopPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.ConfigDirName), nil
}

// DefaultHistoryPath returns ~/.dynpop/history.db.
func DefaultHistoryPath() (string, error) {
	dir, err := GlobalDynpopPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, HistoryFileName), nil
}

// ResolveHistoryPath returns path, or the default history database when
// path is empty.
func ResolveHistoryPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultHistoryPath()
}
