// Package pathutil resolves and redacts the output paths cmr writes to.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for log lines.
// For example, "/home/user/.cmr/trials.db" becomes ".../.cmr/trials.db".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}

// CleanOutputPath expands "~" and cleans path. Empty stays empty.
// Paths with null bytes are rejected.
func CleanOutputPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("invalid path: contains null byte")
	}
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}
