package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanedFileName is the file the cleaner writes next to its input.
const CleanedFileName = "cleaned_filters.yaml"

var documentExtensions = []string{".yaml", ".yml", ".json"}

// CheckPath verifies that path names an existing regular file with a
// document extension.
func CheckPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range documentExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("file must end with one of %s: %s", strings.Join(documentExtensions, ", "), path)
}

// CleanedPath returns the output path of the cleaner for input.
func CleanedPath(input string) string {
	return filepath.Join(filepath.Dir(input), CleanedFileName)
}
