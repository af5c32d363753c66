package normalisers

import (
	"path/filepath"
	"strings"
)

// TitleFromFilename derives a human-readable title from a file name.
func TitleFromFilename(name string) string {
	filename := filepath.Base(name)
	if filename == "." || filename == "/" {
		return ""
	}

	// Remove the extension for a cleaner title
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return strings.TrimSpace(filename)
}
