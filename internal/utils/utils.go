// Package utils contains general helper functions used across the codeprompt tool.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Ignore file constants used across the project.
const (
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

const (
	commaDelimiter   = ","
	currentDirectory = "."
	parentDirectory  = ".."
	relativePrefix   = "./"
)

// ParseCommaDelimited splits a comma-delimited flag value into trimmed parts.
// An empty value yields an empty slice.
func ParseCommaDelimited(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, commaDelimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		result = append(result, strings.TrimSpace(part))
	}
	return result
}

// Basename returns the final element of path. Paths without a file name
// component ("", ".", ".." or a filesystem root) resolve to the name of the
// working directory, or "." when that cannot be determined.
func Basename(path string) string {
	if path == "" {
		return workingDirectoryName()
	}
	baseName := filepath.Base(filepath.Clean(path))
	switch baseName {
	case currentDirectory, parentDirectory, string(filepath.Separator):
		return workingDirectoryName()
	}
	return baseName
}

func workingDirectoryName() string {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return currentDirectory
	}
	baseName := filepath.Base(workingDirectory)
	if baseName == string(filepath.Separator) || baseName == currentDirectory {
		return currentDirectory
	}
	return baseName
}

// StripRelativePrefix removes a single leading "./" from a forward-slash path.
func StripRelativePrefix(path string) string {
	return strings.TrimPrefix(path, relativePrefix)
}

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// RelativeToDirectory returns path relative to directory in forward-slash form.
// The second result is false when path does not lie inside directory, in which
// case the raw path is returned.
func RelativeToDirectory(path, directory string) (string, bool) {
	if directory == "" {
		return filepath.ToSlash(path), false
	}
	relativePath, relErr := filepath.Rel(directory, path)
	if relErr != nil || relativePath == parentDirectory || strings.HasPrefix(relativePath, parentDirectory+string(filepath.Separator)) {
		return filepath.ToSlash(path), false
	}
	return filepath.ToSlash(relativePath), true
}
