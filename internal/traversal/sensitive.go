package traversal

import (
	"context"
	"path/filepath"

	"github.com/gobwas/glob"
)

// SensitiveFilePatterns lists file-name globs that commonly hold secrets.
var SensitiveFilePatterns = []string{
	".env",
	".env.local",
	".env.production",
	".env.development",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"id_rsa",
	"id_dsa",
	"*.secret",
	"secrets.yml",
	"secrets.yaml",
	"credentials.json",
}

var sensitiveFileMatchers = compileSensitivePatterns()

func compileSensitivePatterns() []glob.Glob {
	matchers := make([]glob.Glob, 0, len(SensitiveFilePatterns))
	for _, pattern := range SensitiveFilePatterns {
		matchers = append(matchers, glob.MustCompile(pattern))
	}
	return matchers
}

// IsSensitiveFile reports whether the final component of path matches a sensitive pattern.
func IsSensitiveFile(path string) bool {
	fileName := filepath.Base(path)
	for _, matcher := range sensitiveFileMatchers {
		if matcher.Match(fileName) {
			return true
		}
	}
	return false
}

// ScanSensitiveFiles lists the selected files under the configured root whose names
// look like secrets. Paths are relative to the working directory when possible.
// The scan walks the same entries Traverse does and applies the same selection.
func ScanSensitiveFiles(ctx context.Context, config Config) ([]string, error) {
	prepared, prepareError := prepare(config)
	if prepareError != nil {
		return nil, prepareError
	}
	return prepared.scanSensitive(ctx)
}
