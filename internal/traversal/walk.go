package traversal

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/utils"
)

const logMessageWalkEntryFailed = "skipping unreadable entry"

// walkEntry describes one visited filesystem entry below the root.
type walkEntry struct {
	path         string
	relativePath string
	// insideRoot is false when the entry resolves outside the root.
	insideRoot  bool
	isDirectory bool
	isFile      bool
}

// walkRoot visits every entry under root except root itself, honoring .gitignore
// files when enabled and skipping the .git directory unless includeGit is set.
// Unreadable entries are logged and skipped.
func walkRoot(ctx context.Context, root string, useGitignore, includeGit bool, logger *zap.Logger, visit func(walkEntry) error) error {
	rules := newIgnoreRules(root, useGitignore, logger)
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkError error) error {
		if contextError := ctx.Err(); contextError != nil {
			return contextError
		}
		if walkError != nil {
			logger.Debug(logMessageWalkEntryFailed, zap.String("path", path), zap.Error(walkError))
			return nil
		}
		if path == root {
			rules.load(root)
			return nil
		}

		isDirectory := entry.IsDir()
		if isDirectory && entry.Name() == utils.GitDirectoryName && !includeGit {
			return filepath.SkipDir
		}
		if rules.ignored(path, isDirectory) {
			if isDirectory {
				return filepath.SkipDir
			}
			return nil
		}
		if isDirectory {
			rules.load(path)
		}

		relativePath, insideRoot := utils.RelativeToDirectory(path, root)
		return visit(walkEntry{
			path:         path,
			relativePath: relativePath,
			insideRoot:   insideRoot,
			isDirectory:  isDirectory,
			isFile:       isRegularFile(path, entry),
		})
	})
}

// isRegularFile follows symbolic links the way a stat would.
func isRegularFile(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	targetInfo, statError := os.Stat(path)
	return statError == nil && targetInfo.Mode().IsRegular()
}
