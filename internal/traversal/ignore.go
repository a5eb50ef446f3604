package traversal

import (
	"os"
	"path/filepath"

	gitignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/utils"
)

const logMessageIgnoreLoadFailed = "failed to load ignore file"

// ignoreRules holds the .gitignore matchers discovered during a walk, keyed by the
// directory that contains each file. A matcher applies to that directory's subtree.
type ignoreRules struct {
	enabled  bool
	root     string
	matchers map[string]gitignore.IgnoreMatcher
	logger   *zap.Logger
}

func newIgnoreRules(root string, enabled bool, logger *zap.Logger) *ignoreRules {
	return &ignoreRules{
		enabled:  enabled,
		root:     root,
		matchers: make(map[string]gitignore.IgnoreMatcher),
		logger:   logger,
	}
}

// load registers the .gitignore of directory when one exists.
func (rules *ignoreRules) load(directory string) {
	if !rules.enabled {
		return
	}
	ignoreFilePath := filepath.Join(directory, utils.GitIgnoreFileName)
	if _, statError := os.Stat(ignoreFilePath); statError != nil {
		return
	}
	matcher, matcherError := gitignore.NewGitIgnore(ignoreFilePath, directory)
	if matcherError != nil {
		rules.logger.Debug(logMessageIgnoreLoadFailed, zap.String("path", ignoreFilePath), zap.Error(matcherError))
		return
	}
	rules.matchers[directory] = matcher
}

// ignored reports whether any ancestor .gitignore up to the root matches path.
func (rules *ignoreRules) ignored(path string, isDirectory bool) bool {
	if !rules.enabled || path == rules.root {
		return false
	}
	directory := filepath.Dir(path)
	for {
		if matcher, found := rules.matchers[directory]; found && matcher.Match(path, isDirectory) {
			return true
		}
		parentDirectory := filepath.Dir(directory)
		if directory == rules.root || parentDirectory == directory {
			return false
		}
		directory = parentDirectory
	}
}
