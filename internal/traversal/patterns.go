package traversal

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/utils"
)

const (
	errorInvalidPatternFormat = "%w %q: %v"

	logMessageCanonicalizeFailed = "failed to canonicalize path"
	logMessageDecision           = "pattern decision"
)

// PatternSet is a compiled, immutable set of glob patterns matched with any-of
// semantics. Wildcards match across "/" separators.
type PatternSet struct {
	sources  []string
	matchers []glob.Glob
}

// CompilePatterns compiles glob patterns after stripping a leading "./" from each.
// Empty patterns are skipped. Any invalid pattern fails the whole set.
func CompilePatterns(patterns []string) (PatternSet, error) {
	var compiled PatternSet
	for _, pattern := range patterns {
		normalizedPattern := utils.StripRelativePrefix(filepath.ToSlash(strings.TrimSpace(pattern)))
		if normalizedPattern == "" {
			continue
		}
		matcher, compileError := glob.Compile(normalizedPattern)
		if compileError != nil {
			return PatternSet{}, fmt.Errorf(errorInvalidPatternFormat, ErrInvalidPattern, pattern, compileError)
		}
		compiled.sources = append(compiled.sources, normalizedPattern)
		compiled.matchers = append(compiled.matchers, matcher)
	}
	return compiled, nil
}

// IsEmpty reports whether the set holds no patterns.
func (set PatternSet) IsEmpty() bool {
	return len(set.matchers) == 0
}

// Patterns returns the normalized source patterns.
func (set PatternSet) Patterns() []string {
	return append([]string(nil), set.sources...)
}

// Matches reports whether any pattern in the set matches candidate.
// An empty set matches nothing.
func (set PatternSet) Matches(candidate string) bool {
	for _, matcher := range set.matchers {
		if matcher.Match(candidate) {
			return true
		}
	}
	return false
}

type matchOutcome struct {
	includeMatched bool
	excludeMatched bool
}

// decisionTable resolves an include/exclude outcome into an inclusion decision.
var decisionTable = map[matchOutcome]func(excludePriority bool, includeEmpty bool) bool{
	{includeMatched: true, excludeMatched: true}:   func(excludePriority bool, _ bool) bool { return !excludePriority },
	{includeMatched: true, excludeMatched: false}:  func(bool, bool) bool { return true },
	{includeMatched: false, excludeMatched: true}:  func(bool, bool) bool { return false },
	{includeMatched: false, excludeMatched: false}: func(_ bool, includeEmpty bool) bool { return includeEmpty },
}

// Resolve applies the decision table to the outcome of matching one path.
func Resolve(includeMatched, excludeMatched, excludePriority, includeEmpty bool) bool {
	return decisionTable[matchOutcome{includeMatched: includeMatched, excludeMatched: excludeMatched}](excludePriority, includeEmpty)
}

// Matcher decides whether paths are selected by include and exclude pattern sets.
type Matcher struct {
	include          PatternSet
	exclude          PatternSet
	excludePriority  bool
	relativePaths    bool
	workingDirectory string
	logger           *zap.Logger
}

// NewMatcher builds a Matcher over compiled pattern sets. Relative comparisons are
// made against workingDirectory, which is canonicalized once here.
func NewMatcher(include, exclude PatternSet, excludePriority, relativePaths bool, workingDirectory string, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if canonicalDirectory, canonicalError := filepath.EvalSymlinks(workingDirectory); canonicalError == nil && workingDirectory != "" {
		workingDirectory = canonicalDirectory
	}
	return &Matcher{
		include:          include,
		exclude:          exclude,
		excludePriority:  excludePriority,
		relativePaths:    relativePaths,
		workingDirectory: workingDirectory,
		logger:           logger,
	}
}

// Decide reports whether path is selected. A path that cannot be canonicalized
// is never selected.
func (matcher *Matcher) Decide(path string) bool {
	canonicalPath, canonicalError := canonicalize(path)
	if canonicalError != nil {
		matcher.logger.Debug(logMessageCanonicalizeFailed, zap.String("path", path), zap.Error(canonicalError))
		return false
	}

	candidate := filepath.ToSlash(canonicalPath)
	if matcher.relativePaths {
		relativePath, inside := utils.RelativeToDirectory(canonicalPath, matcher.workingDirectory)
		if !inside {
			relativePath = filepath.ToSlash(path)
		}
		candidate = utils.StripRelativePrefix(relativePath)
	}

	includeMatched := matcher.include.Matches(candidate)
	excludeMatched := matcher.exclude.Matches(candidate)
	decision := Resolve(includeMatched, excludeMatched, matcher.excludePriority, matcher.include.IsEmpty())
	matcher.logger.Debug(logMessageDecision,
		zap.String("path", candidate),
		zap.Bool("include_match", includeMatched),
		zap.Bool("exclude_match", excludeMatched),
		zap.Bool("exclude_priority", matcher.excludePriority),
		zap.Bool("selected", decision),
	)
	return decision
}

func canonicalize(path string) (string, error) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return "", absoluteError
	}
	return filepath.EvalSymlinks(absolutePath)
}
