// Package traversal selects files under a root directory through include and
// exclude glob rules and renders them as a directory tree plus formatted content blocks.
package traversal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/services/confirm"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	errorRootFormat             = "%w: %s: %v"
	errorRootNotDirectoryFormat = "%w: %s is not a directory"
	errorIncludePatternsFormat  = "compiling include patterns: %w"
	errorExcludePatternsFormat  = "compiling exclude patterns: %w"
	errorWorkingDirectoryFormat = "getting working directory: %w"
	errorWalkFormat             = "walking %s: %w"

	logMessageReadFailed   = "failed to read file"
	logMessageSkippedBlock = "skipping empty or binary file"
	logMessageTraversal    = "traversal finished"

	pathSeparator      = "/"
	extensionSeparator = "."
)

// Config controls a single traversal. The same include and exclude patterns
// drive tree pruning, content selection and the sensitive file scan.
type Config struct {
	Root            string
	Include         []string
	Exclude         []string
	ExcludePriority bool
	LineNumbers     bool
	RelativePaths   bool
	ExcludeFromTree bool
	CodeBlock       bool
	UseGitignore    bool
	IncludeGit      bool
	// WorkingDirectory anchors relative pattern matching and display paths.
	// It defaults to the process working directory.
	WorkingDirectory string
	// Confirmer approves sensitive matches. It defaults to a terminal prompt.
	Confirmer confirm.Confirmer
	Logger    *zap.Logger
}

// Result is the outcome of a traversal.
type Result struct {
	Tree  string
	Files []types.FileRecord
}

// Paths returns the display paths of the selected files in output order.
func (result Result) Paths() []string {
	paths := make([]string, 0, len(result.Files))
	for _, file := range result.Files {
		paths = append(paths, file.Path)
	}
	return paths
}

type preparedTraversal struct {
	config    Config
	root      string
	rootLabel string
	matcher   *Matcher
	logger    *zap.Logger
}

func prepare(config Config) (*preparedTraversal, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	absoluteRoot, absoluteError := filepath.Abs(config.Root)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorRootFormat, ErrRootUnavailable, config.Root, absoluteError)
	}
	canonicalRoot, canonicalError := filepath.EvalSymlinks(absoluteRoot)
	if canonicalError != nil {
		return nil, fmt.Errorf(errorRootFormat, ErrRootUnavailable, config.Root, canonicalError)
	}
	rootInfo, statError := os.Stat(canonicalRoot)
	if statError != nil {
		return nil, fmt.Errorf(errorRootFormat, ErrRootUnavailable, config.Root, statError)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf(errorRootNotDirectoryFormat, ErrRootUnavailable, config.Root)
	}

	includePatterns, includeError := CompilePatterns(config.Include)
	if includeError != nil {
		return nil, fmt.Errorf(errorIncludePatternsFormat, includeError)
	}
	excludePatterns, excludeError := CompilePatterns(config.Exclude)
	if excludeError != nil {
		return nil, fmt.Errorf(errorExcludePatternsFormat, excludeError)
	}

	if config.WorkingDirectory == "" {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return nil, fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		config.WorkingDirectory = workingDirectory
	}

	matcher := NewMatcher(includePatterns, excludePatterns, config.ExcludePriority, config.RelativePaths, config.WorkingDirectory, logger)
	return &preparedTraversal{
		config:    config,
		root:      canonicalRoot,
		rootLabel: utils.Basename(canonicalRoot),
		matcher:   matcher,
		logger:    logger,
	}, nil
}

func (prepared *preparedTraversal) scanSensitive(ctx context.Context) ([]string, error) {
	matches := []string{}
	walkError := walkRoot(ctx, prepared.root, prepared.config.UseGitignore, prepared.config.IncludeGit, prepared.logger, func(entry walkEntry) error {
		if !entry.isFile || !IsSensitiveFile(entry.path) || !prepared.matcher.Decide(entry.path) {
			return nil
		}
		displayPath := filepath.ToSlash(entry.path)
		if prepared.config.RelativePaths {
			displayPath, _ = utils.RelativeToDirectory(entry.path, prepared.matcher.workingDirectory)
		}
		matches = append(matches, displayPath)
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(errorWalkFormat, prepared.root, walkError)
	}
	return matches, nil
}

// Traverse walks the configured root, builds the directory tree and collects the
// formatted content of every selected file. Sensitive files are confirmed before
// any content is read; a declined confirmation returns ErrUserCancelled.
func Traverse(ctx context.Context, config Config) (Result, error) {
	prepared, prepareError := prepare(config)
	if prepareError != nil {
		return Result{}, prepareError
	}

	sensitiveMatches, scanError := prepared.scanSensitive(ctx)
	if scanError != nil {
		return Result{}, scanError
	}
	confirmer := prepared.config.Confirmer
	if confirmer == nil {
		confirmer = confirm.NewPrompter(os.Stdin, os.Stderr)
	}
	if !confirmer.Confirm(sensitiveMatches) {
		return Result{}, ErrUserCancelled
	}

	tree := NewTreeNode(prepared.rootLabel)
	files := []types.FileRecord{}
	walkError := walkRoot(ctx, prepared.root, prepared.config.UseGitignore, prepared.config.IncludeGit, prepared.logger, func(entry walkEntry) error {
		if entry.relativePath == "" || !entry.insideRoot {
			return nil
		}
		if prepared.config.ExcludeFromTree && !prepared.matcher.Decide(entry.path) {
			return nil
		}
		tree.Insert(strings.Split(entry.relativePath, pathSeparator))

		if !entry.isFile || !prepared.matcher.Decide(entry.path) {
			return nil
		}
		record, emittable := prepared.readRecord(entry)
		if emittable {
			files = append(files, record)
		}
		return nil
	})
	if walkError != nil {
		return Result{}, fmt.Errorf(errorWalkFormat, prepared.root, walkError)
	}

	prepared.logger.Debug(logMessageTraversal, zap.String("root", prepared.root), zap.Int("files", len(files)))
	return Result{Tree: tree.String(), Files: files}, nil
}

// readRecord reads and formats one selected file. Blocks that are blank or hold
// replacement characters are skipped, and so is content with NUL bytes even
// when it is valid UTF-8.
func (prepared *preparedTraversal) readRecord(entry walkEntry) (types.FileRecord, bool) {
	content, readError := os.ReadFile(entry.path)
	if readError != nil {
		prepared.logger.Debug(logMessageReadFailed, zap.String("path", entry.path), zap.Error(readError))
		return types.FileRecord{}, false
	}
	extension := FileExtension(entry.path)
	block := FormatContent(content, extension, prepared.config.LineNumbers, prepared.config.CodeBlock)
	if !IsEmittable(block) || utils.IsBinary(content) {
		prepared.logger.Debug(logMessageSkippedBlock, zap.String("path", entry.path))
		return types.FileRecord{}, false
	}

	displayPath := filepath.ToSlash(entry.path)
	if prepared.config.RelativePaths {
		displayPath = prepared.rootLabel + pathSeparator + entry.relativePath
	}
	return types.FileRecord{Path: displayPath, Extension: extension, Code: block}, true
}

// FileExtension returns the extension of the final path component without its
// leading dot. Dot files such as ".env" have no extension.
func FileExtension(path string) string {
	fileName := filepath.Base(path)
	separatorIndex := strings.LastIndex(fileName, extensionSeparator)
	if separatorIndex <= 0 {
		return ""
	}
	return fileName[separatorIndex+1:]
}
