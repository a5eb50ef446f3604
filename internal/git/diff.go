// Package git produces diff text and remote metadata for the repository that
// contains the traversal root.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DiffMode selects which changes a diff describes.
type DiffMode int

const (
	// DiffStaged compares the HEAD tree with the index.
	DiffStaged DiffMode = iota
	// DiffUnstaged compares the index with the working tree.
	DiffUnstaged
	// DiffBoth is the staged diff followed by the unstaged diff.
	DiffBoth
)

const (
	// errorOpenRepositoryFormat is used when no repository contains the path.
	errorOpenRepositoryFormat = "opening repository at %s: %w"
	// errorHeadTreeFormat is used when the HEAD commit tree cannot be loaded.
	errorHeadTreeFormat = "reading HEAD tree: %w"
	// errorIndexFormat is used when the index cannot be loaded.
	errorIndexFormat = "reading index: %w"
	// errorWorktreeFormat is used when the worktree cannot be opened.
	errorWorktreeFormat = "opening worktree: %w"
	// errorBlobFormat is used when an object referenced by the tree or index is missing.
	errorBlobFormat = "reading blob %s for %s: %w"
	// errorWorktreeFileFormat is used when a tracked file cannot be read from the worktree.
	errorWorktreeFileFormat = "reading %s from worktree: %w"
	// errorEncodePatchFormat is used when the unified patch cannot be written.
	errorEncodePatchFormat = "encoding patch: %w"
	// errorUnknownModeFormat is used for an unsupported DiffMode.
	errorUnknownModeFormat = "unknown diff mode %d"
)

// ErrNotRepository reports a path that is not inside a git repository.
var ErrNotRepository = errors.New("not a git repository")

// IsRepository reports whether path lies inside a git working tree.
func IsRepository(path string) bool {
	_, openError := openRepository(path)
	return openError == nil
}

func openRepository(path string) (*gogit.Repository, error) {
	repository, openError := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if openError != nil {
		if errors.Is(openError, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf(errorOpenRepositoryFormat, path, ErrNotRepository)
		}
		return nil, fmt.Errorf(errorOpenRepositoryFormat, path, openError)
	}
	return repository, nil
}

// Diff renders the requested changes of the repository containing
// repositoryPath as unified patch text. An empty string means no changes.
func Diff(repositoryPath string, mode DiffMode) (string, error) {
	repository, openError := openRepository(repositoryPath)
	if openError != nil {
		return "", openError
	}

	var filePatches []diff.FilePatch
	switch mode {
	case DiffStaged:
		stagedPatches, stagedError := stagedChanges(repository)
		if stagedError != nil {
			return "", stagedError
		}
		filePatches = stagedPatches
	case DiffUnstaged:
		unstagedPatches, unstagedError := unstagedChanges(repository)
		if unstagedError != nil {
			return "", unstagedError
		}
		filePatches = unstagedPatches
	case DiffBoth:
		stagedPatches, stagedError := stagedChanges(repository)
		if stagedError != nil {
			return "", stagedError
		}
		unstagedPatches, unstagedError := unstagedChanges(repository)
		if unstagedError != nil {
			return "", unstagedError
		}
		filePatches = append(stagedPatches, unstagedPatches...)
	default:
		return "", fmt.Errorf(errorUnknownModeFormat, mode)
	}

	if len(filePatches) == 0 {
		return "", nil
	}
	var buffer bytes.Buffer
	encoder := diff.NewUnifiedEncoder(&buffer, diff.DefaultContextLines)
	if encodeError := encoder.Encode(&patch{filePatches: filePatches}); encodeError != nil {
		return "", fmt.Errorf(errorEncodePatchFormat, encodeError)
	}
	return buffer.String(), nil
}

// trackedFile is one side of a comparison.
type trackedFile struct {
	path string
	hash plumbing.Hash
	mode filemode.FileMode
}

func stagedChanges(repository *gogit.Repository) ([]diff.FilePatch, error) {
	headFiles, headError := headTreeFiles(repository)
	if headError != nil {
		return nil, headError
	}
	repositoryIndex, indexError := repository.Storer.Index()
	if indexError != nil {
		return nil, fmt.Errorf(errorIndexFormat, indexError)
	}
	indexFiles := indexEntries(repositoryIndex)

	var filePatches []diff.FilePatch
	for _, path := range unionPaths(headFiles, indexFiles) {
		fromFile, inHead := headFiles[path]
		toFile, inIndex := indexFiles[path]
		if inHead && inIndex && fromFile.hash == toFile.hash && fromFile.mode == toFile.mode {
			continue
		}
		fromContent, fromError := blobContent(repository, fromFile, inHead)
		if fromError != nil {
			return nil, fromError
		}
		toContent, toError := blobContent(repository, toFile, inIndex)
		if toError != nil {
			return nil, toError
		}
		filePatches = append(filePatches, newFilePatch(optionalFile(fromFile, inHead), optionalFile(toFile, inIndex), fromContent, toContent))
	}
	return filePatches, nil
}

func unstagedChanges(repository *gogit.Repository) ([]diff.FilePatch, error) {
	repositoryIndex, indexError := repository.Storer.Index()
	if indexError != nil {
		return nil, fmt.Errorf(errorIndexFormat, indexError)
	}
	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return nil, fmt.Errorf(errorWorktreeFormat, worktreeError)
	}

	indexFiles := indexEntries(repositoryIndex)
	paths := make([]string, 0, len(indexFiles))
	for path := range indexFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var filePatches []diff.FilePatch
	for _, path := range paths {
		indexFile := indexFiles[path]
		worktreeContent, present, readError := readWorktreeFile(worktree, path)
		if readError != nil {
			return nil, readError
		}
		if present && plumbing.ComputeHash(plumbing.BlobObject, worktreeContent) == indexFile.hash {
			continue
		}
		indexContent, blobError := blobContent(repository, indexFile, true)
		if blobError != nil {
			return nil, blobError
		}
		var worktreeFile *trackedFile
		if present {
			worktreeFile = &trackedFile{
				path: path,
				hash: plumbing.ComputeHash(plumbing.BlobObject, worktreeContent),
				mode: indexFile.mode,
			}
		}
		filePatches = append(filePatches, newFilePatch(&indexFile, worktreeFile, indexContent, worktreeContent))
	}
	return filePatches, nil
}

// headTreeFiles lists the files of the HEAD commit. A repository without
// commits has an empty HEAD tree.
func headTreeFiles(repository *gogit.Repository) (map[string]trackedFile, error) {
	files := make(map[string]trackedFile)
	headReference, headError := repository.Head()
	if errors.Is(headError, plumbing.ErrReferenceNotFound) {
		return files, nil
	}
	if headError != nil {
		return nil, fmt.Errorf(errorHeadTreeFormat, headError)
	}
	headCommit, commitError := repository.CommitObject(headReference.Hash())
	if commitError != nil {
		return nil, fmt.Errorf(errorHeadTreeFormat, commitError)
	}
	headTree, treeError := headCommit.Tree()
	if treeError != nil {
		return nil, fmt.Errorf(errorHeadTreeFormat, treeError)
	}
	walkError := headTree.Files().ForEach(func(file *object.File) error {
		files[file.Name] = trackedFile{path: file.Name, hash: file.Hash, mode: file.Mode}
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(errorHeadTreeFormat, walkError)
	}
	return files, nil
}

func indexEntries(repositoryIndex *index.Index) map[string]trackedFile {
	files := make(map[string]trackedFile, len(repositoryIndex.Entries))
	for _, entry := range repositoryIndex.Entries {
		files[entry.Name] = trackedFile{path: entry.Name, hash: entry.Hash, mode: entry.Mode}
	}
	return files
}

func unionPaths(first, second map[string]trackedFile) []string {
	seen := make(map[string]struct{}, len(first)+len(second))
	for path := range first {
		seen[path] = struct{}{}
	}
	for path := range second {
		seen[path] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func optionalFile(file trackedFile, present bool) *trackedFile {
	if !present {
		return nil
	}
	return &file
}

func blobContent(repository *gogit.Repository, file trackedFile, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	blob, blobError := repository.BlobObject(file.hash)
	if blobError != nil {
		return nil, fmt.Errorf(errorBlobFormat, file.hash, file.path, blobError)
	}
	reader, readerError := blob.Reader()
	if readerError != nil {
		return nil, fmt.Errorf(errorBlobFormat, file.hash, file.path, readerError)
	}
	defer reader.Close()
	content, readError := io.ReadAll(reader)
	if readError != nil {
		return nil, fmt.Errorf(errorBlobFormat, file.hash, file.path, readError)
	}
	return content, nil
}

func readWorktreeFile(worktree *gogit.Worktree, path string) ([]byte, bool, error) {
	file, openError := worktree.Filesystem.Open(path)
	if openError != nil {
		if errors.Is(openError, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf(errorWorktreeFileFormat, path, openError)
	}
	defer file.Close()
	content, readError := io.ReadAll(file)
	if readError != nil {
		return nil, false, fmt.Errorf(errorWorktreeFileFormat, path, readError)
	}
	return content, true, nil
}
