package traversal_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temirov/codeprompt/internal/traversal"
)

const (
	projectDirectoryName = "project"
	mainFileRelative     = "src/main.ext"
	dotenvFileName       = ".env"
	dotenvContent        = "API_KEY=secret\n"
)

// recordingConfirmer answers with a fixed value and remembers what it was shown.
type recordingConfirmer struct {
	answer  bool
	calls   int
	matches []string
}

func (confirmer *recordingConfirmer) Confirm(matches []string) bool {
	confirmer.calls++
	confirmer.matches = append(confirmer.matches, matches...)
	if len(matches) == 0 {
		return true
	}
	return confirmer.answer
}

func tenLines() string {
	var builder strings.Builder
	for lineIndex := 1; lineIndex <= 10; lineIndex++ {
		fmt.Fprintf(&builder, "line %d\n", lineIndex)
	}
	return builder.String()
}

// createProject lays out project/src/main.ext and project/.env and returns the project root.
func createProject(testingHandle *testing.T) string {
	testingHandle.Helper()
	projectRoot := filepath.Join(testingHandle.TempDir(), projectDirectoryName)
	writeFile(testingHandle, filepath.Join(projectRoot, "src", "main.ext"), tenLines())
	writeFile(testingHandle, filepath.Join(projectRoot, dotenvFileName), dotenvContent)
	return projectRoot
}

func baseConfig(projectRoot string, confirmer *recordingConfirmer) traversal.Config {
	return traversal.Config{
		Root:             projectRoot,
		LineNumbers:      true,
		RelativePaths:    true,
		CodeBlock:        true,
		UseGitignore:     true,
		WorkingDirectory: projectRoot,
		Confirmer:        confirmer,
	}
}

func TestTraverseDeclinedConfirmationCancels(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	confirmer := &recordingConfirmer{answer: false}
	config := baseConfig(projectRoot, confirmer)
	config.Include = []string{"src/*", dotenvFileName}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if !errors.Is(traverseError, traversal.ErrUserCancelled) {
		testingInstance.Fatalf("expected ErrUserCancelled, got %v", traverseError)
	}
	if len(result.Files) != 0 {
		testingInstance.Fatalf("expected no file records, got %d", len(result.Files))
	}
	if len(confirmer.matches) != 1 || confirmer.matches[0] != dotenvFileName {
		testingInstance.Fatalf("expected the confirmer to be shown [.env], got %v", confirmer.matches)
	}
}

func TestTraverseAcceptedConfirmationSelectsIncludedFiles(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	confirmer := &recordingConfirmer{answer: true}
	config := baseConfig(projectRoot, confirmer)
	config.Include = []string{"src/*"}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	if len(result.Files) != 1 {
		testingInstance.Fatalf("expected exactly one file record, got %v", result.Paths())
	}

	record := result.Files[0]
	expectedPath := projectDirectoryName + "/" + mainFileRelative
	if record.Path != expectedPath {
		testingInstance.Fatalf("expected path %s, got %s", expectedPath, record.Path)
	}
	if record.Extension != "ext" {
		testingInstance.Fatalf("expected extension ext, got %q", record.Extension)
	}
	if !strings.HasPrefix(record.Code, "```ext\n") || !strings.HasSuffix(record.Code, "```") {
		testingInstance.Fatalf("expected a fenced block, got %q", record.Code)
	}
	numberedLines := strings.Count(record.Code, " | ")
	if numberedLines != 10 {
		testingInstance.Fatalf("expected 10 numbered lines, got %d", numberedLines)
	}
	if !strings.Contains(record.Code, "  10 | line 10\n") {
		testingInstance.Fatalf("expected right-aligned line numbers, got %q", record.Code)
	}
	if !strings.Contains(result.Tree, dotenvFileName) {
		testingInstance.Fatalf("expected .env to stay visible in the tree, got %q", result.Tree)
	}
	if !strings.HasPrefix(result.Tree, projectDirectoryName) {
		testingInstance.Fatalf("expected the tree to start with the root label, got %q", result.Tree)
	}
}

// Only sensitive files that the include and exclude rules select are confirmed.
func TestTraverseScansOnlySelectedSensitiveFiles(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	confirmer := &recordingConfirmer{answer: false}
	config := baseConfig(projectRoot, confirmer)
	config.Include = []string{"src/*"}

	if _, traverseError := traversal.Traverse(context.Background(), config); traverseError != nil {
		testingInstance.Fatalf("expected unselected sensitive files to be ignored, got %v", traverseError)
	}
	if len(confirmer.matches) != 0 {
		testingInstance.Fatalf("expected no sensitive matches, got %v", confirmer.matches)
	}
}

func TestTraverseExcludeFromTreePrunesTree(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	config.Exclude = []string{"*.env"}
	config.ExcludeFromTree = true

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	if strings.Contains(result.Tree, dotenvFileName) {
		testingInstance.Fatalf("expected .env to be pruned from the tree, got %q", result.Tree)
	}
	if !strings.Contains(result.Tree, "main.ext") {
		testingInstance.Fatalf("expected main.ext in the tree, got %q", result.Tree)
	}
	for _, path := range result.Paths() {
		if strings.HasSuffix(path, dotenvFileName) {
			testingInstance.Fatalf("expected .env to be absent from the file list")
		}
	}
}

func TestTraverseSkipsBinaryFiles(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	writeFile(testingInstance, filepath.Join(projectRoot, "blob.bin"), string([]byte{0xFF}))
	writeFile(testingInstance, filepath.Join(projectRoot, "nul.txt"), "text\x00more\n")
	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	config.Exclude = []string{dotenvFileName}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	paths := result.Paths()
	if len(paths) != 1 || paths[0] != projectDirectoryName+"/"+mainFileRelative {
		testingInstance.Fatalf("expected only main.ext, got %v", paths)
	}
	if !strings.Contains(result.Tree, "blob.bin") {
		testingInstance.Fatalf("expected skipped files to stay in the tree, got %q", result.Tree)
	}
}

func TestTraverseBlankFiles(testingInstance *testing.T) {
	testCases := []struct {
		testName      string
		lineNumbers   bool
		codeBlock     bool
		expectedBlank bool
	}{
		{testName: "raw content", lineNumbers: false, codeBlock: false, expectedBlank: false},
		{testName: "formatted content", lineNumbers: true, codeBlock: true, expectedBlank: true},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.testName, func(testingInstance *testing.T) {
			projectRoot := createProject(testingInstance)
			writeFile(testingInstance, filepath.Join(projectRoot, "blank.txt"), "  \n")
			config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
			config.Exclude = []string{dotenvFileName}
			config.LineNumbers = testCase.lineNumbers
			config.CodeBlock = testCase.codeBlock

			result, traverseError := traversal.Traverse(context.Background(), config)
			if traverseError != nil {
				testingInstance.Fatalf("unexpected error: %v", traverseError)
			}
			blankPath := projectDirectoryName + "/blank.txt"
			found := false
			for _, path := range result.Paths() {
				if path == blankPath {
					found = true
				}
			}
			if found != testCase.expectedBlank {
				testingInstance.Fatalf("expected blank.txt selected=%v, got %v", testCase.expectedBlank, result.Paths())
			}
		})
	}
}

func TestTraverseKeepsDotDotPrefixedNames(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	writeFile(testingInstance, filepath.Join(projectRoot, "..notes.txt"), "notes\n")
	writeFile(testingInstance, filepath.Join(projectRoot, "...", "inner.txt"), "inner\n")
	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	config.Exclude = []string{dotenvFileName}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	expected := []string{
		projectDirectoryName + "/.../inner.txt",
		projectDirectoryName + "/..notes.txt",
		projectDirectoryName + "/" + mainFileRelative,
	}
	if strings.Join(result.Paths(), ",") != strings.Join(expected, ",") {
		testingInstance.Fatalf("expected %v, got %v", expected, result.Paths())
	}
	for _, name := range []string{"..notes.txt", "inner.txt"} {
		if !strings.Contains(result.Tree, name) {
			testingInstance.Fatalf("expected %s in the tree, got %q", name, result.Tree)
		}
	}
}

func TestTraverseLabelsSymlinkedRootByTarget(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	linkedRoot := filepath.Join(testingInstance.TempDir(), "linkdir")
	if symlinkError := os.Symlink(projectRoot, linkedRoot); symlinkError != nil {
		testingInstance.Skipf("symlinks unavailable: %v", symlinkError)
	}
	config := baseConfig(linkedRoot, &recordingConfirmer{answer: true})
	config.Exclude = []string{dotenvFileName}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	if !strings.HasPrefix(result.Tree, projectDirectoryName) {
		testingInstance.Fatalf("expected the tree to be labelled %s, got %q", projectDirectoryName, result.Tree)
	}
	expectedPath := projectDirectoryName + "/" + mainFileRelative
	paths := result.Paths()
	if len(paths) != 1 || paths[0] != expectedPath {
		testingInstance.Fatalf("expected [%s], got %v", expectedPath, paths)
	}
}

func TestTraverseHonorsGitignore(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	writeFile(testingInstance, filepath.Join(projectRoot, ".gitignore"), "build/\n*.log\n")
	writeFile(testingInstance, filepath.Join(projectRoot, "build", "out.txt"), "artifact\n")
	writeFile(testingInstance, filepath.Join(projectRoot, "debug.log"), "log\n")
	writeFile(testingInstance, filepath.Join(projectRoot, "src", ".gitignore"), "generated.ext\n")
	writeFile(testingInstance, filepath.Join(projectRoot, "src", "generated.ext"), "generated\n")
	writeFile(testingInstance, filepath.Join(projectRoot, ".git", "HEAD"), "ref: refs/heads/master\n")

	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	for _, hidden := range []string{"build", "out.txt", "debug.log", "generated.ext", "HEAD"} {
		if strings.Contains(result.Tree, hidden) {
			testingInstance.Fatalf("expected %s to be hidden, got tree %q", hidden, result.Tree)
		}
	}

	config.UseGitignore = false
	config.IncludeGit = true
	unfiltered, unfilteredError := traversal.Traverse(context.Background(), config)
	if unfilteredError != nil {
		testingInstance.Fatalf("unexpected error: %v", unfilteredError)
	}
	for _, visible := range []string{"out.txt", "debug.log", "generated.ext", "HEAD"} {
		if !strings.Contains(unfiltered.Tree, visible) {
			testingInstance.Fatalf("expected %s to be visible, got tree %q", visible, unfiltered.Tree)
		}
	}
}

func TestTraverseAbsolutePaths(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	config.RelativePaths = false
	config.Exclude = []string{"*" + dotenvFileName}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	canonicalRoot, canonicalError := filepath.EvalSymlinks(projectRoot)
	if canonicalError != nil {
		testingInstance.Fatalf("canonicalizing root: %v", canonicalError)
	}
	expectedPath := filepath.ToSlash(filepath.Join(canonicalRoot, "src", "main.ext"))
	paths := result.Paths()
	if len(paths) != 1 || paths[0] != expectedPath {
		testingInstance.Fatalf("expected [%s], got %v", expectedPath, paths)
	}
}

func TestTraverseMissingRoot(testingInstance *testing.T) {
	config := traversal.Config{Root: filepath.Join(testingInstance.TempDir(), "missing")}
	_, traverseError := traversal.Traverse(context.Background(), config)
	if !errors.Is(traverseError, traversal.ErrRootUnavailable) {
		testingInstance.Fatalf("expected ErrRootUnavailable, got %v", traverseError)
	}
}

func TestTraverseRootMustBeDirectory(testingInstance *testing.T) {
	filePath := filepath.Join(testingInstance.TempDir(), "file.txt")
	writeFile(testingInstance, filePath, "content\n")
	_, traverseError := traversal.Traverse(context.Background(), traversal.Config{Root: filePath})
	if !errors.Is(traverseError, traversal.ErrRootUnavailable) {
		testingInstance.Fatalf("expected ErrRootUnavailable, got %v", traverseError)
	}
}

func TestTraverseInvalidPattern(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	config.Exclude = []string{"[broken"}
	_, traverseError := traversal.Traverse(context.Background(), config)
	if !errors.Is(traverseError, traversal.ErrInvalidPattern) {
		testingInstance.Fatalf("expected ErrInvalidPattern, got %v", traverseError)
	}
}

func TestTraverseCancelledContext(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, traverseError := traversal.Traverse(cancelledContext, baseConfig(projectRoot, &recordingConfirmer{answer: true}))
	if !errors.Is(traverseError, context.Canceled) {
		testingInstance.Fatalf("expected context.Canceled, got %v", traverseError)
	}
}

func TestScanSensitiveFiles(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	writeFile(testingInstance, filepath.Join(projectRoot, "keys", "server.pem"), "-----BEGIN-----\n")
	writeFile(testingInstance, filepath.Join(projectRoot, "config", "credentials.json"), "{}\n")

	matches, scanError := traversal.ScanSensitiveFiles(context.Background(), baseConfig(projectRoot, nil))
	if scanError != nil {
		testingInstance.Fatalf("unexpected error: %v", scanError)
	}
	expected := []string{".env", "config/credentials.json", "keys/server.pem"}
	if strings.Join(matches, ",") != strings.Join(expected, ",") {
		testingInstance.Fatalf("expected %v, got %v", expected, matches)
	}
}

func TestIsSensitiveFile(testingInstance *testing.T) {
	testCases := map[string]bool{
		".env":                 true,
		"nested/.env.local":    true,
		"id_rsa":               true,
		"certs/server.key":     true,
		"token.secret":         true,
		"secrets.yaml":         true,
		"main.go":              false,
		".envrc":               false,
		"id_rsa.pub":           false,
		"credentials.json.bak": false,
	}
	for path, expected := range testCases {
		if actual := traversal.IsSensitiveFile(path); actual != expected {
			testingInstance.Errorf("%s: expected %t, got %t", path, expected, actual)
		}
	}
}

func TestTraverseFollowsFileSymlinks(testingInstance *testing.T) {
	projectRoot := createProject(testingInstance)
	linkPath := filepath.Join(projectRoot, "link.ext")
	if symlinkError := os.Symlink(filepath.Join(projectRoot, "src", "main.ext"), linkPath); symlinkError != nil {
		testingInstance.Skipf("symlinks unavailable: %v", symlinkError)
	}
	config := baseConfig(projectRoot, &recordingConfirmer{answer: true})
	config.Exclude = []string{dotenvFileName}

	result, traverseError := traversal.Traverse(context.Background(), config)
	if traverseError != nil {
		testingInstance.Fatalf("unexpected error: %v", traverseError)
	}
	found := false
	for _, path := range result.Paths() {
		if path == projectDirectoryName+"/link.ext" {
			found = true
		}
	}
	if !found {
		testingInstance.Fatalf("expected link.ext to be read through its link, got %v", result.Paths())
	}
}
