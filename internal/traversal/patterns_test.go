package traversal_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/codeprompt/internal/traversal"
)

func mustCompile(testingHandle *testing.T, patterns ...string) traversal.PatternSet {
	testingHandle.Helper()
	compiled, compileError := traversal.CompilePatterns(patterns)
	if compileError != nil {
		testingHandle.Fatalf("compiling %v: %v", patterns, compileError)
	}
	return compiled
}

func writeFile(testingHandle *testing.T, path string, content string) {
	testingHandle.Helper()
	if mkdirError := os.MkdirAll(filepath.Dir(path), 0o755); mkdirError != nil {
		testingHandle.Fatalf("creating directory for %s: %v", path, mkdirError)
	}
	if writeError := os.WriteFile(path, []byte(content), 0o600); writeError != nil {
		testingHandle.Fatalf("writing %s: %v", path, writeError)
	}
}

func TestResolveDecisionTable(testingInstance *testing.T) {
	testCases := []struct {
		testName        string
		includeMatched  bool
		excludeMatched  bool
		excludePriority bool
		includeEmpty    bool
		expected        bool
	}{
		{testName: "both match, include wins", includeMatched: true, excludeMatched: true, excludePriority: false, expected: true},
		{testName: "both match, exclude wins", includeMatched: true, excludeMatched: true, excludePriority: true, expected: false},
		{testName: "include only", includeMatched: true, excludeMatched: false, excludePriority: false, expected: true},
		{testName: "include only with exclude priority", includeMatched: true, excludeMatched: false, excludePriority: true, expected: true},
		{testName: "exclude only", includeMatched: false, excludeMatched: true, excludePriority: false, includeEmpty: true, expected: false},
		{testName: "exclude only with exclude priority", includeMatched: false, excludeMatched: true, excludePriority: true, includeEmpty: true, expected: false},
		{testName: "no match, no include patterns", includeEmpty: true, expected: true},
		{testName: "no match, include patterns present", includeEmpty: false, expected: false},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.testName, func(testingHandle *testing.T) {
			actual := traversal.Resolve(testCase.includeMatched, testCase.excludeMatched, testCase.excludePriority, testCase.includeEmpty)
			if actual != testCase.expected {
				testingHandle.Fatalf("expected %t, got %t", testCase.expected, actual)
			}
		})
	}
}

func TestCompilePatternsStripsRelativePrefix(testingInstance *testing.T) {
	compiled := mustCompile(testingInstance, "./src/*", "", "*.go")
	expected := []string{"src/*", "*.go"}
	actual := compiled.Patterns()
	if len(actual) != len(expected) {
		testingInstance.Fatalf("expected %v, got %v", expected, actual)
	}
	for index := range expected {
		if actual[index] != expected[index] {
			testingInstance.Fatalf("expected %v, got %v", expected, actual)
		}
	}
	if !compiled.Matches("src/main.go") {
		testingInstance.Fatalf("expected src/main.go to match")
	}
}

func TestCompilePatternsRejectsInvalidPattern(testingInstance *testing.T) {
	_, compileError := traversal.CompilePatterns([]string{"src/*", "[unclosed"})
	if !errors.Is(compileError, traversal.ErrInvalidPattern) {
		testingInstance.Fatalf("expected ErrInvalidPattern, got %v", compileError)
	}
}

func TestWildcardCrossesSeparators(testingInstance *testing.T) {
	compiled := mustCompile(testingInstance, "src/*")
	if !compiled.Matches("src/nested/deep/main.go") {
		testingInstance.Fatalf("expected wildcard to match across directories")
	}
	if compiled.Matches("docs/readme.md") {
		testingInstance.Fatalf("did not expect docs/readme.md to match")
	}
}

func TestMatcherDecide(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	sourcePath := filepath.Join(rootDirectory, "src", "main.go")
	generatedPath := filepath.Join(rootDirectory, "src", "main_gen.go")
	readmePath := filepath.Join(rootDirectory, "README.md")
	writeFile(testingInstance, sourcePath, "package main\n")
	writeFile(testingInstance, generatedPath, "package main\n")
	writeFile(testingInstance, readmePath, "# readme\n")

	testCases := []struct {
		testName        string
		include         []string
		exclude         []string
		excludePriority bool
		path            string
		expected        bool
	}{
		{testName: "default include", path: readmePath, expected: true},
		{testName: "include match", include: []string{"src/*"}, path: sourcePath, expected: true},
		{testName: "include miss", include: []string{"src/*"}, path: readmePath, expected: false},
		{testName: "exclude match", exclude: []string{"*.md"}, path: readmePath, expected: false},
		{testName: "conflict favors include", include: []string{"src/*"}, exclude: []string{"*_gen.go"}, path: generatedPath, expected: true},
		{testName: "conflict favors exclude", include: []string{"src/*"}, exclude: []string{"*_gen.go"}, excludePriority: true, path: generatedPath, expected: false},
		{testName: "include with exclude priority and no exclude match", include: []string{"src/*"}, exclude: []string{"*_gen.go"}, excludePriority: true, path: sourcePath, expected: true},
		{testName: "missing path is never selected", path: filepath.Join(rootDirectory, "missing.go"), expected: false},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.testName, func(testingHandle *testing.T) {
			matcher := traversal.NewMatcher(
				mustCompile(testingHandle, testCase.include...),
				mustCompile(testingHandle, testCase.exclude...),
				testCase.excludePriority,
				true,
				rootDirectory,
				nil,
			)
			if actual := matcher.Decide(testCase.path); actual != testCase.expected {
				testingHandle.Fatalf("expected %t, got %t", testCase.expected, actual)
			}
		})
	}
}

func TestMatcherDecideAbsolutePaths(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	sourcePath := filepath.Join(rootDirectory, "src", "main.go")
	writeFile(testingInstance, sourcePath, "package main\n")

	relativeMatcher := traversal.NewMatcher(mustCompile(testingInstance, "src/*"), traversal.PatternSet{}, false, false, rootDirectory, nil)
	if relativeMatcher.Decide(sourcePath) {
		testingInstance.Fatalf("expected a relative pattern to miss the absolute comparison path")
	}

	absoluteMatcher := traversal.NewMatcher(mustCompile(testingInstance, "*/src/*"), traversal.PatternSet{}, false, false, rootDirectory, nil)
	if !absoluteMatcher.Decide(sourcePath) {
		testingInstance.Fatalf("expected an absolute pattern to match")
	}
}
