package traversal_test

import (
	"strings"
	"testing"

	"github.com/temirov/codeprompt/internal/traversal"
)

func TestTreeInsertIsIdempotent(testingInstance *testing.T) {
	root := traversal.NewTreeNode("project")
	root.Insert([]string{"src", "main.go"})
	root.Insert([]string{"src", "main.go"})
	root.Insert([]string{"src", "util.go"})

	if len(root.Children) != 1 {
		testingInstance.Fatalf("expected one child under root, got %d", len(root.Children))
	}
	sourceNode := root.Child("src")
	if sourceNode == nil {
		testingInstance.Fatalf("expected src node")
	}
	if len(sourceNode.Children) != 2 {
		testingInstance.Fatalf("expected two files under src, got %d", len(sourceNode.Children))
	}
	if sourceNode.Children[0].Label != "main.go" || sourceNode.Children[1].Label != "util.go" {
		testingInstance.Fatalf("expected insertion order main.go, util.go")
	}
}

func TestTreeString(testingInstance *testing.T) {
	root := traversal.NewTreeNode("project")
	root.Insert([]string{"README.md"})
	root.Insert([]string{"src", "main.go"})

	rendered := root.String()
	if !strings.HasPrefix(rendered, "project\n") {
		testingInstance.Fatalf("expected root label on the first line, got %q", rendered)
	}
	for _, label := range []string{"README.md", "src", "main.go"} {
		if strings.Count(rendered, label) != 1 {
			testingInstance.Fatalf("expected %s exactly once in %q", label, rendered)
		}
	}
	if !strings.Contains(rendered, "└── ") {
		testingInstance.Fatalf("expected box drawing connectors in %q", rendered)
	}
}
