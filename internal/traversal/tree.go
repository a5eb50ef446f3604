package traversal

import (
	"github.com/xlab/treeprint"
)

// TreeNode is one labeled node of the directory tree. Children keep insertion
// order and carry unique labels.
type TreeNode struct {
	Label    string
	Children []*TreeNode
}

// NewTreeNode creates a childless node.
func NewTreeNode(label string) *TreeNode {
	return &TreeNode{Label: label}
}

// Insert walks components from this node, reusing a child with a matching label
// at each level and creating it when absent.
func (node *TreeNode) Insert(components []string) {
	current := node
	for _, component := range components {
		current = current.child(component)
	}
}

// Child returns the direct child with label, or nil.
func (node *TreeNode) Child(label string) *TreeNode {
	for _, child := range node.Children {
		if child.Label == label {
			return child
		}
	}
	return nil
}

func (node *TreeNode) child(label string) *TreeNode {
	if existing := node.Child(label); existing != nil {
		return existing
	}
	created := NewTreeNode(label)
	node.Children = append(node.Children, created)
	return created
}

// String renders the tree with box-drawing connectors.
func (node *TreeNode) String() string {
	printer := treeprint.NewWithRoot(node.Label)
	addBranches(printer, node.Children)
	return printer.String()
}

func addBranches(parent treeprint.Tree, children []*TreeNode) {
	for _, child := range children {
		if len(child.Children) == 0 {
			parent.AddNode(child.Label)
			continue
		}
		addBranches(parent.AddBranch(child.Label), child.Children)
	}
}
