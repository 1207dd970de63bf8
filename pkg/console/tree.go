package console

import "strings"

// TreeNode is one node of a renderable tree.
type TreeNode struct {
	Value    string
	Children []TreeNode
}

// RenderTree renders the tree with box-drawing connectors, root first.
func RenderTree(tree TreeNode) string {
	var b strings.Builder
	b.WriteString(tree.Value)
	b.WriteString("\n")
	for i, child := range tree.Children {
		b.WriteString(renderTreeSimple(child, "", i == len(tree.Children)-1))
	}
	return b.String()
}

func renderTreeSimple(node TreeNode, prefix string, isLast bool) string {
	connector := "├── "
	childPrefix := prefix + "│   "
	if isLast {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(connector)
	b.WriteString(node.Value)
	b.WriteString("\n")
	for i, child := range node.Children {
		b.WriteString(renderTreeSimple(child, childPrefix, i == len(node.Children)-1))
	}
	return b.String()
}
