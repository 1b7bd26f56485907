package parser

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/memindex/pkg/types"
)

// parseBudget bounds the time a single grammar parse may take before the
// file is failed with a ParseError.
const parseBudget = 10 * time.Second

// parseTree runs a tree-sitter grammar over content and returns the
// concrete syntax tree. The caller owns the tree and must Close it.
func parseTree(lang *sitter.Language, content []byte, filePath string) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)

	ctx, cancel := context.WithTimeout(context.Background(), parseBudget)
	defer cancel()

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("grammar failed: %v", err)}
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, &types.ParseError{File: filePath, Message: "grammar produced no tree"}
	}
	return tree, nil
}

// startLine converts a node's zero-based row to a 1-based line number
func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// endLine converts a node's zero-based end row to a 1-based line number
func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

// eachNamedChild invokes fn for every named child of n
func eachNamedChild(n *sitter.Node, fn func(child *sitter.Node)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		fn(n.NamedChild(i))
	}
}

// walkNodes performs a depth-first traversal of the subtree rooted at n.
// Returning false from fn prunes the subtree below the current node.
func walkNodes(n *sitter.Node, fn func(node *sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkNodes(n.NamedChild(i), fn)
	}
}

// fieldContent returns the content of a named field child, or ""
func fieldContent(n *sitter.Node, field string, content []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(content)
}

// countBranches counts branch, loop, and boolean-operator nodes within a
// subtree. The node-type set is per language; thresholds over the count
// are fixed in the observer and never change between runs.
func countBranches(n *sitter.Node, branchTypes map[string]bool) int {
	count := 0
	walkNodes(n, func(node *sitter.Node) bool {
		if branchTypes[node.Type()] {
			count++
		}
		return true
	})
	return count
}

// hasAnonChild reports whether n has an anonymous child token of the given
// type, e.g. the "async" keyword on a function definition.
func hasAnonChild(n *sitter.Node, tokenType string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == tokenType {
			return true
		}
	}
	return false
}
