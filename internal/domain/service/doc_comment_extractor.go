package service

import (
	"funcscan/internal/domain/valueobject"
	"strings"
)

const (
	nodeTypeComment            = "comment"
	nodeTypeExportStatement    = "export_statement"
	nodeTypeAmbientDeclaration = "ambient_declaration"
	docCommentOpener           = "/**"
	emptyDocComment            = "/**/"
)

// CommentsFor returns the raw text of every documentation comment attached to
// node, in source order. A declaration wrapped in "export" or "declare" is
// documented by the comments preceding the wrapper.
//
// The attached run is the contiguous sequence of comment siblings right before
// the anchor. Plain "//" and "/* */" comments inside the run are skipped but do
// not end it; the first non-comment sibling does.
func CommentsFor(tree *valueobject.ParseTree, node *valueobject.ParseNode) []string {
	comments := make([]string, 0)
	if tree == nil || node == nil {
		return comments
	}

	anchor := node
	if parent := node.Parent(); parent != nil &&
		(parent.Type == nodeTypeExportStatement || parent.Type == nodeTypeAmbientDeclaration) {
		anchor = parent
	}

	for sibling := anchor.PrevSibling(); sibling != nil && sibling.Type == nodeTypeComment; sibling = sibling.PrevSibling() {
		text := tree.GetNodeText(sibling)
		if isDocComment(text) {
			comments = append(comments, text)
		}
	}

	// Collected nearest-first.
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}

	return comments
}

func isDocComment(text string) bool {
	if !strings.HasPrefix(text, docCommentOpener) {
		return false
	}
	// "/**/" is an empty block comment, not documentation.
	return !strings.HasPrefix(text, emptyDocComment)
}
