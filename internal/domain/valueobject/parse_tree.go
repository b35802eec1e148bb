package valueobject

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ParseTree is an immutable syntax tree for one source file.
type ParseTree struct {
	language Language
	rootNode *ParseNode
	source   []byte
	metadata ParseMetadata
}

// ParseNode represents a node in the parse tree.
type ParseNode struct {
	Type      string
	StartByte uint32
	EndByte   uint32
	StartPos  Position
	EndPos    Position
	Children  []*ParseNode
	parent    *ParseNode
	index     int
}

// Position represents a zero-based row/column position in source code.
type Position struct {
	Row    uint32
	Column uint32
}

// ParseMetadata contains metadata about the parse operation.
type ParseMetadata struct {
	ParseDuration  time.Duration
	GrammarVersion string
	NodeCount      int
	MaxDepth       int
	ErrorCount     int
}

// NewParseNode creates a detached node. Children are attached with AppendChild.
func NewParseNode(nodeType string, startByte, endByte uint32, startPos, endPos Position) *ParseNode {
	return &ParseNode{
		Type:      nodeType,
		StartByte: startByte,
		EndByte:   endByte,
		StartPos:  startPos,
		EndPos:    endPos,
		Children:  make([]*ParseNode, 0),
	}
}

// AppendChild attaches child as the last child of pn and records the
// parent/sibling links used by Parent and PrevSibling.
func (pn *ParseNode) AppendChild(child *ParseNode) {
	if pn == nil || child == nil {
		return
	}
	child.parent = pn
	child.index = len(pn.Children)
	pn.Children = append(pn.Children, child)
}

// Parent returns the enclosing node, or nil for the root.
func (pn *ParseNode) Parent() *ParseNode {
	if pn == nil {
		return nil
	}
	return pn.parent
}

// PrevSibling returns the sibling immediately before pn, or nil.
func (pn *ParseNode) PrevSibling() *ParseNode {
	if pn == nil || pn.parent == nil || pn.index == 0 {
		return nil
	}
	return pn.parent.Children[pn.index-1]
}

// ChildByType returns the first direct child of the given type, or nil.
func (pn *ParseNode) ChildByType(nodeType string) *ParseNode {
	if pn == nil {
		return nil
	}
	for _, child := range pn.Children {
		if child != nil && child.Type == nodeType {
			return child
		}
	}
	return nil
}

// NewParseTree creates a new ParseTree. An empty source is valid and yields
// a tree whose root spans zero bytes.
func NewParseTree(language Language, rootNode *ParseNode, source []byte, metadata ParseMetadata) (*ParseTree, error) {
	if rootNode == nil {
		return nil, errors.New("root node cannot be nil")
	}

	if int64(rootNode.EndByte) > int64(len(source)) {
		return nil, fmt.Errorf("root node end byte %d exceeds source length %d", rootNode.EndByte, len(source))
	}

	if metadata.ParseDuration < 0 {
		return nil, errors.New("parse duration cannot be negative")
	}

	return &ParseTree{
		language: language,
		rootNode: rootNode,
		source:   source,
		metadata: metadata,
	}, nil
}

// Language returns the language of the parse tree.
func (pt *ParseTree) Language() Language {
	return pt.language
}

// RootNode returns the root node of the parse tree.
func (pt *ParseTree) RootNode() *ParseNode {
	if pt == nil {
		return nil
	}
	return pt.rootNode
}

// Source returns the source code of the parse tree.
func (pt *ParseTree) Source() []byte {
	return pt.source
}

// Metadata returns the metadata of the parse tree.
func (pt *ParseTree) Metadata() ParseMetadata {
	return pt.metadata
}

// HasSyntaxErrors reports whether the parser recovered from any ERROR or
// MISSING nodes while building the tree.
func (pt *ParseTree) HasSyntaxErrors() bool {
	return pt.metadata.ErrorCount > 0
}

// GetNodeText returns the source text spanned by node, with null bytes removed.
func (pt *ParseTree) GetNodeText(node *ParseNode) string {
	if pt == nil || node == nil {
		return ""
	}

	if node.StartByte > node.EndByte || int64(node.EndByte) > int64(len(pt.source)) {
		return ""
	}

	return SanitizeContent(string(pt.source[node.StartByte:node.EndByte]))
}

// SanitizeContent removes null bytes (0x00) from content.
func SanitizeContent(content string) string {
	if !strings.Contains(content, "\x00") {
		return content
	}
	return strings.ReplaceAll(content, "\x00", "")
}
