package service

import (
	"errors"
	"funcscan/internal/domain/valueobject"
	"funcscan/internal/port/outbound"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// shape describes a syntax node for the hand-built trees used in these tests.
// Leaves carry text; inner nodes span their children.
type shape struct {
	typ  string
	text string
	kids []shape
}

func leaf(typ, text string) shape { return shape{typ: typ, text: text} }

func node(typ string, kids ...shape) shape { return shape{typ: typ, kids: kids} }

func program(kids ...shape) shape { return node("program", kids...) }

func comment(text string) shape { return leaf("comment", text) }

func block(body ...shape) shape {
	kids := append([]shape{leaf("{", "{")}, body...)
	return node("statement_block", append(kids, leaf("}", "}"))...)
}

func fnDecl(name string, body ...shape) shape {
	return node("function_declaration",
		leaf("function", "function"),
		leaf("identifier", name),
		leaf("formal_parameters", "()"),
		block(body...),
	)
}

func exported(decl shape) shape {
	return node("export_statement", leaf("export", "export"), decl)
}

// treeBuilder materializes shapes into a ParseTree, writing leaf text to the
// source in order and one leaf per line.
type treeBuilder struct {
	src strings.Builder
	row uint32
}

func buildTree(t *testing.T, root shape) *valueobject.ParseTree {
	t.Helper()

	b := &treeBuilder{}
	rootNode := b.build(root)

	lang, err := valueobject.NewLanguage(valueobject.LanguageTypeScript)
	require.NoError(t, err)

	tree, err := valueobject.NewParseTree(lang, rootNode, []byte(b.src.String()), valueobject.ParseMetadata{})
	require.NoError(t, err)
	return tree
}

func (b *treeBuilder) build(s shape) *valueobject.ParseNode {
	if len(s.kids) == 0 {
		start := uint32(b.src.Len())
		pos := valueobject.Position{Row: b.row}
		b.src.WriteString(s.text)
		end := uint32(b.src.Len())
		b.src.WriteString("\n")
		b.row++
		return valueobject.NewParseNode(s.typ, start, end, pos, valueobject.Position{Row: pos.Row, Column: end - start})
	}

	children := make([]*valueobject.ParseNode, 0, len(s.kids))
	for _, kid := range s.kids {
		children = append(children, b.build(kid))
	}

	first, last := children[0], children[len(children)-1]
	n := valueobject.NewParseNode(s.typ, first.StartByte, last.EndByte, first.StartPos, last.EndPos)
	for _, child := range children {
		n.AppendChild(child)
	}
	return n
}

// fakeDocParser returns canned results keyed by raw comment text. Unknown
// text fails like a grammar rejection.
type fakeDocParser struct {
	docs  map[string]*outbound.DocComment
	calls []string
}

func newFakeDocParser() *fakeDocParser {
	return &fakeDocParser{docs: make(map[string]*outbound.DocComment)}
}

func (f *fakeDocParser) with(raw string, doc *outbound.DocComment) *fakeDocParser {
	f.docs[raw] = doc
	return f
}

func (f *fakeDocParser) ParseDocComment(raw string) (*outbound.DocComment, error) {
	f.calls = append(f.calls, raw)
	doc, ok := f.docs[raw]
	if !ok {
		return nil, errors.Join(outbound.ErrMalformedDocComment, errors.New("unexpected token"))
	}
	return doc, nil
}

func throwsTag(typeName, description string) outbound.DocTag {
	return outbound.DocTag{Title: "throws", TypeName: typeName, Description: description}
}

func descriptionOf(t *testing.T, entry valueobject.ThrowsEntry) string {
	t.Helper()
	desc, ok := entry.Description()
	require.True(t, ok, "expected a description for %s", entry.ErrorType())
	return desc
}

// nodesByType collects the nodes of one type under node in pre-order.
func nodesByType(node *valueobject.ParseNode, nodeType string) []*valueobject.ParseNode {
	if node == nil {
		return nil
	}
	var found []*valueobject.ParseNode
	if node.Type == nodeType {
		found = append(found, node)
	}
	for _, child := range node.Children {
		found = append(found, nodesByType(child, nodeType)...)
	}
	return found
}

func sExpression(node *valueobject.ParseNode) string {
	if node == nil {
		return ""
	}
	parts := []string{node.Type}
	for _, child := range node.Children {
		parts = append(parts, sExpression(child))
	}
	return "(" + strings.Join(parts, " ") + ")"
}
