package treesitter

import (
	"context"
	"errors"
	"fmt"
	"funcscan/internal/port/outbound"
	"regexp"
	"strings"

	forest "github.com/alexaandru/go-sitter-forest"
	tree_sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// simpleTypeName matches plain and dotted identifiers such as "TypeError" or
// "errors.NotFound".
var simpleTypeName = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// exceptionTag matches an @exception tag at the start of a comment line. The
// jsdoc grammar only accepts a {Type} after tags it knows, so these are parsed
// as @throws and renamed afterwards.
var exceptionTag = regexp.MustCompile(`(?m)^(\s*(?:/\*\*|\*)?\s*)@exception\b`)

// closingMarker matches what is left of the "*/" terminator at the end of a
// description; the grammar ends the node before the slash.
var closingMarker = regexp.MustCompile(`(?:^|\s)\*+/?$`)

const (
	exceptionTagName = "@exception"
	throwsTagAlias   = "@throws   " // same width as "@exception"
)

// JSDocParser parses documentation comment blocks with the tree-sitter jsdoc
// grammar.
type JSDocParser struct {
	grammar *tree_sitter.Language
}

var _ outbound.DocCommentParser = (*JSDocParser)(nil)

// NewJSDocParser creates a JSDocParser.
func NewJSDocParser() (*JSDocParser, error) {
	grammar := forest.GetLanguage(GrammarJSDoc)
	if grammar == nil {
		return nil, errors.New("jsdoc grammar is not available")
	}
	return &JSDocParser{grammar: grammar}, nil
}

// ParseDocComment parses one "/** ... */" block. Blocks the grammar cannot
// parse cleanly return outbound.ErrMalformedDocComment.
func (p *JSDocParser) ParseDocComment(raw string) (*outbound.DocComment, error) {
	if !strings.HasPrefix(raw, docCommentOpener) {
		return nil, fmt.Errorf("%w: block does not start with %s", outbound.ErrMalformedDocComment, docCommentOpener)
	}

	parser := tree_sitter.NewParser()
	if parser == nil || !parser.SetLanguage(p.grammar) {
		return nil, fmt.Errorf("%w: jsdoc parser unavailable", outbound.ErrMalformedDocComment)
	}

	source, aliased := aliasExceptionTags(raw)
	tree, err := parser.ParseString(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", outbound.ErrMalformedDocComment, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: no tree", outbound.ErrMalformedDocComment)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() || root.Type() != jsdocDocument {
		return nil, fmt.Errorf("%w: unexpected root node", outbound.ErrMalformedDocComment)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%w: syntax error", outbound.ErrMalformedDocComment)
	}

	doc := &outbound.DocComment{Tags: make([]outbound.DocTag, 0)}
	for i := range root.ChildCount() {
		child := root.Child(i)
		switch child.Type() {
		case jsdocDescription:
			doc.Description = cleanDescription(nodeText(child, source))
		case jsdocTag:
			doc.Tags = append(doc.Tags, processJSDocTag(child, source, aliased))
		}
	}

	return doc, nil
}

// aliasExceptionTags rewrites line-leading @exception tags to @throws without
// moving any byte offsets. It returns the rewritten source and the offsets of
// the rewritten tags.
func aliasExceptionTags(raw string) ([]byte, map[uint]struct{}) {
	source := []byte(raw)
	aliased := make(map[uint]struct{})
	for _, loc := range exceptionTag.FindAllStringSubmatchIndex(raw, -1) {
		start := loc[3]
		copy(source[start:start+len(exceptionTagName)], throwsTagAlias)
		aliased[uint(start)] = struct{}{}
	}
	return source, aliased
}

// processJSDocTag converts a single tag node.
func processJSDocTag(tagNode tree_sitter.Node, source []byte, aliased map[uint]struct{}) outbound.DocTag {
	var tag outbound.DocTag

	for i := range tagNode.ChildCount() {
		child := tagNode.Child(i)
		text := nodeText(child, source)

		switch child.Type() {
		case jsdocTagName:
			tag.Title = strings.TrimPrefix(strings.TrimSpace(text), "@")
			if _, ok := aliased[child.StartByte()]; ok {
				tag.Title = strings.TrimPrefix(exceptionTagName, "@")
			}
		case jsdocType:
			setTagType(&tag, text)
		case jsdocIdentifier:
			tag.Name = strings.TrimSpace(text)
		case jsdocDescription:
			tag.Description = cleanDescription(text)
		}
	}

	splitTypeFromDescription(&tag)
	return tag
}

// splitTypeFromDescription moves a leading "{Type}" out of the description of
// tags the grammar treats as untyped.
func splitTypeFromDescription(tag *outbound.DocTag) {
	if tag.TypeExpression != "" || !strings.HasPrefix(tag.Description, "{") {
		return
	}
	if end := strings.Index(tag.Description, "}"); end > 0 {
		setTagType(tag, tag.Description[1:end])
		tag.Description = strings.TrimSpace(tag.Description[end+1:])
	}
}

func setTagType(tag *outbound.DocTag, text string) {
	tag.TypeExpression = cleanJSDocType(text)
	if simpleTypeName.MatchString(tag.TypeExpression) {
		tag.TypeName = tag.TypeExpression
	}
}

// cleanJSDocType removes curly braces and whitespace from type annotations.
func cleanJSDocType(typeStr string) string {
	cleaned := strings.TrimSpace(typeStr)
	cleaned = strings.TrimPrefix(cleaned, "{")
	cleaned = strings.TrimSuffix(cleaned, "}")
	return strings.TrimSpace(cleaned)
}

// cleanDescription strips continuation markers from a multi-line description
// and trims it.
func cleanDescription(text string) string {
	text = strings.TrimSuffix(strings.TrimSpace(text), "*/")
	text = closingMarker.ReplaceAllString(strings.TrimSpace(text), "")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
