package treesitter

import (
	"funcscan/internal/domain/valueobject"

	tree_sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// conversionStats accumulates tree statistics while converting.
type conversionStats struct {
	nodeCount  int
	maxDepth   int
	errorCount int
}

// convertTreeSitterNode converts a tree-sitter node to a domain ParseNode
// recursively, linking parents and siblings.
func convertTreeSitterNode(node tree_sitter.Node, depth int, stats *conversionStats) *valueobject.ParseNode {
	if node.IsNull() {
		return nil
	}

	stats.nodeCount++
	if depth > stats.maxDepth {
		stats.maxDepth = depth
	}
	if node.IsError() || node.IsMissing() {
		stats.errorCount++
	}

	parseNode := valueobject.NewParseNode(
		node.Type(),
		safeUintToUint32(node.StartByte()),
		safeUintToUint32(node.EndByte()),
		valueobject.Position{
			Row:    safeUintToUint32(node.StartPoint().Row),
			Column: safeUintToUint32(node.StartPoint().Column),
		},
		valueobject.Position{
			Row:    safeUintToUint32(node.EndPoint().Row),
			Column: safeUintToUint32(node.EndPoint().Column),
		},
	)

	for i := range node.ChildCount() {
		if child := convertTreeSitterNode(node.Child(i), depth+1, stats); child != nil {
			parseNode.AppendChild(child)
		}
	}

	return parseNode
}

// nodeText returns the source text spanned by node.
func nodeText(node tree_sitter.Node, source []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint(len(source)) {
		return ""
	}
	return valueobject.SanitizeContent(string(source[start:end]))
}

// safeUintToUint32 converts uint to uint32, saturating on overflow.
func safeUintToUint32(val uint) uint32 {
	if val > uint(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(val)
}
