package service

import (
	"funcscan/internal/domain/entity"
	"funcscan/internal/domain/valueobject"
)

const nodeTypeIdentifier = "identifier"

// functionNodeKinds maps the declaration node types that are recorded to
// their kind. Function expressions, arrow functions and methods are not listed.
var functionNodeKinds = map[string]entity.FunctionKind{
	"function_declaration":           entity.FunctionKindDeclaration,
	"generator_function_declaration": entity.FunctionKindGenerator,
	"function_signature":             entity.FunctionKindSignature,
}

// FunctionWalker discovers named function declarations at any depth of a
// syntax tree and collects their declared throws entries.
type FunctionWalker struct {
	throws *ThrowsParser
}

// NewFunctionWalker creates a walker that reads throws declarations with throws.
// A nil parser yields records without throws entries.
func NewFunctionWalker(throws *ThrowsParser) *FunctionWalker {
	return &FunctionWalker{throws: throws}
}

type walkState struct {
	tree      *valueobject.ParseTree
	records   []entity.FunctionRecord
	malformed int
}

// Walk traverses tree in pre-order and returns one record per named function
// declaration. An outer function is always recorded before the functions
// nested in it. The tree is not modified.
func (w *FunctionWalker) Walk(tree *valueobject.ParseTree) *entity.FunctionReport {
	state := &walkState{
		tree:    tree,
		records: make([]entity.FunctionRecord, 0),
	}

	if root := tree.RootNode(); root != nil {
		w.visit(state, root, nil, 0)
	}

	return entity.NewFunctionReport(state.records, state.malformed)
}

func (w *FunctionWalker) visit(state *walkState, node *valueobject.ParseNode, chain []string, level int) {
	if node == nil {
		return
	}

	childChain, childLevel := chain, level

	if kind, ok := functionNodeKinds[node.Type]; ok {
		if name := state.tree.GetNodeText(node.ChildByType(nodeTypeIdentifier)); name != "" {
			throws, malformed := w.throwsFor(state.tree, node)
			state.malformed += malformed

			state.records = append(state.records, entity.FunctionRecord{
				Name:        name,
				Kind:        kind,
				Throws:      throws,
				NestLevel:   level,
				ParentChain: append([]string{}, chain...),
				Position:    node.StartPos,
			})

			// Each frame owns its chain; siblings never see each other's names.
			childChain = make([]string, len(chain), len(chain)+1)
			copy(childChain, chain)
			childChain = append(childChain, name)
			childLevel = level + 1
		}
	}

	for _, child := range node.Children {
		w.visit(state, child, childChain, childLevel)
	}
}

func (w *FunctionWalker) throwsFor(
	tree *valueobject.ParseTree,
	node *valueobject.ParseNode,
) ([]valueobject.ThrowsEntry, int) {
	if w.throws == nil {
		return make([]valueobject.ThrowsEntry, 0), 0
	}
	return w.throws.ParseAll(CommentsFor(tree, node))
}
