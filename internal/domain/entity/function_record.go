package entity

import (
	"errors"
	"fmt"
	"funcscan/internal/domain/valueobject"
	"strings"
)

// FunctionKind distinguishes the declaration forms that are recorded.
type FunctionKind string

const (
	// FunctionKindDeclaration is a plain "function name() {}" declaration.
	FunctionKindDeclaration FunctionKind = "function"
	// FunctionKindGenerator is a "function* name() {}" declaration.
	FunctionKindGenerator FunctionKind = "generator"
	// FunctionKindSignature is a body-less overload or ambient declaration.
	FunctionKindSignature FunctionKind = "signature"
)

// FunctionRecord describes one named function declaration found in a file.
type FunctionRecord struct {
	Name        string
	Kind        FunctionKind
	Throws      []valueobject.ThrowsEntry
	NestLevel   int
	ParentChain []string
	Position    valueobject.Position
}

// Validate checks the record invariants.
func (r FunctionRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("function name cannot be empty")
	}
	if r.NestLevel < 0 {
		return fmt.Errorf("nest level cannot be negative: %d", r.NestLevel)
	}
	if len(r.ParentChain) != r.NestLevel {
		return fmt.Errorf("parent chain length %d does not match nest level %d", len(r.ParentChain), r.NestLevel)
	}
	return nil
}

// QualifiedName joins the parent chain and the name with dots, outermost first.
func (r FunctionRecord) QualifiedName() string {
	if len(r.ParentChain) == 0 {
		return r.Name
	}
	return strings.Join(r.ParentChain, ".") + "." + r.Name
}

func (r FunctionRecord) clone() FunctionRecord {
	r.ParentChain = append(make([]string, 0, len(r.ParentChain)), r.ParentChain...)
	r.Throws = append(make([]valueobject.ThrowsEntry, 0, len(r.Throws)), r.Throws...)
	return r
}
