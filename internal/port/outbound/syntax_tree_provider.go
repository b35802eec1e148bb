package outbound

import (
	"context"
	"errors"
	"funcscan/internal/domain/valueobject"
)

// ErrParseFailed is returned when a provider cannot produce a tree at all.
var ErrParseFailed = errors.New("syntax tree could not be produced")

// ErrSourceTooLarge is returned when the source exceeds the provider's size limit.
var ErrSourceTooLarge = errors.New("source exceeds maximum size")

// SyntaxTreeProvider turns raw source text into a navigable syntax tree.
type SyntaxTreeProvider interface {
	// Parse parses source written in language. Trees the parser recovered
	// from (ERROR/MISSING nodes) are returned without error.
	Parse(ctx context.Context, language valueobject.Language, source []byte) (*valueobject.ParseTree, error)

	// SupportedLanguages lists the languages this provider can parse.
	SupportedLanguages() []valueobject.Language
}
