package outbound

import "errors"

// ErrMalformedDocComment is returned when a documentation comment cannot be
// parsed by the grammar.
var ErrMalformedDocComment = errors.New("malformed documentation comment")

// DocTag is one block tag of a documentation comment, e.g.
// "@throws {TypeError} when the input is not a string".
type DocTag struct {
	// Title is the tag keyword without the leading "@".
	Title string
	// TypeName is set when the braced type is a plain (possibly dotted) identifier.
	TypeName string
	// TypeExpression is the braced type text with the braces removed.
	TypeExpression string
	// Name is the identifier following the type for tags such as @param.
	Name string
	// Description is the free text after the type and name.
	Description string
}

// DocComment is the structured form of one documentation comment block.
type DocComment struct {
	// Description is the summary text before the first tag.
	Description string
	Tags        []DocTag
}

// DocCommentParser parses the raw text of one "/** ... */" block, leading
// comment markers included.
type DocCommentParser interface {
	ParseDocComment(raw string) (*DocComment, error)
}
