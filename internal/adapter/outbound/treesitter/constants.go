package treesitter

import "time"

const (
	// Provider configuration.
	DefaultMaxSourceSize = 10 * 1024 * 1024 // 10MB
	DefaultParseTimeout  = 30 * time.Second

	// Grammar names as registered in go-sitter-forest.
	GrammarTypeScript = "typescript"
	GrammarTSX        = "tsx"
	GrammarJavaScript = "javascript"
	GrammarJSDoc      = "jsdoc"

	// Reported grammar source in parse metadata.
	GrammarSource = "go-sitter-forest"

	meterName = "funcscan/treesitter"
)

// jsdoc node types.
const (
	docCommentOpener = "/**"

	jsdocDocument    = "document"
	jsdocTag         = "tag"
	jsdocTagName     = "tag_name"
	jsdocType        = "type"
	jsdocIdentifier  = "identifier"
	jsdocDescription = "description"
)
