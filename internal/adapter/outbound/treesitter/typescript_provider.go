package treesitter

import (
	"context"
	"fmt"
	"funcscan/internal/application/common/slogger"
	"funcscan/internal/domain/valueobject"
	"funcscan/internal/port/outbound"
	"time"

	forest "github.com/alexaandru/go-sitter-forest"
	tree_sitter "github.com/alexaandru/go-tree-sitter-bare"
	"go.opentelemetry.io/otel/metric"
)

// TypeScriptProvider parses TypeScript, TSX and JavaScript sources with
// tree-sitter. It is safe for concurrent use: every Parse call owns its parser
// and tree.
type TypeScriptProvider struct {
	grammars  map[string]*tree_sitter.Language
	languages []valueobject.Language
	metrics   *ParserMetrics
	config    ParserConfig
}

var _ outbound.SyntaxTreeProvider = (*TypeScriptProvider)(nil)

// NewTypeScriptProvider creates a provider that reports metrics through the
// global meter provider when config.EnableMetrics is set.
func NewTypeScriptProvider(ctx context.Context, config ParserConfig) (*TypeScriptProvider, error) {
	var metrics *ParserMetrics
	if config.EnableMetrics {
		var err error
		metrics, err = initParserMetrics()
		if err != nil {
			slogger.Warn(ctx, "Failed to initialize parser metrics", slogger.Fields{
				"error": err.Error(),
			})
		}
	}
	return newTypeScriptProvider(ctx, config, metrics)
}

// NewTypeScriptProviderWithMeter creates a provider recording metrics on meter.
func NewTypeScriptProviderWithMeter(
	ctx context.Context,
	config ParserConfig,
	meter metric.Meter,
) (*TypeScriptProvider, error) {
	metrics, err := newParserMetrics(meter)
	if err != nil {
		return nil, err
	}
	return newTypeScriptProvider(ctx, config, metrics)
}

func newTypeScriptProvider(
	ctx context.Context,
	config ParserConfig,
	metrics *ParserMetrics,
) (*TypeScriptProvider, error) {
	config = config.withDefaults()

	provider := &TypeScriptProvider{
		grammars:  make(map[string]*tree_sitter.Language),
		languages: make([]valueobject.Language, 0),
		metrics:   metrics,
		config:    config,
	}

	for _, lang := range valueobject.SupportedLanguages() {
		grammar := forest.GetLanguage(lang.Grammar())
		if grammar == nil {
			return nil, fmt.Errorf("grammar %q for language %s is not available", lang.Grammar(), lang.Name())
		}
		provider.grammars[lang.Name()] = grammar
		provider.languages = append(provider.languages, lang)
	}

	slogger.Debug(ctx, "Tree-sitter provider initialized", slogger.Fields{
		"languages":       len(provider.languages),
		"max_source_size": config.MaxSourceSize,
		"default_timeout": config.DefaultTimeout.String(),
		"metrics_enabled": metrics != nil,
	})

	return provider, nil
}

// SupportedLanguages returns the languages this provider can parse.
func (p *TypeScriptProvider) SupportedLanguages() []valueobject.Language {
	languages := make([]valueobject.Language, len(p.languages))
	copy(languages, p.languages)
	return languages
}

// Parse parses source into a ParseTree. Sources with syntax errors still
// produce a tree; the error nodes are counted in the tree metadata.
func (p *TypeScriptProvider) Parse(
	ctx context.Context,
	language valueobject.Language,
	source []byte,
) (*valueobject.ParseTree, error) {
	grammar, ok := p.grammars[language.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", valueobject.ErrUnsupportedLanguage, language.Name())
	}

	if int64(len(source)) > p.config.MaxSourceSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", outbound.ErrSourceTooLarge, len(source), p.config.MaxSourceSize)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.DefaultTimeout)
		defer cancel()
	}

	start := time.Now()
	tree, stats, err := p.parse(ctx, grammar, source)
	duration := time.Since(start)
	if err != nil {
		p.metrics.RecordParseOperation(ctx, language.Name(), false, duration, 0)
		slogger.Error(ctx, "Tree-sitter parse failed", slogger.Fields{
			"language":      language.Name(),
			"source_length": len(source),
			"error":         err.Error(),
		})
		return nil, err
	}

	metadata := valueobject.ParseMetadata{
		ParseDuration:  duration,
		GrammarVersion: GrammarSource + "/" + language.Grammar(),
		NodeCount:      stats.nodeCount,
		MaxDepth:       stats.maxDepth,
		ErrorCount:     stats.errorCount,
	}

	parseTree, err := valueobject.NewParseTree(language, tree, source, metadata)
	if err != nil {
		p.metrics.RecordParseOperation(ctx, language.Name(), false, duration, 0)
		return nil, fmt.Errorf("failed to create parse tree: %w", err)
	}

	p.metrics.RecordParseOperation(ctx, language.Name(), true, duration, stats.errorCount)

	slogger.Debug(ctx, "Source parsed successfully", slogger.Fields{
		"language":       language.Name(),
		"source_length":  len(source),
		"node_count":     stats.nodeCount,
		"max_depth":      stats.maxDepth,
		"error_nodes":    stats.errorCount,
		"parse_duration": duration.String(),
	})

	return parseTree, nil
}

func (p *TypeScriptProvider) parse(
	ctx context.Context,
	grammar *tree_sitter.Language,
	source []byte,
) (*valueobject.ParseNode, *conversionStats, error) {
	parser := tree_sitter.NewParser()
	if parser == nil {
		return nil, nil, fmt.Errorf("%w: failed to create parser", outbound.ErrParseFailed)
	}

	if !parser.SetLanguage(grammar) {
		return nil, nil, fmt.Errorf("%w: failed to set language", outbound.ErrParseFailed)
	}

	tree, err := parser.ParseString(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", outbound.ErrParseFailed, err)
	}
	if tree == nil {
		return nil, nil, fmt.Errorf("%w: parser returned no tree", outbound.ErrParseFailed)
	}
	defer tree.Close()

	stats := &conversionStats{}
	root := convertTreeSitterNode(tree.RootNode(), 1, stats)
	if root == nil {
		return nil, nil, fmt.Errorf("%w: empty root node", outbound.ErrParseFailed)
	}

	return root, stats, nil
}
