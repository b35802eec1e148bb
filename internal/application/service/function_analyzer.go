package service

import (
	"context"
	"errors"
	"fmt"
	"funcscan/internal/application/common/slogger"
	"funcscan/internal/domain/entity"
	domainservice "funcscan/internal/domain/service"
	"funcscan/internal/domain/valueobject"
	"funcscan/internal/port/outbound"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedLanguage is returned when a file's language cannot be determined
// or is not supported by the syntax tree provider.
var ErrUnsupportedLanguage = valueobject.ErrUnsupportedLanguage

// AnalyzerConfig controls a FunctionAnalyzer.
type AnalyzerConfig struct {
	Concurrency    int           // Files analyzed in parallel by AnalyzeFiles
	ParseTimeout   time.Duration // Per-source parse budget
	RequireSummary bool          // Ignore doc blocks without summary text
}

// DefaultAnalyzerConfig returns the default analyzer configuration.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Concurrency:  4,
		ParseTimeout: 30 * time.Second,
	}
}

// AnalyzerOption configures a FunctionAnalyzer.
type AnalyzerOption func(*FunctionAnalyzer)

// WithSinks registers sinks that receive every report passed to Publish.
func WithSinks(sinks ...outbound.ReportSink) AnalyzerOption {
	return func(a *FunctionAnalyzer) {
		a.sinks = append(a.sinks, sinks...)
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *AnalyzerMetrics) AnalyzerOption {
	return func(a *FunctionAnalyzer) {
		a.metrics = metrics
	}
}

// WithFileReader replaces os.ReadFile for AnalyzeFile.
func WithFileReader(read func(string) ([]byte, error)) AnalyzerOption {
	return func(a *FunctionAnalyzer) {
		a.readFile = read
	}
}

// FunctionAnalyzer produces function reports for source files: it parses them
// through the syntax tree provider and walks the resulting trees.
type FunctionAnalyzer struct {
	provider outbound.SyntaxTreeProvider
	walker   *domainservice.FunctionWalker
	sinks    []outbound.ReportSink
	metrics  *AnalyzerMetrics
	readFile func(string) ([]byte, error)
	config   AnalyzerConfig
}

// NewFunctionAnalyzer creates a FunctionAnalyzer.
func NewFunctionAnalyzer(
	provider outbound.SyntaxTreeProvider,
	docParser outbound.DocCommentParser,
	config AnalyzerConfig,
	opts ...AnalyzerOption,
) *FunctionAnalyzer {
	defaults := DefaultAnalyzerConfig()
	if config.Concurrency < 1 {
		config.Concurrency = defaults.Concurrency
	}
	if config.ParseTimeout <= 0 {
		config.ParseTimeout = defaults.ParseTimeout
	}

	throws := domainservice.NewThrowsParser(docParser, domainservice.WithRequireSummary(config.RequireSummary))

	analyzer := &FunctionAnalyzer{
		provider: provider,
		walker:   domainservice.NewFunctionWalker(throws),
		readFile: os.ReadFile,
		config:   config,
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	return analyzer
}

// Analyze parses source and returns its function report.
func (a *FunctionAnalyzer) Analyze(
	ctx context.Context,
	source []byte,
	language valueobject.Language,
) (*entity.FunctionReport, error) {
	start := time.Now()

	parseCtx, cancel := context.WithTimeout(ctx, a.config.ParseTimeout)
	defer cancel()

	tree, err := a.provider.Parse(parseCtx, language, source)
	if err != nil {
		a.metrics.RecordAnalysis(ctx, language.Name(), time.Since(start), 0, 0, 0, err)
		return nil, fmt.Errorf("parse %s source: %w", language.Name(), err)
	}

	if tree.HasSyntaxErrors() {
		slogger.Warn(ctx, "Source has syntax errors, analyzing recovered tree", slogger.Fields{
			"language":    language.Name(),
			"error_nodes": tree.Metadata().ErrorCount,
		})
	}

	report := a.walker.Walk(tree)
	report.AttachSource("", language)

	for _, record := range report.Records() {
		if err := record.Validate(); err != nil {
			err = fmt.Errorf("function %q: %w", record.QualifiedName(), err)
			a.metrics.RecordAnalysis(ctx, language.Name(), time.Since(start), 0, 0, 0, err)
			return nil, fmt.Errorf("invalid %s report: %w", language.Name(), err)
		}
	}

	a.metrics.RecordAnalysis(ctx, language.Name(), time.Since(start),
		report.Len(), report.ThrowsCount(), report.MalformedBlocks(), nil)

	if report.MalformedBlocks() > 0 {
		slogger.Debug(ctx, "Discarded malformed doc comment blocks", slogger.Fields{
			"language": language.Name(),
			"blocks":   report.MalformedBlocks(),
		})
	}

	return report, nil
}

// AnalyzeFile reads and analyzes one file. A zero language is detected from
// the file extension.
func (a *FunctionAnalyzer) AnalyzeFile(
	ctx context.Context,
	path string,
	language valueobject.Language,
) (*entity.FunctionReport, error) {
	if language.IsZero() {
		detected, err := valueobject.LanguageFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		language = detected
	}

	source, err := a.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	report, err := a.Analyze(ctx, source, language)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	report.AttachSource(path, language)

	slogger.Info(ctx, "Analyzed file", slogger.Fields{
		"path":             path,
		"language":         language.Name(),
		"functions":        report.Len(),
		"max_nest_level":   report.MaxNestLevel(),
		"throws_entries":   report.ThrowsCount(),
		"malformed_blocks": report.MalformedBlocks(),
	})
	if report.IsEmpty() {
		slogger.Debug(ctx, "No function declarations found", slogger.Fields{"path": path})
	} else {
		slogger.Debug(ctx, "Function declarations", slogger.Fields{"path": path, "names": report.Names()})
	}

	return report, nil
}

// AnalyzeFiles analyzes paths concurrently, bounded by the configured
// concurrency. Reports are returned in input order. The first failure cancels
// the remaining work and is returned.
func (a *FunctionAnalyzer) AnalyzeFiles(
	ctx context.Context,
	paths []string,
	language valueobject.Language,
) ([]*entity.FunctionReport, error) {
	reports := make([]*entity.FunctionReport, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := a.AnalyzeFile(ctx, path, language)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

// Publish hands every report to every configured sink. All sinks are tried;
// failures are joined.
func (a *FunctionAnalyzer) Publish(ctx context.Context, reports []*entity.FunctionReport) error {
	var errs []error

	for _, sink := range a.sinks {
		for _, report := range reports {
			if report == nil {
				continue
			}
			err := sink.Store(ctx, report)
			a.metrics.RecordSinkPublish(ctx, sink.Name(), err)
			if err != nil {
				slogger.ErrorWithError(ctx, err, "Report sink failed", slogger.Fields{
					"sink":      sink.Name(),
					"report_id": report.ID().String(),
					"path":      report.FilePath(),
				})
				errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			}
		}
	}

	return errors.Join(errs...)
}

// SupportedLanguages returns the languages the analyzer can handle.
func (a *FunctionAnalyzer) SupportedLanguages() []valueobject.Language {
	return a.provider.SupportedLanguages()
}
