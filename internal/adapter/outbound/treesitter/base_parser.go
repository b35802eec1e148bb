package treesitter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ParserConfig holds configuration for the tree-sitter provider.
type ParserConfig struct {
	MaxSourceSize  int64         // Maximum source code size in bytes
	DefaultTimeout time.Duration // Applied when the caller's context has no deadline
	EnableMetrics  bool          // Enable OTEL metrics
}

// DefaultParserConfig returns a default configuration for the provider.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		MaxSourceSize:  DefaultMaxSourceSize,
		DefaultTimeout: DefaultParseTimeout,
		EnableMetrics:  true,
	}
}

func (c ParserConfig) withDefaults() ParserConfig {
	if c.MaxSourceSize <= 0 {
		c.MaxSourceSize = DefaultMaxSourceSize
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultParseTimeout
	}
	return c
}

// ParserMetrics holds OTEL metrics for parse operations.
type ParserMetrics struct {
	parseOperationsTotal   metric.Int64Counter
	parseDurationHistogram metric.Float64Histogram
	parseErrorsTotal       metric.Int64Counter
	syntaxErrorsTotal      metric.Int64Counter
}

// initParserMetrics creates the parser instruments on the global meter provider.
func initParserMetrics() (*ParserMetrics, error) {
	return newParserMetrics(otel.Meter(meterName))
}

func newParserMetrics(meter metric.Meter) (*ParserMetrics, error) {
	parseOpsTotal, err := meter.Int64Counter(
		"treesitter_parse_operations_total",
		metric.WithDescription("Total number of tree-sitter parse operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse operations counter: %w", err)
	}

	parseDurationHist, err := meter.Float64Histogram(
		"treesitter_parse_duration_seconds",
		metric.WithDescription("Duration of tree-sitter parse operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse duration histogram: %w", err)
	}

	parseErrorsTotal, err := meter.Int64Counter(
		"treesitter_parse_errors_total",
		metric.WithDescription("Total number of tree-sitter parse failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse errors counter: %w", err)
	}

	syntaxErrorsTotal, err := meter.Int64Counter(
		"treesitter_syntax_error_nodes_total",
		metric.WithDescription("Total number of ERROR and MISSING nodes in parsed trees"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create syntax errors counter: %w", err)
	}

	return &ParserMetrics{
		parseOperationsTotal:   parseOpsTotal,
		parseDurationHistogram: parseDurationHist,
		parseErrorsTotal:       parseErrorsTotal,
		syntaxErrorsTotal:      syntaxErrorsTotal,
	}, nil
}

// RecordParseOperation records metrics for a parse operation.
func (m *ParserMetrics) RecordParseOperation(
	ctx context.Context,
	language string,
	success bool,
	duration time.Duration,
	syntaxErrors int,
) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("language", language),
		attribute.Bool("success", success),
	}

	m.parseOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.parseDurationHistogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.parseErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if syntaxErrors > 0 {
		m.syntaxErrorsTotal.Add(ctx, int64(syntaxErrors), metric.WithAttributes(attribute.String("language", language)))
	}
}
