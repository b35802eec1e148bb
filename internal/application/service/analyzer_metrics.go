package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names following OpenTelemetry semantic conventions.
const (
	AnalysisCounterName           = "funcscan_analyses_total"
	AnalysisDurationHistogramName = "funcscan_analysis_duration_seconds"
	FunctionsFoundCounterName     = "funcscan_functions_found_total"
	ThrowsEntriesCounterName      = "funcscan_throws_entries_total"
	MalformedBlocksCounterName    = "funcscan_malformed_doc_blocks_total"
	SinkPublishCounterName        = "funcscan_sink_publish_total"
)

// Common attribute keys.
const (
	AttrLanguage        = "language"
	AttrOperationResult = "operation_result"
	AttrSink            = "sink"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// AnalyzerMetrics records OpenTelemetry metrics for function analysis.
type AnalyzerMetrics struct {
	analysisCounter   metric.Int64Counter
	analysisDuration  metric.Float64Histogram
	functionsFound    metric.Int64Counter
	throwsEntries     metric.Int64Counter
	malformedBlocks   metric.Int64Counter
	sinkPublishCalled metric.Int64Counter
}

// NewAnalyzerMetrics creates analyzer metrics on the global meter provider.
func NewAnalyzerMetrics() (*AnalyzerMetrics, error) {
	return NewAnalyzerMetricsWithProvider(otel.GetMeterProvider())
}

// NewAnalyzerMetricsWithProvider creates analyzer metrics on provider.
func NewAnalyzerMetricsWithProvider(provider metric.MeterProvider) (*AnalyzerMetrics, error) {
	meter := provider.Meter("funcscan/service", metric.WithInstrumentationVersion("1.0.0"))

	analysisCounter, err := meter.Int64Counter(
		AnalysisCounterName,
		metric.WithDescription("Total number of analyzed sources"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis counter: %w", err)
	}

	analysisDuration, err := meter.Float64Histogram(
		AnalysisDurationHistogramName,
		metric.WithDescription("Duration of parse and walk for one source"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis duration histogram: %w", err)
	}

	functionsFound, err := meter.Int64Counter(
		FunctionsFoundCounterName,
		metric.WithDescription("Total number of function declarations found"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create functions counter: %w", err)
	}

	throwsEntries, err := meter.Int64Counter(
		ThrowsEntriesCounterName,
		metric.WithDescription("Total number of declared throws entries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create throws counter: %w", err)
	}

	malformedBlocks, err := meter.Int64Counter(
		MalformedBlocksCounterName,
		metric.WithDescription("Total number of discarded documentation comment blocks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create malformed blocks counter: %w", err)
	}

	sinkPublish, err := meter.Int64Counter(
		SinkPublishCounterName,
		metric.WithDescription("Total number of reports handed to report sinks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sink counter: %w", err)
	}

	return &AnalyzerMetrics{
		analysisCounter:   analysisCounter,
		analysisDuration:  analysisDuration,
		functionsFound:    functionsFound,
		throwsEntries:     throwsEntries,
		malformedBlocks:   malformedBlocks,
		sinkPublishCalled: sinkPublish,
	}, nil
}

// RecordAnalysis records one analyzed source. Counts are ignored on failure.
func (m *AnalyzerMetrics) RecordAnalysis(
	ctx context.Context,
	language string,
	duration time.Duration,
	functions, throws, malformed int,
	err error,
) {
	if m == nil {
		return
	}

	result := resultSuccess
	if err != nil {
		result = resultError
	}

	langAttr := attribute.String(AttrLanguage, language)
	attrs := metric.WithAttributes(langAttr, attribute.String(AttrOperationResult, result))

	m.analysisCounter.Add(ctx, 1, attrs)
	m.analysisDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		return
	}

	m.functionsFound.Add(ctx, int64(functions), metric.WithAttributes(langAttr))
	m.throwsEntries.Add(ctx, int64(throws), metric.WithAttributes(langAttr))
	if malformed > 0 {
		m.malformedBlocks.Add(ctx, int64(malformed), metric.WithAttributes(langAttr))
	}
}

// RecordSinkPublish records one report handed to a sink.
func (m *AnalyzerMetrics) RecordSinkPublish(ctx context.Context, sink string, err error) {
	if m == nil {
		return
	}

	result := resultSuccess
	if err != nil {
		result = resultError
	}

	m.sinkPublishCalled.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSink, sink),
		attribute.String(AttrOperationResult, result),
	))
}
