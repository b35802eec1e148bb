package cmd

import (
	"context"
	"errors"
	"fmt"
	"funcscan/internal/adapter/outbound/messaging"
	"funcscan/internal/adapter/outbound/repository"
	"funcscan/internal/adapter/outbound/treesitter"
	"funcscan/internal/application/common/retry"
	"funcscan/internal/application/common/slogger"
	"funcscan/internal/application/dto"
	"funcscan/internal/application/service"
	"funcscan/internal/config"
	"funcscan/internal/domain/entity"
	"funcscan/internal/domain/valueobject"
	"funcscan/internal/port/outbound"
	"io"
	"os"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const stdinArg = "-"

// analyzeInput holds the per-invocation options that are not configuration.
type analyzeInput struct {
	paths    []string
	language string
	out      string
}

// analyzeDeps are the collaborators of runAnalyze.
type analyzeDeps struct {
	stdin       io.Reader
	openSinks   func(ctx context.Context, cfg *config.Config) ([]outbound.ReportSink, func(), error)
	newAnalyzer func(ctx context.Context, cfg *config.Config, sinks []outbound.ReportSink) (*service.FunctionAnalyzer, error)
}

func defaultAnalyzeDeps() analyzeDeps {
	return analyzeDeps{
		stdin:       os.Stdin,
		openSinks:   openSinks,
		newAnalyzer: newAnalyzer,
	}
}

func newAnalyzeCmd() *cobra.Command {
	var in analyzeInput

	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "List function declarations and their documented throws",
		Long: `Analyze parses each file and prints one report per file listing its
function declarations in source order, with nesting level, enclosing
functions and the @throws entries of the attached JSDoc comment.

With no files, or the single argument "-", source is read from standard
input and --lang is required. Otherwise the language of each file is taken
from --lang or detected from its extension.`,
		Example: `  funcscan analyze src/index.ts
  funcscan analyze --format json lib/*.js
  cat util.ts | funcscan analyze --lang ts -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.paths = args
			return runAnalyze(cmd.Context(), cmd, GetConfig(), in, defaultAnalyzeDeps())
		},
	}

	cmd.Flags().StringVarP(&in.language, "lang", "l", "", "Source language (ts, tsx, js); detected from the extension when empty")
	cmd.Flags().StringVarP(&in.out, "out", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringP("format", "f", config.FormatText, "Output format (text, json, yaml)")
	cmd.Flags().Int("concurrency", 0, "Files analyzed in parallel")
	cmd.Flags().Bool("require-summary", false, "Ignore doc comments that have no summary text")
	cmd.Flags().Bool("sink-postgres", false, "Store reports in PostgreSQL")
	cmd.Flags().Bool("sink-nats", false, "Publish reports on NATS")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, cfg *config.Config, in analyzeInput, deps analyzeDeps) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	var language valueobject.Language
	if in.language != "" {
		lang, err := valueobject.NewLanguage(in.language)
		if err != nil {
			return err
		}
		language = lang
	}

	fromStdin := len(in.paths) == 0 || slices.Equal(in.paths, []string{stdinArg})
	if !fromStdin && slices.Contains(in.paths, stdinArg) {
		return errors.New(`"-" cannot be combined with file arguments`)
	}
	if fromStdin && language.IsZero() {
		return errors.New("--lang is required when reading from standard input")
	}

	sinks, closeSinks, err := deps.openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	analyzer, err := deps.newAnalyzer(ctx, cfg, sinks)
	if err != nil {
		return err
	}

	var reports []*entity.FunctionReport
	if fromStdin {
		source, readErr := io.ReadAll(deps.stdin)
		if readErr != nil {
			return fmt.Errorf("read standard input: %w", readErr)
		}
		report, analyzeErr := analyzer.Analyze(ctx, source, language)
		if analyzeErr != nil {
			return fmt.Errorf("%s: %w", dto.StdinPath, analyzeErr)
		}
		reports = []*entity.FunctionReport{report}
	} else {
		reports, err = analyzer.AnalyzeFiles(ctx, in.paths, language)
		if err != nil {
			return err
		}
	}

	if err := writeReports(cmd.OutOrStdout(), in.out, cfg.Output.Format, reports); err != nil {
		return err
	}

	if err := analyzer.Publish(ctx, reports); err != nil {
		return fmt.Errorf("publish reports: %w", err)
	}
	return nil
}

func writeReports(stdout io.Writer, path, format string, reports []*entity.FunctionReport) error {
	resp := dto.NewAnalysisResponse(reports)
	if path == "" {
		return dto.Render(stdout, format, resp)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := dto.Render(f, format, resp); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newAnalyzer(ctx context.Context, cfg *config.Config, sinks []outbound.ReportSink) (*service.FunctionAnalyzer, error) {
	provider, err := treesitter.NewTypeScriptProvider(ctx, treesitter.ParserConfig{
		MaxSourceSize:  cfg.Analysis.MaxSourceSize,
		DefaultTimeout: cfg.Analysis.ParseTimeout,
		EnableMetrics:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create syntax tree provider: %w", err)
	}

	docs, err := treesitter.NewJSDocParser()
	if err != nil {
		return nil, fmt.Errorf("create doc comment parser: %w", err)
	}

	metrics, err := service.NewAnalyzerMetrics()
	if err != nil {
		return nil, fmt.Errorf("create analyzer metrics: %w", err)
	}

	return service.NewFunctionAnalyzer(provider, docs, service.AnalyzerConfig{
		Concurrency:    cfg.Analysis.Concurrency,
		ParseTimeout:   cfg.Analysis.ParseTimeout,
		RequireSummary: cfg.Analysis.RequireSummary,
	}, service.WithSinks(sinks...), service.WithMetrics(metrics)), nil
}

// openSinks connects every enabled report sink. The returned function closes
// them in reverse order.
func openSinks(ctx context.Context, cfg *config.Config) ([]outbound.ReportSink, func(), error) {
	var (
		sinks   []outbound.ReportSink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) ([]outbound.ReportSink, func(), error) {
		closeAll()
		return nil, func() {}, err
	}

	if cfg.Sink.Postgres {
		var pool *pgxpool.Pool
		err := retry.Do(ctx, "connect postgres", retry.DefaultConfig(), func(ctx context.Context) error {
			p, err := repository.NewDatabaseConnection(ctx, cfg.Database)
			if err != nil {
				return err
			}
			pool = p
			return nil
		})
		if err != nil {
			return fail(fmt.Errorf("postgres sink: %w", err))
		}

		repo := repository.NewPostgresReportRepository(pool, cfg.Database.Schema)
		closers = append(closers, repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("postgres sink: %w", err))
		}
		sinks = append(sinks, repo)
	}

	if cfg.Sink.NATS {
		publisher, err := messaging.NewNATSReportPublisher(cfg.NATS)
		if err != nil {
			return fail(fmt.Errorf("nats sink: %w", err))
		}
		if err := retry.Do(ctx, "connect nats", retry.DefaultConfig(), publisher.Connect); err != nil {
			return fail(fmt.Errorf("nats sink: %w", err))
		}
		closers = append(closers, func() { _ = publisher.Close() })
		sinks = append(sinks, publisher)
	}

	if len(sinks) > 0 {
		names := make([]string, 0, len(sinks))
		for _, sink := range sinks {
			names = append(names, sink.Name())
		}
		slogger.Info(ctx, "Report sinks enabled", slogger.Fields{"sinks": names})
	}

	return sinks, closeAll, nil
}
