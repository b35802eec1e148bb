package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"funcscan/internal/application/common/slogger"
	"funcscan/internal/application/dto"
	"funcscan/internal/domain/entity"
	"funcscan/internal/domain/valueobject"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// SinkName identifies the PostgreSQL sink in logs and metrics.
	SinkName = "postgres"

	reportsTable = "function_reports"
	recordsTable = "function_records"

	storeMaxRetries = 3
)

// reportStatements holds the SQL used by PostgresReportRepository, with table
// names qualified by the configured schema.
type reportStatements struct {
	schema        []string
	upsertReport  string
	deleteRecords string
	insertRecord  string
	selectReport  string
	selectRecords string
}

func newReportStatements(schema string) reportStatements {
	reports := pgx.Identifier{schema, reportsTable}.Sanitize()
	records := pgx.Identifier{schema, recordsTable}.Sanitize()

	return reportStatements{
		schema: []string{
			fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize()),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	file_path TEXT NOT NULL,
	language TEXT NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL,
	function_count INTEGER NOT NULL,
	throws_count INTEGER NOT NULL,
	malformed_blocks INTEGER NOT NULL DEFAULT 0
)`, reports),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	report_id UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	nest_level INTEGER NOT NULL CHECK (nest_level >= 0),
	parent_chain TEXT[] NOT NULL,
	throws JSONB NOT NULL,
	start_row INTEGER NOT NULL,
	start_column INTEGER NOT NULL,
	PRIMARY KEY (report_id, ordinal)
)`, records, reports),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (file_path)",
				pgx.Identifier{reportsTable + "_file_path_idx"}.Sanitize(), reports),
		},
		upsertReport: fmt.Sprintf(`INSERT INTO %s
	(id, file_path, language, analyzed_at, function_count, throws_count, malformed_blocks)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	file_path = EXCLUDED.file_path,
	language = EXCLUDED.language,
	analyzed_at = EXCLUDED.analyzed_at,
	function_count = EXCLUDED.function_count,
	throws_count = EXCLUDED.throws_count,
	malformed_blocks = EXCLUDED.malformed_blocks`, reports),
		deleteRecords: fmt.Sprintf("DELETE FROM %s WHERE report_id = $1", records),
		insertRecord: fmt.Sprintf(`INSERT INTO %s
	(report_id, ordinal, name, kind, nest_level, parent_chain, throws, start_row, start_column)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, records),
		selectReport: fmt.Sprintf(`SELECT file_path, language, analyzed_at, malformed_blocks
FROM %s WHERE id = $1`, reports),
		selectRecords: fmt.Sprintf(`SELECT name, kind, nest_level, parent_chain, throws, start_row, start_column
FROM %s WHERE report_id = $1 ORDER BY ordinal`, records),
	}
}

// PostgresReportRepository stores function reports in PostgreSQL. It
// implements outbound.ReportSink.
type PostgresReportRepository struct {
	pool       *pgxpool.Pool
	tx         *TransactionManager
	statements reportStatements
}

// NewPostgresReportRepository creates a repository over pool using tables in schema.
func NewPostgresReportRepository(pool *pgxpool.Pool, schema string) *PostgresReportRepository {
	return &PostgresReportRepository{
		pool:       pool,
		tx:         NewTransactionManager(pool),
		statements: newReportStatements(schema),
	}
}

// Name implements outbound.ReportSink.
func (r *PostgresReportRepository) Name() string {
	return SinkName
}

// EnsureSchema creates the schema and tables when they are missing.
func (r *PostgresReportRepository) EnsureSchema(ctx context.Context) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, stmt := range r.statements.schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return WrapError(err, "ensure schema")
			}
		}
		return nil
	})
}

// Store writes report and its records in one transaction. Storing the same
// report again replaces its records.
func (r *PostgresReportRepository) Store(ctx context.Context, report *entity.FunctionReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	records := report.Records()
	rows := make([][]any, 0, len(records))
	for i, record := range records {
		row, err := recordRow(report.ID(), i, record)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := r.tx.WithTransactionRetry(ctx, storeMaxRetries, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, r.statements.upsertReport,
			report.ID(),
			report.FilePath(),
			report.Language().Name(),
			report.AnalyzedAt(),
			report.Len(),
			report.ThrowsCount(),
			report.MalformedBlocks(),
		); err != nil {
			return WrapError(err, "store report")
		}

		if _, err := tx.Exec(ctx, r.statements.deleteRecords, report.ID()); err != nil {
			return WrapError(err, "clear function records")
		}

		if len(rows) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(r.statements.insertRecord, row...)
		}

		results := tx.SendBatch(ctx, batch)
		for range rows {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return WrapError(err, "store function record")
			}
		}
		return results.Close()
	})
	if err != nil {
		return err
	}

	slogger.Debug(ctx, "Stored report", slogger.Fields{
		"report_id": report.ID().String(),
		"path":      report.FilePath(),
		"functions": len(rows),
	})
	return nil
}

// FindByID loads a stored report.
func (r *PostgresReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.FunctionReport, error) {
	var (
		filePath     string
		languageName string
		analyzedAt   time.Time
		malformed    int
	)

	err := r.pool.QueryRow(ctx, r.statements.selectReport, id).
		Scan(&filePath, &languageName, &analyzedAt, &malformed)
	if err != nil {
		return nil, WrapError(err, "find report")
	}

	var language valueobject.Language
	if languageName != "" {
		language, err = valueobject.NewLanguage(languageName)
		if err != nil {
			return nil, fmt.Errorf("find report: %w", err)
		}
	}

	rows, err := r.pool.Query(ctx, r.statements.selectRecords, id)
	if err != nil {
		return nil, WrapError(err, "find function records")
	}
	defer rows.Close()

	var records []entity.FunctionRecord
	for rows.Next() {
		var (
			record      entity.FunctionRecord
			kind        string
			throwsJSON  []byte
			row, column int32
		)
		if err := rows.Scan(&record.Name, &kind, &record.NestLevel, &record.ParentChain,
			&throwsJSON, &row, &column); err != nil {
			return nil, WrapError(err, "scan function record")
		}
		record.Kind = entity.FunctionKind(kind)
		record.Position = valueobject.Position{Row: uint32(row), Column: uint32(column)}
		if record.ParentChain == nil {
			record.ParentChain = []string{}
		}
		if record.Throws, err = decodeThrows(throwsJSON); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "find function records")
	}

	return entity.RestoreFunctionReport(id, filePath, language, analyzedAt, records, malformed), nil
}

// Ping checks that the database is reachable.
func (r *PostgresReportRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return WrapError(err, "ping")
	}
	return nil
}

// Close releases the connection pool.
func (r *PostgresReportRepository) Close() {
	r.pool.Close()
}

// recordRow returns the insert arguments for record at position ordinal.
func recordRow(reportID uuid.UUID, ordinal int, record entity.FunctionRecord) ([]any, error) {
	throws, err := encodeThrows(record.Throws)
	if err != nil {
		return nil, fmt.Errorf("encode throws for %s: %w", record.Name, err)
	}

	parentChain := record.ParentChain
	if parentChain == nil {
		parentChain = []string{}
	}

	return []any{
		reportID,
		ordinal,
		record.Name,
		string(record.Kind),
		record.NestLevel,
		parentChain,
		throws,
		int32(record.Position.Row),
		int32(record.Position.Column),
	}, nil
}

func encodeThrows(entries []valueobject.ThrowsEntry) ([]byte, error) {
	out := make([]dto.ThrowsEntryResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.ThrowsEntryResponse{Type: entry.ErrorType()}
		if desc, ok := entry.Description(); ok {
			item.Description = &desc
		}
		out = append(out, item)
	}
	return json.Marshal(out)
}

func decodeThrows(data []byte) ([]valueobject.ThrowsEntry, error) {
	var items []dto.ThrowsEntryResponse
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode throws: %w", err)
	}

	entries := make([]valueobject.ThrowsEntry, 0, len(items))
	for _, item := range items {
		desc := ""
		if item.Description != nil {
			desc = *item.Description
		}
		entries = append(entries, valueobject.NewThrowsEntry(item.Type, desc))
	}
	return entries, nil
}
