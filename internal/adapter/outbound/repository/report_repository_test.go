package repository

import (
	"funcscan/internal/config"
	"funcscan/internal/domain/entity"
	"funcscan/internal/domain/valueobject"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDatabaseConfig(t *testing.T) {
	valid := config.DatabaseConfig{
		Host:   "localhost",
		Port:   5432,
		User:   "funcscan",
		Name:   "funcscan",
		Schema: "funcscan",
	}

	tests := []struct {
		name    string
		mutate  func(*config.DatabaseConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.DatabaseConfig) {}},
		{name: "missing host", mutate: func(c *config.DatabaseConfig) { c.Host = "" }, wantErr: "host is required"},
		{name: "port zero", mutate: func(c *config.DatabaseConfig) { c.Port = 0 }, wantErr: "port must be between"},
		{name: "port too large", mutate: func(c *config.DatabaseConfig) { c.Port = 70000 }, wantErr: "port must be between"},
		{name: "missing database", mutate: func(c *config.DatabaseConfig) { c.Name = "" }, wantErr: "database is required"},
		{name: "missing user", mutate: func(c *config.DatabaseConfig) { c.User = "" }, wantErr: "username is required"},
		{name: "missing schema", mutate: func(c *config.DatabaseConfig) { c.Schema = "" }, wantErr: "schema is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := ValidateDatabaseConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnectionString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     6543,
		User:     "scanner",
		Password: "secret",
		Name:     "reports",
		Schema:   "funcscan",
	}

	assert.Equal(t,
		"host=db port=6543 dbname=reports user=scanner password=secret sslmode=disable search_path=funcscan",
		ConnectionString(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, ConnectionString(cfg), "sslmode=require")
}

func TestReportStatements_QualifyTables(t *testing.T) {
	stmts := newReportStatements("scan data")

	require.Len(t, stmts.schema, 4)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "scan data"`, stmts.schema[0])
	assert.Contains(t, stmts.schema[1], `"scan data"."function_reports"`)
	assert.Contains(t, stmts.schema[2], `REFERENCES "scan data"."function_reports" (id) ON DELETE CASCADE`)
	assert.Contains(t, stmts.upsertReport, "ON CONFLICT (id) DO UPDATE")
	assert.Contains(t, stmts.insertRecord, `"scan data"."function_records"`)
	assert.Contains(t, stmts.selectRecords, "ORDER BY ordinal")
}

func TestRecordRow(t *testing.T) {
	reportID := uuid.New()
	record := entity.FunctionRecord{
		Name: "inner",
		Kind: entity.FunctionKindGenerator,
		Throws: []valueobject.ThrowsEntry{
			valueobject.NewThrowsEntry("IOError", "disk failure"),
			valueobject.NewThrowsEntry("TypeError", ""),
		},
		NestLevel:   1,
		ParentChain: []string{"outer"},
		Position:    valueobject.Position{Row: 7, Column: 2},
	}

	row, err := recordRow(reportID, 3, record)
	require.NoError(t, err)
	require.Len(t, row, 9)

	assert.Equal(t, reportID, row[0])
	assert.Equal(t, 3, row[1])
	assert.Equal(t, "inner", row[2])
	assert.Equal(t, "generator", row[3])
	assert.Equal(t, 1, row[4])
	assert.Equal(t, []string{"outer"}, row[5])
	assert.JSONEq(t, `[{"type":"IOError","description":"disk failure"},{"type":"TypeError"}]`, string(row[6].([]byte)))
	assert.Equal(t, int32(7), row[7])
	assert.Equal(t, int32(2), row[8])
}

func TestRecordRow_NilCollectionsStoredEmpty(t *testing.T) {
	row, err := recordRow(uuid.New(), 0, entity.FunctionRecord{Name: "top"})
	require.NoError(t, err)

	assert.Equal(t, []string{}, row[5])
	assert.JSONEq(t, `[]`, string(row[6].([]byte)))
}

func TestDecodeThrows(t *testing.T) {
	entries, err := decodeThrows([]byte(`[{"type":"IOError","description":"disk failure"},{"type":"TypeError"}]`))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "IOError", entries[0].ErrorType())
	desc, ok := entries[0].Description()
	assert.True(t, ok)
	assert.Equal(t, "disk failure", desc)
	assert.False(t, entries[1].HasDescription())

	_, err = decodeThrows([]byte(`{"type":`))
	assert.Error(t, err)

	entries, err = decodeThrows([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
