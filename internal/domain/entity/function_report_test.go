package entity

import (
	"funcscan/internal/domain/valueobject"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []FunctionRecord {
	return []FunctionRecord{
		{
			Name:        "outer",
			Kind:        FunctionKindDeclaration,
			Throws:      []valueobject.ThrowsEntry{valueobject.NewThrowsEntry("OuterError", "outer failure")},
			NestLevel:   0,
			ParentChain: []string{},
		},
		{
			Name:        "inner",
			Kind:        FunctionKindDeclaration,
			Throws:      []valueobject.ThrowsEntry{valueobject.NewThrowsEntry("InnerError", ""), valueobject.NewThrowsEntry("", "")},
			NestLevel:   1,
			ParentChain: []string{"outer"},
		},
		{
			Name:        "inner",
			Kind:        FunctionKindGenerator,
			Throws:      []valueobject.ThrowsEntry{},
			NestLevel:   2,
			ParentChain: []string{"outer", "inner"},
		},
	}
}

func TestFunctionRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  FunctionRecord
		wantErr string
	}{
		{name: "top level", record: FunctionRecord{Name: "hello", ParentChain: []string{}}},
		{name: "nested", record: FunctionRecord{Name: "inner", NestLevel: 1, ParentChain: []string{"outer"}}},
		{name: "empty name", record: FunctionRecord{Name: " "}, wantErr: "name cannot be empty"},
		{name: "negative level", record: FunctionRecord{Name: "x", NestLevel: -1}, wantErr: "negative"},
		{
			name:    "chain mismatch",
			record:  FunctionRecord{Name: "x", NestLevel: 2, ParentChain: []string{"a"}},
			wantErr: "does not match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFunctionRecord_QualifiedName(t *testing.T) {
	records := sampleRecords()
	assert.Equal(t, "outer", records[0].QualifiedName())
	assert.Equal(t, "outer.inner", records[1].QualifiedName())
	assert.Equal(t, "outer.inner.inner", records[2].QualifiedName())
}

func TestNewFunctionReport(t *testing.T) {
	records := sampleRecords()
	report := NewFunctionReport(records, 2)

	assert.NotEqual(t, uuid.Nil, report.ID())
	assert.False(t, report.AnalyzedAt().IsZero())
	assert.Equal(t, 3, report.Len())
	assert.False(t, report.IsEmpty())
	assert.Equal(t, 2, report.MalformedBlocks())
	assert.Equal(t, 3, report.ThrowsCount())
	assert.Equal(t, 2, report.MaxNestLevel())
	assert.Equal(t, []string{"outer", "inner", "inner"}, report.Names())

	// Shadowed names stay distinct records.
	got := report.Records()
	assert.Equal(t, got[1].Name, got[2].Name)
	assert.NotEqual(t, got[1].QualifiedName(), got[2].QualifiedName())

	// The report owns its records.
	records[0].Name = "mutated"
	got = report.Records()
	assert.Equal(t, "outer", got[0].Name)
	got[1].Name = "mutated"
	assert.Equal(t, "inner", report.Records()[1].Name)
}

func TestFunctionReport_RecordsAreDeepCopies(t *testing.T) {
	records := sampleRecords()
	report := NewFunctionReport(records, 0)

	records[1].ParentChain[0] = "changed"
	records[1].Throws[0] = valueobject.NewThrowsEntry("Changed", "")

	got := report.Records()
	got[2].ParentChain[0] = "changed"
	got[2].ParentChain[1] = "changed"
	got[0].Throws[0] = valueobject.NewThrowsEntry("Changed", "")

	fresh := report.Records()
	assert.Equal(t, []string{"outer"}, fresh[1].ParentChain)
	assert.Equal(t, "InnerError", fresh[1].Throws[0].ErrorType())
	assert.Equal(t, []string{"outer", "inner"}, fresh[2].ParentChain)
	assert.Equal(t, "OuterError", fresh[0].Throws[0].ErrorType())
}

func TestFunctionReport_EmptyAndSource(t *testing.T) {
	report := NewFunctionReport(nil, -3)
	assert.True(t, report.IsEmpty())
	assert.Equal(t, 0, report.MalformedBlocks())
	assert.NotNil(t, report.Records())
	assert.Equal(t, 0, report.MaxNestLevel())

	lang, err := valueobject.NewLanguage("ts")
	require.NoError(t, err)
	report.AttachSource("src/a.ts", lang)
	assert.Equal(t, "src/a.ts", report.FilePath())
	assert.Equal(t, valueobject.LanguageTypeScript, report.Language().Name())
}

func TestRestoreFunctionReport(t *testing.T) {
	id := uuid.New()
	analyzedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lang, err := valueobject.NewLanguage("js")
	require.NoError(t, err)

	report := RestoreFunctionReport(id, "lib/a.js", lang, analyzedAt, sampleRecords(), 2)

	assert.Equal(t, id, report.ID())
	assert.Equal(t, analyzedAt, report.AnalyzedAt())
	assert.Equal(t, "lib/a.js", report.FilePath())
	assert.Equal(t, valueobject.LanguageJavaScript, report.Language().Name())
	assert.Equal(t, 2, report.MalformedBlocks())
	assert.Equal(t, len(sampleRecords()), report.Len())
}
