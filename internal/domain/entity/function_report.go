package entity

import (
	"funcscan/internal/domain/valueobject"
	"time"

	"github.com/google/uuid"
)

// FunctionReport is the ordered inventory of function declarations in one
// source file. Records keep pre-order of discovery; records with the same
// name are never merged.
type FunctionReport struct {
	id              uuid.UUID
	filePath        string
	language        valueobject.Language
	analyzedAt      time.Time
	records         []FunctionRecord
	malformedBlocks int
}

// NewFunctionReport creates a report over records. malformedBlocks counts doc
// comment blocks that were discarded because they could not be parsed.
func NewFunctionReport(records []FunctionRecord, malformedBlocks int) *FunctionReport {
	owned := make([]FunctionRecord, len(records))
	for i, rec := range records {
		owned[i] = rec.clone()
	}

	if malformedBlocks < 0 {
		malformedBlocks = 0
	}

	return &FunctionReport{
		id:              uuid.New(),
		analyzedAt:      time.Now().UTC(),
		records:         owned,
		malformedBlocks: malformedBlocks,
	}
}

// RestoreFunctionReport creates a FunctionReport from stored data.
func RestoreFunctionReport(
	id uuid.UUID,
	filePath string,
	language valueobject.Language,
	analyzedAt time.Time,
	records []FunctionRecord,
	malformedBlocks int,
) *FunctionReport {
	report := NewFunctionReport(records, malformedBlocks)
	report.id = id
	report.analyzedAt = analyzedAt
	report.AttachSource(filePath, language)
	return report
}

// AttachSource records which file and language the report describes.
func (r *FunctionReport) AttachSource(filePath string, language valueobject.Language) {
	r.filePath = filePath
	r.language = language
}

// ID returns the report ID.
func (r *FunctionReport) ID() uuid.UUID {
	return r.id
}

// FilePath returns the analyzed file path, empty for in-memory sources.
func (r *FunctionReport) FilePath() string {
	return r.filePath
}

// Language returns the analyzed language.
func (r *FunctionReport) Language() valueobject.Language {
	return r.language
}

// AnalyzedAt returns when the report was created.
func (r *FunctionReport) AnalyzedAt() time.Time {
	return r.analyzedAt
}

// Records returns a copy of the records in discovery order. The copies do not
// share parent chains or throws entries with the report.
func (r *FunctionReport) Records() []FunctionRecord {
	records := make([]FunctionRecord, len(r.records))
	for i, rec := range r.records {
		records[i] = rec.clone()
	}
	return records
}

// Len returns the number of records.
func (r *FunctionReport) Len() int {
	return len(r.records)
}

// IsEmpty reports whether no function declaration was found.
func (r *FunctionReport) IsEmpty() bool {
	return len(r.records) == 0
}

// MalformedBlocks returns the number of discarded doc comment blocks.
func (r *FunctionReport) MalformedBlocks() int {
	return r.malformedBlocks
}

// ThrowsCount returns the total number of throws entries across all records.
func (r *FunctionReport) ThrowsCount() int {
	total := 0
	for _, rec := range r.records {
		total += len(rec.Throws)
	}
	return total
}

// MaxNestLevel returns the deepest nest level in the report.
func (r *FunctionReport) MaxNestLevel() int {
	deepest := 0
	for _, rec := range r.records {
		if rec.NestLevel > deepest {
			deepest = rec.NestLevel
		}
	}
	return deepest
}

// Names returns the record names in report order.
func (r *FunctionReport) Names() []string {
	names := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		names = append(names, rec.Name)
	}
	return names
}
