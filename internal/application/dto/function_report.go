package dto

import (
	"funcscan/internal/domain/entity"
	"time"
)

// ThrowsEntryResponse is one declared exception.
type ThrowsEntryResponse struct {
	Type        string  `json:"type"                  yaml:"type"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
}

// FunctionRecordResponse is one discovered function declaration.
type FunctionRecordResponse struct {
	Name        string                `json:"name"         yaml:"name"`
	Kind        string                `json:"kind"         yaml:"kind"`
	NestLevel   int                   `json:"nest_level"   yaml:"nest_level"`
	ParentChain []string              `json:"parent_chain" yaml:"parent_chain"`
	Throws      []ThrowsEntryResponse `json:"throws"       yaml:"throws"`
	Line        int                   `json:"line"         yaml:"line"` // 1-based
	Column      int                   `json:"column"       yaml:"column"`
}

// FunctionReportResponse is the serializable form of one file's report.
type FunctionReportResponse struct {
	ID              string                   `json:"id"               yaml:"id"`
	FilePath        string                   `json:"file_path"        yaml:"file_path"`
	Language        string                   `json:"language"         yaml:"language"`
	AnalyzedAt      time.Time                `json:"analyzed_at"      yaml:"analyzed_at"`
	MalformedBlocks int                      `json:"malformed_blocks" yaml:"malformed_blocks"`
	Functions       []FunctionRecordResponse `json:"functions"        yaml:"functions"`
}

// AnalysisResponse groups the reports of one analyze run.
type AnalysisResponse struct {
	Reports []FunctionReportResponse `json:"reports" yaml:"reports"`
}

// NewFunctionReportResponse converts a domain report.
func NewFunctionReportResponse(report *entity.FunctionReport) FunctionReportResponse {
	response := FunctionReportResponse{
		ID:              report.ID().String(),
		FilePath:        report.FilePath(),
		Language:        report.Language().Name(),
		AnalyzedAt:      report.AnalyzedAt(),
		MalformedBlocks: report.MalformedBlocks(),
		Functions:       make([]FunctionRecordResponse, 0, report.Len()),
	}

	for _, record := range report.Records() {
		response.Functions = append(response.Functions, newFunctionRecordResponse(record))
	}

	return response
}

// NewAnalysisResponse converts reports in order.
func NewAnalysisResponse(reports []*entity.FunctionReport) AnalysisResponse {
	response := AnalysisResponse{Reports: make([]FunctionReportResponse, 0, len(reports))}
	for _, report := range reports {
		if report == nil {
			continue
		}
		response.Reports = append(response.Reports, NewFunctionReportResponse(report))
	}
	return response
}

func newFunctionRecordResponse(record entity.FunctionRecord) FunctionRecordResponse {
	throws := make([]ThrowsEntryResponse, 0, len(record.Throws))
	for _, entry := range record.Throws {
		item := ThrowsEntryResponse{Type: entry.ErrorType()}
		if entry.HasDescription() {
			desc, _ := entry.Description()
			item.Description = &desc
		}
		throws = append(throws, item)
	}

	chain := make([]string, len(record.ParentChain))
	copy(chain, record.ParentChain)

	return FunctionRecordResponse{
		Name:        record.Name,
		Kind:        string(record.Kind),
		NestLevel:   record.NestLevel,
		ParentChain: chain,
		Throws:      throws,
		Line:        int(record.Position.Row) + 1,
		Column:      int(record.Position.Column),
	}
}
