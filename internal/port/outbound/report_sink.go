package outbound

import (
	"context"
	"funcscan/internal/domain/entity"
)

// ReportSink receives finished function reports, e.g. a database or a
// message bus consumed by downstream tooling.
type ReportSink interface {
	Name() string
	Store(ctx context.Context, report *entity.FunctionReport) error
}
