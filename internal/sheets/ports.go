package sheets

import "context"

// ReportAppender is the outbound port for report snapshot exports. Rows are
// already formatted; the adapter only decides where they land.
type ReportAppender interface {
	AppendRows(ctx context.Context, rows [][]any) error
}
