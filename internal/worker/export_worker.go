// Package worker exports report snapshots after each import batch. The
// worker recomputes totals from the database; the triggering message only
// says that new data landed.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gymops/internal/amqp"
	"gymops/internal/core"
	"gymops/internal/report"
	"gymops/internal/sheets"
)

type ExportWorker struct {
	reports  *report.Service
	appender sheets.ReportAppender

	// now is swappable in tests.
	now func() time.Time
}

func NewExportWorker(reports *report.Service, appender sheets.ReportAppender) *ExportWorker {
	return &ExportWorker{
		reports:  reports,
		appender: appender,
		now:      time.Now,
	}
}

// HandleImportCompleted recomputes the EFT and PT snapshots and appends them
// to the export sheet. Errors propagate so the broker redelivers the event.
func (w *ExportWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	ref := w.now()

	totals, err := w.reports.EFTCounts(ctx, ref)
	if err != nil {
		return fmt.Errorf("compute EFT snapshot: %w", err)
	}
	rollup, err := w.reports.PTRollup(ctx, ref)
	if err != nil {
		return fmt.Errorf("compute PT rollup: %w", err)
	}

	rows := snapshotRows(ref, msg.SourceFile, totals, rollup)
	if err := w.appender.AppendRows(ctx, rows); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Report snapshot exported",
		"source_file", msg.SourceFile,
		"employees", len(totals),
		"rows", len(rows))
	return nil
}

// snapshotRows flattens the snapshot into spreadsheet rows, one per employee
// plus one per rollup bucket, in a stable order.
func snapshotRows(ref time.Time, sourceFile string, totals map[string]report.Totals, rollup map[string]report.Totals) [][]any {
	day := ref.Format(core.ISODate)

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	buckets := make([]string, 0, len(rollup))
	for bucket := range rollup {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	rows := make([][]any, 0, len(names)+len(buckets))
	for _, name := range names {
		t := totals[name]
		rows = append(rows, []any{day, sourceFile, "eft", name, t.Today, t.MTD})
	}
	for _, bucket := range buckets {
		t := rollup[bucket]
		rows = append(rows, []any{day, sourceFile, "pt_rollup", bucket, t.Today, t.MTD})
	}
	return rows
}
