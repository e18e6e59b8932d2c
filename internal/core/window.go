package core

import (
	"strings"
	"time"
)

// ISODate is the storage format for every payment/event date. Lexicographic
// comparison of two ISODate strings equals chronological comparison.
const ISODate = "2006-01-02"

// dateLayouts are the input formats the importer accepts, tried in order.
var dateLayouts = []string{
	ISODate,
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
}

// NormalizeDate coerces a free-form date cell to ISO YYYY-MM-DD. Unparseable
// input yields the empty string rather than an error.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate)
		}
	}
	return ""
}

// ReportWindow classifies payment dates against an explicit reference day.
// The reference is always passed in by the caller; report logic never reads
// the ambient clock, so windows are reproducible in tests.
type ReportWindow struct {
	// Yesterday is the single day counted into "today" buckets. The source
	// exports lag one day behind, so the freshest attributable day is the
	// one before the reference day.
	Yesterday string
	// FirstOfMonth is the inclusive lower bound of the MTD bucket.
	FirstOfMonth string
}

// NewReportWindow derives the reporting window from a reference time.
func NewReportWindow(ref time.Time) ReportWindow {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return ReportWindow{
		Yesterday:    day.AddDate(0, 0, -1).Format(ISODate),
		FirstOfMonth: time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).Format(ISODate),
	}
}

// InMonth reports whether an ISO date falls in the month-to-date bucket.
func (w ReportWindow) InMonth(isoDate string) bool {
	return isoDate != "" && isoDate >= w.FirstOfMonth
}

// IsYesterday reports whether an ISO date is exactly the "today" bucket day.
func (w ReportWindow) IsYesterday(isoDate string) bool {
	return isoDate != "" && isoDate == w.Yesterday
}
