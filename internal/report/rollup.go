package report

import (
	"context"
	"fmt"
	"time"

	"gymops/internal/core"
)

// Profit-center groupings for the personal-training rollups. The export has
// used both label generations, so each rollup spans old and new spellings.
var (
	PTNewCenters = []string{
		"PT Postdate - New",
		"Personal Training - NEW",
	}
	PTRenewCenters = []string{
		"PT Postdate - Renew",
		"Personal Training - RENEW",
	}
)

// CenterRollup sums sale totals across a profit-center group for the today
// and month-to-date windows.
func (s *Service) CenterRollup(ctx context.Context, centers []string, ref time.Time) (Totals, error) {
	sales, err := s.store.ListSalesByCenters(ctx, centers)
	if err != nil {
		return Totals{}, fmt.Errorf("list sales for rollup: %w", err)
	}

	window := core.NewReportWindow(ref)
	var today, mtd float64
	for _, sale := range sales {
		if window.InMonth(sale.LatestPaymentDate) {
			mtd += sale.TotalAmount
		}
		if window.IsYesterday(sale.LatestPaymentDate) {
			today += sale.TotalAmount
		}
	}

	return Totals{Today: core.Round2(today), MTD: core.Round2(mtd)}, nil
}

// PTRollup returns the New PT and Renew PT rollups side by side.
func (s *Service) PTRollup(ctx context.Context, ref time.Time) (map[string]Totals, error) {
	newPT, err := s.CenterRollup(ctx, PTNewCenters, ref)
	if err != nil {
		return nil, err
	}
	renewPT, err := s.CenterRollup(ctx, PTRenewCenters, ref)
	if err != nil {
		return nil, err
	}
	return map[string]Totals{
		"new_pt":   newPT,
		"renew_pt": renewPT,
	}, nil
}
