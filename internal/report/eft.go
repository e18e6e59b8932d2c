// Package report computes per-employee attribution totals from persisted
// sale aggregates. Every report takes an explicit reference time; nothing
// in here reads the ambient clock.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"gymops/internal/core"
	"gymops/internal/match"
)

// NewBusinessCenter is the profit center that qualifies a sale for EFT
// commission attribution.
const NewBusinessCenter = "New Business"

// SalesPositionPrefix selects the roster slice used for sales attribution.
const SalesPositionPrefix = "Sales"

var (
	ErrInvalidPeriod = errors.New(`period must be "today" or "mtd"`)
	ErrUnknownKind   = errors.New("unknown appointment kind")
)

// Store is the read surface the reports need from the repository.
type Store interface {
	ListSales(ctx context.Context, profitCenter string) ([]core.SaleAggregate, error)
	ListSalesByCenters(ctx context.Context, centers []string) ([]core.SaleAggregate, error)
	SalesRoster(ctx context.Context, positionPrefix string) ([]core.RosterEntry, error)
	Plans(ctx context.Context) ([]core.PlanEntry, error)
	CompletedAppointments(ctx context.Context, kind string) ([]core.Appointment, error)
}

// Totals is one employee's pair of report buckets, rounded to two decimals
// at the point of response.
type Totals struct {
	Today float64 `json:"today"`
	MTD   float64 `json:"mtd"`
}

// EFTDetail is one sale's contribution to a single employee's EFT total.
type EFTDetail struct {
	SaleID              string  `json:"sale_id"`
	MemberName          string  `json:"member_name"`
	PaymentDate         string  `json:"payment_date"`
	PaymentPlan         string  `json:"agreement_payment_plan"`
	MatchedPlan         string  `json:"matched_membership"`
	EFTAmount           float64 `json:"eft_amount"`
	TotalSaleAmount     float64 `json:"total_sale_amount"`
	CommissionEmployees string  `json:"commission_employees"`
}

// Service wires the stores and the identity resolver into report endpoints.
type Service struct {
	store    Store
	resolver *match.Resolver
}

func NewService(store Store, resolver *match.Resolver) *Service {
	return &Service{store: store, resolver: resolver}
}

// collaborators bundles the per-request reference data fetched concurrently.
type collaborators struct {
	sales  []core.SaleAggregate
	roster match.Roster
	plans  []core.PlanEntry
}

func (s *Service) fetchCollaborators(ctx context.Context) (collaborators, error) {
	var c collaborators

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, err := s.store.ListSales(gctx, NewBusinessCenter)
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		c.sales = sales
		return nil
	})
	g.Go(func() error {
		entries, err := s.store.SalesRoster(gctx, SalesPositionPrefix)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name)
		}
		c.roster = match.NewRoster(names)
		return nil
	})
	g.Go(func() error {
		plans, err := s.store.Plans(gctx)
		if err != nil {
			return fmt.Errorf("load plans: %w", err)
		}
		c.plans = plans
		return nil
	})

	if err := g.Wait(); err != nil {
		return collaborators{}, err
	}
	return c, nil
}

// EFTCounts computes per-canonical-employee EFT totals for the today and
// month-to-date buckets. Unresolved commission names are dropped, not
// bucketed; unmatched plan labels are logged for observability and
// contribute nothing.
func (s *Service) EFTCounts(ctx context.Context, ref time.Time) (map[string]Totals, error) {
	c, err := s.fetchCollaborators(ctx)
	if err != nil {
		return nil, err
	}

	window := core.NewReportWindow(ref)
	exact := make(map[string]*Totals)
	matched := 0
	unmatchedPlans := make(map[string]bool)

	for _, sale := range c.sales {
		if !window.InMonth(sale.LatestPaymentDate) {
			continue
		}
		field := sale.CommissionEmployees
		if field == "" {
			field = sale.SalesPerson
		}
		if sale.PaymentPlan == "" || field == "" {
			continue
		}

		price, _, ok := match.ResolvePlan(sale.PaymentPlan, c.plans)
		if !ok {
			unmatchedPlans[sale.PaymentPlan] = true
			continue
		}
		matched++

		employees := core.SplitEmployees(field)
		if len(employees) == 0 {
			continue
		}
		share := price / float64(len(employees))

		for _, raw := range employees {
			name, ok := s.resolver.Attribute(raw, c.roster, match.PolicyDrop)
			if !ok {
				continue
			}
			t := exact[name]
			if t == nil {
				t = &Totals{}
				exact[name] = t
			}
			t.MTD += share
			if window.IsYesterday(sale.LatestPaymentDate) {
				t.Today += share
			}
		}
	}

	if len(unmatchedPlans) > 0 {
		labels := make([]string, 0, len(unmatchedPlans))
		for l := range unmatchedPlans {
			labels = append(labels, l)
		}
		slog.WarnContext(ctx, "Payment plans without a canonical match",
			"count", len(unmatchedPlans), "labels", labels)
	}
	slog.InfoContext(ctx, "EFT attribution computed",
		"sales_matched", matched, "employees", len(exact))

	// Rounding happens here and only here: buckets accumulate exact sums.
	totals := make(map[string]Totals, len(exact))
	for name, t := range exact {
		totals[name] = Totals{Today: core.Round2(t.Today), MTD: core.Round2(t.MTD)}
	}
	return totals, nil
}

// EFTDetails lists the sales behind one employee/period bucket. The
// pseudo-employee "Other" selects sales whose commission field resolves to
// nobody on the roster.
func (s *Service) EFTDetails(ctx context.Context, employee, period string, ref time.Time) ([]EFTDetail, error) {
	if period != "today" && period != "mtd" {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidPeriod, period)
	}

	c, err := s.fetchCollaborators(ctx)
	if err != nil {
		return nil, err
	}

	window := core.NewReportWindow(ref)
	details := make([]EFTDetail, 0)

	for _, sale := range c.sales {
		field := sale.CommissionEmployees
		if field == "" {
			field = sale.SalesPerson
		}
		if field == "" || sale.LatestPaymentDate == "" {
			continue
		}
		if period == "today" && !window.IsYesterday(sale.LatestPaymentDate) {
			continue
		}
		if period == "mtd" && !window.InMonth(sale.LatestPaymentDate) {
			continue
		}

		employees := core.SplitEmployees(field)
		var resolved []string
		for _, raw := range employees {
			if name, ok := s.resolver.Attribute(raw, c.roster, match.PolicyDrop); ok {
				resolved = append(resolved, name)
			}
		}

		qualifies := false
		if employee == match.OtherBucket {
			qualifies = len(resolved) == 0
		} else {
			for _, name := range resolved {
				if name == employee {
					qualifies = true
					break
				}
			}
		}
		if !qualifies {
			continue
		}

		price, matchedPlan, ok := match.ResolvePlan(sale.PaymentPlan, c.plans)
		if !ok {
			matchedPlan = sale.PaymentPlan
		}
		share := price
		if len(employees) > 0 {
			share = price / float64(len(employees))
		}

		details = append(details, EFTDetail{
			SaleID:              sale.SaleID,
			MemberName:          sale.MemberName,
			PaymentDate:         sale.LatestPaymentDate,
			PaymentPlan:         sale.PaymentPlan,
			MatchedPlan:         matchedPlan,
			EFTAmount:           core.Round2(share),
			TotalSaleAmount:     sale.TotalAmount,
			CommissionEmployees: sale.CommissionEmployees,
		})
	}

	return details, nil
}
