package report

import (
	"context"
	"testing"
	"time"

	"gymops/internal/core"
	"gymops/internal/match"
)

type fakeStore struct {
	sales        []core.SaleAggregate
	roster       []core.RosterEntry
	plans        []core.PlanEntry
	appointments []core.Appointment
}

func (f *fakeStore) ListSales(ctx context.Context, profitCenter string) ([]core.SaleAggregate, error) {
	var out []core.SaleAggregate
	for _, s := range f.sales {
		if profitCenter == "" || s.ProfitCenter == profitCenter {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSalesByCenters(ctx context.Context, centers []string) ([]core.SaleAggregate, error) {
	var out []core.SaleAggregate
	for _, s := range f.sales {
		for _, c := range centers {
			if s.ProfitCenter == c {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) SalesRoster(ctx context.Context, positionPrefix string) ([]core.RosterEntry, error) {
	return f.roster, nil
}

func (f *fakeStore) Plans(ctx context.Context) ([]core.PlanEntry, error) {
	return f.plans, nil
}

func (f *fakeStore) CompletedAppointments(ctx context.Context, kind string) ([]core.Appointment, error) {
	var out []core.Appointment
	for _, a := range f.appointments {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

// ref fixes the reporting window: yesterday = Jan 15, MTD from Jan 1.
var ref = time.Date(2024, 1, 16, 10, 30, 0, 0, time.UTC)

func sale(id, date, plan, commission string) core.SaleAggregate {
	return core.SaleAggregate{
		SaleID:              id,
		ProfitCenter:        NewBusinessCenter,
		PaymentPlan:         plan,
		CommissionEmployees: commission,
		LatestPaymentDate:   date,
	}
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, match.NewResolver())
}

func TestEFTCounts_SplitsAndWindows(t *testing.T) {
	store := &fakeStore{
		roster: []core.RosterEntry{
			{Name: "John Smith", Position: "Sales - Sales Manager"},
			{Name: "Jane Miles", Position: "Sales - Fitness Facilitator"},
		},
		plans: []core.PlanEntry{{Label: "Premier Monthly", Price: 50}},
		sales: []core.SaleAggregate{
			sale("S1", "2024-01-15", "Premier Monthly", "John Smith, Jane Miles"),
			sale("S2", "2024-01-03", "Premier Monthly", "John Smith"),
			sale("S3", "2023-12-28", "Premier Monthly", "John Smith"),
		},
	}

	totals, err := newTestService(store).EFTCounts(context.Background(), ref)
	if err != nil {
		t.Fatalf("EFTCounts: %v", err)
	}

	john := totals["John Smith"]
	if john.Today != 25 {
		t.Errorf("John today = %v, want 25 (half of yesterday's sale)", john.Today)
	}
	if john.MTD != 75 {
		t.Errorf("John mtd = %v, want 75 (25 + 50, December sale excluded)", john.MTD)
	}

	jane := totals["Jane Miles"]
	if jane.Today != 25 || jane.MTD != 25 {
		t.Errorf("Jane = %+v, want today 25 / mtd 25", jane)
	}
}

func TestEFTCounts_RoundsAfterSummation(t *testing.T) {
	store := &fakeStore{
		roster: []core.RosterEntry{
			{Name: "John Smith", Position: "Sales - Sales Manager"},
			{Name: "Jane Miles", Position: "Sales - Receptionist"},
			{Name: "Pat Poe", Position: "Sales - Receptionist"},
		},
		plans: []core.PlanEntry{{Label: "Premier Monthly", Price: 10}},
		sales: []core.SaleAggregate{
			sale("S1", "2024-01-05", "Premier Monthly", "John Smith, Jane Miles, Pat Poe"),
			sale("S2", "2024-01-06", "Premier Monthly", "John Smith, Jane Miles, Pat Poe"),
		},
	}

	totals, err := newTestService(store).EFTCounts(context.Background(), ref)
	if err != nil {
		t.Fatalf("EFTCounts: %v", err)
	}

	// Each sale contributes 10/3 = 3.333..., so the correct total is
	// round(6.666..) = 6.67, not round(3.33)+round(3.33) = 6.66.
	if got := totals["John Smith"].MTD; got != 6.67 {
		t.Errorf("mtd = %v, want 6.67 (rounded after summation)", got)
	}
}

func TestEFTCounts_DropsUnresolvedNames(t *testing.T) {
	store := &fakeStore{
		roster: []core.RosterEntry{{Name: "John Smith", Position: "Sales - Sales Manager"}},
		plans:  []core.PlanEntry{{Label: "Premier Monthly", Price: 100}},
		sales: []core.SaleAggregate{
			sale("S1", "2024-01-05", "Premier Monthly", "John Smith, Zz Qq"),
		},
	}

	totals, err := newTestService(store).EFTCounts(context.Background(), ref)
	if err != nil {
		t.Fatalf("EFTCounts: %v", err)
	}

	// The split divisor counts every name in the field; the unresolved
	// half is dropped, not reassigned.
	if got := totals["John Smith"].MTD; got != 50 {
		t.Errorf("mtd = %v, want 50", got)
	}
	if len(totals) != 1 {
		t.Errorf("totals = %v, unresolved names must not appear", totals)
	}
}

func TestEFTCounts_UnmatchedPlanContributesNothing(t *testing.T) {
	store := &fakeStore{
		roster: []core.RosterEntry{{Name: "John Smith", Position: "Sales - Sales Manager"}},
		plans:  []core.PlanEntry{{Label: "Premier Monthly", Price: 100}},
		sales: []core.SaleAggregate{
			sale("S1", "2024-01-05", "Corporate Wellness", "John Smith"),
		},
	}

	totals, err := newTestService(store).EFTCounts(context.Background(), ref)
	if err != nil {
		t.Fatalf("EFTCounts: %v", err)
	}
	if len(totals) != 0 {
		t.Errorf("totals = %v, want empty for unmatched plan", totals)
	}
}

func TestEFTCounts_FallsBackToSalesPerson(t *testing.T) {
	s := sale("S1", "2024-01-05", "Premier Monthly", "")
	s.SalesPerson = "Smith, John"
	store := &fakeStore{
		roster: []core.RosterEntry{{Name: "John Smith", Position: "Sales - Sales Manager"}},
		plans:  []core.PlanEntry{{Label: "Premier Monthly", Price: 80}},
		sales:  []core.SaleAggregate{s},
	}

	totals, err := newTestService(store).EFTCounts(context.Background(), ref)
	if err != nil {
		t.Fatalf("EFTCounts: %v", err)
	}
	if got := totals["John Smith"].MTD; got != 80 {
		t.Errorf("mtd = %v, want 80 via sales-person fallback", got)
	}
}

func TestEFTDetails_FiltersByEmployeeAndPeriod(t *testing.T) {
	store := &fakeStore{
		roster: []core.RosterEntry{{Name: "John Smith", Position: "Sales - Sales Manager"}},
		plans:  []core.PlanEntry{{Label: "Premier Monthly", Price: 50}},
		sales: []core.SaleAggregate{
			sale("S1", "2024-01-15", "Premier Monthly", "John Smith"),
			sale("S2", "2024-01-03", "Premier Monthly", "John Smith"),
			sale("S3", "2024-01-05", "Premier Monthly", "Zz Qq"),
		},
	}
	svc := newTestService(store)

	today, err := svc.EFTDetails(context.Background(), "John Smith", "today", ref)
	if err != nil {
		t.Fatalf("EFTDetails today: %v", err)
	}
	if len(today) != 1 || today[0].SaleID != "S1" {
		t.Errorf("today details = %+v, want just S1", today)
	}

	mtd, err := svc.EFTDetails(context.Background(), "John Smith", "mtd", ref)
	if err != nil {
		t.Fatalf("EFTDetails mtd: %v", err)
	}
	if len(mtd) != 2 {
		t.Errorf("mtd details = %+v, want S1 and S2", mtd)
	}

	other, err := svc.EFTDetails(context.Background(), "Other", "mtd", ref)
	if err != nil {
		t.Fatalf("EFTDetails other: %v", err)
	}
	if len(other) != 1 || other[0].SaleID != "S3" {
		t.Errorf("other details = %+v, want just S3", other)
	}

	if _, err := svc.EFTDetails(context.Background(), "John Smith", "weekly", ref); err == nil {
		t.Error("EFTDetails accepted an invalid period")
	}
}

func TestCenterRollup(t *testing.T) {
	mk := func(id, center, date string, amount float64) core.SaleAggregate {
		return core.SaleAggregate{
			SaleID: id, ProfitCenter: center,
			LatestPaymentDate: date, TotalAmount: amount,
		}
	}
	store := &fakeStore{
		sales: []core.SaleAggregate{
			mk("S1", "PT Postdate - New", "2024-01-15", 100.10),
			mk("S2", "Personal Training - NEW", "2024-01-02", 50),
			mk("S3", "PT Postdate - Renew", "2024-01-15", 75),
			mk("S4", "PT Postdate - New", "2023-12-30", 999),
		},
	}

	rollup, err := newTestService(store).PTRollup(context.Background(), ref)
	if err != nil {
		t.Fatalf("PTRollup: %v", err)
	}

	newPT := rollup["new_pt"]
	if newPT.Today != 100.10 || newPT.MTD != 150.10 {
		t.Errorf("new_pt = %+v, want today 100.10 / mtd 150.10", newPT)
	}
	renewPT := rollup["renew_pt"]
	if renewPT.Today != 75 || renewPT.MTD != 75 {
		t.Errorf("renew_pt = %+v, want today 75 / mtd 75", renewPT)
	}
}
