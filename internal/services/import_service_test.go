package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gymops/internal/amqp"
	"gymops/internal/core"
	"gymops/internal/importer"
)

type fakeStore struct {
	sales     map[string]core.SaleAggregate
	inserts   int
	edits     []core.SaleAggregate
	editAudit []core.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{sales: make(map[string]core.SaleAggregate)}
}

func (f *fakeStore) ExistingSales(ctx context.Context) (map[string]importer.TrackedSale, error) {
	out := make(map[string]importer.TrackedSale, len(f.sales))
	for id, s := range f.sales {
		out[id] = importer.TrackedSale{
			ProfitCenter:   s.ProfitCenter,
			MainItem:       s.MainItem,
			ManualOverride: s.ManualOverride,
		}
	}
	return out, nil
}

func (f *fakeStore) InsertSale(ctx context.Context, sale core.SaleAggregate, items []core.LineItemTransaction, audit core.AuditEntry) error {
	f.sales[sale.SaleID] = sale
	f.inserts++
	return nil
}

func (f *fakeStore) UpdateSaleTracked(ctx context.Context, saleID, profitCenter, mainItem string, audit core.AuditEntry) error {
	s := f.sales[saleID]
	s.ProfitCenter = profitCenter
	s.MainItem = mainItem
	f.sales[saleID] = s
	return nil
}

func (f *fakeStore) GetSale(ctx context.Context, saleID string) (core.SaleAggregate, error) {
	s, ok := f.sales[saleID]
	if !ok {
		return core.SaleAggregate{}, core.ErrSaleNotFound
	}
	return s, nil
}

func (f *fakeStore) ApplyManualEdit(ctx context.Context, edit core.SaleAggregate, audit core.AuditEntry) error {
	f.sales[edit.SaleID] = edit
	f.edits = append(f.edits, edit)
	f.editAudit = append(f.editAudit, audit)
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakePublisher struct {
	messages []*amqp.ImportCompletedMessage
	err      error
}

func (f *fakePublisher) PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

const exportCSV = `Agreement #,Profit Center,"Member Name (last, first)",Payment Date,Item,Amount
A1,New Business,"Doe, Jane",2024-01-15,Premier Membership,100.00
A1,New Business,"Doe, Jane",2024-01-15,Enrollment Fee,50.00
`

func TestImport_MergesAndPublishes(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewImportService(store, pub)

	stats, err := svc.Import(context.Background(), strings.NewReader(exportCSV), "export.csv")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.TotalSalesInCSV != 1 || stats.NewSalesAdded != 1 || stats.NewTransactionsAdded != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if store.inserts != 1 {
		t.Errorf("inserts = %d, want 1", store.inserts)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	if pub.messages[0].SourceFile != "export.csv" || pub.messages[0].Stats != stats {
		t.Errorf("message = %+v", pub.messages[0])
	}
}

func TestImport_PublishFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	svc := NewImportService(store, &fakePublisher{err: errors.New("broker down")})

	stats, err := svc.Import(context.Background(), strings.NewReader(exportCSV), "export.csv")
	if err != nil {
		t.Fatalf("Import should succeed when only the publish fails: %v", err)
	}
	if stats.NewSalesAdded != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestImport_SecondRunPreservesExisting(t *testing.T) {
	store := newFakeStore()
	svc := NewImportService(store, nil)

	if _, err := svc.Import(context.Background(), strings.NewReader(exportCSV), "export.csv"); err != nil {
		t.Fatalf("first import: %v", err)
	}
	stats, err := svc.Import(context.Background(), strings.NewReader(exportCSV), "export.csv")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.NewSalesAdded != 0 || stats.ExistingSalesPreserved != 1 {
		t.Errorf("stats = %+v, second run must add nothing", stats)
	}
	if store.inserts != 1 {
		t.Errorf("inserts = %d, want 1", store.inserts)
	}
}

func TestImport_BadHeaderIsBatchFatal(t *testing.T) {
	svc := NewImportService(newFakeStore(), nil)
	_, err := svc.Import(context.Background(), strings.NewReader("Item,Amount\nX,1\n"), "broken.csv")
	if err == nil {
		t.Fatal("Import should fail on a structurally broken export")
	}
}

func TestEditSale(t *testing.T) {
	store := newFakeStore()
	store.sales["A1_deadbeef"] = core.SaleAggregate{
		SaleID:       "A1_deadbeef",
		ProfitCenter: "New Business",
		MemberName:   "Doe, Jane",
		TotalAmount:  150,
	}
	svc := NewImportService(store, nil)

	center := "Personal Training - NEW"
	amount := 175.0
	updated, err := svc.EditSale(context.Background(), "A1_deadbeef", SaleEdit{
		ProfitCenter: &center,
		TotalAmount:  &amount,
	})
	if err != nil {
		t.Fatalf("EditSale: %v", err)
	}

	if updated.ProfitCenter != center || updated.TotalAmount != amount {
		t.Errorf("updated = %+v", updated)
	}
	if updated.MemberName != "Doe, Jane" {
		t.Errorf("unset fields must be preserved, got %+v", updated)
	}
	if !updated.ManualOverride {
		t.Error("manual edits must set the override flag")
	}
	if len(store.editAudit) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(store.editAudit))
	}
	audit := store.editAudit[0]
	if audit.Action != core.AuditUpdate || audit.OldData == "" || audit.NewData == "" {
		t.Errorf("audit = %+v", audit)
	}

	if _, err := svc.EditSale(context.Background(), "missing", SaleEdit{}); !errors.Is(err, core.ErrSaleNotFound) {
		t.Errorf("EditSale(missing) err = %v, want ErrSaleNotFound", err)
	}
}
