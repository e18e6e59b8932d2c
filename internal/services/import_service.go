package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"gymops/internal/amqp"
	"gymops/internal/core"
	"gymops/internal/importer"
)

// Store is the persistence surface the import service needs: the engine's
// merge operations plus the manual-edit path.
type Store interface {
	importer.SaleStore
	GetSale(ctx context.Context, saleID string) (core.SaleAggregate, error)
	ApplyManualEdit(ctx context.Context, edit core.SaleAggregate, audit core.AuditEntry) error
	Close() error
}

// Publisher emits import-completed events. *amqp.Client satisfies it.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error
	Close() error
}

// ImportService orchestrates CSV imports across the merge engine, SQLite and
// AMQP. Imports run one at a time; the engine assumes a single writer.
type ImportService struct {
	storage   Store
	publisher Publisher
	engine    *importer.Engine

	mu sync.Mutex // serializes import batches
}

func NewImportService(storage Store, publisher Publisher) *ImportService {
	return &ImportService{
		storage:   storage,
		publisher: publisher,
		engine:    importer.NewEngine(storage),
	}
}

// Import reads one export from r and merges it. The source name only labels
// logs and events.
func (s *ImportService) Import(ctx context.Context, r io.Reader, source string) (core.ImportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := importer.Read(r)
	if err != nil {
		return core.ImportStats{}, fmt.Errorf("read export %s: %w", source, err)
	}

	stats, err := s.engine.Run(ctx, rows)
	if err != nil {
		return core.ImportStats{}, fmt.Errorf("merge export %s: %w", source, err)
	}

	// Event delivery is best effort. The batch is already durable, so a
	// broker outage must not fail the import.
	if err := s.publishCompleted(ctx, source, stats); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import completed event",
			"source", source, "error", err)
	}

	return stats, nil
}

// ImportFile imports an export from disk. A missing or unreadable file is
// batch-fatal.
func (s *ImportService) ImportFile(ctx context.Context, path string) (core.ImportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := importer.ReadFile(path)
	if err != nil {
		return core.ImportStats{}, err
	}
	source := filepath.Base(path)

	stats, err := s.engine.Run(ctx, rows)
	if err != nil {
		return core.ImportStats{}, fmt.Errorf("merge export %s: %w", source, err)
	}

	if err := s.publishCompleted(ctx, source, stats); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import completed event",
			"source", source, "error", err)
	}

	return stats, nil
}

func (s *ImportService) publishCompleted(ctx context.Context, source string, stats core.ImportStats) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping import event")
		return nil
	}
	return s.publisher.PublishImportCompleted(ctx, amqp.NewImportCompletedMessage(source, stats))
}

// SaleEdit is an operator correction to one aggregate. Nil fields are left
// unchanged.
type SaleEdit struct {
	ProfitCenter        *string  `json:"profit_center"`
	MemberName          *string  `json:"member_name"`
	MembershipType      *string  `json:"membership_type"`
	AgreementType       *string  `json:"agreement_type"`
	PaymentPlan         *string  `json:"agreement_payment_plan"`
	TotalAmount         *float64 `json:"total_amount"`
	SalesPerson         *string  `json:"sales_person"`
	CommissionEmployees *string  `json:"commission_employees"`
	PaymentMethod       *string  `json:"payment_method"`
	MainItem            *string  `json:"main_item"`
	LatestPaymentDate   *string  `json:"latest_payment_date"`
}

// EditSale applies an operator correction to a sale, marking it as manually
// overridden so later imports preserve it. Returns the updated aggregate.
func (s *ImportService) EditSale(ctx context.Context, saleID string, edit SaleEdit) (core.SaleAggregate, error) {
	old, err := s.storage.GetSale(ctx, saleID)
	if err != nil {
		return core.SaleAggregate{}, err
	}

	updated := old
	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&updated.ProfitCenter, edit.ProfitCenter)
	applyString(&updated.MemberName, edit.MemberName)
	applyString(&updated.MembershipType, edit.MembershipType)
	applyString(&updated.AgreementType, edit.AgreementType)
	applyString(&updated.PaymentPlan, edit.PaymentPlan)
	applyString(&updated.SalesPerson, edit.SalesPerson)
	applyString(&updated.CommissionEmployees, edit.CommissionEmployees)
	applyString(&updated.PaymentMethod, edit.PaymentMethod)
	applyString(&updated.MainItem, edit.MainItem)
	applyString(&updated.LatestPaymentDate, edit.LatestPaymentDate)
	if edit.TotalAmount != nil {
		updated.TotalAmount = *edit.TotalAmount
	}
	updated.ManualOverride = true

	oldData, err := json.Marshal(old)
	if err != nil {
		return core.SaleAggregate{}, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	newData, err := json.Marshal(updated)
	if err != nil {
		return core.SaleAggregate{}, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	audit := core.AuditEntry{
		SaleID:  saleID,
		Action:  core.AuditUpdate,
		OldData: string(oldData),
		NewData: string(newData),
	}

	if err := s.storage.ApplyManualEdit(ctx, updated, audit); err != nil {
		return core.SaleAggregate{}, err
	}
	return updated, nil
}

// Close closes both storage and AMQP connections.
func (s *ImportService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close import service: %v", errs)
	}

	return nil
}
