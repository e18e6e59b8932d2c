package importer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gymops/internal/core"
)

// shortHashLen is the truncation applied to group-key hashes inside sale
// ids. Ids persisted under this length must keep computing identically, so
// the engine guards against collisions instead of widening the hash.
const shortHashLen = 8

// TrackedSale is the slice of a persisted aggregate the merge step looks at:
// the two fields a later import may legitimately revise, plus the override
// flag that freezes them.
type TrackedSale struct {
	ProfitCenter   string
	MainItem       string
	ManualOverride bool
}

// SaleStore is the persistence surface the engine drives. Implementations
// must apply each call atomically; the engine itself holds no transaction
// state, re-running a batch after a partial failure is safe because sale ids
// recompute identically.
type SaleStore interface {
	ExistingSales(ctx context.Context) (map[string]TrackedSale, error)
	InsertSale(ctx context.Context, sale core.SaleAggregate, items []core.LineItemTransaction, audit core.AuditEntry) error
	UpdateSaleTracked(ctx context.Context, saleID, profitCenter, mainItem string, audit core.AuditEntry) error
}

// Engine folds raw export rows into sale aggregates. One batch is processed
// end to end under the single-writer assumption; callers serialize
// concurrent imports.
type Engine struct {
	store SaleStore
}

func NewEngine(store SaleStore) *Engine {
	return &Engine{store: store}
}

// group is one candidate sale event: all raw rows sharing the 4-tuple
// (agreement, payment date, member name, profit center).
type group struct {
	saleID string
	key    groupKey
	rows   []core.RawTransactionRow
}

type groupKey struct {
	Agreement    string
	PaymentDate  string
	MemberName   string
	ProfitCenter string
}

// SaleID derives the stable aggregate identifier for a group key. The id is
// a deterministic function of the key, so re-importing overlapping exports
// regroups onto the same aggregates.
func SaleID(agreement, paymentDate, memberName, profitCenter string) string {
	seed := fmt.Sprintf("%s_%s_%s_%s", agreement, paymentDate, memberName, profitCenter)
	sum := md5.Sum([]byte(seed))
	return agreement + "_" + hex.EncodeToString(sum[:])[:shortHashLen]
}

// Run merges a batch of raw rows against the persisted aggregates and
// returns the batch summary. Failure modes: a row without an agreement
// number, a sale-id collision between distinct group keys, or a store
// error, all batch-fatal with no statistics.
func (e *Engine) Run(ctx context.Context, rows []core.RawTransactionRow) (core.ImportStats, error) {
	groups, err := groupRows(rows)
	if err != nil {
		return core.ImportStats{}, err
	}

	existing, err := e.store.ExistingSales(ctx)
	if err != nil {
		return core.ImportStats{}, fmt.Errorf("load existing sales: %w", err)
	}

	stats := core.ImportStats{
		TotalSalesInCSV:        len(groups),
		TotalTransactionsInCSV: len(rows),
	}

	for _, g := range groups {
		old, exists := existing[g.saleID]
		if !exists {
			sale := buildAggregate(g)
			items := buildLineItems(g)
			newData, err := json.Marshal(sale)
			if err != nil {
				return core.ImportStats{}, fmt.Errorf("marshal audit snapshot: %w", err)
			}
			audit := core.AuditEntry{
				SaleID:  g.saleID,
				Action:  core.AuditInsert,
				NewData: string(newData),
			}
			if err := e.store.InsertSale(ctx, sale, items, audit); err != nil {
				return core.ImportStats{}, fmt.Errorf("insert sale %s: %w", g.saleID, err)
			}
			stats.NewSalesAdded++
			stats.NewTransactionsAdded += len(items)
			continue
		}

		if old.ManualOverride {
			// Hand-edited records are never touched by imports.
			continue
		}

		profitCenter := g.key.ProfitCenter
		mainItem := distinctItems(g.rows)
		if old.ProfitCenter == profitCenter && old.MainItem == mainItem {
			continue
		}

		oldData, err := json.Marshal(TrackedSale{ProfitCenter: old.ProfitCenter, MainItem: old.MainItem})
		if err != nil {
			return core.ImportStats{}, fmt.Errorf("marshal audit snapshot: %w", err)
		}
		newData, err := json.Marshal(TrackedSale{ProfitCenter: profitCenter, MainItem: mainItem})
		if err != nil {
			return core.ImportStats{}, fmt.Errorf("marshal audit snapshot: %w", err)
		}
		audit := core.AuditEntry{
			SaleID:  g.saleID,
			Action:  core.AuditUpdate,
			OldData: string(oldData),
			NewData: string(newData),
		}
		if err := e.store.UpdateSaleTracked(ctx, g.saleID, profitCenter, mainItem, audit); err != nil {
			return core.ImportStats{}, fmt.Errorf("update sale %s: %w", g.saleID, err)
		}
	}

	stats.ExistingSalesPreserved = stats.TotalSalesInCSV - stats.NewSalesAdded

	slog.InfoContext(ctx, "Import batch merged",
		"total_sales_in_csv", stats.TotalSalesInCSV,
		"total_transactions_in_csv", stats.TotalTransactionsInCSV,
		"new_sales_added", stats.NewSalesAdded,
		"new_transactions_added", stats.NewTransactionsAdded,
		"existing_sales_preserved", stats.ExistingSalesPreserved)

	return stats, nil
}

// groupRows buckets rows by their 4-tuple key, preserving first-seen order,
// and detects short-hash collisions between distinct keys.
func groupRows(rows []core.RawTransactionRow) ([]group, error) {
	byID := make(map[string]int)
	var groups []group

	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		key := groupKey{
			Agreement:    row.AgreementNumber,
			PaymentDate:  row.PaymentDate,
			MemberName:   row.MemberName,
			ProfitCenter: row.ProfitCenter,
		}
		id := SaleID(key.Agreement, key.PaymentDate, key.MemberName, key.ProfitCenter)
		if gi, ok := byID[id]; ok {
			if groups[gi].key != key {
				return nil, fmt.Errorf("%w: id %s for %v and %v",
					core.ErrSaleIDCollision, id, groups[gi].key, key)
			}
			groups[gi].rows = append(groups[gi].rows, row)
			continue
		}
		byID[id] = len(groups)
		groups = append(groups, group{saleID: id, key: key, rows: []core.RawTransactionRow{row}})
	}

	return groups, nil
}

// buildAggregate folds a group into its durable sale record. The headline
// total counts only the first occurrence of each distinct item label; the
// same physical item billed across installments must not inflate it.
func buildAggregate(g group) core.SaleAggregate {
	first := g.rows[0]

	var total float64
	seen := make(map[string]bool, len(g.rows))
	latest := ""
	for _, row := range g.rows {
		if !seen[row.Item] {
			seen[row.Item] = true
			total += row.Amount
		}
		if row.PaymentDate > latest {
			latest = row.PaymentDate
		}
	}

	return core.SaleAggregate{
		SaleID:              g.saleID,
		AgreementNumber:     first.AgreementNumber,
		ProfitCenter:        first.ProfitCenter,
		MemberName:          first.MemberName,
		MembershipType:      first.MembershipType,
		AgreementType:       first.AgreementType,
		PaymentPlan:         first.PaymentPlan,
		TotalAmount:         total,
		TransactionCount:    len(g.rows),
		SalesPerson:         first.SalesPerson,
		CommissionEmployees: first.CommissionEmployees,
		PaymentMethod:       first.PaymentMethod,
		MainItem:            distinctItems(g.rows),
		LatestPaymentDate:   latest,
	}
}

func buildLineItems(g group) []core.LineItemTransaction {
	items := make([]core.LineItemTransaction, 0, len(g.rows))
	for _, row := range g.rows {
		items = append(items, core.LineItemTransaction{
			SaleID:              g.saleID,
			PaymentDate:         row.PaymentDate,
			Item:                row.Item,
			Amount:              row.Amount,
			Campaign:            row.Campaign,
			NextDueAmount:       row.NextDueAmount,
			PackageQty:          row.PackageQty,
			IncomeItems:         row.IncomeItems,
			IncomeTax:           row.IncomeTax,
			IncomeTotal:         row.IncomeTotal,
			SalesPerson:         row.SalesPerson,
			CommissionEmployees: row.CommissionEmployees,
			EmployeeName:        row.EmployeeName,
			PaymentMethod:       row.PaymentMethod,
		})
	}
	return items
}

// distinctItems joins the group's item labels in first-occurrence order.
func distinctItems(rows []core.RawTransactionRow) string {
	seen := make(map[string]bool, len(rows))
	var labels []string
	for _, row := range rows {
		if !seen[row.Item] {
			seen[row.Item] = true
			labels = append(labels, row.Item)
		}
	}
	return strings.Join(labels, "; ")
}
