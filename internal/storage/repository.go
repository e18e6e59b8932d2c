// Package storage persists sale aggregates, line items and audit entries in
// SQLite, and reads the externally-owned roster and membership tables.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gymops/internal/core"
	"gymops/internal/importer"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ExistingSales implements importer.SaleStore. It loads the tracked slice of
// every persisted aggregate so the engine can merge a batch in one pass.
func (r *SQLiteRepository) ExistingSales(ctx context.Context) (map[string]importer.TrackedSale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sale_id, profit_center, main_item, manual_override FROM sales`)
	if err != nil {
		return nil, fmt.Errorf("query existing sales: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]importer.TrackedSale)
	for rows.Next() {
		var (
			id       string
			tracked  importer.TrackedSale
			override int
		)
		if err := rows.Scan(&id, &tracked.ProfitCenter, &tracked.MainItem, &override); err != nil {
			return nil, fmt.Errorf("scan existing sale: %w", err)
		}
		tracked.ManualOverride = override != 0
		existing[id] = tracked
	}
	return existing, rows.Err()
}

// InsertSale implements importer.SaleStore. The aggregate, its line items
// and the insert audit entry commit in one transaction so a killed process
// never leaves a sale without its children.
func (r *SQLiteRepository) InsertSale(ctx context.Context, sale core.SaleAggregate, items []core.LineItemTransaction, audit core.AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert sale: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			sale_id, agreement_number, profit_center, member_name,
			membership_type, agreement_type, agreement_payment_plan,
			total_amount, transaction_count, sales_person,
			commission_employees, payment_method, main_item,
			latest_payment_date, manual_override
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		sale.SaleID, sale.AgreementNumber, sale.ProfitCenter, sale.MemberName,
		sale.MembershipType, sale.AgreementType, sale.PaymentPlan,
		sale.TotalAmount, sale.TransactionCount, sale.SalesPerson,
		sale.CommissionEmployees, sale.PaymentMethod, sale.MainItem,
		sale.LatestPaymentDate)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (
				sale_id, payment_date, item, amount, campaign,
				next_due_amount, package_qty, income_items, income_tax,
				income_total, sales_person, commission_employees,
				employee_name, payment_method
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.SaleID, item.PaymentDate, item.Item, item.Amount, item.Campaign,
			item.NextDueAmount, item.PackageQty, item.IncomeItems, item.IncomeTax,
			item.IncomeTotal, item.SalesPerson, item.CommissionEmployees,
			item.EmployeeName, item.PaymentMethod)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert sale: %w", err)
	}
	return nil
}

// UpdateSaleTracked implements importer.SaleStore: the idempotent merge only
// ever touches the tracked fields.
func (r *SQLiteRepository) UpdateSaleTracked(ctx context.Context, saleID, profitCenter, mainItem string, audit core.AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update sale: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sales SET profit_center = ?, main_item = ? WHERE sale_id = ? AND manual_override = 0`,
		profitCenter, mainItem, saleID)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update sale %s: %w", saleID, core.ErrSaleNotFound)
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update sale: %w", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, audit core.AuditEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sales_audit (sale_id, action, old_data, new_data) VALUES (?, ?, ?, ?)`,
		audit.SaleID, string(audit.Action), audit.OldData, audit.NewData)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

const saleColumns = `sale_id, agreement_number, profit_center, member_name,
	membership_type, agreement_type, agreement_payment_plan, total_amount,
	transaction_count, sales_person, commission_employees, payment_method,
	main_item, latest_payment_date, manual_override`

func scanSale(scanner interface{ Scan(...any) error }) (core.SaleAggregate, error) {
	var (
		s        core.SaleAggregate
		override int
	)
	err := scanner.Scan(&s.SaleID, &s.AgreementNumber, &s.ProfitCenter, &s.MemberName,
		&s.MembershipType, &s.AgreementType, &s.PaymentPlan, &s.TotalAmount,
		&s.TransactionCount, &s.SalesPerson, &s.CommissionEmployees, &s.PaymentMethod,
		&s.MainItem, &s.LatestPaymentDate, &override)
	s.ManualOverride = override != 0
	return s, err
}

// ListSales returns aggregates, optionally restricted to one profit center.
func (r *SQLiteRepository) ListSales(ctx context.Context, profitCenter string) ([]core.SaleAggregate, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	var args []any
	if profitCenter != "" {
		query += ` WHERE profit_center = ?`
		args = append(args, profitCenter)
	}
	query += ` ORDER BY latest_payment_date DESC, sale_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []core.SaleAggregate
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// ListSalesByCenters returns aggregates whose profit center is in the given
// set, for the rollup reports that span several centers.
func (r *SQLiteRepository) ListSalesByCenters(ctx context.Context, centers []string) ([]core.SaleAggregate, error) {
	if len(centers) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(centers)), ",")
	query := `SELECT ` + saleColumns + ` FROM sales WHERE profit_center IN (` + placeholders + `)
		ORDER BY latest_payment_date DESC, sale_id`
	args := make([]any, len(centers))
	for i, c := range centers {
		args[i] = c
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales by centers: %w", err)
	}
	defer rows.Close()

	var sales []core.SaleAggregate
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// GetSale fetches one aggregate by id.
func (r *SQLiteRepository) GetSale(ctx context.Context, saleID string) (core.SaleAggregate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE sale_id = ?`, saleID)
	s, err := scanSale(row)
	if err == sql.ErrNoRows {
		return core.SaleAggregate{}, core.ErrSaleNotFound
	}
	if err != nil {
		return core.SaleAggregate{}, fmt.Errorf("get sale %s: %w", saleID, err)
	}
	return s, nil
}

// ApplyManualEdit overwrites an aggregate's mutable fields from an operator
// edit, sets manual_override so later imports leave the record alone, and
// audits the change with before/after snapshots.
func (r *SQLiteRepository) ApplyManualEdit(ctx context.Context, edit core.SaleAggregate, audit core.AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manual edit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales SET
			profit_center = ?, member_name = ?, membership_type = ?,
			agreement_type = ?, agreement_payment_plan = ?, total_amount = ?,
			sales_person = ?, commission_employees = ?, payment_method = ?,
			main_item = ?, latest_payment_date = ?, manual_override = 1
		WHERE sale_id = ?`,
		edit.ProfitCenter, edit.MemberName, edit.MembershipType,
		edit.AgreementType, edit.PaymentPlan, edit.TotalAmount,
		edit.SalesPerson, edit.CommissionEmployees, edit.PaymentMethod,
		edit.MainItem, edit.LatestPaymentDate, edit.SaleID)
	if err != nil {
		return fmt.Errorf("apply manual edit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("manual edit %s: %w", edit.SaleID, core.ErrSaleNotFound)
	}

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manual edit: %w", err)
	}

	slog.InfoContext(ctx, "Manual sale edit applied", "sale_id", edit.SaleID)
	return nil
}

// SalesRoster returns canonical staff names whose position starts with the
// given prefix. The ORDER BY is part of the contract: resolver tie-breaks
// follow this order.
func (r *SQLiteRepository) SalesRoster(ctx context.Context, positionPrefix string) ([]core.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, position FROM employees WHERE active = 1 AND position LIKE ? ORDER BY name`,
		positionPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var roster []core.RosterEntry
	for rows.Next() {
		var e core.RosterEntry
		if err := rows.Scan(&e.Name, &e.Position); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// Plans returns the canonical membership plan catalog.
func (r *SQLiteRepository) Plans(ctx context.Context) ([]core.PlanEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT membership_type, price FROM memberships ORDER BY membership_type`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []core.PlanEntry
	for rows.Next() {
		var p core.PlanEntry
		if err := rows.Scan(&p.Label, &p.Price); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if strings.TrimSpace(p.Label) == "" {
			continue
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// CompletedAppointments returns completed staff events of one kind
// ("first_workout", "reprogram") for the attribution counters.
func (r *SQLiteRepository) CompletedAppointments(ctx context.Context, kind string) ([]core.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT agreement_number, member_name, employee, event_date, status, kind
		FROM appointments WHERE kind = ? AND status = 'Completed'
		ORDER BY event_date, id`, kind)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var appts []core.Appointment
	for rows.Next() {
		var a core.Appointment
		if err := rows.Scan(&a.AgreementNumber, &a.MemberName, &a.Employee, &a.EventDate, &a.Status, &a.Kind); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// AuditTrail lists the audit entries for one sale, oldest first.
func (r *SQLiteRepository) AuditTrail(ctx context.Context, saleID string) ([]core.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sale_id, action, old_data, new_data FROM sales_audit WHERE sale_id = ? ORDER BY id`,
		saleID)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var (
			e      core.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.SaleID, &action, &e.OldData, &e.NewData); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = core.AuditAction(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
