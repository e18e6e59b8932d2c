package core

import (
	"errors"
	"strings"
)

const (
	AuditInsert AuditAction = "insert"
	AuditUpdate AuditAction = "update"
)

type (
	AuditAction string

	// RawTransactionRow is one line of an imported export. Rows only live
	// for the duration of an import batch.
	RawTransactionRow struct {
		AgreementNumber     string
		ProfitCenter        string
		MemberName          string
		PaymentDate         string // ISO YYYY-MM-DD after coercion
		Item                string
		Amount              float64
		Campaign            string
		NextDueAmount       float64
		PackageQty          int
		IncomeItems         float64
		IncomeTax           float64
		IncomeTotal         float64
		SalesPerson         string
		CommissionEmployees string
		EmployeeName        string
		PaymentMethod       string
		AgreementType       string
		MembershipType      string
		PaymentPlan         string
	}

	// SaleAggregate is the durable record of one commercial event, built
	// from one or more raw export lines sharing the same group key.
	// Mutable fields are frozen once ManualOverride is set.
	SaleAggregate struct {
		SaleID              string
		AgreementNumber     string
		ProfitCenter        string
		MemberName          string
		MembershipType      string
		AgreementType       string
		PaymentPlan         string
		TotalAmount         float64
		TransactionCount    int
		SalesPerson         string
		CommissionEmployees string
		PaymentMethod       string
		MainItem            string // distinct item labels joined with "; "
		LatestPaymentDate   string
		ManualOverride      bool
	}

	// LineItemTransaction is one original input line attached to a sale.
	// Immutable once written.
	LineItemTransaction struct {
		ID                  int64
		SaleID              string
		PaymentDate         string
		Item                string
		Amount              float64
		Campaign            string
		NextDueAmount       float64
		PackageQty          int
		IncomeItems         float64
		IncomeTax           float64
		IncomeTotal         float64
		SalesPerson         string
		CommissionEmployees string
		EmployeeName        string
		PaymentMethod       string
	}

	// AuditEntry is an append-only before/after snapshot of a sale change.
	AuditEntry struct {
		ID      int64
		SaleID  string
		Action  AuditAction
		OldData string
		NewData string
	}

	// RosterEntry is a canonical staff identity, read-only here.
	RosterEntry struct {
		Name     string
		Position string
	}

	// PlanEntry is a canonical membership plan label with its list price.
	PlanEntry struct {
		Label string
		Price float64
	}

	// Appointment is a scheduled staff event (first workout, 30-day
	// reprogram) counted by the attribution reports.
	Appointment struct {
		AgreementNumber string
		MemberName      string
		Employee        string
		EventDate       string
		Status          string
		Kind            string
	}

	// ImportStats is the batch summary emitted after each import run.
	ImportStats struct {
		TotalSalesInCSV        int `json:"total_sales_in_csv"`
		TotalTransactionsInCSV int `json:"total_transactions_in_csv"`
		NewSalesAdded          int `json:"new_sales_added"`
		NewTransactionsAdded   int `json:"new_transactions_added"`
		ExistingSalesPreserved int `json:"existing_sales_preserved"`
	}
)

var (
	ErrMissingAgreement = errors.New("row has no usable agreement number")
	ErrSaleIDCollision  = errors.New("sale id collision between distinct groups")
	ErrSaleNotFound     = errors.New("sale not found")
)

// Validate rejects rows that cannot be grouped at all. Malformed numeric
// and date fields were already coerced to defaults upstream; only a missing
// agreement number is batch-fatal.
func (r RawTransactionRow) Validate() error {
	if strings.TrimSpace(r.AgreementNumber) == "" {
		return ErrMissingAgreement
	}
	return nil
}

// SplitEmployees splits a free-text commission-employee field on commas and
// semicolons, dropping empty segments. Whitespace inside names is preserved
// for the normalizer to deal with.
func SplitEmployees(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
