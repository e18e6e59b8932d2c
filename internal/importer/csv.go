// Package importer turns raw transaction exports into persisted sale
// aggregates. The CSV reader is deliberately lenient about cell contents
// (a single bad row must not fail an import) and strict about structure
// (a missing file or a missing required column fails the whole batch).
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"gymops/internal/core"
)

// Export column headers as produced by the club-management system.
const (
	colAgreement      = "Agreement #"
	colAgreementAlias = "agreement_number"
	colProfitCenter   = "Profit Center"
	colMemberName     = "Member Name (last, first)"
	colPaymentDate    = "Payment Date"
	colItem           = "Item"
	colAmount         = "Amount"
	colCampaign       = "Campaign"
	colNextDue        = "Next Due Amount"
	colPackageQty     = "Package Qty"
	colIncomeItems    = "Income (Items)"
	colIncomeTax      = "Income (Tax)"
	colIncomeTotal    = "Income (Total)"
	colSalesPerson    = "Agt Sales Person (last, first)"
	colCommission     = "Commission Employees"
	colEmployeeName   = "Employee Name (last, first)"
	colPaymentMethod  = "Payment Method"
	colAgreementType  = "Agreement Type"
	colMembershipType = "Membership Type"
	colPaymentPlan    = "Agreement Payment Plan"
)

// requiredColumns must all be present for a batch to proceed. The agreement
// column is special-cased because exports alternate between two spellings.
var requiredColumns = []string{
	colProfitCenter,
	colMemberName,
	colPaymentDate,
	colItem,
	colAmount,
}

type headerIndex map[string]int

func (h headerIndex) cell(record []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ReadFile loads an export from disk. A missing file is batch-fatal.
func ReadFile(path string) ([]core.RawTransactionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a delimited export with a header row into raw transaction
// rows. Numeric and date cells that fail to parse coerce to zero/empty
// defaults; structural problems return an error with nothing parsed.
func Read(r io.Reader) ([]core.RawTransactionRow, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}

	idx := make(headerIndex, len(header))
	for i, h := range header {
		name := strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		idx[name] = i
	}

	agreementCol := colAgreement
	if _, ok := idx[agreementCol]; !ok {
		if _, ok := idx[colAgreementAlias]; !ok {
			return nil, fmt.Errorf("export must contain either %q or %q column", colAgreement, colAgreementAlias)
		}
		agreementCol = colAgreementAlias
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("export is missing required column %q", col)
		}
	}

	var rows []core.RawTransactionRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row %d: %w", len(rows)+2, err)
		}

		rows = append(rows, core.RawTransactionRow{
			AgreementNumber:     idx.cell(record, agreementCol),
			ProfitCenter:        idx.cell(record, colProfitCenter),
			MemberName:          idx.cell(record, colMemberName),
			PaymentDate:         core.NormalizeDate(idx.cell(record, colPaymentDate)),
			Item:                idx.cell(record, colItem),
			Amount:              core.ParseAmount(idx.cell(record, colAmount)),
			Campaign:            idx.cell(record, colCampaign),
			NextDueAmount:       core.ParseAmount(idx.cell(record, colNextDue)),
			PackageQty:          core.ParseQty(idx.cell(record, colPackageQty)),
			IncomeItems:         core.ParseAmount(idx.cell(record, colIncomeItems)),
			IncomeTax:           core.ParseAmount(idx.cell(record, colIncomeTax)),
			IncomeTotal:         core.ParseAmount(idx.cell(record, colIncomeTotal)),
			SalesPerson:         idx.cell(record, colSalesPerson),
			CommissionEmployees: idx.cell(record, colCommission),
			EmployeeName:        idx.cell(record, colEmployeeName),
			PaymentMethod:       idx.cell(record, colPaymentMethod),
			AgreementType:       idx.cell(record, colAgreementType),
			MembershipType:      idx.cell(record, colMembershipType),
			PaymentPlan:         idx.cell(record, colPaymentPlan),
		})
	}

	return rows, nil
}
