package importer

import (
	"strings"
	"testing"
)

const exportHeader = `Agreement #,Profit Center,"Member Name (last, first)",Payment Date,Item,Amount,Campaign,Next Due Amount,Package Qty,Income (Items),Income (Tax),Income (Total),"Agt Sales Person (last, first)",Commission Employees,"Employee Name (last, first)",Payment Method,Agreement Type,Membership Type,Agreement Payment Plan`

func TestRead_MapsColumns(t *testing.T) {
	input := exportHeader + "\n" +
		`A1,New Business,"Doe, Jane",1/5/2024,Base Plan,$1,"",0,2,100,8.25,108.25,"Smith, John","John Smith; Jane Miles","Smith, John",EFT,New,Standard,Premier Monthly`

	rows, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	r := rows[0]
	if r.AgreementNumber != "A1" {
		t.Errorf("AgreementNumber = %q", r.AgreementNumber)
	}
	if r.MemberName != "Doe, Jane" {
		t.Errorf("MemberName = %q", r.MemberName)
	}
	if r.PaymentDate != "2024-01-05" {
		t.Errorf("PaymentDate = %q, want ISO form", r.PaymentDate)
	}
	if r.Amount != 1 {
		t.Errorf("Amount = %v, want 1", r.Amount)
	}
	if r.PackageQty != 2 {
		t.Errorf("PackageQty = %v, want 2", r.PackageQty)
	}
	if r.IncomeTax != 8.25 {
		t.Errorf("IncomeTax = %v, want 8.25", r.IncomeTax)
	}
	if r.CommissionEmployees != "John Smith; Jane Miles" {
		t.Errorf("CommissionEmployees = %q", r.CommissionEmployees)
	}
	if r.PaymentPlan != "Premier Monthly" {
		t.Errorf("PaymentPlan = %q", r.PaymentPlan)
	}
}

func TestRead_CoercesMalformedCells(t *testing.T) {
	input := exportHeader + "\n" +
		`A1,New Business,"Doe, Jane",not-a-date,Base Plan,not-a-number,,,bad,,,,,,,,,,`

	rows, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	r := rows[0]
	if r.Amount != 0 {
		t.Errorf("malformed amount coerced to %v, want 0", r.Amount)
	}
	if r.PaymentDate != "" {
		t.Errorf("malformed date coerced to %q, want empty", r.PaymentDate)
	}
	if r.PackageQty != 1 {
		t.Errorf("malformed qty coerced to %v, want default 1", r.PackageQty)
	}
}

func TestRead_AgreementAlias(t *testing.T) {
	header := strings.Replace(exportHeader, "Agreement #", "agreement_number", 1)
	input := header + "\n" +
		`A9,Promotion,"Roe, Rick",2024-02-01,Enrollment,25,,,,,,,,,,,,,`

	rows, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if rows[0].AgreementNumber != "A9" {
		t.Errorf("AgreementNumber = %q, want A9 via alias column", rows[0].AgreementNumber)
	}
}

func TestRead_MissingRequiredColumn(t *testing.T) {
	input := "Agreement #,Profit Center\nA1,New Business\n"

	if _, err := Read(strings.NewReader(input)); err == nil {
		t.Fatal("Read accepted an export without required columns")
	}
}

func TestRead_MissingAgreementColumn(t *testing.T) {
	input := "Profit Center,\"Member Name (last, first)\",Payment Date,Item,Amount\nNew Business,x,2024-01-01,y,1\n"

	if _, err := Read(strings.NewReader(input)); err == nil {
		t.Fatal("Read accepted an export without any agreement column")
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile("/nonexistent/export.csv"); err == nil {
		t.Fatal("ReadFile accepted a missing file")
	}
}
