package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"payroll-gateway/internal/config"
)

func testPayrollConfig() config.PayrollConfig {
	return config.PayrollConfig{
		DebtorAccount:   "SA03 4500 0000 0012 3456 7890",
		AdjustmentCodes: []string{"EAP", "FTA", "OTADD", "OAP"},
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testRun() Run {
	return Run{
		ID:        "RUN-1",
		ValueDate: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		Employees: []Employee{
			{
				ID:         "E1",
				Name:       "Sara Ahmed",
				IBAN:       "SA03 4500 0000 0012 3456 7890",
				NationalID: "1012345678",
				Payslip: []PayslipLine{
					{Code: "BASIC", Amount: dec("4000")},
					{Code: "HRA", Amount: dec("1000")},
					{Code: "DED", Amount: dec("500")},
					{Code: "EAP", Amount: dec("150.00")},
					{Code: "NET", Amount: dec("4650")},
				},
			},
			{
				ID:         "E2",
				Name:       "Omar Ali",
				IBAN:       "SA4420000001234567891234",
				NationalID: "1087654321",
				Payslip: []PayslipLine{
					{Code: "BASIC", Amount: dec("3000")},
					{Code: "NET", Amount: dec("3000")},
				},
			},
		},
	}
}

func TestBuildSplitsAdjustmentBatch(t *testing.T) {
	batches, err := NewBuilder(testPayrollConfig()).Build(testRun())
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 {
		t.Fatalf("want regular + adjustment batches, got %d", len(batches))
	}

	regular, adjustment := batches[0], batches[1]
	if regular.Kind != KindRegular || adjustment.Kind != KindAdjustment {
		t.Fatalf("unexpected kinds: %s, %s", regular.Kind, adjustment.Kind)
	}

	if len(regular.Lines) != 2 {
		t.Fatalf("regular batch must cover both employees, got %d lines", len(regular.Lines))
	}
	if regular.Lines[0].ValueAmount != "4500.00" {
		t.Fatalf("E1 regular amount: got %s, want 4500.00", regular.Lines[0].ValueAmount)
	}
	if regular.Lines[1].ValueAmount != "3000.00" {
		t.Fatalf("E2 regular amount: got %s, want 3000.00", regular.Lines[1].ValueAmount)
	}
	if regular.DeclaredTotal != "7500.00" {
		t.Fatalf("regular declared total: got %s, want 7500.00", regular.DeclaredTotal)
	}
	if regular.ValueDate != "2026-08-25" {
		t.Fatalf("regular value date: got %s", regular.ValueDate)
	}

	if len(adjustment.Lines) != 1 {
		t.Fatalf("adjustment batch must hold exactly the EAP line, got %d lines", len(adjustment.Lines))
	}
	if adjustment.Lines[0].EmployeeID != "E1" || adjustment.Lines[0].ValueAmount != "150.00" {
		t.Fatalf("unexpected adjustment line: %+v", adjustment.Lines[0])
	}
	if adjustment.Lines[0].OtherEarnings != "150.00" || adjustment.Lines[0].BasicSalary != "0.00" {
		t.Fatalf("adjustment breakdown wrong: %+v", adjustment.Lines[0])
	}
	if adjustment.DeclaredTotal != "150.00" {
		t.Fatalf("adjustment declared total: got %s, want 150.00", adjustment.DeclaredTotal)
	}
	if adjustment.ValueDate == regular.ValueDate {
		t.Fatal("adjustment batch must post on its own value date")
	}
	if adjustment.RunID != regular.RunID {
		t.Fatal("siblings must share the run")
	}

	for _, b := range batches {
		if b.State != StateDraft {
			t.Fatalf("new batch must be draft, got %s", b.State)
		}
		if b.APIReference != "" {
			t.Fatal("api_reference is minted at submission, not at build")
		}
		if err := b.VerifyTotals(); err != nil {
			t.Fatalf("%s batch totals: %v", b.Kind, err)
		}
	}
}

func TestBuildNoAdjustmentsSingleBatch(t *testing.T) {
	run := testRun()
	run.Employees = run.Employees[1:]
	batches, err := NewBuilder(testPayrollConfig()).Build(run)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 {
		t.Fatalf("no adjustments means no sibling batch, got %d batches", len(batches))
	}
}

func TestBuildConfiguredAdjustmentDate(t *testing.T) {
	cfg := testPayrollConfig()
	cfg.AdjustmentValueDate = "2026-09-01"
	batches, err := NewBuilder(cfg).Build(testRun())
	if err != nil {
		t.Fatal(err)
	}
	if batches[1].ValueDate != "2026-09-01" {
		t.Fatalf("adjustment value date: got %s, want 2026-09-01", batches[1].ValueDate)
	}
}

func TestBuildRejectsMissingBankAccount(t *testing.T) {
	run := testRun()
	run.Employees[1].IBAN = "  \t "
	_, err := NewBuilder(testPayrollConfig()).Build(run)
	var noAccount *NoBankAccountError
	if !errors.As(err, &noAccount) {
		t.Fatalf("want NoBankAccountError, got %v", err)
	}
	if noAccount.EmployeeID != "E2" {
		t.Fatalf("error should name the employee, got %+v", noAccount)
	}
}

func TestBuildRejectsNegativeAmount(t *testing.T) {
	run := testRun()
	run.Employees[1].Payslip = append(run.Employees[1].Payslip, PayslipLine{Code: "DED", Amount: dec("5000")})
	_, err := NewBuilder(testPayrollConfig()).Build(run)
	var invalid *InvalidAmountError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidAmountError, got %v", err)
	}
}

func TestVerifyTotalsMismatch(t *testing.T) {
	batches, err := NewBuilder(testPayrollConfig()).Build(testRun())
	if err != nil {
		t.Fatal(err)
	}
	b := batches[0]
	b.DeclaredTotal = "7500.01"
	var mismatch *TotalMismatchError
	if err := b.VerifyTotals(); !errors.As(err, &mismatch) {
		t.Fatalf("want TotalMismatchError, got %v", err)
	}

	b.DeclaredTotal = "7500.00"
	if err := b.VerifyTotals(); err != nil {
		t.Fatalf("matching totals must pass: %v", err)
	}
}
