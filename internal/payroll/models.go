package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// State is the submission lifecycle of a batch:
// draft -> sent -> confirmed | failed, with failed resettable to draft as
// long as the batch was never confirmed.
type State string

const (
	StateDraft     State = "draft"
	StateSent      State = "sent"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

// Kind distinguishes the regular batch from its adjustment sibling. The two
// share a payroll run but post as separate bank transactions with distinct
// references and value dates.
type Kind string

const (
	KindRegular    Kind = "regular"
	KindAdjustment Kind = "adjustment"
)

var (
	ErrNotFound         = errors.New("batch not found")
	ErrAlreadyExists    = errors.New("batch already exists")
	ErrAlreadyConfirmed = errors.New("batch is already confirmed")
	ErrNotSubmittable   = errors.New("batch is not in a submittable state")
	ErrNotResettable    = errors.New("only a failed batch can be reset to draft")
	ErrNotSent          = errors.New("batch has not been sent to the bank")
)

// NoBankAccountError aborts a build before any employee line is produced.
type NoBankAccountError struct {
	EmployeeID string
	Name       string
}

func (e *NoBankAccountError) Error() string {
	return fmt.Sprintf("employee %s (%s) has no usable bank account", e.EmployeeID, e.Name)
}

// TotalMismatchError is raised by VerifyTotals before any network call.
type TotalMismatchError struct {
	Declared string
	LineSum  string
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("declared batch total %s does not match line sum %s", e.Declared, e.LineSum)
}

// InvalidAmountError covers a negative or otherwise unusable computed amount.
type InvalidAmountError struct {
	EmployeeID string
	Amount     string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("employee %s has invalid transaction amount %s", e.EmployeeID, e.Amount)
}

// PayslipLine is one category line of an employee's payslip, as provided by
// the payroll system. Codes follow the payroll category scheme: BASIC, HRA,
// DED, NET, plus the configured adjustment allowance codes.
type PayslipLine struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// Employee is one payee of a payroll run.
type Employee struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	IBAN       string        `json:"iban"`
	NationalID string        `json:"national_id"`
	Payslip    []PayslipLine `json:"payslip"`
}

// Run is the payroll run handed to the batch builder.
type Run struct {
	ID        string     `json:"id"`
	ValueDate time.Time  `json:"value_date"`
	Employees []Employee `json:"employees"`
}

// Line is one employee transaction in the bank's wire format. All monetary
// fields are fixed-two-decimal non-negative strings; the breakdown fields
// reconcile to ValueAmount.
type Line struct {
	EmployeeID       string `json:"EmployeeId"`
	BeneficiaryName  string `json:"BeneficiaryName"`
	IBAN             string `json:"Iban"`
	NationalID       string `json:"NationalId"`
	ValueAmount      string `json:"ValueAmount"`
	BasicSalary      string `json:"BasicSalary"`
	HousingAllowance string `json:"HousingAllowance"`
	OtherEarnings    string `json:"OtherEarnings"`
	Deductions       string `json:"Deductions"`
}

// Batch is one bank submission unit. After it reaches sent it is never
// mutated except by the inquiry step appending response text.
type Batch struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	Kind          Kind      `json:"kind"`
	APIReference  string    `json:"api_reference"`
	ValueDate     string    `json:"value_date"`
	DebtorAccount string    `json:"debtor_account"`
	Lines         []Line    `json:"lines"`
	DeclaredTotal string    `json:"declared_total"`
	State         State     `json:"state"`
	BankReference string    `json:"bank_reference,omitempty"`
	Response      string    `json:"response,omitempty"`
	Inquiry       string    `json:"inquiry,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LineSum adds up the ValueAmount of every line at two decimals.
func (b *Batch) LineSum() (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, l := range b.Lines {
		amount, err := decimal.NewFromString(l.ValueAmount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("line for employee %s has unparsable amount %q: %w", l.EmployeeID, l.ValueAmount, err)
		}
		sum = sum.Add(amount)
	}
	return sum.Round(2), nil
}

// VerifyTotals asserts that the declared total equals the line sum. It runs
// before every transmission so a mismatched batch never reaches the bank.
func (b *Batch) VerifyTotals() error {
	declared, err := decimal.NewFromString(b.DeclaredTotal)
	if err != nil {
		return fmt.Errorf("declared total %q is unparsable: %w", b.DeclaredTotal, err)
	}
	sum, err := b.LineSum()
	if err != nil {
		return err
	}
	if !declared.Round(2).Equal(sum) {
		return &TotalMismatchError{Declared: b.DeclaredTotal, LineSum: sum.StringFixed(2)}
	}
	return nil
}
