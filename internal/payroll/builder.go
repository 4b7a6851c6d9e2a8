package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payroll-gateway/internal/config"
)

// Builder turns a payroll run into bank submission batches. Earnings in the
// configured adjustment categories are moved into a sibling adjustment
// batch with its own value date, so regular and adjustment funds post as
// separate bank transactions. The sibling exists only when at least one
// employee has a qualifying adjustment.
type Builder struct {
	cfg config.PayrollConfig
	now func() time.Time
}

func NewBuilder(cfg config.PayrollConfig) *Builder {
	return &Builder{cfg: cfg, now: time.Now}
}

// Build produces the regular batch and, when needed, the adjustment batch.
// Each batch's declared total equals its own line sum by construction;
// VerifyTotals re-checks before transmission anyway.
func (b *Builder) Build(run Run) ([]*Batch, error) {
	adjustmentCodes := make(map[string]bool, len(b.cfg.AdjustmentCodes))
	for _, code := range b.cfg.AdjustmentCodes {
		adjustmentCodes[code] = true
	}

	var regularLines, adjustmentLines []Line
	for _, emp := range run.Employees {
		iban := CleanIBAN(emp.IBAN)
		if iban == "" {
			return nil, &NoBankAccountError{EmployeeID: emp.ID, Name: emp.Name}
		}
		name := CleanName(emp.Name)

		var basic, housing, other, deductions, adjustment decimal.Decimal
		for _, pl := range emp.Payslip {
			switch {
			case pl.Code == "NET":
				// NET is derived; counting it would double the totals.
			case pl.Code == "BASIC":
				basic = basic.Add(pl.Amount)
			case pl.Code == "HRA":
				housing = housing.Add(pl.Amount)
			case pl.Code == "DED":
				deductions = deductions.Add(pl.Amount)
			case adjustmentCodes[pl.Code]:
				adjustment = adjustment.Add(pl.Amount)
			default:
				other = other.Add(pl.Amount)
			}
		}

		regular := basic.Add(housing).Add(other).Sub(deductions).Round(2)
		if regular.IsNegative() {
			return nil, &InvalidAmountError{EmployeeID: emp.ID, Amount: regular.StringFixed(2)}
		}
		if regular.IsPositive() {
			regularLines = append(regularLines, Line{
				EmployeeID:       emp.ID,
				BeneficiaryName:  name,
				IBAN:             iban,
				NationalID:       emp.NationalID,
				ValueAmount:      regular.StringFixed(2),
				BasicSalary:      basic.Round(2).StringFixed(2),
				HousingAllowance: housing.Round(2).StringFixed(2),
				OtherEarnings:    other.Round(2).StringFixed(2),
				Deductions:       deductions.Round(2).StringFixed(2),
			})
		}

		adjustment = adjustment.Round(2)
		if adjustment.IsNegative() {
			return nil, &InvalidAmountError{EmployeeID: emp.ID, Amount: adjustment.StringFixed(2)}
		}
		if adjustment.IsPositive() {
			adjustmentLines = append(adjustmentLines, Line{
				EmployeeID:       emp.ID,
				BeneficiaryName:  name,
				IBAN:             iban,
				NationalID:       emp.NationalID,
				ValueAmount:      adjustment.StringFixed(2),
				BasicSalary:      "0.00",
				HousingAllowance: "0.00",
				OtherEarnings:    adjustment.StringFixed(2),
				Deductions:       "0.00",
			})
		}
	}

	created := b.now()
	batches := []*Batch{b.newBatch(run, KindRegular, regularLines, run.ValueDate, created)}
	if len(adjustmentLines) > 0 {
		batches = append(batches, b.newBatch(run, KindAdjustment, adjustmentLines, b.adjustmentValueDate(), created))
	}
	return batches, nil
}

func (b *Builder) newBatch(run Run, kind Kind, lines []Line, valueDate time.Time, created time.Time) *Batch {
	total := decimal.Zero
	for _, l := range lines {
		amount, _ := decimal.NewFromString(l.ValueAmount)
		total = total.Add(amount)
	}
	return &Batch{
		ID:            uuid.NewString(),
		RunID:         run.ID,
		Kind:          kind,
		ValueDate:     valueDate.Format("2006-01-02"),
		DebtorAccount: CleanIBAN(b.cfg.DebtorAccount),
		Lines:         lines,
		DeclaredTotal: total.Round(2).StringFixed(2),
		State:         StateDraft,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// adjustmentValueDate uses the configured effective date when present and
// falls back to submission date + 2 days.
func (b *Builder) adjustmentValueDate() time.Time {
	if b.cfg.AdjustmentValueDate != "" {
		if d, err := time.Parse("2006-01-02", b.cfg.AdjustmentValueDate); err == nil {
			return d
		}
	}
	return b.now().AddDate(0, 0, 2)
}
