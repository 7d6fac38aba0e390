package payrollrun

import "github.com/shopspring/decimal"

// RateTable carries the statutory withholding and employer contribution
// percentages applied by a run. Passing it in (rather than hard-coding the
// literals at the call sites) keeps unions or jurisdictions with different
// rates a configuration change, not a code change.
type RateTable struct {
	// Employee-side withholdings, applied on remunerative gross.
	Retirement      decimal.Decimal // JUB
	HealthInsurance decimal.Decimal // OS
	SocialLaw       decimal.Decimal // L19032

	// Employer-side contributions, applied on the employer contribution base.
	EmployerRetirement decimal.Decimal
	EmployerHealth     decimal.Decimal
	WorkplaceInsurance decimal.Decimal // ART
}

// DefaultRateTable returns the statutory rates currently in force:
// 11% / 3% / 3% withholdings and 16% / 6% / 3% employer contributions.
func DefaultRateTable() RateTable {
	return RateTable{
		Retirement:         decimal.NewFromFloat(0.11),
		HealthInsurance:    decimal.NewFromFloat(0.03),
		SocialLaw:          decimal.NewFromFloat(0.03),
		EmployerRetirement: decimal.NewFromFloat(0.16),
		EmployerHealth:     decimal.NewFromFloat(0.06),
		WorkplaceInsurance: decimal.NewFromFloat(0.03),
	}
}

// EmployerTotal is the combined employer contribution rate.
func (r RateTable) EmployerTotal() decimal.Decimal {
	return r.EmployerRetirement.Add(r.EmployerHealth).Add(r.WorkplaceInsurance)
}

// applyRate multiplies an amount in minor units by a rate, rounding half away
// from zero to the minor unit.
func applyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
