package payrollrun

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Statutory withholding line codes. These lines have no catalog component and
// are always generated from the remunerative gross, even when no other
// deduction exists.
const (
	CodeRetirement      = "JUB"
	CodeHealthInsurance = "OS"
	CodeSocialLaw       = "L19032"
)

type statutoryDef struct {
	code string
	name string
	rate func(RateTable) decimal.Decimal
}

var statutoryDefs = []statutoryDef{
	{CodeRetirement, "Jubilación", func(r RateTable) decimal.Decimal { return r.Retirement }},
	{CodeHealthInsurance, "Obra Social", func(r RateTable) decimal.Decimal { return r.HealthInsurance }},
	{CodeSocialLaw, "Ley 19032", func(r RateTable) decimal.Decimal { return r.SocialLaw }},
}

// StatutoryLines builds the three withholding lines for a remunerative gross.
func StatutoryLines(itemID, companyID uuid.UUID, grossRemunerative int64, rates RateTable) []PayrollRunItemLine {
	lines := make([]PayrollRunItemLine, 0, len(statutoryDefs))

	for _, def := range statutoryDefs {
		rate := def.rate(rates)
		amount := applyRate(grossRemunerative, rate)

		lines = append(lines, PayrollRunItemLine{
			ID:               uuid.New(),
			ItemID:           itemID,
			CompanyID:        companyID,
			ComponentID:      nil,
			Code:             def.code,
			Name:             def.name,
			Type:             LineTypeDeduction,
			Quantity:         1,
			UnitAmount:       amount,
			BaseAmount:       grossRemunerative,
			CalculatedAmount: amount,
			FinalAmount:      amount,
			Formula:          fmt.Sprintf("%s=GROSS_REM*%s", def.code, rate.String()),
			Origin:           LineOriginCalculated,
		})
	}

	return lines
}
