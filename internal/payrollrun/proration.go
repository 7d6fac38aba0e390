package payrollrun

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proration is the inclusion decision for one employee against one period.
// Factor is in [0,1]; Include is false when the employee worked no day of the
// period (terminated before it started).
type Proration struct {
	Include      bool
	Factor       decimal.Decimal
	DaysWorked   int
	DaysInPeriod int
}

func daysBetween(from, to time.Time) int {
	// Dates are stored at midnight; +1 because both ends are inclusive.
	return int(to.Sub(from).Hours()/24) + 1
}

// Prorate computes the worked-day fraction of the period for an employee.
// Hire and termination dates clip the period from both ends; an employee whose
// termination precedes the period start is excluded outright.
func Prorate(hireDate time.Time, terminationDate *time.Time, periodStart, periodEnd time.Time) Proration {
	daysInPeriod := daysBetween(periodStart, periodEnd)

	if terminationDate != nil && terminationDate.Before(periodStart) {
		return Proration{Include: false, Factor: decimal.Zero, DaysInPeriod: daysInPeriod}
	}

	factor := decimal.NewFromInt(1)
	daysWorked := daysInPeriod

	if hireDate.After(periodStart) && !hireDate.After(periodEnd) {
		daysWorked = daysBetween(hireDate, periodEnd)
		f := decimal.NewFromInt(int64(daysWorked)).Div(decimal.NewFromInt(int64(daysInPeriod)))
		if f.LessThan(factor) {
			factor = f
		}
	}

	if hireDate.After(periodEnd) {
		return Proration{Include: false, Factor: decimal.Zero, DaysInPeriod: daysInPeriod}
	}

	if terminationDate != nil && !terminationDate.After(periodEnd) {
		termDays := daysBetween(periodStart, *terminationDate)
		if termDays < daysWorked {
			daysWorked = termDays
		}
		f := decimal.NewFromInt(int64(termDays)).Div(decimal.NewFromInt(int64(daysInPeriod)))
		if f.LessThan(factor) {
			factor = f
		}
	}

	return Proration{
		Include:      factor.IsPositive(),
		Factor:       factor,
		DaysWorked:   daysWorked,
		DaysInPeriod: daysInPeriod,
	}
}
