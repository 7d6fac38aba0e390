package payrollrun

// EmployerCost is what the run costs the employer for one item: the gross
// actually paid plus the employer-side contributions on the contribution base.
func EmployerCost(grossTotal, employerContribBase int64, rates RateTable) int64 {
	return grossTotal + applyRate(employerContribBase, rates.EmployerTotal())
}
