package billing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MinimumCharge is the smallest amount the gateways will process
// (PayOS floor of 3,000 VND, roughly $0.50). Upgrades below it are free.
var MinimumCharge = decimal.RequireFromString("0.50")

const defaultCycleDays = 30

// ProrationResult is the outcome of an upgrade cost calculation.
type ProrationResult struct {
	UnusedCredit        decimal.Decimal `json:"unused_credit"`
	ProratedNewPlanCost decimal.Decimal `json:"prorated_new_plan_cost"`
	AmountDue           decimal.Decimal `json:"amount_due"`
	DaysRemaining       int             `json:"days_remaining"`
	Message             string          `json:"message,omitempty"`
}

// CalculateUpgradeProration computes what a member pays today to switch to a
// more expensive plan mid-cycle.
//
// Daily rates divide each plan price by the cycle length in days; the member
// is credited the unused share of the current plan and charged the prorated
// share of the new one. The billing cycle dates themselves never move on
// upgrade, which is what anchors this math.
func CalculateUpgradeProration(currentPrice, newPrice decimal.Decimal, cycleStart, cycleEnd, changeDate time.Time) ProrationResult {
	totalDays := ceilDays(cycleEnd.Sub(cycleStart))
	if totalDays <= 0 {
		totalDays = defaultCycleDays
	}

	daysRemaining := ceilDays(cycleEnd.Sub(changeDate))
	if daysRemaining <= 0 {
		return ProrationResult{
			UnusedCredit:        decimal.Zero,
			ProratedNewPlanCost: newPrice,
			AmountDue:           newPrice,
			DaysRemaining:       0,
			Message:             "Billing cycle ended. Charging full price for new plan.",
		}
	}

	days := decimal.NewFromInt(int64(totalDays))
	remaining := decimal.NewFromInt(int64(daysRemaining))

	unusedCredit := currentPrice.Div(days).Mul(remaining)
	proratedNewPlanCost := newPrice.Div(days).Mul(remaining)

	amountDue := proratedNewPlanCost.Sub(unusedCredit)
	if amountDue.IsNegative() {
		amountDue = decimal.Zero
	}
	amountDue = amountDue.Round(2)

	result := ProrationResult{
		UnusedCredit:        unusedCredit.Round(2),
		ProratedNewPlanCost: proratedNewPlanCost.Round(2),
		AmountDue:           amountDue,
		DaysRemaining:       daysRemaining,
	}

	if amountDue.IsPositive() && amountDue.LessThan(MinimumCharge) {
		result.AmountDue = decimal.Zero
		result.Message = "Upgrade is free due to remaining credit."
	}

	return result
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}
