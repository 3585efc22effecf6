package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProrationMidCycle(t *testing.T) {
	cycleStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cycleEnd := cycleStart.AddDate(0, 0, 30)
	changeDate := cycleStart.AddDate(0, 0, 15) // 15 of 30 days remain

	result := CalculateUpgradeProration(d("10.00"), d("30.00"), cycleStart, cycleEnd, changeDate)

	if result.DaysRemaining != 15 {
		t.Fatalf("days remaining: got %d, want 15", result.DaysRemaining)
	}
	if !result.UnusedCredit.Equal(d("5.00")) {
		t.Errorf("unused credit: got %s, want 5.00", result.UnusedCredit)
	}
	if !result.ProratedNewPlanCost.Equal(d("15.00")) {
		t.Errorf("prorated cost: got %s, want 15.00", result.ProratedNewPlanCost)
	}
	if !result.AmountDue.Equal(d("10.00")) {
		t.Errorf("amount due: got %s, want 10.00", result.AmountDue)
	}
}

func TestProrationAtCycleStart(t *testing.T) {
	cycleStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cycleEnd := cycleStart.AddDate(0, 0, 30)

	result := CalculateUpgradeProration(d("10.00"), d("30.00"), cycleStart, cycleEnd, cycleStart)

	if result.DaysRemaining != 30 {
		t.Fatalf("days remaining: got %d, want 30", result.DaysRemaining)
	}
	// Full credit for the current plan, full charge for the new one.
	if !result.AmountDue.Equal(d("20.00")) {
		t.Errorf("amount due: got %s, want 20.00", result.AmountDue)
	}
}

func TestProrationAtCycleEnd(t *testing.T) {
	cycleStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cycleEnd := cycleStart.AddDate(0, 0, 30)

	result := CalculateUpgradeProration(d("10.00"), d("30.00"), cycleStart, cycleEnd, cycleEnd)

	if result.DaysRemaining != 0 {
		t.Fatalf("days remaining: got %d, want 0", result.DaysRemaining)
	}
	if !result.AmountDue.Equal(d("30.00")) {
		t.Errorf("amount due: got %s, want full new price 30.00", result.AmountDue)
	}
	if result.Message == "" {
		t.Error("expected cycle-ended message")
	}
}

func TestProrationNeverNegative(t *testing.T) {
	cycleStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cycleEnd := cycleStart.AddDate(0, 0, 30)
	changeDate := cycleStart.AddDate(0, 0, 10)

	// Large remaining credit against a barely more expensive plan.
	result := CalculateUpgradeProration(d("29.99"), d("30.00"), cycleStart, cycleEnd, changeDate)

	if result.AmountDue.IsNegative() {
		t.Fatalf("amount due must never be negative, got %s", result.AmountDue)
	}
}

func TestProrationBelowMinimumChargeIsFree(t *testing.T) {
	cycleStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cycleEnd := cycleStart.AddDate(0, 0, 30)
	// One day remaining on a small price difference yields cents.
	changeDate := cycleEnd.AddDate(0, 0, -1)

	result := CalculateUpgradeProration(d("10.00"), d("15.00"), cycleStart, cycleEnd, changeDate)

	if !result.AmountDue.IsZero() {
		t.Fatalf("sub-minimum charge should be zeroed, got %s", result.AmountDue)
	}
	if result.Message == "" {
		t.Error("expected free-upgrade message")
	}
}

func TestProrationPartialDayRoundsUp(t *testing.T) {
	cycleStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cycleEnd := cycleStart.AddDate(0, 0, 30)
	// 14 days and 6 hours remaining counts as 15 days.
	changeDate := cycleEnd.Add(-14*24*time.Hour - 6*time.Hour)

	result := CalculateUpgradeProration(d("10.00"), d("30.00"), cycleStart, cycleEnd, changeDate)

	if result.DaysRemaining != 15 {
		t.Fatalf("partial days must round up: got %d, want 15", result.DaysRemaining)
	}
}

func TestProrationZeroLengthCycleFallsBackToDefault(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	result := CalculateUpgradeProration(d("10.00"), d("30.00"), at, at, at)

	// Degenerate window: full new price, nothing remaining.
	if result.DaysRemaining != 0 {
		t.Fatalf("days remaining: got %d, want 0", result.DaysRemaining)
	}
	if !result.AmountDue.Equal(d("30.00")) {
		t.Errorf("amount due: got %s, want 30.00", result.AmountDue)
	}
}
