package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
)

func snapshotFixture() *sessiondomain.TariffSnapshot {
	return &sessiondomain.TariffSnapshot{
		TariffProfileID:    1,
		TariffVersion:      1,
		BasePricePerKwh:    0.45,
		PlatformFeePercent: 15,
		Currency:           "EUR",
		CapturedAt:         time.Now().UTC(),
	}
}

func TestComputeBillingAtStop(t *testing.T) {
	amounts, err := ComputeBillingAtStop(snapshotFixture(), 10, 1800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if amounts.GrossAmount != 4.50 {
		t.Fatalf("expected gross 4.50, got %v", amounts.GrossAmount)
	}
	if amounts.PlatformFeeAmount != 0.68 {
		t.Fatalf("expected fee 0.68, got %v", amounts.PlatformFeeAmount)
	}
	if amounts.OperatorEarningAmount != 3.82 {
		t.Fatalf("expected earning 3.82, got %v", amounts.OperatorEarningAmount)
	}
	if amounts.Currency != "EUR" {
		t.Fatalf("expected EUR, got %s", amounts.Currency)
	}
}

func TestComputeBillingPerMinuteAndStartFee(t *testing.T) {
	snapshot := snapshotFixture()
	snapshot.PricePerMinute = 0.10
	snapshot.SessionStartFee = 1.00

	amounts, err := ComputeBillingAtStop(snapshot, 10, 1800)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 10 * 0.45 + 30 * 0.10 + 1.00 = 8.50
	if amounts.GrossAmount != 8.50 {
		t.Fatalf("expected gross 8.50, got %v", amounts.GrossAmount)
	}
}

func TestComputeBillingFeePlusEarningEqualsGross(t *testing.T) {
	cases := []struct {
		energy     float64
		duration   int64
		feePercent float64
	}{
		{10, 1800, 15},
		{7.37, 911, 13.33},
		{0.001, 1, 99.9},
		{123.456, 86400, 0.01},
	}
	for _, tc := range cases {
		snapshot := snapshotFixture()
		snapshot.PlatformFeePercent = tc.feePercent
		amounts, err := ComputeBillingAtStop(snapshot, tc.energy, tc.duration)
		if err != nil {
			t.Fatalf("compute(%v): %v", tc, err)
		}
		sum := Cents(amounts.PlatformFeeAmount) + Cents(amounts.OperatorEarningAmount)
		if sum != Cents(amounts.GrossAmount) {
			t.Fatalf("fee %v + earning %v != gross %v", amounts.PlatformFeeAmount, amounts.OperatorEarningAmount, amounts.GrossAmount)
		}
	}
}

func TestComputeBillingRoundsEachStep(t *testing.T) {
	// 10 kWh * 0.45 = 4.50; 15% of 4.50 = 0.675, rounded to 0.68 before the
	// earning is derived.
	amounts, err := ComputeBillingAtStop(snapshotFixture(), 10, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if amounts.PlatformFeeAmount != 0.68 {
		t.Fatalf("expected half-up fee 0.68, got %v", amounts.PlatformFeeAmount)
	}
	if amounts.OperatorEarningAmount != 3.82 {
		t.Fatalf("expected earning 3.82, got %v", amounts.OperatorEarningAmount)
	}
}

func TestComputeBillingZeroEnergy(t *testing.T) {
	amounts, err := ComputeBillingAtStop(snapshotFixture(), 0, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if amounts.GrossAmount != 0 || amounts.PlatformFeeAmount != 0 || amounts.OperatorEarningAmount != 0 {
		t.Fatalf("expected all-zero amounts, got %+v", amounts)
	}
}

func TestComputeBillingIdempotent(t *testing.T) {
	first, err := ComputeBillingAtStop(snapshotFixture(), 7.37, 911)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := ComputeBillingAtStop(snapshotFixture(), 7.37, 911)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical outcomes, got %+v vs %+v", first, second)
	}
}

func TestComputeBillingMissingSnapshot(t *testing.T) {
	_, err := ComputeBillingAtStop(nil, 10, 1800)
	if !errors.Is(err, ErrMissingSnapshot) {
		t.Fatalf("expected missing snapshot, got %v", err)
	}
}

func TestComputeBillingInvalidMeterData(t *testing.T) {
	for _, energy := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := ComputeBillingAtStop(snapshotFixture(), energy, 0); !errors.Is(err, ErrInvalidMeterData) {
			t.Fatalf("energy %v: expected invalid meter data, got %v", energy, err)
		}
	}
	if _, err := ComputeBillingAtStop(snapshotFixture(), 1, -1); !errors.Is(err, ErrInvalidMeterData) {
		t.Fatalf("expected invalid meter data for negative duration, got %v", err)
	}
}

func TestCents(t *testing.T) {
	cases := map[float64]int64{
		4.50:  450,
		0.68:  68,
		3.82:  382,
		0:     0,
		19.99: 1999,
	}
	for amount, want := range cases {
		if got := Cents(amount); got != want {
			t.Fatalf("Cents(%v) = %d, want %d", amount, got, want)
		}
	}
}
