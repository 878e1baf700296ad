package domain

import (
	"math"

	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"github.com/shopspring/decimal"
)

// Amounts is the monetary outcome of one session, all values rounded to two
// decimal places.
type Amounts struct {
	GrossAmount           float64
	PlatformFeeAmount     float64
	OperatorEarningAmount float64
	Currency              string
}

// ComputeBillingAtStop derives the monetary outcome from a frozen snapshot
// and the final meter figures. Pure and idempotent: identical inputs always
// produce identical output, so retries are safe.
//
// Each figure is rounded to two decimals as it is produced, not only at the
// end; aggregate totals elsewhere sum these already-rounded per-session
// values, and both must agree.
func ComputeBillingAtStop(snapshot *sessiondomain.TariffSnapshot, energyKwh float64, durationSeconds int64) (Amounts, error) {
	if snapshot == nil {
		return Amounts{}, ErrMissingSnapshot
	}
	if energyKwh < 0 || durationSeconds < 0 || math.IsNaN(energyKwh) || math.IsInf(energyKwh, 0) {
		return Amounts{}, ErrInvalidMeterData
	}

	energy := decimal.NewFromFloat(energyKwh)
	minutes := decimal.NewFromInt(durationSeconds).Div(decimal.NewFromInt(60))

	gross := energy.Mul(decimal.NewFromFloat(snapshot.BasePricePerKwh)).
		Add(minutes.Mul(decimal.NewFromFloat(snapshot.PricePerMinute))).
		Add(decimal.NewFromFloat(snapshot.SessionStartFee)).
		Round(2)

	fee := gross.Mul(decimal.NewFromFloat(snapshot.PlatformFeePercent)).
		Div(decimal.NewFromInt(100)).
		Round(2)

	earning := gross.Sub(fee).Round(2)

	grossF, _ := gross.Float64()
	feeF, _ := fee.Float64()
	earningF, _ := earning.Float64()

	return Amounts{
		GrossAmount:           grossF,
		PlatformFeeAmount:     feeF,
		OperatorEarningAmount: earningF,
		Currency:              snapshot.Currency,
	}, nil
}

// Cents converts a two-decimal euro amount into cents without float drift.
func Cents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
