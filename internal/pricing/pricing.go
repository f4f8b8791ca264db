// Package pricing implements the standalone recipe pricing calculator:
// given total ingredient cost, batch yield, and a desired margin, it derives
// the unit cost, suggested sale price, and profit per unit.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeMargin = errors.New("margin cannot be negative")
	ErrMarginTooHigh  = errors.New("margin too high (max 300%)")
)

// WarnHighMargin is returned by ValidateMargin for margins in [95, 300].
const WarnHighMargin = "margin above 95% may distort the suggested price"

var (
	marginMax     = decimal.NewFromInt(300)
	marginWarnMin = decimal.NewFromInt(95)
	oneHundred    = decimal.NewFromInt(100)
)

// Result holds the derived pricing figures, each rounded to 2 decimals.
type Result struct {
	UnitCost       decimal.Decimal
	SuggestedPrice decimal.Decimal
	ProfitPerUnit  decimal.Decimal
}

// Calculate derives unit pricing from a batch cost. A yield of zero or less
// is treated as one unit, and the margin is clamped to [0, 300] before use.
// Validation of the margin is a separate concern (ValidateMargin); the
// calculation itself never fails.
func Calculate(ingredientCost decimal.Decimal, unitsProduced int64, marginPercent decimal.Decimal) Result {
	units := unitsProduced
	if units <= 0 {
		units = 1
	}

	margin := marginPercent
	if margin.IsNegative() {
		margin = decimal.Zero
	}
	if margin.GreaterThan(marginMax) {
		margin = marginMax
	}

	unitCost := ingredientCost.Div(decimal.NewFromInt(units)).Round(2)
	suggested := unitCost.Mul(decimal.NewFromInt(1).Add(margin.Div(oneHundred))).Round(2)
	profit := suggested.Sub(unitCost).Round(2)

	return Result{
		UnitCost:       unitCost,
		SuggestedPrice: suggested,
		ProfitPerUnit:  profit,
	}
}

// ValidateMargin gates recipe persistence. It returns a non-empty warning for
// margins in [95, 300] and an error outside [0, 300]. It never alters the
// calculation.
func ValidateMargin(marginPercent decimal.Decimal) (string, error) {
	if marginPercent.IsNegative() {
		return "", ErrNegativeMargin
	}
	if marginPercent.GreaterThan(marginMax) {
		return "", ErrMarginTooHigh
	}
	if marginPercent.GreaterThanOrEqual(marginWarnMin) {
		return WarnHighMargin, nil
	}
	return "", nil
}
