package services

import (
	"github.com/shopspring/decimal"

	domainerrors "profitshare/contexts/finance-core/distribution-engine/domain/errors"
)

const (
	moneyPlaces = 2
	ratePlaces  = 4
)

var maxRatePercent = decimal.NewFromInt(100)

// ProfitAmount is balance * ratePercent / 100 rounded half away from zero to
// two decimal places.
func ProfitAmount(balance decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return balance.Mul(ratePercent).Shift(-2).Round(2)
}

// ValidateRatePercent accepts 0 < rate <= 100 with at most four decimal
// places, the precision ledger rows keep.
func ValidateRatePercent(rate decimal.Decimal) error {
	if !rate.IsPositive() || rate.GreaterThan(maxRatePercent) || !fitsPlaces(rate, ratePlaces) {
		return domainerrors.ErrInvalidRate
	}
	return nil
}

// IsMoneyAmount reports whether value has no more than two significant
// decimal places.
func IsMoneyAmount(value decimal.Decimal) bool {
	return fitsPlaces(value, moneyPlaces)
}

func fitsPlaces(value decimal.Decimal, places int32) bool {
	return value.Equal(value.Truncate(places))
}
