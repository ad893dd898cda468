package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rate is a draw probability expressed in basis points (1/10000).
// Valid rates are multiples of 100, i.e. at most two decimal digits.
type Rate int64

const (
	RateZero Rate = 0
	RateOne  Rate = 10000

	rateExp       = -4
	maxRateDigits = 2
)

// ParseRate converts a decimal probability into a Rate. The value must lie in
// [0,1] and carry no more than two decimal digits.
func ParseRate(d decimal.Decimal) (Rate, error) {
	if -d.Exponent() > maxRateDigits && !d.Equal(d.Round(maxRateDigits)) {
		return 0, NewDomainError(fmt.Errorf("%w: %s", ErrRatePrecision, d.String()))
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return 0, NewDomainError(fmt.Errorf("%w: %s", ErrRateRange, d.String()))
	}

	return Rate(d.Shift(-rateExp).IntPart()), nil
}

// ParseRateString parses the textual form written into the rate map.
func ParseRateString(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", s, err)
	}

	return ParseRate(d)
}

// MustRate is a convenience for fixtures and constants.
func MustRate(s string) Rate {
	r, err := ParseRateString(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rate) Decimal() decimal.Decimal {
	return decimal.New(int64(r), rateExp)
}

func (r Rate) String() string {
	return r.Decimal().StringFixed(maxRateDigits)
}

// SumRates adds rates exactly; no rounding is involved.
func SumRates(rates ...Rate) Rate {
	var total Rate
	for _, r := range rates {
		total += r
	}
	return total
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.String()), nil
}
