package lottery

import (
	"luckyDraw/domain"

	"github.com/shopspring/decimal"
)

// Miss is the result of a draw that won nothing.
const Miss = domain.Miss

type bucket struct {
	name  string
	upper decimal.Decimal
}

// buildDistribution lays the rates out on [0,1] in the given order. Each prize
// owns (previous upper, upper]; whatever the prizes leave uncovered belongs
// to Miss.
func buildDistribution(rates []domain.PrizeRate) []bucket {
	buckets := make([]bucket, 0, len(rates)+1)

	var total domain.Rate
	for _, pr := range rates {
		total += pr.Rate
		buckets = append(buckets, bucket{name: pr.Name, upper: total.Decimal()})
	}

	if total < domain.RateOne {
		buckets = append(buckets, bucket{name: Miss, upper: domain.RateOne.Decimal()})
	}

	return buckets
}

// pick returns the first bucket whose upper bound is >= r.
func pick(buckets []bucket, r decimal.Decimal) string {
	for _, b := range buckets {
		if r.LessThanOrEqual(b.upper) {
			return b.name
		}
	}
	return Miss
}

// Select resolves a uniform value r in [0,1) against rates. With no rates the
// result is Miss.
func Select(rates []domain.PrizeRate, r float64) string {
	if len(rates) == 0 {
		return Miss
	}
	return pick(buildDistribution(rates), decimal.NewFromFloat(r))
}
