package lottery

import (
	"testing"

	"luckyDraw/domain"
)

func TestSelect(t *testing.T) {
	table := []domain.PrizeRate{
		{Name: "A", Rate: domain.MustRate("0.20")},
		{Name: "B", Rate: domain.MustRate("0.15")},
		{Name: "C", Rate: domain.MustRate("0.10")},
	}

	tests := []struct {
		name  string
		rates []domain.PrizeRate
		r     float64
		want  string
	}{
		{"first bucket", table, 0.05, "A"},
		{"second bucket", table, 0.30, "B"},
		{"third bucket", table, 0.40, "C"},
		{"uncovered mass", table, 0.50, Miss},
		{"upper bound is inclusive", table, 0.20, "A"},
		{"zero", table, 0, "A"},
		{"no prizes", nil, 0.01, Miss},
		{"full coverage has no miss", []domain.PrizeRate{
			{Name: "A", Rate: domain.MustRate("0.40")},
			{Name: "B", Rate: domain.MustRate("0.60")},
		}, 0.9999, "B"},
		{"zero rate prize is skipped", []domain.PrizeRate{
			{Name: "Z", Rate: domain.RateZero},
			{Name: "A", Rate: domain.MustRate("0.50")},
		}, 0.01, "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.rates, tt.r); got != tt.want {
				t.Errorf("Select(r=%v) = %s, want %s", tt.r, got, tt.want)
			}
		})
	}
}

func TestBuildDistribution_ExactBounds(t *testing.T) {
	buckets := buildDistribution([]domain.PrizeRate{
		{Name: "A", Rate: domain.MustRate("0.10")},
		{Name: "B", Rate: domain.MustRate("0.20")},
	})

	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	// 0.1 + 0.2 must be exactly 0.3, no float drift
	if buckets[1].upper.String() != "0.3" {
		t.Fatalf("expected upper bound 0.3, got %s", buckets[1].upper)
	}
	if buckets[2].name != Miss || buckets[2].upper.String() != "1" {
		t.Fatalf("expected trailing miss bucket at 1, got %s %s", buckets[2].name, buckets[2].upper)
	}
}
