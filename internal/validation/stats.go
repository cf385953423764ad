package validation

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// percentile returns the pct-th percentile of values using linear
// interpolation between closest ranks. values is not modified.
func percentile(values []float64, pct float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	switch {
	case pct <= 0:
		return sorted[0], true
	case pct >= 100:
		return sorted[len(sorted)-1], true
	}
	k := float64(len(sorted)-1) * pct / 100
	f := int(k)
	c := min(f+1, len(sorted)-1)
	if f == c {
		return sorted[f], true
	}
	return sorted[f] + (sorted[c]-sorted[f])*(k-float64(f)), true
}

// upperMedian returns the element at len/2 of the sorted values: the upper
// median for even counts.
func upperMedian(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	return sorted[len(sorted)/2], true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
