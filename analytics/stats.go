package analytics

import (
	"math"
	"sort"
	"time"
)

// mean returns the arithmetic mean, 0 for an empty slice
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// populationStdDev calculates the population standard deviation.
// A single sample has no spread, so n==1 yields 0.
func populationStdDev(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}

	avg := mean(vals)
	var diffSum float64
	for _, v := range vals {
		diffSum += (v - avg) * (v - avg)
	}
	return math.Sqrt(diffSum / float64(len(vals)))
}

// percentileNearestRank returns the p-th percentile of vals using the
// nearest-rank method: sort ascending, index = round((p/100) * (n-1)).
func percentileNearestRank(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	idx := int(math.Round(p / 100 * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// clamp bounds v to [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// validValue reports whether a reading value is usable for statistics.
// NaN and infinities come from broken meters and are silently skipped.
func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// isWeekendDay reports whether the weekday is Saturday or Sunday
func isWeekendDay(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}
