package shared

import "math"

// Round2 rounds a monetary value to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundWhole rounds to the nearest whole unit, half up. Grand totals on
// printed bills are settled in whole currency units.
func RoundWhole(v float64) float64 {
	return math.Floor(v + 0.5)
}

// AlmostEqual reports whether two amounts agree within the 0.01 tolerance
// used for submitted-vs-recomputed total checks.
func AlmostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 0.01+1e-9
}
