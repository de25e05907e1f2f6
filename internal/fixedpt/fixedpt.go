// Package fixedpt provides deterministic scaled-integer conversion for
// safety-threshold comparisons. Floating-point comparison at an exact
// boundary is not reproducible across platforms and must never gate a
// safety decision; two independent implementations (embedded firmware,
// cloud replay) comparing the same scaled integers reach identical
// ALLOW/REJECT outcomes.
package fixedpt

import "math"

// Scale is the fixed-point scale factor. Six decimal digits of precision
// covers every limit and request field in the biophysical envelope tables.
const Scale = 1_000_000

// maxScaled is the largest magnitude representable after scaling.
// Conversion of an out-of-range float64 to int64 is implementation
// specific in Go, so the bound is checked explicitly.
const maxScaled = float64(1 << 62)

// ToFixed converts a real value to its scaled-integer representation,
// rounding half away from zero. The second return is false when the input
// is NaN, ±Inf, or too large in magnitude: such values have no
// fixed-point representation and the caller must fail closed.
func ToFixed(x float64) (int64, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	scaled := math.Round(x * Scale)
	if scaled > maxScaled || scaled < -maxScaled {
		return 0, false
	}
	return int64(scaled), true
}

// ToFloat is the inverse of ToFixed, for display and export only.
// Threshold comparisons always operate on the scaled integers.
func ToFloat(n int64) float64 {
	return float64(n) / Scale
}

// IsFinite reports whether x can participate in a fixed-point comparison.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
