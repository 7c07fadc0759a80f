// Package logadd provides numerically stable log-space addition, the
// primitive every beam merge and alignment summation in the decoder uses.
package logadd

import "math"

// NegInf is the identity element for Add: adding it to any value returns
// that value unchanged.
var NegInf = math.Inf(-1)

// Add returns log(exp(a) + exp(b)) computed via the max-shift trick, so it
// never overflows or underflows for realistic log-score ranges. Either
// operand may be -Inf; Add(-Inf, x) == x and Add(-Inf, -Inf) == -Inf.
func Add(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// Sum folds Add across all values, returning -Inf for an empty slice.
func Sum(values ...float64) float64 {
	total := math.Inf(-1)
	for _, v := range values {
		total = Add(total, v)
	}
	return total
}
