package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// CohensD returns the independent-samples effect size
//
//	d = (mean(a) - mean(b)) / sqrt(((n1-1)var(a) + (n2-1)var(b)) / (n1+n2-2))
//
// Swapping a and b flips the sign. A zero pooled SD returns ErrZeroVariance.
func CohensD(a, b []float64) (float64, error) {
	n1, n2 := len(a), len(b)
	if n1 < 2 || n2 < 2 {
		return math.NaN(), fmt.Errorf("%w: cohen's d needs two observations per group (got %d, %d)", ErrInsufficientData, n1, n2)
	}

	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	pooled := math.Sqrt((float64(n1-1)*v1 + float64(n2-1)*v2) / float64(n1+n2-2))
	if pooled == 0 {
		return math.NaN(), ErrZeroVariance
	}

	return (m1 - m2) / pooled, nil
}

// CohensDWithin returns mean(diff)/sd(diff) for aligned per-participant
// aggregates, where diff[i] = a[i] - b[i].
func CohensDWithin(a, b []float64) (float64, error) {
	diffs, err := differences(a, b)
	if err != nil {
		return math.NaN(), err
	}

	mean, sd := stat.MeanStdDev(diffs, nil)
	if sd == 0 {
		return math.NaN(), ErrZeroVariance
	}
	return mean / sd, nil
}

// Magnitude labels |d| with Cohen's conventional thresholds
func Magnitude(d float64) string {
	ad := math.Abs(d)
	switch {
	case math.IsNaN(d):
		return "undefined"
	case ad < 0.2:
		return "negligible"
	case ad < 0.5:
		return "small"
	case ad < 0.8:
		return "medium"
	default:
		return "large"
	}
}

func differences(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("paired samples differ in length: %d vs %d", len(a), len(b))
	}
	if len(a) < 2 {
		return nil, fmt.Errorf("%w: need at least two pairs (got %d)", ErrInsufficientData, len(a))
	}

	diffs := make([]float64, len(a))
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	return diffs, nil
}
