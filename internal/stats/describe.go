package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientData is returned when a sample is too small for the statistic
	ErrInsufficientData = errors.New("insufficient data")
	// ErrZeroVariance is returned when a denominator standard deviation is zero
	ErrZeroVariance = errors.New("zero variance")
)

// Summary holds descriptive statistics for one sample
type Summary struct {
	N    int
	Mean float64
	SD   float64 // Sample SD (n-1); 0 when N < 2
	SEM  float64
	Min  float64
	Max  float64
}

// Describe computes descriptive statistics. An empty sample yields a zero Summary.
func Describe(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}

	s := Summary{
		N:    len(xs),
		Mean: stat.Mean(xs, nil),
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
	}
	if len(xs) > 1 {
		s.SD = stat.StdDev(xs, nil)
		s.SEM = s.SD / math.Sqrt(float64(len(xs)))
	}
	return s
}

// Mean returns the arithmetic mean, or NaN for an empty sample
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// Percentile returns the p-th percentile (0-100) with linear interpolation
// between closest ranks, matching numpy.percentile's default.
// gonum's stat.Quantile offers Empirical and LinInterp, neither of which
// reproduces these bounds, so the interpolation is done here.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p / 100
	if h <= 0 {
		return sorted[0]
	}
	lo := math.Floor(h)
	i := int(lo)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// PopulationStdDev returns the SD with denominator n (numpy.std default)
func PopulationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(xs, nil)
}
