package stats

import (
	"fmt"
	"math"

	"github.com/ppiankov/sprstat/internal/model"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// PairedTTest compares aligned samples (a[i] and b[i] from the same participant)
func PairedTTest(a, b []float64) (model.TestResult, error) {
	diffs, err := differences(a, b)
	if err != nil {
		return model.TestResult{}, err
	}

	n := float64(len(diffs))
	mean, sd := stat.MeanStdDev(diffs, nil)
	if sd == 0 {
		return model.TestResult{}, ErrZeroVariance
	}

	t := mean / (sd / math.Sqrt(n))
	df := n - 1

	return model.TestResult{
		Kind:      model.TestPaired,
		Statistic: t,
		DF:        df,
		PValue:    twoSidedP(t, df),
		MeanDiff:  mean,
		N1:        len(a),
		N2:        len(b),
	}, nil
}

// IndependentTTest is Student's two-sample test with pooled variance
func IndependentTTest(a, b []float64) (model.TestResult, error) {
	n1, n2 := len(a), len(b)
	if n1 < 2 || n2 < 2 {
		return model.TestResult{}, fmt.Errorf("%w: t-test needs two observations per group (got %d, %d)", ErrInsufficientData, n1, n2)
	}

	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	df := float64(n1 + n2 - 2)
	pooledVar := (float64(n1-1)*v1 + float64(n2-1)*v2) / df
	se := math.Sqrt(pooledVar * (1/float64(n1) + 1/float64(n2)))
	if se == 0 {
		return model.TestResult{}, ErrZeroVariance
	}

	t := (m1 - m2) / se

	return model.TestResult{
		Kind:      model.TestIndependent,
		Statistic: t,
		DF:        df,
		PValue:    twoSidedP(t, df),
		MeanDiff:  m1 - m2,
		N1:        n1,
		N2:        n2,
	}, nil
}

func twoSidedP(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}
