package stats

import (
	"fmt"
	"math"

	"github.com/ppiankov/sprstat/internal/model"
	"gonum.org/v1/gonum/stat"
)

// Pearson correlates aligned samples. The p value is two-sided, from
// t = r·sqrt((n-2)/(1-r²)) on n-2 degrees of freedom.
func Pearson(x, y []float64) (model.Correlation, error) {
	if len(x) != len(y) {
		return model.Correlation{}, fmt.Errorf("correlation needs aligned samples (got %d and %d)", len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return model.Correlation{}, fmt.Errorf("%w: correlation needs three pairs (got %d)", ErrInsufficientData, n)
	}
	if stat.StdDev(x, nil) == 0 || stat.StdDev(y, nil) == 0 {
		return model.Correlation{}, ErrZeroVariance
	}

	r := stat.Correlation(x, y, nil)
	r = math.Max(-1, math.Min(1, r))

	df := float64(n - 2)
	p := 0.0
	if math.Abs(r) < 1 {
		p = twoSidedP(r*math.Sqrt(df/(1-r*r)), df)
	}

	return model.Correlation{R: r, PValue: p, N: n}, nil
}
