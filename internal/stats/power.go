package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleSize is a required number of participants
type SampleSize struct {
	Between int // Per group, independent samples
	Within  int // Repeated measures with the assumed correlation
}

// RequiredSampleSize uses Cohen's normal approximation
//
//	n = 2 * ((z_{1-alpha/2} + z_{power}) / d)^2,  n_within = n * (1 - r)
//
// rounded up.
func RequiredSampleSize(d, alpha, power, r float64) (SampleSize, error) {
	if d == 0 || math.IsNaN(d) {
		return SampleSize{}, fmt.Errorf("effect size must be non-zero (got %v)", d)
	}
	if alpha <= 0 || alpha >= 1 {
		return SampleSize{}, fmt.Errorf("alpha must be in (0,1) (got %v)", alpha)
	}
	if power <= 0 || power >= 1 {
		return SampleSize{}, fmt.Errorf("power must be in (0,1) (got %v)", power)
	}
	if r < 0 || r >= 1 {
		return SampleSize{}, fmt.Errorf("correlation must be in [0,1) (got %v)", r)
	}

	zAlpha := distuv.UnitNormal.Quantile(1 - alpha/2)
	zBeta := distuv.UnitNormal.Quantile(power)

	n := 2 * math.Pow((zAlpha+zBeta)/math.Abs(d), 2)

	return SampleSize{
		Between: int(math.Ceil(n)),
		Within:  int(math.Ceil(n * (1 - r))),
	}, nil
}
