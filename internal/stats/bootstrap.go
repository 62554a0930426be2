package stats

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// Bootstrap computes percentile confidence intervals by resampling.
// Resample i always draws from a generator seeded with (Seed, i), so the
// interval does not depend on how many workers share the iterations.
type Bootstrap struct {
	Iterations int
	Alpha      float64
	Seed       uint64
	Workers    int
}

// Interval is a bootstrap confidence interval around a point estimate
type Interval struct {
	Estimate float64
	Lower    float64
	Upper    float64
	Valid    int // Resamples that produced a finite statistic
}

// CohensDCI resamples both groups with replacement and reports the
// (alpha/2, 1-alpha/2) percentiles of the resampled pooled Cohen's d.
// Degenerate resamples (zero pooled SD) are dropped.
func (b Bootstrap) CohensDCI(ctx context.Context, x, y []float64) (Interval, error) {
	estimate, err := CohensD(x, y)
	if err != nil {
		return Interval{}, err
	}
	if b.Iterations <= 0 {
		return Interval{}, fmt.Errorf("bootstrap iterations must be positive (got %d)", b.Iterations)
	}
	if b.Alpha <= 0 || b.Alpha >= 1 {
		return Interval{}, fmt.Errorf("bootstrap alpha must be in (0,1) (got %v)", b.Alpha)
	}

	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}
	chunk := (b.Iterations + workers - 1) / workers

	ds := make([]float64, b.Iterations)
	g, ctx := errgroup.WithContext(ctx)

	for start := 0; start < b.Iterations; start += chunk {
		end := min(start+chunk, b.Iterations)
		g.Go(func() error {
			sx := make([]float64, len(x))
			sy := make([]float64, len(y))
			for i := start; i < end; i++ {
				if i%512 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				rng := rand.New(rand.NewPCG(b.Seed, uint64(i)))
				resample(rng, x, sx)
				resample(rng, y, sy)

				d, err := CohensD(sx, sy)
				if err != nil {
					ds[i] = math.NaN()
					continue
				}
				ds[i] = d
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Interval{}, fmt.Errorf("bootstrap: %w", err)
	}

	valid := make([]float64, 0, len(ds))
	for _, d := range ds {
		if !math.IsNaN(d) {
			valid = append(valid, d)
		}
	}
	if len(valid) == 0 {
		return Interval{}, fmt.Errorf("bootstrap: every resample was degenerate: %w", ErrZeroVariance)
	}

	return Interval{
		Estimate: estimate,
		Lower:    Percentile(valid, 100*b.Alpha/2),
		Upper:    Percentile(valid, 100*(1-b.Alpha/2)),
		Valid:    len(valid),
	}, nil
}

func resample(rng *rand.Rand, src, dst []float64) {
	for i := range dst {
		dst[i] = src[rng.IntN(len(src))]
	}
}
