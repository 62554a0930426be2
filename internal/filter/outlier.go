package filter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/stats"
	"go.uber.org/zap"
)

// Outlier criteria
const (
	MethodIQR = "iqr" // [Q1 - k*IQR, Q3 + k*IQR]
	MethodSD  = "sd"  // mean ± k*SD (population)
)

// OutlierResult describes one application of the trial-level remover
type OutlierResult struct {
	Kept    []model.Trial
	Removed int
	Q1      float64 // Zero for the sd method
	Q3      float64
	Lower   float64
	Upper   float64
}

// Criterion renders the bounds for reports, e.g. "IQR×2.5 [312.5, 4120.0]"
func (r OutlierResult) Criterion(method string, k float64) string {
	return fmt.Sprintf("%s×%g [%.1f, %.1f]", strings.ToUpper(method), k, r.Lower, r.Upper)
}

// TrialOutlierRemover drops trials whose total reading time falls outside
// bounds computed from the trials themselves
type TrialOutlierRemover struct {
	method string
	k      float64
	logger *zap.Logger
}

// NewTrialOutlierRemover validates the method and multiplier
func NewTrialOutlierRemover(method string, k float64, logger *zap.Logger) (*TrialOutlierRemover, error) {
	method = strings.ToLower(method)
	if method != MethodIQR && method != MethodSD {
		return nil, fmt.Errorf("unknown outlier method %q (want %s or %s)", method, MethodIQR, MethodSD)
	}
	if k <= 0 {
		return nil, fmt.Errorf("outlier multiplier must be positive (got %v)", k)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialOutlierRemover{method: method, k: k, logger: logger}, nil
}

// Remove keeps trials with lower <= TotalRT <= upper
func (r *TrialOutlierRemover) Remove(trials []model.Trial) OutlierResult {
	if len(trials) == 0 {
		r.logger.Warn("outlier removal received no trials")
		return OutlierResult{Kept: []model.Trial{}}
	}

	totals := make([]float64, len(trials))
	for i, t := range trials {
		totals[i] = t.TotalRT
	}

	var res OutlierResult
	switch r.method {
	case MethodSD:
		mean := stats.Mean(totals)
		sd := stats.PopulationStdDev(totals)
		res.Lower, res.Upper = mean-r.k*sd, mean+r.k*sd
	default:
		res.Q1 = stats.Percentile(totals, 25)
		res.Q3 = stats.Percentile(totals, 75)
		iqr := res.Q3 - res.Q1
		res.Lower, res.Upper = res.Q1-r.k*iqr, res.Q3+r.k*iqr
	}

	res.Kept = make([]model.Trial, 0, len(trials))
	for _, t := range trials {
		if t.TotalRT < res.Lower || t.TotalRT > res.Upper {
			res.Removed++
			continue
		}
		res.Kept = append(res.Kept, t)
	}

	r.logger.Debug("trial outliers removed",
		zap.String("method", r.method),
		zap.Float64("k", r.k),
		zap.Float64("lower", res.Lower),
		zap.Float64("upper", res.Upper),
		zap.Int("removed", res.Removed),
		zap.Int("kept", len(res.Kept)))

	return res
}
