package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/sprstat/internal/model"
)

// Exclusion-rate thresholds (share of trials or words removed)
const (
	exclusionWarning  = 0.10
	exclusionCritical = 0.20
)

// Scorer turns analysis results into diagnostic signals
type Scorer struct {
	alpha           float64
	robustnessDelta float64
}

// NewScorer creates a scorer for the given significance level and the
// largest change in d across exclusion bands still considered robust
func NewScorer(alpha, robustnessDelta float64) *Scorer {
	return &Scorer{alpha: alpha, robustnessDelta: robustnessDelta}
}

// Assess generates signals for a completed report. Signals already on
// the report (e.g. degenerate statistics) are kept first.
func (s *Scorer) Assess(r *model.Report) []model.Signal {
	signals := append([]model.Signal(nil), r.Signals...)

	// 1. Significance of every test
	for _, t := range r.Tests {
		signals = append(signals, s.significance(t))
	}

	// 2. Effect magnitude
	for _, e := range r.EffectSizes {
		signals = append(signals, s.magnitude(e))
	}

	// 3. Robustness across exclusion bands
	if sig, ok := s.robustness(r.Sensitivity); ok {
		signals = append(signals, sig)
	}

	// 4. Power of the current sample
	if sig, ok := s.power(r.Participants, r.Power); ok {
		signals = append(signals, sig)
	}

	// 5. Exclusion rates
	signals = append(signals, s.exclusion(r.Exclusion)...)

	// 6. Mixed models replaced by t-tests
	for _, m := range r.Models {
		if !m.Converged {
			signals = append(signals, s.fallback(m))
		}
	}

	// 7. Exploratory correlations, info only
	for _, c := range r.Correlations {
		signals = append(signals, s.correlation(c))
	}

	return signals
}

func (s *Scorer) significance(t model.TestResult) model.Signal {
	severity := model.SeverityInfo
	verdict := "not significant"
	switch {
	case t.PValue < s.alpha:
		verdict = "significant"
	case t.PValue < 2*s.alpha:
		verdict = "marginal"
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalSignificance,
		Severity:    severity,
		Description: fmt.Sprintf("%s: t(%.0f) = %.3f, p = %.4f (%s)", t.Name, t.DF, t.Statistic, t.PValue, verdict),
		Data: map[string]interface{}{
			"test":      t.Name,
			"kind":      string(t.Kind),
			"t":         t.Statistic,
			"df":        t.DF,
			"p":         t.PValue,
			"alpha":     s.alpha,
			"mean_diff": t.MeanDiff,
			"verdict":   verdict,
		},
	}
}

func (s *Scorer) correlation(c model.Correlation) model.Signal {
	verdict := "not significant"
	if c.PValue < s.alpha {
		verdict = "significant"
	}

	return model.Signal{
		Type:        model.SignalSignificance,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%s: r(%d) = %.3f, p = %.4f (%s, exploratory)", c.Name, c.N-2, c.R, c.PValue, verdict),
		Data: map[string]interface{}{
			"correlation": c.Name,
			"x":           c.X,
			"y":           c.Y,
			"n":           c.N,
			"r":           c.R,
			"p":           c.PValue,
			"alpha":       s.alpha,
			"verdict":     verdict,
		},
	}
}

func (s *Scorer) magnitude(e model.EffectSize) model.Signal {
	severity := model.SeverityInfo
	if e.Magnitude == "negligible" {
		severity = model.SeverityWarning
	}

	data := map[string]interface{}{
		"effect":    e.Name,
		"kind":      string(e.Kind),
		"d":         e.D,
		"magnitude": e.Magnitude,
		"formula":   "negligible < 0.2 <= small < 0.5 <= medium < 0.8 <= large",
	}
	description := fmt.Sprintf("%s: d = %.3f (%s)", e.Name, e.D, e.Magnitude)

	if e.CILower != nil && e.CIUpper != nil {
		data["ci_lower"] = *e.CILower
		data["ci_upper"] = *e.CIUpper
		description += fmt.Sprintf(", 95%% CI [%.3f, %.3f]", *e.CILower, *e.CIUpper)
		if *e.CILower <= 0 && *e.CIUpper >= 0 {
			severity = model.SeverityWarning
			description += ", interval includes zero"
		}
	}

	return model.Signal{
		Type:        model.SignalEffectMagnitude,
		Severity:    severity,
		Description: description,
		Data:        data,
	}
}

// robustness compares the first (reference) band with the strictest one
func (s *Scorer) robustness(rows []model.SensitivityRow) (model.Signal, bool) {
	if len(rows) < 2 {
		return model.Signal{}, false
	}
	ref, strict := rows[0], rows[len(rows)-1]
	delta := math.Abs(strict.D - ref.D)

	severity := model.SeverityInfo
	verdict := "robust"
	if math.IsNaN(delta) || delta >= s.robustnessDelta {
		severity = model.SeverityWarning
		verdict = "sensitive to exclusion criterion"
	}
	// A significance flip between bands is the stronger finding
	if (ref.PValue < s.alpha) != (strict.PValue < s.alpha) {
		severity = model.SeverityCritical
		verdict = "significance depends on exclusion criterion"
	}

	return model.Signal{
		Type:        model.SignalRobustness,
		Severity:    severity,
		Description: fmt.Sprintf("Modifier effect %s: d %.3f (%s) vs %.3f (%s)", verdict, ref.D, ref.Criterion, strict.D, strict.Criterion),
		Data: map[string]interface{}{
			"reference_band": ref.Band.String(),
			"strict_band":    strict.Band.String(),
			"reference_d":    ref.D,
			"strict_d":       strict.D,
			"delta_d":        delta,
			"threshold":      s.robustnessDelta,
			"reference_p":    ref.PValue,
			"strict_p":       strict.PValue,
		},
	}, true
}

// power compares the sample with the requirement for the observed effect,
// falling back to the medium effect when no observed row exists
func (s *Scorer) power(participants int, rows []model.PowerRow) (model.Signal, bool) {
	var target *model.PowerRow
	for i := range rows {
		if rows[i].Label == model.PowerObserved {
			target = &rows[i]
			break
		}
		if rows[i].D == 0.5 && target == nil {
			target = &rows[i]
		}
	}
	if target == nil {
		return model.Signal{}, false
	}

	severity := model.SeverityInfo
	switch {
	case participants*2 < target.NWithin:
		severity = model.SeverityCritical
	case participants < target.NWithin:
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:     model.SignalPower,
		Severity: severity,
		Description: fmt.Sprintf("%d participants; %d needed for d = %.2f (%s) within subjects",
			participants, target.NWithin, target.D, target.Label),
		Data: map[string]interface{}{
			"participants": participants,
			"label":        target.Label,
			"d":            target.D,
			"n_within":     target.NWithin,
			"n_between":    target.NBetween,
			"formula":      "n = 2*((z_{1-a/2} + z_power)/d)^2, n_within = n*(1-r)",
		},
	}, true
}

func (s *Scorer) exclusion(x model.ExclusionSummary) []model.Signal {
	var signals []model.Signal

	experimental := x.TrialsLoaded - x.PracticeRemoved - x.FillersRemoved
	if experimental > 0 {
		rate := float64(x.OutliersRemoved) / float64(experimental)
		signals = append(signals, model.Signal{
			Type:        model.SignalExclusion,
			Severity:    rateSeverity(rate),
			Description: fmt.Sprintf("Trial outliers: %d/%d removed (%.1f%%) by %s", x.OutliersRemoved, experimental, rate*100, x.OutlierCriterion),
			Data: map[string]interface{}{
				"removed":   x.OutliersRemoved,
				"trials":    experimental,
				"rate":      rate,
				"criterion": x.OutlierCriterion,
			},
		})
	}

	words := x.Observations + x.WordLevelRemoved
	if words > 0 {
		rate := float64(x.WordLevelRemoved) / float64(words)
		signals = append(signals, model.Signal{
			Type:        model.SignalExclusion,
			Severity:    rateSeverity(rate),
			Description: fmt.Sprintf("Word-level exclusion: %d/%d region RTs outside %s (%.1f%%)", x.WordLevelRemoved, words, x.WordBand, rate*100),
			Data: map[string]interface{}{
				"removed": x.WordLevelRemoved,
				"regions": words,
				"rate":    rate,
				"band":    x.WordBand.String(),
			},
		})
	}

	if x.ShortTrials > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalExclusion,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d trials skipped with too few regions", x.ShortTrials),
			Data:        map[string]interface{}{"skipped": x.ShortTrials},
		})
	}

	return signals
}

func rateSeverity(rate float64) model.SignalSeverity {
	switch {
	case rate > exclusionCritical:
		return model.SeverityCritical
	case rate > exclusionWarning:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

func (s *Scorer) fallback(m model.ModelResult) model.Signal {
	return model.Signal{
		Type:        model.SignalModelFallback,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%s: mixed model replaced by %d t-tests (%s)", m.Name, len(m.Fallback), m.Note),
		Data: map[string]interface{}{
			"model":   m.Name,
			"formula": m.Formula,
			"tests":   len(m.Fallback),
			"reason":  m.Note,
		},
	}
}

// Confidence summarises signals as high, medium or low
func Confidence(signals []model.Signal) string {
	var warnings, critical int
	for _, s := range signals {
		switch s.Severity {
		case model.SeverityWarning:
			warnings++
		case model.SeverityCritical:
			critical++
		}
	}

	switch {
	case critical > 0:
		return "low"
	case warnings > 2:
		return "medium"
	default:
		return "high"
	}
}
