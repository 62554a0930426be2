package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"github.com/ppiankov/sprstat/internal/filter"
	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/stats"
	"go.uber.org/zap"
)

// analysis accumulates statistics into a report. Statistics that cannot
// be computed (zero variance, too few observations) are left out and
// recorded as degenerate signals, so the report never carries NaN.
type analysis struct {
	cfg    *model.Config
	logger *zap.Logger
	report *model.Report

	h1Pooled *model.EffectSize
}

func newAnalysis(cfg *model.Config, logger *zap.Logger, report *model.Report) *analysis {
	return &analysis{cfg: cfg, logger: logger, report: report}
}

func (a *analysis) degenerate(name string, err error) {
	a.logger.Warn("statistic not computed", zap.String("name", name), zap.Error(err))
	a.report.Signals = append(a.report.Signals, model.Signal{
		Type:        model.SignalDegenerate,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%s not computed: %v", name, err),
		Data:        map[string]interface{}{"statistic": name, "reason": err.Error()},
	})
}

// skipped records an exploratory statistic that could not be computed, at
// info severity
func (a *analysis) skipped(name string, err error) {
	a.logger.Info("exploratory statistic skipped", zap.String("name", name), zap.Error(err))
	a.report.Signals = append(a.report.Signals, model.Signal{
		Type:        model.SignalDegenerate,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%s skipped: %v", name, err),
		Data:        map[string]interface{}{"statistic": name, "reason": err.Error(), "exploratory": true},
	})
}

func (a *analysis) describe(measure, emotion, plausibility string, xs []float64) {
	if len(xs) == 0 {
		return
	}
	s := stats.Describe(xs)
	a.report.Descriptives = append(a.report.Descriptives, model.GroupSummary{
		Measure:      measure,
		Emotion:      emotion,
		Plausibility: plausibility,
		N:            s.N,
		Mean:         s.Mean,
		SD:           s.SD,
		SEM:          s.SEM,
		Min:          s.Min,
		Max:          s.Max,
	})
}

type testFunc func(x, y []float64) (model.TestResult, error)

// test runs fn on x and y and records the result under name
func (a *analysis) test(name string, fn testFunc, x, y []float64) (model.TestResult, bool) {
	res, err := fn(x, y)
	if err != nil {
		a.degenerate(name, err)
		return model.TestResult{}, false
	}
	res.Name = name
	a.report.Tests = append(a.report.Tests, res)
	return res, true
}

// seed derives a per-statistic bootstrap seed so intervals are reproducible
// and independent of the order statistics are computed in
func (a *analysis) seed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return a.cfg.Bootstrap.Seed ^ h.Sum64()
}

// pooled computes Cohen's d for x vs y with a bootstrap interval. Only a
// cancelled context is returned as an error.
func (a *analysis) pooled(ctx context.Context, name string, x, y []float64) (*model.EffectSize, error) {
	b := stats.Bootstrap{
		Iterations: a.cfg.Bootstrap.Iterations,
		Alpha:      a.cfg.Bootstrap.Alpha,
		Seed:       a.seed(name),
		Workers:    a.cfg.Concurrency.Workers,
	}
	ci, err := b.CohensDCI(ctx, x, y)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		a.degenerate(name, err)
		return nil, nil
	}

	lo, hi := ci.Lower, ci.Upper
	e := model.EffectSize{
		Name:       name,
		Kind:       model.EffectPooled,
		D:          ci.Estimate,
		CILower:    &lo,
		CIUpper:    &hi,
		Iterations: ci.Valid,
		Magnitude:  stats.Magnitude(ci.Estimate),
	}
	if ci.Valid < b.Iterations {
		e.Note = fmt.Sprintf("%d of %d resamples were degenerate", b.Iterations-ci.Valid, b.Iterations)
	}
	a.report.EffectSizes = append(a.report.EffectSizes, e)
	return &e, nil
}

func (a *analysis) within(name string, x, y []float64) {
	d, err := stats.CohensDWithin(x, y)
	if err != nil {
		a.degenerate(name, err)
		return
	}
	a.report.EffectSizes = append(a.report.EffectSizes, model.EffectSize{
		Name:      name,
		Kind:      model.EffectWithin,
		D:         d,
		Magnitude: stats.Magnitude(d),
	})
}

// mixed fits d, replacing it with per-factor independent t-tests when the
// fit fails or yields non-finite estimates
func (a *analysis) mixed(d stats.MixedDesign) {
	res, err := stats.FitMixedModel(d)
	if err == nil && !finiteModel(res) {
		err = stats.ErrNotConverged
	}
	if err == nil {
		a.report.Models = append(a.report.Models, *res)
		return
	}

	a.logger.Warn("mixed model failed, falling back to t-tests",
		zap.String("model", d.Name), zap.String("formula", d.Formula()), zap.Error(err))

	m := model.ModelResult{
		Name:      d.Name,
		Formula:   d.Formula(),
		Converged: false,
		NObs:      len(d.Y),
		NGroups:   countDistinct(d.Groups),
		Note:      err.Error(),
	}
	for _, f := range d.Factors {
		var level, ref []float64
		for i, v := range f.Values {
			switch v {
			case f.Level:
				level = append(level, d.Y[i])
			case f.Reference:
				ref = append(ref, d.Y[i])
			}
		}
		name := fmt.Sprintf("%s_fallback_%s", d.Name, f.Name)
		t, err := stats.IndependentTTest(level, ref)
		if err != nil {
			a.degenerate(name, err)
			continue
		}
		t.Name = name
		t.Note = fmt.Sprintf("%s %s vs %s", f.Name, f.Level, f.Reference)
		m.Fallback = append(m.Fallback, t)
	}
	a.report.Models = append(a.report.Models, m)
}

func finiteModel(m *model.ModelResult) bool {
	for _, c := range m.Coefficients {
		for _, v := range []float64{c.Estimate, c.SE, c.Z, c.PValue} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return !math.IsNaN(m.LogLikelihood) && !math.IsNaN(m.GroupVariance)
}

func countDistinct(xs []string) int {
	seen := make(map[string]bool, len(xs))
	for _, x := range xs {
		seen[x] = true
	}
	return len(seen)
}

// Factor codings: references are the alphabetically first level
func emotionFactor() stats.Factor {
	return stats.Factor{Name: "Emotion", Reference: string(model.EmotionHate), Level: string(model.EmotionNeutral)}
}

func plausibilityFactor() stats.Factor {
	return stats.Factor{Name: "Plausibility", Reference: string(model.PlausibilityImplausible), Level: string(model.PlausibilityPlausible)}
}

// observationDesign builds an RT model over obs
func observationDesign(name string, obs []model.RegionObservation, withPlausibility bool) stats.MixedDesign {
	d := stats.MixedDesign{Name: name, Response: "RT", Interaction: withPlausibility}
	emotion, plaus := emotionFactor(), plausibilityFactor()
	for _, o := range obs {
		d.Y = append(d.Y, o.RT)
		d.Groups = append(d.Groups, o.Trial.ParticipantID)
		emotion.Values = append(emotion.Values, string(o.Trial.Emotion))
		plaus.Values = append(plaus.Values, string(o.Trial.Plausibility))
	}
	d.Factors = []stats.Factor{emotion}
	if withPlausibility {
		d.Factors = append(d.Factors, plaus)
	}
	return d
}

func ofRegion(obs []model.RegionObservation, types ...model.RegionType) []model.RegionObservation {
	var out []model.RegionObservation
	for _, o := range obs {
		for _, t := range types {
			if o.Type == t {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

// rts selects reading times by condition; empty conditions match everything
func rts(obs []model.RegionObservation, e model.Emotion, p model.Plausibility) []float64 {
	var out []float64
	for _, o := range obs {
		if (e == "" || o.Trial.Emotion == e) && (p == "" || o.Trial.Plausibility == p) {
			out = append(out, o.RT)
		}
	}
	return out
}

// participantMeans averages RTs per participant for one condition
func participantMeans(obs []model.RegionObservation, e model.Emotion, p model.Plausibility) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range obs {
		if (e == "" || o.Trial.Emotion == e) && (p == "" || o.Trial.Plausibility == p) {
			sums[o.Trial.ParticipantID] += o.RT
			counts[o.Trial.ParticipantID]++
		}
	}
	for id, n := range counts {
		sums[id] /= float64(n)
	}
	return sums
}

// aligned pairs participants present in both maps, ordered by id
func aligned(a, b map[string]float64) (xs, ys []float64) {
	ids := make([]string, 0, len(a))
	for id := range a {
		if _, ok := b[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		xs = append(xs, a[id])
		ys = append(ys, b[id])
	}
	return xs, ys
}

var (
	emotions       = []model.Emotion{model.EmotionHate, model.EmotionNeutral}
	plausibilities = []model.Plausibility{model.PlausibilityPlausible, model.PlausibilityImplausible}
)

// attentionCapture compares hate and neutral modifier RTs
func (a *analysis) attentionCapture(ctx context.Context, obs []model.RegionObservation) error {
	mod := ofRegion(obs, model.RegionModifier)
	hate := rts(mod, model.EmotionHate, "")
	neutral := rts(mod, model.EmotionNeutral, "")

	a.describe("modifier_rt", model.EmotionHate.String(), "", hate)
	a.describe("modifier_rt", model.EmotionNeutral.String(), "", neutral)

	x, y := aligned(participantMeans(mod, model.EmotionHate, ""), participantMeans(mod, model.EmotionNeutral, ""))
	a.test("h1_modifier_paired", stats.PairedTTest, x, y)
	a.within("h1_modifier_within", x, y)

	e, err := a.pooled(ctx, "h1_modifier_pooled", hate, neutral)
	if err != nil {
		return err
	}
	a.h1Pooled = e

	a.mixed(observationDesign("h1_modifier", mod, false))
	return nil
}

// attentionNarrowing tests the plausibility effect after each modifier
// type in the critical region (spillover and fact pooled), then in each
// region separately
func (a *analysis) attentionNarrowing(obs []model.RegionObservation) {
	a.narrowing("critical", ofRegion(obs, model.RegionSpillover, model.RegionFact))
	for _, region := range []model.RegionType{model.RegionSpillover, model.RegionFact} {
		a.narrowing(string(region), ofRegion(obs, region))
	}
}

func (a *analysis) narrowing(label string, sub []model.RegionObservation) {
	measure := label + "_rt"

	for _, e := range emotions {
		for _, p := range plausibilities {
			a.describe(measure, e.String(), p.String(), rts(sub, e, p))
		}

		// Implausible minus plausible within the emotion condition
		x, y := aligned(participantMeans(sub, e, model.PlausibilityImplausible), participantMeans(sub, e, model.PlausibilityPlausible))
		a.test(fmt.Sprintf("h2_%s_%s_plausibility", label, e.String()), stats.PairedTTest, x, y)
	}

	a.mixed(observationDesign("h2_"+label, sub, true))
}

type ratingCell struct {
	e model.Emotion
	p model.Plausibility
}

// memoryBias analyses plausibility ratings of tested items
func (a *analysis) memoryBias(ratings []model.RatingObservation) {
	values := make(map[ratingCell][]float64)

	d := stats.MixedDesign{Name: "h3_rating", Response: "Rating", Interaction: true}
	emotion, plaus := emotionFactor(), plausibilityFactor()

	for _, r := range ratings {
		if r.Rating == nil {
			a.report.Exclusion.RatingsMissing++
			continue
		}
		c := ratingCell{r.Emotion, r.Plausibility}
		values[c] = append(values[c], *r.Rating)

		d.Y = append(d.Y, *r.Rating)
		d.Groups = append(d.Groups, r.ParticipantID)
		emotion.Values = append(emotion.Values, string(r.Emotion))
		plaus.Values = append(plaus.Values, string(r.Plausibility))
	}
	if len(d.Y) == 0 {
		a.logger.Warn("no ratings to analyse")
		return
	}
	d.Factors = []stats.Factor{emotion, plaus}

	for _, e := range emotions {
		for _, p := range plausibilities {
			a.describe("rating", e.String(), p.String(), values[ratingCell{e, p}])
		}
	}

	byEmotion := func(e model.Emotion) []float64 {
		return append(append([]float64(nil), values[ratingCell{e, model.PlausibilityPlausible}]...), values[ratingCell{e, model.PlausibilityImplausible}]...)
	}
	byPlausibility := func(p model.Plausibility) []float64 {
		return append(append([]float64(nil), values[ratingCell{model.EmotionHate, p}]...), values[ratingCell{model.EmotionNeutral, p}]...)
	}

	a.test("h3_emotion", stats.IndependentTTest, byEmotion(model.EmotionHate), byEmotion(model.EmotionNeutral))
	a.test("h3_plausibility", stats.IndependentTTest, byPlausibility(model.PlausibilityPlausible), byPlausibility(model.PlausibilityImplausible))
	for _, e := range emotions {
		a.test(fmt.Sprintf("h3_%s_plausibility", e.String()), stats.IndependentTTest,
			values[ratingCell{e, model.PlausibilityPlausible}], values[ratingCell{e, model.PlausibilityImplausible}])
	}

	// (HP - HI) - (NP - NI)
	means := make(map[ratingCell]float64)
	complete := true
	for _, e := range emotions {
		for _, p := range plausibilities {
			v := values[ratingCell{e, p}]
			if len(v) == 0 {
				complete = false
				continue
			}
			means[ratingCell{e, p}] = stats.Mean(v)
		}
	}
	if complete {
		contrast := (means[ratingCell{model.EmotionHate, model.PlausibilityPlausible}] - means[ratingCell{model.EmotionHate, model.PlausibilityImplausible}]) -
			(means[ratingCell{model.EmotionNeutral, model.PlausibilityPlausible}] - means[ratingCell{model.EmotionNeutral, model.PlausibilityImplausible}])
		a.report.RatingContrast = &contrast
	}

	a.mixed(d)
}

// integration profiles every participant with a recall response, linking
// their rating pattern and hate modifier RT to what they recalled, then
// correlates the measures across participants
func (a *analysis) integration(ratings []model.RatingObservation, obs []model.RegionObservation, recall []model.RecallScore) {
	if len(recall) == 0 {
		return
	}

	byParticipant := make(map[string]map[ratingCell][]float64)
	for _, r := range ratings {
		if r.Rating == nil {
			continue
		}
		cells := byParticipant[r.ParticipantID]
		if cells == nil {
			cells = make(map[ratingCell][]float64)
			byParticipant[r.ParticipantID] = cells
		}
		c := ratingCell{r.Emotion, r.Plausibility}
		cells[c] = append(cells[c], *r.Rating)
	}
	hateRT := participantMeans(ofRegion(obs, model.RegionModifier), model.EmotionHate, "")

	for _, s := range recall {
		prof := model.ParticipantProfile{
			ParticipantID:         s.ParticipantID,
			FactCount:             s.FactCount,
			FactDensity:           s.FactDensity,
			NegativeCount:         s.NegativeCount,
			ExtendedNegativeCount: s.ExtendedNegativeCount,
			FalseInfoCount:        s.FalseInfoCount,
			TextLength:            s.TextLength,
		}
		if rt, ok := hateRT[s.ParticipantID]; ok {
			prof.HateModifierRT = &rt
		}
		if cells, ok := byParticipant[s.ParticipantID]; ok {
			ratingProfile(&prof, cells)
		}
		a.report.Integration = append(a.report.Integration, prof)
	}

	for _, c := range integrationPairs {
		a.correlate(c.x, c.y)
	}
}

func ratingProfile(prof *model.ParticipantProfile, cells map[ratingCell][]float64) {
	mean := func(xs ...[]float64) *float64 {
		var all []float64
		for _, x := range xs {
			all = append(all, x...)
		}
		if len(all) == 0 {
			return nil
		}
		m := stats.Mean(all)
		return &m
	}
	diff := func(x, y *float64) *float64 {
		if x == nil || y == nil {
			return nil
		}
		d := *x - *y
		return &d
	}

	hp := cells[ratingCell{model.EmotionHate, model.PlausibilityPlausible}]
	hi := cells[ratingCell{model.EmotionHate, model.PlausibilityImplausible}]
	np := cells[ratingCell{model.EmotionNeutral, model.PlausibilityPlausible}]
	ni := cells[ratingCell{model.EmotionNeutral, model.PlausibilityImplausible}]

	prof.HatePlausibility = diff(mean(hp), mean(hi))
	prof.NeutralPlausibility = diff(mean(np), mean(ni))
	prof.Distortion = diff(prof.HatePlausibility, prof.NeutralPlausibility)
	prof.HateMeanRating = mean(hp, hi)
	prof.NeutralMeanRating = mean(np, ni)
	prof.HateBias = diff(prof.HateMeanRating, prof.NeutralMeanRating)
}

// profileMeasure reads one measure from a participant profile; ok is false
// when the participant lacks it
type profileMeasure struct {
	name  string
	value func(model.ParticipantProfile) (float64, bool)
}

func optional(get func(model.ParticipantProfile) *float64) func(model.ParticipantProfile) (float64, bool) {
	return func(p model.ParticipantProfile) (float64, bool) {
		if v := get(p); v != nil {
			return *v, true
		}
		return 0, false
	}
}

func always(get func(model.ParticipantProfile) float64) func(model.ParticipantProfile) (float64, bool) {
	return func(p model.ParticipantProfile) (float64, bool) { return get(p), true }
}

var (
	measureDistortion = profileMeasure{"distortion", optional(func(p model.ParticipantProfile) *float64 { return p.Distortion })}
	measureHateBias   = profileMeasure{"hate_bias", optional(func(p model.ParticipantProfile) *float64 { return p.HateBias })}
	measureNeutral    = profileMeasure{"neutral_plausibility_effect", optional(func(p model.ParticipantProfile) *float64 { return p.NeutralPlausibility })}
	measureHateRT     = profileMeasure{"hate_modifier_rt", optional(func(p model.ParticipantProfile) *float64 { return p.HateModifierRT })}
	measureFacts      = profileMeasure{"fact_count", always(func(p model.ParticipantProfile) float64 { return float64(p.FactCount) })}
	measureDensity    = profileMeasure{"fact_density", always(func(p model.ParticipantProfile) float64 { return p.FactDensity })}
	measureNegative   = profileMeasure{"negative_count", always(func(p model.ParticipantProfile) float64 { return float64(p.NegativeCount) })}
	measureExtended   = profileMeasure{"extended_negative_count", always(func(p model.ParticipantProfile) float64 { return float64(p.ExtendedNegativeCount) })}
)

var integrationPairs = []struct{ x, y profileMeasure }{
	{measureDistortion, measureFacts},
	{measureDistortion, measureExtended},
	{measureHateBias, measureFacts},
	{measureNeutral, measureFacts},
	{measureDistortion, measureDensity},
	{measureHateRT, measureFacts},
	{measureHateRT, measureNegative},
}

// correlate records Pearson r between two measures over the participants
// that have both
func (a *analysis) correlate(x, y profileMeasure) {
	name := x.name + "_x_" + y.name

	var xs, ys []float64
	for _, p := range a.report.Integration {
		xv, okx := x.value(p)
		yv, oky := y.value(p)
		if okx && oky {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}

	c, err := stats.Pearson(xs, ys)
	if err != nil {
		a.skipped(name, err)
		return
	}
	c.Name, c.X, c.Y = name, x.name, y.name
	a.report.Correlations = append(a.report.Correlations, c)
}

// manipulationCheck compares negativity ratings of hate and neutral modifiers
func (a *analysis) manipulationCheck(ctx context.Context, checks []model.ManipulationCheck) error {
	if len(checks) == 0 {
		return nil
	}

	var hate, neutral []float64
	byWord := make(map[string][]float64)
	category := make(map[string]model.ModifierCategory)
	for _, c := range checks {
		if c.Category == model.CategoryHate {
			hate = append(hate, c.NegativityRating)
		} else {
			neutral = append(neutral, c.NegativityRating)
		}
		byWord[c.ModifierText] = append(byWord[c.ModifierText], c.NegativityRating)
		category[c.ModifierText] = c.Category
	}

	a.describe("negativity", string(model.CategoryHate), "", hate)
	a.describe("negativity", string(model.CategoryNeutral), "", neutral)
	a.test("manipulation_negativity", stats.IndependentTTest, hate, neutral)
	if _, err := a.pooled(ctx, "manipulation_negativity", hate, neutral); err != nil {
		return err
	}

	words := make([]string, 0, len(byWord))
	for w := range byWord {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if category[words[i]] != category[words[j]] {
			return category[words[i]] < category[words[j]]
		}
		return words[i] < words[j]
	})
	for _, w := range words {
		s := stats.Describe(byWord[w])
		a.report.WordRatings = append(a.report.WordRatings, model.WordRating{
			Modifier: w,
			Category: category[w],
			Mean:     s.Mean,
			SD:       s.SD,
			N:        s.N,
		})
	}
	return nil
}

// regionEffects compares hate and neutral RTs region by region
func (a *analysis) regionEffects(ctx context.Context, obs []model.RegionObservation) error {
	for _, region := range model.RegionTypes {
		sub := ofRegion(obs, region)
		hate := rts(sub, model.EmotionHate, "")
		neutral := rts(sub, model.EmotionNeutral, "")
		name := "region_" + string(region)

		t, ok := a.test(name, stats.IndependentTTest, hate, neutral)
		if !ok {
			continue
		}
		e, err := a.pooled(ctx, name, hate, neutral)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}

		h, n := stats.Describe(hate), stats.Describe(neutral)
		a.report.RegionEffects = append(a.report.RegionEffects, model.RegionEffect{
			Region:      region,
			HateMean:    h.Mean,
			HateSD:      h.SD,
			NeutralMean: n.Mean,
			NeutralSD:   n.SD,
			DiffMS:      h.Mean - n.Mean,
			DiffPct:     (h.Mean - n.Mean) / n.Mean * 100,
			Effect:      *e,
			Test:        t,
		})
	}
	return nil
}

// sensitivity re-runs the paired modifier comparison under each configured
// band, starting from modifier RTs before word-level filtering. Means and
// counts are over trials; t and d are over participant means.
func (a *analysis) sensitivity(raw []model.RegionObservation) {
	mod := ofRegion(raw, model.RegionModifier)
	if len(mod) == 0 {
		return
	}

	for i, band := range a.cfg.Exclusion.SensitivityBands {
		criterion := "original"
		if i > 0 {
			criterion = "stricter"
			if len(a.cfg.Exclusion.SensitivityBands) > 2 {
				criterion = fmt.Sprintf("stricter_%d", i)
			}
		}
		name := fmt.Sprintf("sensitivity_%s", band)

		kept, excluded := filter.FilterObservations(mod, band)
		hate := rts(kept, model.EmotionHate, "")
		neutral := rts(kept, model.EmotionNeutral, "")
		if len(hate) == 0 || len(neutral) == 0 {
			a.degenerate(name, stats.ErrInsufficientData)
			continue
		}

		// Within-subject: participant means, paired
		x, y := aligned(participantMeans(kept, model.EmotionHate, ""), participantMeans(kept, model.EmotionNeutral, ""))
		t, err := stats.PairedTTest(x, y)
		if err != nil {
			a.degenerate(name, err)
			continue
		}
		d, err := stats.CohensDWithin(x, y)
		if err != nil {
			a.degenerate(name, err)
			continue
		}

		mh, mn := stats.Mean(hate), stats.Mean(neutral)
		a.report.Sensitivity = append(a.report.Sensitivity, model.SensitivityRow{
			Criterion:    criterion,
			Band:         band,
			Excluded:     excluded,
			PctExcluded:  float64(excluded) / float64(len(mod)) * 100,
			Retained:     len(kept),
			MeanHate:     mh,
			MeanNeutral:  mn,
			Difference:   mh - mn,
			T:            t.Statistic,
			DF:           t.DF,
			PValue:       t.PValue,
			D:            d,
			NHate:        len(hate),
			NNeutral:     len(neutral),
			Participants: len(x),
		})
	}
}

// power tabulates required sample sizes for the configured effect sizes
// and the observed modifier effect
func (a *analysis) power() {
	pc := a.cfg.Power
	add := func(label string, d float64) {
		n, err := stats.RequiredSampleSize(d, pc.Alpha, pc.Power, pc.WithinR)
		if err != nil {
			a.degenerate("power_"+label, err)
			return
		}
		a.report.Power = append(a.report.Power, model.PowerRow{
			Label:    label,
			D:        math.Abs(d),
			NBetween: n.Between,
			NWithin:  n.Within,
		})
	}

	for _, d := range pc.EffectSizes {
		add(stats.Magnitude(d), d)
	}
	if a.h1Pooled != nil && a.h1Pooled.D != 0 {
		add(model.PowerObserved, a.h1Pooled.D)
	}
}
