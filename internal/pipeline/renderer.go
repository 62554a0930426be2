package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ppiankov/sprstat/internal/model"
)

// Renderer writes reports to files and a progress stream. It is safe for
// concurrent use by batch workers.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewRenderer creates a Renderer that prints summaries to out
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = io.Discard
	}
	return &Renderer{out: out}
}

// Printf writes a progress line
func (r *Renderer) Printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes a human-readable summary
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return os.WriteFile(path, []byte(Markdown(report)), 0o644)
}

// Markdown renders report as a Markdown document
func Markdown(report *model.Report) string {
	var b strings.Builder
	x := report.Exclusion

	fmt.Fprintf(&b, "# SPR analysis: %s\n\n", report.Source)
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Created: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Participants: %d\n", report.Participants)
	fmt.Fprintf(&b, "- Confidence: **%s**\n\n", report.Confidence)

	b.WriteString("## Exclusions\n\n")
	b.WriteString("| Step | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Trials loaded | %d |\n", x.TrialsLoaded)
	fmt.Fprintf(&b, "| Practice removed | %d |\n", x.PracticeRemoved)
	fmt.Fprintf(&b, "| Fillers removed | %d |\n", x.FillersRemoved)
	fmt.Fprintf(&b, "| Outliers removed (%s) | %d |\n", x.OutlierCriterion, x.OutliersRemoved)
	fmt.Fprintf(&b, "| Trials kept | %d |\n", x.TrialsKept)
	fmt.Fprintf(&b, "| Short trials skipped | %d |\n", x.ShortTrials)
	fmt.Fprintf(&b, "| Fact regions omitted | %d |\n", x.FactsOmitted)
	fmt.Fprintf(&b, "| Word-level removed (%s) | %d |\n", x.WordBand, x.WordLevelRemoved)
	fmt.Fprintf(&b, "| Observations | %d |\n", x.Observations)
	if x.RatingsMissing > 0 {
		fmt.Fprintf(&b, "| Ratings missing | %d |\n", x.RatingsMissing)
	}
	b.WriteString("\n")

	if len(report.Descriptives) > 0 {
		b.WriteString("## Descriptives\n\n")
		b.WriteString("| Measure | Emotion | Plausibility | N | Mean | SD | SEM |\n|---|---|---|---:|---:|---:|---:|\n")
		for _, g := range report.Descriptives {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %.2f | %.2f | %.2f |\n",
				g.Measure, g.Emotion, g.Plausibility, g.N, g.Mean, g.SD, g.SEM)
		}
		b.WriteString("\n")
	}

	if len(report.Tests) > 0 {
		b.WriteString("## Tests\n\n")
		b.WriteString("| Test | Kind | t | df | p | Mean diff |\n|---|---|---:|---:|---:|---:|\n")
		for _, t := range report.Tests {
			fmt.Fprintf(&b, "| %s | %s | %.3f | %.0f | %s | %.2f |\n",
				t.Name, t.Kind, t.Statistic, t.DF, formatP(t.PValue), t.MeanDiff)
		}
		b.WriteString("\n")
	}

	if len(report.EffectSizes) > 0 {
		b.WriteString("## Effect sizes\n\n")
		b.WriteString("| Effect | Kind | d | 95% CI | Magnitude |\n|---|---|---:|---|---|\n")
		for _, e := range report.EffectSizes {
			fmt.Fprintf(&b, "| %s | %s | %.3f | %s | %s |\n", e.Name, e.Kind, e.D, formatCI(e), e.Magnitude)
		}
		b.WriteString("\n")
	}

	if len(report.Models) > 0 {
		b.WriteString("## Mixed models\n\n")
		for _, m := range report.Models {
			fmt.Fprintf(&b, "### %s\n\n`%s` (%d observations, %d participants)\n\n", m.Name, m.Formula, m.NObs, m.NGroups)
			if !m.Converged {
				fmt.Fprintf(&b, "Model failed (%s); independent t-tests reported instead.\n\n", m.Note)
				for _, t := range m.Fallback {
					fmt.Fprintf(&b, "- %s: t(%.0f) = %.3f, p = %s\n", t.Note, t.DF, t.Statistic, formatP(t.PValue))
				}
				b.WriteString("\n")
				continue
			}
			b.WriteString("| Term | Estimate | SE | z | p |\n|---|---:|---:|---:|---:|\n")
			for _, c := range m.Coefficients {
				fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %s |\n", c.Term, c.Estimate, c.SE, c.Z, formatP(c.PValue))
			}
			fmt.Fprintf(&b, "\nParticipant variance %.2f, residual variance %.2f, log-likelihood %.2f\n\n",
				m.GroupVariance, m.ResidualVariance, m.LogLikelihood)
		}
	}

	if len(report.RegionEffects) > 0 {
		b.WriteString("## Region effects\n\n")
		b.WriteString("| Region | Hate | Neutral | Diff (ms) | Diff (%) | d | 95% CI | p |\n|---|---:|---:|---:|---:|---:|---|---:|\n")
		for _, e := range report.RegionEffects {
			fmt.Fprintf(&b, "| %s | %.1f | %.1f | %.1f | %.1f | %.3f | %s | %s |\n",
				e.Region, e.HateMean, e.NeutralMean, e.DiffMS, e.DiffPct, e.Effect.D, formatCI(e.Effect), formatP(e.Test.PValue))
		}
		b.WriteString("\n")
	}

	if len(report.Sensitivity) > 0 {
		b.WriteString("## Sensitivity\n\n")
		b.WriteString("| Criterion | Band | Excluded | Hate | Neutral | Paired t | p | Within d |\n|---|---|---:|---:|---:|---:|---:|---:|\n")
		for _, s := range report.Sensitivity {
			fmt.Fprintf(&b, "| %s | %s | %d (%.1f%%) | %.1f | %.1f | t(%.0f) = %.3f | %s | %.3f |\n",
				s.Criterion, s.Band, s.Excluded, s.PctExcluded, s.MeanHate, s.MeanNeutral, s.DF, s.T, formatP(s.PValue), s.D)
		}
		b.WriteString("\n")
	}

	if len(report.Power) > 0 {
		b.WriteString("## Power\n\n")
		fmt.Fprintf(&b, "Current participants: %d\n\n", report.Participants)
		b.WriteString("| Effect | d | N between (per group) | N within |\n|---|---:|---:|---:|\n")
		for _, p := range report.Power {
			fmt.Fprintf(&b, "| %s | %.3f | %d | %d |\n", p.Label, p.D, p.NBetween, p.NWithin)
		}
		b.WriteString("\n")
	}

	if len(report.Correlations) > 0 {
		b.WriteString("## Recall integration (exploratory)\n\n")
		b.WriteString("| Correlation | N | r | p |\n|---|---:|---:|---:|\n")
		for _, c := range report.Correlations {
			fmt.Fprintf(&b, "| %s × %s | %d | %.3f | %s |\n", c.X, c.Y, c.N, c.R, formatP(c.PValue))
		}
		b.WriteString("\n")
	}

	if report.RatingContrast != nil {
		fmt.Fprintf(&b, "Rating interaction contrast (HP-HI)-(NP-NI): %.3f\n\n", *report.RatingContrast)
	}

	if len(report.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range report.Signals {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", s.Severity, s.Type, s.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatP(p float64) string {
	if p < 0.001 {
		return "< .001"
	}
	return strconv.FormatFloat(p, 'f', 3, 64)
}

func formatCI(e model.EffectSize) string {
	if e.CILower == nil || e.CIUpper == nil {
		return ""
	}
	return fmt.Sprintf("[%.3f, %.3f]", *e.CILower, *e.CIUpper)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optFtoa(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}

type table struct {
	name   string
	header []string
	rows   [][]string
}

// RenderTables writes one CSV per non-empty table into dir and returns the
// paths written
func (r *Renderer) RenderTables(report *model.Report, obs []model.RegionObservation, dir string) ([]string, error) {
	var written []string
	for _, t := range tables(report, obs) {
		if len(t.rows) == 0 {
			continue
		}
		path := filepath.Join(dir, t.name)
		if err := writeCSV(path, t.header, t.rows); err != nil {
			return written, fmt.Errorf("%s: %w", t.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tables(report *model.Report, obs []model.RegionObservation) []table {
	itoa := strconv.Itoa

	observations := table{name: "observations.csv", header: []string{
		"participant_id", "list_id", "trial_index", "item_id", "base", "emotion", "plausibility", "region", "text", "rt"}}
	for _, o := range obs {
		observations.rows = append(observations.rows, []string{
			o.Trial.ParticipantID, o.Trial.ListID, itoa(o.Trial.TrialIndex), o.Trial.ItemID, o.Trial.Base,
			string(o.Trial.Emotion), string(o.Trial.Plausibility), string(o.Type), o.Text, ftoa(o.RT)})
	}

	descriptives := table{name: "descriptives.csv", header: []string{
		"measure", "emotion", "plausibility", "n", "mean", "sd", "sem", "min", "max"}}
	for _, g := range report.Descriptives {
		descriptives.rows = append(descriptives.rows, []string{
			g.Measure, g.Emotion, g.Plausibility, itoa(g.N), ftoa(g.Mean), ftoa(g.SD), ftoa(g.SEM), ftoa(g.Min), ftoa(g.Max)})
	}

	testRow := func(owner string, t model.TestResult) []string {
		return []string{t.Name, string(t.Kind), ftoa(t.Statistic), ftoa(t.DF), ftoa(t.PValue), ftoa(t.MeanDiff),
			itoa(t.N1), itoa(t.N2), owner, t.Note}
	}
	tests := table{name: "tests.csv", header: []string{
		"name", "kind", "t", "df", "p", "mean_diff", "n1", "n2", "fallback_for", "note"}}
	for _, t := range report.Tests {
		tests.rows = append(tests.rows, testRow("", t))
	}
	for _, m := range report.Models {
		for _, t := range m.Fallback {
			tests.rows = append(tests.rows, testRow(m.Name, t))
		}
	}

	effects := table{name: "effects.csv", header: []string{
		"name", "kind", "d", "ci_lower", "ci_upper", "iterations", "magnitude", "note"}}
	for _, e := range report.EffectSizes {
		effects.rows = append(effects.rows, []string{
			e.Name, string(e.Kind), ftoa(e.D), optFtoa(e.CILower), optFtoa(e.CIUpper), itoa(e.Iterations), e.Magnitude, e.Note})
	}

	models := table{name: "models.csv", header: []string{
		"model", "formula", "converged", "term", "estimate", "se", "z", "p", "group_variance", "residual_variance", "log_likelihood", "n_obs", "n_groups", "note"}}
	for _, m := range report.Models {
		converged := strconv.FormatBool(m.Converged)
		if len(m.Coefficients) == 0 {
			models.rows = append(models.rows, []string{
				m.Name, m.Formula, converged, "", "", "", "", "", "", "", "", itoa(m.NObs), itoa(m.NGroups), m.Note})
			continue
		}
		for _, c := range m.Coefficients {
			models.rows = append(models.rows, []string{
				m.Name, m.Formula, converged, c.Term, ftoa(c.Estimate), ftoa(c.SE), ftoa(c.Z), ftoa(c.PValue),
				ftoa(m.GroupVariance), ftoa(m.ResidualVariance), ftoa(m.LogLikelihood), itoa(m.NObs), itoa(m.NGroups), m.Note})
		}
	}

	regions := table{name: "region_effects.csv", header: []string{
		"region", "hate_mean", "hate_sd", "neutral_mean", "neutral_sd", "diff_ms", "diff_pct", "d", "ci_lower", "ci_upper", "t", "p"}}
	for _, e := range report.RegionEffects {
		regions.rows = append(regions.rows, []string{
			string(e.Region), ftoa(e.HateMean), ftoa(e.HateSD), ftoa(e.NeutralMean), ftoa(e.NeutralSD),
			ftoa(e.DiffMS), ftoa(e.DiffPct), ftoa(e.Effect.D), optFtoa(e.Effect.CILower), optFtoa(e.Effect.CIUpper),
			ftoa(e.Test.Statistic), ftoa(e.Test.PValue)})
	}

	sensitivity := table{name: "sensitivity.csv", header: []string{
		"criterion", "band", "excluded", "pct_excluded", "retained", "mean_hate", "mean_neutral", "difference", "t", "df", "p", "d_within", "n_hate", "n_neutral", "n_participants"}}
	for _, s := range report.Sensitivity {
		sensitivity.rows = append(sensitivity.rows, []string{
			s.Criterion, s.Band.String(), itoa(s.Excluded), ftoa(s.PctExcluded), itoa(s.Retained), ftoa(s.MeanHate),
			ftoa(s.MeanNeutral), ftoa(s.Difference), ftoa(s.T), ftoa(s.DF), ftoa(s.PValue), ftoa(s.D),
			itoa(s.NHate), itoa(s.NNeutral), itoa(s.Participants)})
	}

	power := table{name: "power.csv", header: []string{"label", "d", "n_between", "n_within", "current_n"}}
	for _, p := range report.Power {
		power.rows = append(power.rows, []string{p.Label, ftoa(p.D), itoa(p.NBetween), itoa(p.NWithin), itoa(report.Participants)})
	}

	recall := table{name: "recall.csv", header: []string{
		"participant_id", "text_length", "sentences", "fact_count", "fact_ratio", "fact_density", "negative_count", "neutral_count",
		"sentiment", "extended_negative_count", "negative_direct", "negative_indirect", "negative_derogatory", "false_info_count"}}
	for _, s := range report.Recall {
		recall.rows = append(recall.rows, []string{
			s.ParticipantID, itoa(s.TextLength), itoa(s.SentenceCount), itoa(s.FactCount), ftoa(s.FactRatio), ftoa(s.FactDensity),
			itoa(s.NegativeCount), itoa(s.NeutralCount), itoa(s.SentimentScore), itoa(s.ExtendedNegativeCount),
			itoa(s.NegativeDirect), itoa(s.NegativeIndirect), itoa(s.NegativeDerogatory), itoa(s.FalseInfoCount)})
	}

	integration := table{name: "integration.csv", header: []string{
		"participant_id", "hate_plausibility_effect", "neutral_plausibility_effect", "distortion", "hate_mean_rating",
		"neutral_mean_rating", "hate_bias", "hate_modifier_rt", "fact_count", "fact_density", "negative_count",
		"extended_negative_count", "false_info_count", "text_length"}}
	for _, p := range report.Integration {
		integration.rows = append(integration.rows, []string{
			p.ParticipantID, optFtoa(p.HatePlausibility), optFtoa(p.NeutralPlausibility), optFtoa(p.Distortion),
			optFtoa(p.HateMeanRating), optFtoa(p.NeutralMeanRating), optFtoa(p.HateBias), optFtoa(p.HateModifierRT),
			itoa(p.FactCount), ftoa(p.FactDensity), itoa(p.NegativeCount), itoa(p.ExtendedNegativeCount),
			itoa(p.FalseInfoCount), itoa(p.TextLength)})
	}

	correlations := table{name: "correlations.csv", header: []string{"name", "x", "y", "n", "r", "p"}}
	for _, c := range report.Correlations {
		correlations.rows = append(correlations.rows, []string{c.Name, c.X, c.Y, itoa(c.N), ftoa(c.R), ftoa(c.PValue)})
	}

	words := table{name: "word_ratings.csv", header: []string{"modifier", "category", "mean", "sd", "n"}}
	for _, w := range report.WordRatings {
		words.rows = append(words.rows, []string{w.Modifier, string(w.Category), ftoa(w.Mean), ftoa(w.SD), itoa(w.N)})
	}

	return []table{observations, descriptives, tests, effects, models, regions, sensitivity, power, recall, integration, correlations, words}
}

// RenderSummary prints a short overview of the run
func (r *Renderer) RenderSummary(report *model.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.out
	x := report.Exclusion
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  %s\n", report.Source)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Participants:  %d\n", report.Participants)
	fmt.Fprintf(w, "  Trials kept:   %d of %d (%d outliers, %s)\n", x.TrialsKept, x.TrialsLoaded, x.OutliersRemoved, x.OutlierCriterion)
	fmt.Fprintf(w, "  Observations:  %d (%d outside %s)\n", x.Observations, x.WordLevelRemoved, x.WordBand)

	for _, e := range report.EffectSizes {
		if e.Name == "h1_modifier_pooled" {
			fmt.Fprintf(w, "  Modifier d:    %.3f %s (%s)\n", e.D, formatCI(e), e.Magnitude)
		}
	}
	for _, t := range report.Tests {
		if t.Name == "h1_modifier_paired" {
			fmt.Fprintf(w, "  Modifier t:    t(%.0f) = %.3f, p = %s\n", t.DF, t.Statistic, formatP(t.PValue))
		}
	}
	fmt.Fprintf(w, "  Confidence:    %s\n", report.Confidence)
	fmt.Fprintf(w, "\n")

	for _, s := range report.Signals {
		if s.Severity == model.SeverityInfo {
			continue
		}
		mark := "⚠"
		if s.Severity == model.SeverityCritical {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, s.Description)
	}
}
