package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/sprstat/internal/load"
	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const participants = 6

var recallFacts = []string{"중앙아시아", "협곡", "산악", "반지하", "산양", "오리"}

// experimentWorkbook builds an export where hate modifiers are read about
// 80ms slower than neutral ones, with per-participant and per-item noise.
// Every third participant rates hate-implausible items one point lower,
// and recall grows by one fact per participant.
func experimentWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	write := func(sheet string, rows [][]interface{}) {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	spr := [][]interface{}{{
		"Participant_ID", "List_ID", "Trial_Index", "Item_ID", "Base", "Emotion",
		"Plausibility", "Is_Filler", "Sentence_Text", "Total_Reading_Time_ms", "Regions", "Region_RTs",
	}}
	ratings := [][]interface{}{{"Participant_ID", "Item_ID", "Emotion", "Plausibility", "Rating"}}
	checks := [][]interface{}{{"Participant_ID", "Modifier_Text", "Modifier_Category", "Negativity_Rating"}}
	recalls := [][]interface{}{{"Participant_ID", "Recall_Text"}}

	regions := `["탈렌족은", "미개한", "민족으로,", "흙으로", "집을", "짓고"]`
	for p := 0; p < participants; p++ {
		id := fmt.Sprintf("P%02d", p+1)
		idx := 1

		spr = append(spr, []interface{}{id, "L1", idx, "practice", "b0", "N", "P", "False",
			"연습 문장입니다", 2000, `["연습", "문장", "입니다", "끝"]`, `[500, 500, 500, 500]`})
		idx++
		spr = append(spr, []interface{}{id, "L1", idx, "filler", "", "", "", "True",
			"채움 문장", 1500, `["채움", "문장"]`, `[700, 800]`})
		idx++

		for item := 0; item < 4; item++ {
			for _, e := range []string{"H", "N"} {
				for _, pl := range []string{"P", "I"} {
					mod := 500.0 + float64(10*p) + float64(7*item)
					if e == "H" {
						mod += 80 + float64(3*((p*p+item)%5))
					}
					spill := 400.0 + float64(8*p) + float64(5*item)
					if pl == "I" {
						spill += 40 + float64((p*item)%5)
					}
					rts := []float64{450 + float64(5*p), mod, spill, 420 + float64(item), 410, 390 + float64(p)}
					total := 0.0
					for _, rt := range rts {
						total += rt
					}
					spr = append(spr, []interface{}{id, "L1", idx, fmt.Sprintf("i%d%s%s", item, e, pl),
						fmt.Sprintf("b%d", item), e, pl, "False", "탈렌족은 미개한 민족으로, 흙으로 집을 짓고",
						total, regions, fmt.Sprintf("[%g, %g, %g, %g, %g, %g]", rts[0], rts[1], rts[2], rts[3], rts[4], rts[5])})
					idx++
				}
			}
		}

		// One runaway trial per dataset
		if p == 0 {
			spr = append(spr, []interface{}{id, "L1", idx, "i0HP", "b0", "H", "P", "False",
				"탈렌족은 미개한 민족으로, 흙으로 집을 짓고", 90000, regions, `[15000, 15000, 15000, 15000, 15000, 15000]`})
		}

		for _, e := range []string{"H", "N"} {
			for _, pl := range []string{"P", "I"} {
				rating := 2 + p%2
				if pl == "P" {
					rating++
				}
				if e == "H" && pl == "I" && p%3 == 0 {
					rating--
				}
				ratings = append(ratings, []interface{}{id, "i0" + e + pl, e, pl, rating})
			}
		}
		ratings = append(ratings, []interface{}{id, "i1HP", "H", "P", ""})

		checks = append(checks,
			[]interface{}{id, "미개한", "hate", 3 + p%2},
			[]interface{}{id, "온화한", "neutral", 1 + p%2})
		recall := strings.Join(recallFacts[:p+1], ", ") + "에 산다."
		if p%2 == 0 {
			recall += " 미개한 민족이다."
		}
		recalls = append(recalls, []interface{}{id, recall})
	}

	require.NoError(t, f.SetSheetName("Sheet1", load.SheetSPR))
	write(load.SheetSPR, spr)
	for name, rows := range map[string][][]interface{}{
		load.SheetRating:       ratings,
		load.SheetManipulation: checks,
		load.SheetRecall:       recalls,
	} {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		write(name, rows)
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Bootstrap.Iterations = 200
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	return cfg
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.xlsx")
	require.NoError(t, os.WriteFile(path, experimentWorkbook(t), 0o644))
	return path
}

func findTest(r *model.Report, name string) (model.TestResult, bool) {
	for _, t := range r.Tests {
		if t.Name == name {
			return t, true
		}
	}
	return model.TestResult{}, false
}

func findEffect(r *model.Report, name string) (model.EffectSize, bool) {
	for _, e := range r.EffectSizes {
		if e.Name == name {
			return e, true
		}
	}
	return model.EffectSize{}, false
}

func TestPipeline_Run(t *testing.T) {
	p, err := NewPipeline(testConfig(t), zap.NewNop(), WithRenderer(NewRenderer(nil)))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), writeDataset(t))
	require.NoError(t, err)
	r := res.Report

	x := r.Exclusion
	assert.Equal(t, participants*(2+16)+1, x.TrialsLoaded)
	assert.Equal(t, participants, x.PracticeRemoved)
	assert.Equal(t, participants, x.FillersRemoved)
	assert.Equal(t, 1, x.OutliersRemoved)
	assert.Equal(t, participants*16, x.TrialsKept)
	assert.Equal(t, participants*16*4, x.Observations)
	assert.Equal(t, participants, x.RatingsMissing)
	assert.Equal(t, participants, r.Participants)
	assert.NotEmpty(t, r.RunID)

	paired, ok := findTest(r, "h1_modifier_paired")
	require.True(t, ok)
	assert.Greater(t, paired.MeanDiff, 0.0)
	assert.Less(t, paired.PValue, 0.05)

	pooled, ok := findEffect(r, "h1_modifier_pooled")
	require.True(t, ok)
	assert.Greater(t, pooled.D, 0.0)
	require.NotNil(t, pooled.CILower)
	assert.LessOrEqual(t, *pooled.CILower, pooled.D)
	assert.GreaterOrEqual(t, *pooled.CIUpper, pooled.D)

	_, ok = findEffect(r, "h1_modifier_within")
	assert.True(t, ok)

	names := make([]string, 0, len(r.Models))
	for _, m := range r.Models {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"h1_modifier", "h2_critical", "h2_spillover", "h2_fact", "h3_rating"}, names)

	assert.Len(t, r.RegionEffects, len(model.RegionTypes))
	assert.Len(t, r.Sensitivity, 2)
	assert.Len(t, r.WordRatings, 2)
	assert.Len(t, r.Recall, participants)
	require.NotNil(t, r.RatingContrast)
	assert.InDelta(t, 1.0/3, *r.RatingContrast, 1e-9)

	require.NotEmpty(t, r.Power)
	assert.Equal(t, model.PowerObserved, r.Power[len(r.Power)-1].Label)
	assert.NotEmpty(t, r.Confidence)

	for _, o := range res.Observations {
		assert.True(t, x.WordBand.Contains(o.RT), "observation %v outside band", o)
	}
}

func TestPipeline_CriticalRegion(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil, WithRenderer(NewRenderer(nil)))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), writeDataset(t))
	require.NoError(t, err)
	r := res.Report

	for _, e := range []string{"hate", "neutral"} {
		test, ok := findTest(r, "h2_critical_"+e+"_plausibility")
		require.True(t, ok, e)
		assert.Equal(t, model.TestPaired, test.Kind)
		assert.Equal(t, participants, test.N1)
	}

	var cells int
	for _, g := range r.Descriptives {
		if g.Measure == "critical_rt" {
			cells++
			// Spillover and fact observations pooled: 4 items x 2 regions per participant
			assert.Equal(t, participants*4*2, g.N, "%s/%s", g.Emotion, g.Plausibility)
		}
	}
	assert.Equal(t, 4, cells)

	for _, m := range r.Models {
		if m.Name == "h2_critical" {
			assert.Equal(t, participants*16*2, m.NObs)
			assert.Equal(t, participants, m.NGroups)
		}
	}
}

func TestPipeline_SensitivityMatchesModifierAnalysis(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil, WithRenderer(NewRenderer(nil)))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), writeDataset(t))
	require.NoError(t, err)
	r := res.Report

	require.Len(t, r.Sensitivity, 2)
	original := r.Sensitivity[0]
	assert.Equal(t, "original", original.Criterion)

	// The default word band equals the first sensitivity band, so the row
	// must reproduce the paired H1 statistics
	paired, ok := findTest(r, "h1_modifier_paired")
	require.True(t, ok)
	within, ok := findEffect(r, "h1_modifier_within")
	require.True(t, ok)

	assert.InDelta(t, paired.Statistic, original.T, 1e-9)
	assert.Equal(t, paired.DF, original.DF)
	assert.InDelta(t, paired.PValue, original.PValue, 1e-12)
	assert.InDelta(t, within.D, original.D, 1e-9)
	assert.Equal(t, participants, original.Participants)
	assert.Equal(t, participants*16, original.Retained)
}

func TestPipeline_RecallIntegration(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil, WithRenderer(NewRenderer(nil)))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), writeDataset(t))
	require.NoError(t, err)
	r := res.Report

	require.Len(t, r.Integration, participants)
	first := r.Integration[0]
	assert.Equal(t, "P01", first.ParticipantID)
	require.NotNil(t, first.Distortion)
	assert.InDelta(t, 1.0, *first.Distortion, 1e-9)
	require.NotNil(t, first.HateBias)
	assert.InDelta(t, -0.5, *first.HateBias, 1e-9)
	require.NotNil(t, first.NeutralPlausibility)
	assert.InDelta(t, 1.0, *first.NeutralPlausibility, 1e-9)
	require.NotNil(t, first.HateModifierRT)
	assert.Equal(t, 1, first.FactCount)
	assert.Equal(t, 1, first.NegativeCount)
	assert.Equal(t, participants, r.Integration[participants-1].FactCount)

	names := make([]string, 0, len(r.Correlations))
	for _, c := range r.Correlations {
		names = append(names, c.Name)
		assert.Equal(t, participants, c.N)
		assert.True(t, c.R >= -1 && c.R <= 1, "r out of range: %v", c.R)
	}
	assert.Equal(t, []string{
		"distortion_x_fact_count",
		"distortion_x_extended_negative_count",
		"hate_bias_x_fact_count",
		"distortion_x_fact_density",
		"hate_modifier_rt_x_fact_count",
		"hate_modifier_rt_x_negative_count",
	}, names)

	// Every participant discriminates neutral items by exactly one point
	var skipped bool
	for _, s := range r.Signals {
		if s.Data["statistic"] == "neutral_plausibility_effect_x_fact_count" {
			skipped = true
			assert.Equal(t, model.SeverityInfo, s.Severity)
		}
	}
	assert.True(t, skipped, "constant measure should be skipped")
}

func TestPipeline_CacheHit(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil, WithRenderer(NewRenderer(nil)))
	require.NoError(t, err)
	path := writeDataset(t)

	first, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Report.Exclusion, second.Report.Exclusion)
}

func TestPipeline_Analyze(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Verbose = true

	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	var out bytes.Buffer
	p, err := NewPipeline(cfg, nil, WithStore(st), WithRenderer(NewRenderer(&out)))
	require.NoError(t, err)

	report, err := p.Analyze(context.Background(), writeDataset(t))
	require.NoError(t, err)

	for _, name := range []string{
		"report.json", "summary.md", "observations.csv", "descriptives.csv", "tests.csv",
		"effects.csv", "models.csv", "region_effects.csv", "sensitivity.csv", "power.csv",
		"recall.csv", "integration.csv", "correlations.csv", "word_ratings.csv",
	} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "report.json"))
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)

	md, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Region effects")

	assert.Contains(t, out.String(), "✓ Wrote JSON")
	assert.Contains(t, out.String(), "Participants:  6")

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
}

func TestPipeline_InvalidDataset(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bad.csv")
	csv := "Participant_ID,Trial_Index,Item_ID,Is_Filler,Sentence_Text,Regions,Region_RTs,Emotion,Plausibility\n" +
		"P01,1,i1,False,text,\"[a, b, c, d]\",\"[300, 300, 300, -5]\",H,P\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	_, err = p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
}

func TestPipeline_Cancelled(t *testing.T) {
	p, err := NewPipeline(testConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, writeDataset(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPipeline_BadOutlierMethod(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exclusion.OutlierMethod = "mad"
	_, err := NewPipeline(cfg, nil)
	assert.Error(t, err)
}

func TestOutputDir(t *testing.T) {
	cfg := testConfig(t)
	flat, err := NewPipeline(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Output.Dir, flat.OutputDir("/data/wave1.xlsx"))

	nested, err := NewPipeline(cfg, nil, WithDatasetSubdirs())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "wave1"), nested.OutputDir("/data/wave1.xlsx"))
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "wave2"), nested.OutputDir("https://lab.example/exports/wave2.csv"))
}

func TestOutputDir_SameFileName(t *testing.T) {
	cfg := testConfig(t)
	locations := []string{"/lab/a/results.xlsx", "/lab/b/results.xlsx", "/lab/c/wave3.xlsx"}
	p, err := NewPipeline(cfg, nil, WithDatasetSubdirs(locations...))
	require.NoError(t, err)

	a, b := p.OutputDir(locations[0]), p.OutputDir(locations[1])
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(filepath.Base(a), "results-"), a)
	assert.True(t, strings.HasPrefix(filepath.Base(b), "results-"), b)
	assert.Equal(t, a, p.OutputDir(locations[0]), "names are stable")
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "wave3"), p.OutputDir(locations[2]))
}

func TestMarkdown_FallbackModel(t *testing.T) {
	r := &model.Report{
		Source: "x.xlsx",
		Models: []model.ModelResult{{
			Name:    "h1_modifier",
			Formula: "RT ~ Emotion + (1|participant)",
			Note:    "not converged",
			Fallback: []model.TestResult{
				{Name: "h1_modifier_fallback_Emotion", Statistic: 2.5, DF: 10, PValue: 0.0314, Note: "Emotion N vs H"},
			},
		}},
	}
	md := Markdown(r)
	assert.True(t, strings.Contains(md, "Model failed (not converged)"))
	assert.Contains(t, md, "- Emotion N vs H: t(10) = 2.500, p = 0.031")
}
