package stats

import (
	"errors"
	"math"
	"testing"
)

// balancedDesign builds 4 participants x 2 emotions x 2 repetitions with
// per-participant offsets and noise that cancels within each cell.
func balancedDesign() MixedDesign {
	offsets := map[string]float64{"p1": 0, "p2": 40, "p3": -25, "p4": 10}
	noise := []float64{6, -6}

	var d MixedDesign
	d.Name = "modifier"
	d.Response = "RT"
	emotion := Factor{Name: "Emotion", Reference: "H", Level: "N"}

	for _, p := range []string{"p1", "p2", "p3", "p4"} {
		for rep, e := range noise {
			// Alternate sign per participant so residuals are not collinear with groups
			if p == "p2" || p == "p4" {
				e = noise[1-rep]
			}
			d.Y = append(d.Y, 500+offsets[p]+e)
			d.Groups = append(d.Groups, p)
			emotion.Values = append(emotion.Values, "H")

			d.Y = append(d.Y, 470+offsets[p]-e*0.5)
			d.Groups = append(d.Groups, p)
			emotion.Values = append(emotion.Values, "N")
		}
	}
	d.Factors = []Factor{emotion}
	return d
}

func TestFitMixedModel_BalancedRecoversCellDifference(t *testing.T) {
	res, err := FitMixedModel(balancedDesign())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Converged {
		t.Error("expected converged fit")
	}
	if res.NObs != 16 || res.NGroups != 4 {
		t.Errorf("expected 16 obs in 4 groups, got %d in %d", res.NObs, res.NGroups)
	}
	if len(res.Coefficients) != 2 {
		t.Fatalf("expected 2 coefficients, got %d", len(res.Coefficients))
	}

	intercept := res.Coefficients[0]
	emotion := res.Coefficients[1]

	if intercept.Term != "Intercept" || emotion.Term != "Emotion[T.N]" {
		t.Errorf("unexpected terms %q, %q", intercept.Term, emotion.Term)
	}
	// Mean H = 500 + mean(offsets) = 506.25
	if math.Abs(intercept.Estimate-506.25) > 1e-6 {
		t.Errorf("expected intercept 506.25, got %v", intercept.Estimate)
	}
	if math.Abs(emotion.Estimate+30) > 1e-6 {
		t.Errorf("expected Emotion[T.N] = -30, got %v", emotion.Estimate)
	}
	if emotion.PValue >= 0.05 {
		t.Errorf("expected significant emotion effect, got p=%v", emotion.PValue)
	}
	if res.GroupVariance <= 0 {
		t.Errorf("expected positive participant variance, got %v", res.GroupVariance)
	}
	if res.Formula != "RT ~ Emotion + (1|participant)" {
		t.Errorf("unexpected formula %q", res.Formula)
	}
}

func TestFitMixedModel_Interaction(t *testing.T) {
	d := balancedDesign()
	plaus := Factor{Name: "Plausibility", Reference: "I", Level: "P"}
	for i := range d.Y {
		if (i/2)%2 == 0 {
			plaus.Values = append(plaus.Values, "P")
		} else {
			plaus.Values = append(plaus.Values, "I")
		}
	}
	d.Factors = append(d.Factors, plaus)
	d.Interaction = true

	res, err := FitMixedModel(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Intercept", "Emotion[T.N]", "Plausibility[T.P]", "Emotion[T.N]:Plausibility[T.P]"}
	if len(res.Coefficients) != len(want) {
		t.Fatalf("expected %d coefficients, got %d", len(want), len(res.Coefficients))
	}
	for i, term := range want {
		if res.Coefficients[i].Term != term {
			t.Errorf("coefficient %d: expected %s, got %s", i, term, res.Coefficients[i].Term)
		}
	}
	if res.Formula != "RT ~ Emotion * Plausibility + (1|participant)" {
		t.Errorf("unexpected formula %q", res.Formula)
	}
}

func TestFitMixedModel_SingleParticipant(t *testing.T) {
	d := MixedDesign{
		Response: "RT",
		Y:        []float64{1, 2, 3, 4, 5},
		Groups:   []string{"p1", "p1", "p1", "p1", "p1"},
		Factors:  []Factor{{Name: "Emotion", Reference: "H", Level: "N", Values: []string{"H", "N", "H", "N", "H"}}},
	}

	if _, err := FitMixedModel(d); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestFitMixedModel_SingularDesign(t *testing.T) {
	d := balancedDesign()
	for i := range d.Factors[0].Values {
		d.Factors[0].Values[i] = "H"
	}

	if _, err := FitMixedModel(d); !errors.Is(err, ErrSingularDesign) {
		t.Errorf("expected ErrSingularDesign, got %v", err)
	}
}

func TestFitMixedModel_UnknownLevel(t *testing.T) {
	d := balancedDesign()
	d.Factors[0].Values[3] = "X"

	if _, err := FitMixedModel(d); err == nil {
		t.Error("expected error for unknown factor level")
	}
}
