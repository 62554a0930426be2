package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/sprstat/internal/model"
)

func trialsWithTotals(totals ...float64) []model.Trial {
	out := make([]model.Trial, len(totals))
	for i, rt := range totals {
		out[i] = model.Trial{ParticipantID: "P01", TrialIndex: i + 1, TotalRT: rt}
	}
	return out
}

func TestRemovePractice(t *testing.T) {
	trials := []model.Trial{
		{TrialIndex: 1, SentenceText: "연습 문장입니다"},
		{TrialIndex: 2, SentenceText: "탈렌족은 미개한 민족으로"},
		{TrialIndex: 3, SentenceText: "이것은 연습입니다"},
	}

	kept, removed := RemovePractice(trials, "연습")
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if len(kept) != 1 || kept[0].TrialIndex != 2 {
		t.Errorf("expected only trial 2 kept, got %+v", kept)
	}

	kept, removed = RemovePractice(trials, "")
	if removed != 0 || len(kept) != 3 {
		t.Errorf("empty marker should keep everything, got %d kept, %d removed", len(kept), removed)
	}
}

func TestRemoveFillers(t *testing.T) {
	trials := []model.Trial{
		{TrialIndex: 1, IsFiller: true},
		{TrialIndex: 2},
		{TrialIndex: 3},
	}

	kept, removed := RemoveFillers(trials)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if len(kept) != 2 || kept[0].TrialIndex != 2 || kept[1].TrialIndex != 3 {
		t.Errorf("unexpected kept trials %+v", kept)
	}
	if !trials[0].IsFiller {
		t.Error("input slice was modified")
	}
}

func TestTrialOutlierRemover_IQR(t *testing.T) {
	r, err := NewTrialOutlierRemover(MethodIQR, 1.5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Q1 22.5, Q3 51.25 by linear interpolation
	res := r.Remove(trialsWithTotals(10, 20, 30, 40, 55, 56))

	if res.Q1 != 22.5 || res.Q3 != 51.25 {
		t.Errorf("expected quartiles 22.5, 51.25, got %v, %v", res.Q1, res.Q3)
	}
	iqr := res.Q3 - res.Q1
	if res.Lower != res.Q1-1.5*iqr || res.Upper != res.Q3+1.5*iqr {
		t.Errorf("unexpected bounds [%v, %v]", res.Lower, res.Upper)
	}
	if res.Removed != 0 {
		t.Errorf("expected nothing removed, got %d", res.Removed)
	}

	res = r.Remove(trialsWithTotals(500, 510, 520, 530, 540, 5000))
	if res.Removed != 1 {
		t.Errorf("expected 1 removed, got %d", res.Removed)
	}
	for _, tr := range res.Kept {
		if tr.TotalRT == 5000 {
			t.Error("expected 5000ms trial to be removed")
		}
	}
}

func TestTrialOutlierRemover_KeepsEverythingInsideBounds(t *testing.T) {
	r, _ := NewTrialOutlierRemover(MethodIQR, 2.5, nil)
	trials := trialsWithTotals(800, 1200, 950, 20000, 1100, 10, 1000, 1050)

	res := r.Remove(trials)
	if len(res.Kept)+res.Removed != len(trials) {
		t.Fatalf("kept %d + removed %d != %d", len(res.Kept), res.Removed, len(trials))
	}
	kept := make(map[int]bool)
	for _, tr := range res.Kept {
		kept[tr.TrialIndex] = true
	}
	for _, tr := range trials {
		inside := tr.TotalRT >= res.Lower && tr.TotalRT <= res.Upper
		if inside != kept[tr.TrialIndex] {
			t.Errorf("trial %d (%.0fms): inside=%v kept=%v", tr.TrialIndex, tr.TotalRT, inside, kept[tr.TrialIndex])
		}
	}
}

func TestTrialOutlierRemover_SD(t *testing.T) {
	r, err := NewTrialOutlierRemover("SD", 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// mean 5, population SD 2 -> bounds [3, 7]
	res := r.Remove(trialsWithTotals(2, 4, 4, 4, 5, 5, 7, 9))
	if res.Lower != 3 || res.Upper != 7 {
		t.Errorf("expected bounds [3, 7], got [%v, %v]", res.Lower, res.Upper)
	}
	if res.Removed != 2 {
		t.Errorf("expected 2 removed, got %d", res.Removed)
	}
}

func TestTrialOutlierRemover_Empty(t *testing.T) {
	r, _ := NewTrialOutlierRemover(MethodIQR, 2.5, nil)
	res := r.Remove(nil)
	if len(res.Kept) != 0 || res.Removed != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestNewTrialOutlierRemover_Invalid(t *testing.T) {
	if _, err := NewTrialOutlierRemover("mad", 2.5, nil); err == nil {
		t.Error("expected error for unknown method")
	}
	if _, err := NewTrialOutlierRemover(MethodIQR, 0, nil); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestFilterValues(t *testing.T) {
	got := FilterValues([]float64{150, 300, 1700, 500}, model.Band{Lower: 200, Upper: 1600})
	if diff := cmp.Diff([]float64{300, 500}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Bounds are inclusive
	got = FilterValues([]float64{200, 1600, 199.9, 1600.1}, model.Band{Lower: 200, Upper: 1600})
	if diff := cmp.Diff([]float64{200, 1600}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterObservations(t *testing.T) {
	obs := []model.RegionObservation{
		{Type: model.RegionSubject, RT: 150},
		{Type: model.RegionModifier, RT: 650},
		{Type: model.RegionSpillover, RT: 3200},
	}

	kept, removed := FilterObservations(obs, model.Band{Lower: 200, Upper: 3000})
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if len(kept) != 1 || kept[0].Type != model.RegionModifier {
		t.Errorf("unexpected kept observations %+v", kept)
	}
}
