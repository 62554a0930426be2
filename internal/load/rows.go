package load

import (
	"strings"

	"github.com/ppiankov/sprstat/internal/model"
)

// Sheet names of the experiment export
const (
	SheetSPR          = "SPR_Data"
	SheetRating       = "Rating_Data"
	SheetRecall       = "Recall_Data"
	SheetManipulation = "Manipulation_Check"
)

// Column headers
const (
	colParticipant  = "Participant_ID"
	colList         = "List_ID"
	colTrialIndex   = "Trial_Index"
	colItem         = "Item_ID"
	colBase         = "Base"
	colEmotion      = "Emotion"
	colPlausibility = "Plausibility"
	colVersion      = "Version"
	colFiller       = "Is_Filler"
	colSentence     = "Sentence_Text"
	colTotalRT      = "Total_Reading_Time_ms"
	colRegions      = "Regions"
	colRegionRTs    = "Region_RTs"
	colStimulus     = "Stimulus_Text"
	colRating       = "Rating"
	colRT           = "RT_ms"
	colRecall       = "Recall_Text"
	colModifier     = "Modifier_Text"
	colCategory     = "Modifier_Category"
	colNegativity   = "Negativity_Rating"
)

var (
	sprColumns = []string{
		colParticipant, colTrialIndex, colItem, colFiller,
		colSentence, colRegions, colRegionRTs, colEmotion, colPlausibility,
	}
	ratingColumns       = []string{colParticipant, colItem, colEmotion, colPlausibility, colRating}
	recallColumns       = []string{colParticipant, colRecall}
	manipulationColumns = []string{colParticipant, colModifier, colCategory, colNegativity}
)

func parseTrials(t *table) ([]model.Trial, error) {
	recs := t.records()
	trials := make([]model.Trial, 0, len(recs))
	for _, r := range recs {
		trial, err := trialFromRecord(r)
		if err != nil {
			return nil, err
		}
		trials = append(trials, trial)
	}
	return trials, nil
}

func trialFromRecord(r record) (model.Trial, error) {
	idx, err := r.integer(colTrialIndex)
	if err != nil {
		return model.Trial{}, err
	}
	filler, err := r.boolean(colFiller)
	if err != nil {
		return model.Trial{}, err
	}

	trial := model.Trial{
		ParticipantID: r.str(colParticipant),
		ListID:        r.str(colList),
		TrialIndex:    idx,
		ItemID:        r.str(colItem),
		Base:          r.str(colBase),
		Version:       r.str(colVersion),
		IsFiller:      filler,
		SentenceText:  r.str(colSentence),
	}
	if trial.ParticipantID == "" {
		return model.Trial{}, r.errorf(colParticipant, "empty value")
	}

	// Fillers carry no condition codes
	emotion, err := model.ParseEmotion(r.str(colEmotion))
	if err != nil && !filler {
		return model.Trial{}, r.errorf(colEmotion, "%v", err)
	}
	plaus, err := model.ParsePlausibility(r.str(colPlausibility))
	if err != nil && !filler {
		return model.Trial{}, r.errorf(colPlausibility, "%v", err)
	}
	trial.Emotion, trial.Plausibility = emotion, plaus

	if trial.Regions, err = ParseStrings(r.str(colRegions)); err != nil {
		return model.Trial{}, r.errorf(colRegions, "%v", err)
	}
	if trial.RegionRTs, err = ParseNumbers(r.str(colRegionRTs)); err != nil {
		return model.Trial{}, r.errorf(colRegionRTs, "%v", err)
	}
	if len(trial.Regions) != len(trial.RegionRTs) {
		return model.Trial{}, r.errorf(colRegionRTs, "%d reading times for %d regions", len(trial.RegionRTs), len(trial.Regions))
	}

	total, err := r.optFloat(colTotalRT)
	if err != nil {
		return model.Trial{}, err
	}
	if total != nil {
		trial.TotalRT = *total
	} else {
		for _, rt := range trial.RegionRTs {
			trial.TotalRT += rt
		}
	}

	return trial, nil
}

func parseRatings(t *table) ([]model.RatingObservation, error) {
	recs := t.records()
	out := make([]model.RatingObservation, 0, len(recs))
	for _, r := range recs {
		emotion, err := model.ParseEmotion(r.str(colEmotion))
		if err != nil {
			return nil, r.errorf(colEmotion, "%v", err)
		}
		plaus, err := model.ParsePlausibility(r.str(colPlausibility))
		if err != nil {
			return nil, r.errorf(colPlausibility, "%v", err)
		}
		rating, err := r.optFloat(colRating)
		if err != nil {
			return nil, err
		}
		rt, err := r.optFloat(colRT)
		if err != nil {
			return nil, err
		}

		obs := model.RatingObservation{
			ParticipantID: r.str(colParticipant),
			ListID:        r.str(colList),
			ItemID:        r.str(colItem),
			Base:          r.str(colBase),
			Emotion:       emotion,
			Plausibility:  plaus,
			StimulusText:  r.str(colStimulus),
			Rating:        rating,
		}
		if rt != nil {
			obs.RT = *rt
		}
		out = append(out, obs)
	}
	return out, nil
}

func parseManipulationChecks(t *table) ([]model.ManipulationCheck, error) {
	recs := t.records()
	out := make([]model.ManipulationCheck, 0, len(recs))
	for _, r := range recs {
		var category model.ModifierCategory
		switch strings.ToLower(r.str(colCategory)) {
		case "hate", "h":
			category = model.CategoryHate
		case "neutral", "n":
			category = model.CategoryNeutral
		default:
			return nil, r.errorf(colCategory, "invalid category %q (want hate or neutral)", r.str(colCategory))
		}
		rating, err := r.float(colNegativity)
		if err != nil {
			return nil, err
		}
		rt, err := r.optFloat(colRT)
		if err != nil {
			return nil, err
		}

		check := model.ManipulationCheck{
			ParticipantID:    r.str(colParticipant),
			ListID:           r.str(colList),
			ModifierText:     r.str(colModifier),
			Category:         category,
			NegativityRating: rating,
		}
		if rt != nil {
			check.RT = *rt
		}
		out = append(out, check)
	}
	return out, nil
}

func parseRecalls(t *table) []model.RecallResponse {
	recs := t.records()
	out := make([]model.RecallResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.RecallResponse{
			ParticipantID: r.str(colParticipant),
			ListID:        r.str(colList),
			Text:          r.str(colRecall),
		})
	}
	return out
}
