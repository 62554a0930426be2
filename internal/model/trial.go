package model

import (
	"fmt"
	"strings"
)

// Emotion is the modifier condition of an experimental item
type Emotion string

const (
	EmotionHate    Emotion = "H" // Derogatory modifier
	EmotionNeutral Emotion = "N" // Neutral modifier
)

// ParseEmotion accepts the sheet codes and their long forms
func ParseEmotion(s string) (Emotion, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H", "HATE":
		return EmotionHate, nil
	case "N", "NEUTRAL":
		return EmotionNeutral, nil
	}
	return "", fmt.Errorf("invalid emotion %q (want H or N)", s)
}

func (e Emotion) String() string {
	switch e {
	case EmotionHate:
		return "hate"
	case EmotionNeutral:
		return "neutral"
	default:
		return string(e)
	}
}

// Plausibility is the continuation condition of an experimental item
type Plausibility string

const (
	PlausibilityPlausible   Plausibility = "P"
	PlausibilityImplausible Plausibility = "I"
)

// ParsePlausibility accepts the sheet codes and their long forms
func ParsePlausibility(s string) (Plausibility, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PLAUSIBLE":
		return PlausibilityPlausible, nil
	case "I", "IMPLAUSIBLE":
		return PlausibilityImplausible, nil
	}
	return "", fmt.Errorf("invalid plausibility %q (want P or I)", s)
}

func (p Plausibility) String() string {
	switch p {
	case PlausibilityPlausible:
		return "plausible"
	case PlausibilityImplausible:
		return "implausible"
	default:
		return string(p)
	}
}

// Trial is one sentence-reading event from the SPR sheet.
// Stages receive trials by value and never modify the region slices.
type Trial struct {
	ParticipantID string       `json:"participant_id"`
	ListID        string       `json:"list_id"`
	TrialIndex    int          `json:"trial_index"`
	ItemID        string       `json:"item_id"`
	Base          string       `json:"base"`
	Version       string       `json:"version,omitempty"`
	Emotion       Emotion      `json:"emotion,omitempty"`
	Plausibility  Plausibility `json:"plausibility,omitempty"`
	IsFiller      bool         `json:"is_filler"`
	SentenceText  string       `json:"sentence_text"`
	Regions       []string     `json:"regions"`
	RegionRTs     []float64    `json:"region_rts"`
	TotalRT       float64      `json:"total_rt"`
}

// Ref returns the identifying fields carried by derived observations
func (t Trial) Ref() TrialRef {
	return TrialRef{
		ParticipantID: t.ParticipantID,
		ListID:        t.ListID,
		TrialIndex:    t.TrialIndex,
		ItemID:        t.ItemID,
		Base:          t.Base,
		Version:       t.Version,
		Emotion:       t.Emotion,
		Plausibility:  t.Plausibility,
	}
}

// TrialRef identifies the trial an observation was derived from
type TrialRef struct {
	ParticipantID string       `json:"participant_id"`
	ListID        string       `json:"list_id"`
	TrialIndex    int          `json:"trial_index"`
	ItemID        string       `json:"item_id"`
	Base          string       `json:"base"`
	Version       string       `json:"version,omitempty"`
	Emotion       Emotion      `json:"emotion"`
	Plausibility  Plausibility `json:"plausibility"`
}

// Band is a closed reading-time interval in milliseconds
type Band struct {
	Lower float64 `json:"lower" yaml:"lower" mapstructure:"lower"`
	Upper float64 `json:"upper" yaml:"upper" mapstructure:"upper"`
}

// Contains reports whether rt lies inside the band, bounds included
func (b Band) Contains(rt float64) bool {
	return rt >= b.Lower && rt <= b.Upper
}

func (b Band) String() string {
	return fmt.Sprintf("%g-%gms", b.Lower, b.Upper)
}
