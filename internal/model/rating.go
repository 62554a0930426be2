package model

// RatingObservation is a plausibility judgement (1-4) for a tested item.
// Rating is nil when the participant gave no answer.
type RatingObservation struct {
	ParticipantID string       `json:"participant_id"`
	ListID        string       `json:"list_id"`
	ItemID        string       `json:"item_id"`
	Base          string       `json:"base"`
	Emotion       Emotion      `json:"emotion"`
	Plausibility  Plausibility `json:"plausibility"`
	StimulusText  string       `json:"stimulus_text,omitempty"`
	Rating        *float64     `json:"rating,omitempty"`
	RT            float64      `json:"rt_ms,omitempty"`
}

// ModifierCategory is the manipulation-check word category
type ModifierCategory string

const (
	CategoryHate    ModifierCategory = "hate"
	CategoryNeutral ModifierCategory = "neutral"
)

// ManipulationCheck is a negativity rating (1-4) for a modifier word
type ManipulationCheck struct {
	ParticipantID    string           `json:"participant_id"`
	ListID           string           `json:"list_id"`
	ModifierText     string           `json:"modifier_text"`
	Category         ModifierCategory `json:"modifier_category"`
	NegativityRating float64          `json:"negativity_rating"`
	RT               float64          `json:"rt_ms,omitempty"`
}
