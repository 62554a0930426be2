package model

// RecallResponse is one participant's free-text recall of the background passage
type RecallResponse struct {
	ParticipantID string `json:"participant_id"`
	ListID        string `json:"list_id"`
	Text          string `json:"text"`
}

// RecallScore is the lexicon-based coding of a recall response
type RecallScore struct {
	ParticipantID  string   `json:"participant_id"`
	TextLength     int      `json:"text_length"`
	SentenceCount  int      `json:"sentence_count"`
	FactCount      int      `json:"fact_count"`
	FactRatio      float64  `json:"fact_ratio"`
	FactDensity    float64  `json:"fact_density"`    // Facts per 10 characters
	Facts          []string `json:"facts,omitempty"` // Which background facts were mentioned
	NegativeCount  int      `json:"negative_count"`
	NeutralCount   int      `json:"neutral_count"`
	SentimentScore int      `json:"sentiment_score"` // neutral - negative; negative values lean derogatory

	// Extended coding: occurrences over the base plus extended negative
	// lexicon, split by category, and implausible content carried into recall
	ExtendedNegativeCount int      `json:"extended_negative_count"`
	NegativeDirect        int      `json:"negative_direct"`
	NegativeIndirect      int      `json:"negative_indirect"`
	NegativeDerogatory    int      `json:"negative_derogatory"`
	FalseInfoCount        int      `json:"false_info_count"`
	FalseInfo             []string `json:"false_info,omitempty"`
}
