package model

import "time"

// Report is the complete output of one analysis run
type Report struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`     // Dataset path that was analysed
	CreatedAt time.Time `json:"created_at"` // When the run finished

	Exclusion    ExclusionSummary `json:"exclusion"`
	Participants int              `json:"participants"`

	Descriptives   []GroupSummary   `json:"descriptives"`
	Tests          []TestResult     `json:"tests"`
	EffectSizes    []EffectSize     `json:"effect_sizes"`
	Models         []ModelResult    `json:"models"`
	RegionEffects  []RegionEffect   `json:"region_effects"`
	Sensitivity    []SensitivityRow `json:"sensitivity"`
	Power          []PowerRow       `json:"power"`
	WordRatings    []WordRating     `json:"word_ratings,omitempty"`
	Recall         []RecallScore    `json:"recall,omitempty"`
	RatingContrast *float64         `json:"rating_interaction_contrast,omitempty"` // (HP-HI)-(NP-NI)

	Integration  []ParticipantProfile `json:"integration,omitempty"`
	Correlations []Correlation        `json:"correlations,omitempty"` // Exploratory, across participants

	Signals    []Signal `json:"signals"`
	Confidence string   `json:"confidence"` // high, medium or low from signal severities
}

// ExclusionSummary records how many records each cleaning stage removed
type ExclusionSummary struct {
	TrialsLoaded     int     `json:"trials_loaded"`
	PracticeRemoved  int     `json:"practice_removed"`
	FillersRemoved   int     `json:"fillers_removed"`
	OutlierCriterion string  `json:"outlier_criterion"`
	OutlierLower     float64 `json:"outlier_lower"`
	OutlierUpper     float64 `json:"outlier_upper"`
	OutliersRemoved  int     `json:"outliers_removed"`
	TrialsKept       int     `json:"trials_kept"`
	ShortTrials      int     `json:"short_trials_skipped"` // Fewer regions than the parser needs
	FactsOmitted     int     `json:"facts_omitted"`        // No fact word inside the word band
	Observations     int     `json:"observations"`
	WordBand         Band    `json:"word_band"`
	WordLevelRemoved int     `json:"word_level_removed"`
	RatingsMissing   int     `json:"ratings_missing"`
}

// GroupSummary holds descriptive statistics for one cell of the design
type GroupSummary struct {
	Measure      string  `json:"measure"` // e.g. "modifier_rt", "rating"
	Emotion      string  `json:"emotion,omitempty"`
	Plausibility string  `json:"plausibility,omitempty"`
	N            int     `json:"n"`
	Mean         float64 `json:"mean"`
	SD           float64 `json:"sd"`
	SEM          float64 `json:"sem"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

// TestKind names the hypothesis test that produced a result
type TestKind string

const (
	TestPaired      TestKind = "paired_t"
	TestIndependent TestKind = "independent_t"
)

// TestResult is a t-test outcome
type TestResult struct {
	Name      string   `json:"name"`
	Kind      TestKind `json:"kind"`
	Statistic float64  `json:"t"`
	DF        float64  `json:"df"`
	PValue    float64  `json:"p"`
	MeanDiff  float64  `json:"mean_diff"` // mean(a) - mean(b)
	N1        int      `json:"n1"`
	N2        int      `json:"n2"`
	Note      string   `json:"note,omitempty"`
}

// EffectKind names the Cohen's d variant
type EffectKind string

const (
	EffectPooled EffectKind = "pooled"
	EffectWithin EffectKind = "within"
)

// EffectSize is a Cohen's d estimate with an optional bootstrap interval
type EffectSize struct {
	Name       string     `json:"name"`
	Kind       EffectKind `json:"kind"`
	D          float64    `json:"d"`
	CILower    *float64   `json:"ci_lower,omitempty"`
	CIUpper    *float64   `json:"ci_upper,omitempty"`
	Iterations int        `json:"bootstrap_iterations,omitempty"`
	Magnitude  string     `json:"magnitude"`
	Note       string     `json:"note,omitempty"`
}

// Coefficient is one fixed effect of a mixed model
type Coefficient struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	SE       float64 `json:"se"`
	Z        float64 `json:"z"`
	PValue   float64 `json:"p"`
}

// ModelResult is a mixed-effects fit, or the t-tests that replaced it
type ModelResult struct {
	Name             string        `json:"name"`
	Formula          string        `json:"formula"`
	Converged        bool          `json:"converged"`
	Coefficients     []Coefficient `json:"coefficients,omitempty"`
	GroupVariance    float64       `json:"group_variance,omitempty"`
	ResidualVariance float64       `json:"residual_variance,omitempty"`
	LogLikelihood    float64       `json:"log_likelihood,omitempty"`
	NObs             int           `json:"n_obs"`
	NGroups          int           `json:"n_groups"`
	Fallback         []TestResult  `json:"fallback,omitempty"`
	Note             string        `json:"note,omitempty"`
}

// RegionEffect compares hate and neutral reading times in one region
type RegionEffect struct {
	Region      RegionType `json:"region"`
	HateMean    float64    `json:"hate_mean"`
	HateSD      float64    `json:"hate_sd"`
	NeutralMean float64    `json:"neutral_mean"`
	NeutralSD   float64    `json:"neutral_sd"`
	DiffMS      float64    `json:"diff_ms"`
	DiffPct     float64    `json:"diff_pct"`
	Effect      EffectSize `json:"effect"`
	Test        TestResult `json:"test"`
}

// SensitivityRow reports the modifier comparison under one exclusion band
type SensitivityRow struct {
	Criterion    string  `json:"criterion"`
	Band         Band    `json:"band"`
	Excluded     int     `json:"excluded"`
	PctExcluded  float64 `json:"pct_excluded"`
	Retained     int     `json:"retained"`
	MeanHate     float64 `json:"mean_hate"`
	MeanNeutral  float64 `json:"mean_neutral"`
	Difference   float64 `json:"difference"`
	T            float64 `json:"t"`  // Paired, over participant means
	DF           float64 `json:"df"`
	PValue       float64 `json:"p"`
	D            float64 `json:"d"` // Within-subject
	NHate        int     `json:"n_hate"`
	NNeutral     int     `json:"n_neutral"`
	Participants int     `json:"n_participants"`
}

// PowerObserved labels the power row computed from the observed modifier effect
const PowerObserved = "observed"

// PowerRow is a required sample size for one effect size
type PowerRow struct {
	Label    string  `json:"label"`
	D        float64 `json:"d"`
	NBetween int     `json:"n_between"`
	NWithin  int     `json:"n_within"`
}

// WordRating summarises manipulation-check ratings for one modifier word
type WordRating struct {
	Modifier string           `json:"modifier"`
	Category ModifierCategory `json:"category"`
	Mean     float64          `json:"mean"`
	SD       float64          `json:"sd"`
	N        int              `json:"n"`
}

// ParticipantProfile links one participant's rating pattern and modifier
// reading time to the coding of their recall. Rating and RT measures are
// nil when the participant lacks the cells they need.
type ParticipantProfile struct {
	ParticipantID         string   `json:"participant_id"`
	HatePlausibility      *float64 `json:"hate_plausibility_effect,omitempty"`    // HP - HI rating
	NeutralPlausibility   *float64 `json:"neutral_plausibility_effect,omitempty"` // NP - NI rating
	Distortion            *float64 `json:"distortion,omitempty"`                  // Hate minus neutral plausibility effect
	HateMeanRating        *float64 `json:"hate_mean_rating,omitempty"`
	NeutralMeanRating     *float64 `json:"neutral_mean_rating,omitempty"`
	HateBias              *float64 `json:"hate_bias,omitempty"` // Hate minus neutral mean rating
	HateModifierRT        *float64 `json:"hate_modifier_rt,omitempty"`
	FactCount             int      `json:"fact_count"`
	FactDensity           float64  `json:"fact_density"`
	NegativeCount         int      `json:"negative_count"`
	ExtendedNegativeCount int      `json:"extended_negative_count"`
	FalseInfoCount        int      `json:"false_info_count"`
	TextLength            int      `json:"text_length"`
}

// Correlation is a Pearson correlation between two participant measures
type Correlation struct {
	Name   string  `json:"name"`
	X      string  `json:"x"`
	Y      string  `json:"y"`
	N      int     `json:"n"`
	R      float64 `json:"r"`
	PValue float64 `json:"p"`
}

// Signal represents a diagnostic finding with transparent supporting data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSignificance    SignalType = "significance"     // Test outcome against alpha
	SignalEffectMagnitude SignalType = "effect_magnitude" // Conventional d labels
	SignalRobustness      SignalType = "robustness"       // Exclusion-band sensitivity
	SignalPower           SignalType = "power"            // Current N vs required N
	SignalExclusion       SignalType = "exclusion"        // Share of data removed
	SignalModelFallback   SignalType = "model_fallback"   // Mixed model replaced by t-tests
	SignalDegenerate      SignalType = "degenerate"       // Zero variance or too few observations
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
