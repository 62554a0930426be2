// Package validate checks loaded datasets against the experiment's invariants
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/sprstat/internal/model"
)

// ErrInvalidDataset is returned when validation finds error-level issues
var ErrInvalidDataset = errors.New("invalid dataset")

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"   // Analysis cannot proceed
	SeverityWarning Severity = "warning" // Suspicious but usable
)

// Issue is one violated invariant
type Issue struct {
	Severity    Severity
	Table       string
	Participant string
	Index       int // Trial index, or row position for other tables
	Message     string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s participant %s #%d: %s", i.Severity, i.Table, i.Participant, i.Index, i.Message)
}

// Result collects every issue found in a dataset
type Result struct {
	Issues []Issue
}

// Errors returns the error-level issues
func (r Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns the warning-level issues
func (r Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// Err summarises error-level issues, or returns nil when there are none
func (r Result) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, 0, min(len(errs), 5))
	for _, i := range errs[:min(len(errs), 5)] {
		lines = append(lines, i.String())
	}
	more := ""
	if len(errs) > 5 {
		more = fmt.Sprintf(" (and %d more)", len(errs)-5)
	}
	return fmt.Errorf("%w: %d issues%s: %s", ErrInvalidDataset, len(errs), more, strings.Join(lines, "; "))
}

// Validator checks dataset invariants
type Validator struct {
	minRating float64
	maxRating float64
}

// NewValidator creates a validator for 1-4 rating scales
func NewValidator() *Validator {
	return &Validator{minRating: 1, maxRating: 4}
}

// Validate checks every table. Trials must carry valid conditions, positive
// reading times and matching region/RT counts; ratings must lie on the scale.
func (v *Validator) Validate(ds *model.Dataset) Result {
	var res Result
	add := func(sev Severity, table, participant string, idx int, format string, args ...interface{}) {
		res.Issues = append(res.Issues, Issue{
			Severity:    sev,
			Table:       table,
			Participant: participant,
			Index:       idx,
			Message:     fmt.Sprintf(format, args...),
		})
	}

	type trialKey struct {
		participant string
		index       int
	}
	seen := make(map[trialKey]bool)
	participants := make(map[string]bool)

	for _, t := range ds.Trials {
		participants[t.ParticipantID] = true

		key := trialKey{t.ParticipantID, t.TrialIndex}
		if seen[key] {
			add(SeverityWarning, "trials", t.ParticipantID, t.TrialIndex, "duplicate trial index")
		}
		seen[key] = true

		if len(t.Regions) != len(t.RegionRTs) {
			add(SeverityError, "trials", t.ParticipantID, t.TrialIndex, "%d regions but %d reading times", len(t.Regions), len(t.RegionRTs))
		}
		if t.IsFiller {
			continue
		}

		if t.Emotion != model.EmotionHate && t.Emotion != model.EmotionNeutral {
			add(SeverityError, "trials", t.ParticipantID, t.TrialIndex, "invalid emotion %q", t.Emotion)
		}
		if t.Plausibility != model.PlausibilityPlausible && t.Plausibility != model.PlausibilityImplausible {
			add(SeverityError, "trials", t.ParticipantID, t.TrialIndex, "invalid plausibility %q", t.Plausibility)
		}
		if !(t.TotalRT > 0) || math.IsInf(t.TotalRT, 0) {
			add(SeverityError, "trials", t.ParticipantID, t.TrialIndex, "non-positive total reading time %v", t.TotalRT)
		}
		for j, rt := range t.RegionRTs {
			if !(rt > 0) || math.IsInf(rt, 0) {
				add(SeverityError, "trials", t.ParticipantID, t.TrialIndex, "non-positive reading time %v in region %d", rt, j)
				break
			}
		}
	}

	for i, r := range ds.Ratings {
		if r.Rating != nil && (*r.Rating < v.minRating || *r.Rating > v.maxRating) {
			add(SeverityError, "ratings", r.ParticipantID, i+1, "rating %v outside %g-%g", *r.Rating, v.minRating, v.maxRating)
		}
		if len(participants) > 0 && !participants[r.ParticipantID] {
			add(SeverityWarning, "ratings", r.ParticipantID, i+1, "participant has no reading trials")
		}
	}

	for i, c := range ds.ManipulationChecks {
		if c.NegativityRating < v.minRating || c.NegativityRating > v.maxRating {
			add(SeverityError, "manipulation_check", c.ParticipantID, i+1, "negativity rating %v outside %g-%g", c.NegativityRating, v.minRating, v.maxRating)
		}
	}

	return res
}
