// Package filter removes practice, filler and outlying data before analysis
package filter

import (
	"strings"

	"github.com/ppiankov/sprstat/internal/model"
)

// RemovePractice drops trials whose sentence text contains marker.
// An empty marker keeps every trial.
func RemovePractice(trials []model.Trial, marker string) (kept []model.Trial, removed int) {
	if marker == "" {
		return append([]model.Trial(nil), trials...), 0
	}
	kept = make([]model.Trial, 0, len(trials))
	for _, t := range trials {
		if strings.Contains(t.SentenceText, marker) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed
}

// RemoveFillers drops filler trials
func RemoveFillers(trials []model.Trial) (kept []model.Trial, removed int) {
	kept = make([]model.Trial, 0, len(trials))
	for _, t := range trials {
		if t.IsFiller {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed
}
