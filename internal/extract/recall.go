// Package extract codes free-text recall responses against fixed lexicons
package extract

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/sprstat/internal/model"
)

// RecallExtractor scores recall text by lexicon matching
type RecallExtractor struct {
	facts      []string
	negative   []string
	neutral    []string
	indirect   []string
	derogatory []string
	extended   []string // negative plus the extended terms
	falseInfo  []string
}

// NewRecallExtractor creates an extractor from the configured lexicons
func NewRecallExtractor(cfg model.RecallConfig) *RecallExtractor {
	return &RecallExtractor{
		facts:      dedupeWords(cfg.Facts),
		negative:   dedupeWords(cfg.Negative),
		neutral:    dedupeWords(cfg.Neutral),
		indirect:   dedupeWords(cfg.Indirect),
		derogatory: dedupeWords(cfg.Derogatory),
		extended:   dedupeWords(append(append([]string(nil), cfg.Negative...), cfg.Extended...)),
		falseInfo:  dedupeWords(cfg.FalseInfo),
	}
}

// Score codes a single response. Facts and false information count once
// however often they are mentioned; every other lexicon counts occurrences.
func (e *RecallExtractor) Score(resp model.RecallResponse) model.RecallScore {
	text := strings.TrimSpace(resp.Text)

	score := model.RecallScore{
		ParticipantID: resp.ParticipantID,
		TextLength:    utf8.RuneCountInString(text),
		SentenceCount: countSentences(text),
	}

	for _, fact := range e.facts {
		if strings.Contains(text, fact) {
			score.Facts = append(score.Facts, fact)
		}
	}
	score.FactCount = len(score.Facts)
	if len(e.facts) > 0 {
		score.FactRatio = float64(score.FactCount) / float64(len(e.facts))
	}
	if score.TextLength > 0 {
		score.FactDensity = float64(score.FactCount) / (float64(score.TextLength) / 10)
	}

	score.NegativeCount = occurrences(text, e.negative)
	score.NeutralCount = occurrences(text, e.neutral)
	score.SentimentScore = score.NeutralCount - score.NegativeCount

	score.ExtendedNegativeCount = occurrences(text, e.extended)
	score.NegativeDirect = score.NegativeCount
	score.NegativeIndirect = occurrences(text, e.indirect)
	score.NegativeDerogatory = occurrences(text, e.derogatory)
	for _, info := range e.falseInfo {
		if strings.Contains(text, info) {
			score.FalseInfo = append(score.FalseInfo, info)
		}
	}
	score.FalseInfoCount = len(score.FalseInfo)

	return score
}

// ScoreAll scores every participant once. Multiple responses from the same
// participant are joined before scoring. Output is sorted by participant.
func (e *RecallExtractor) ScoreAll(responses []model.RecallResponse) []model.RecallScore {
	merged := make(map[string][]string)
	var order []string
	for _, r := range responses {
		if _, seen := merged[r.ParticipantID]; !seen {
			order = append(order, r.ParticipantID)
		}
		if t := strings.TrimSpace(r.Text); t != "" {
			merged[r.ParticipantID] = append(merged[r.ParticipantID], t)
		} else if merged[r.ParticipantID] == nil {
			merged[r.ParticipantID] = []string{}
		}
	}
	sort.Strings(order)

	scores := make([]model.RecallScore, 0, len(order))
	for _, id := range order {
		scores = append(scores, e.Score(model.RecallResponse{
			ParticipantID: id,
			Text:          strings.Join(merged[id], " "),
		}))
	}
	return scores
}

func occurrences(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

// countSentences counts non-empty segments ended by '.' or '。'
func countSentences(text string) int {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '。'
	})

	n := 0
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func dedupeWords(words []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		unique = append(unique, w)
	}

	return unique
}
