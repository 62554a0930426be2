// Package region classifies sentence regions into analysis zones
package region

import (
	"strings"

	"github.com/ppiankov/sprstat/internal/filter"
	"github.com/ppiankov/sprstat/internal/model"
	"github.com/ppiankov/sprstat/internal/stats"
	"go.uber.org/zap"
)

// Parser maps region positions to zones: 0 subject, 1 modifier,
// 2 spillover, and the rest pooled into one fact observation whose RT
// is the mean of the fact words inside Band.
type Parser struct {
	MinRegions int
	Band       model.Band
	logger     *zap.Logger
}

// NewParser creates a parser
func NewParser(minRegions int, band model.Band, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{MinRegions: minRegions, Band: band, logger: logger}
}

// Result holds the observations derived from a set of trials
type Result struct {
	Observations []model.RegionObservation
	Skipped      int // Trials with fewer than MinRegions regions, or fillers
	FactsOmitted int // Trials where no fact word passed the band
}

// Parse derives observations from one trial. ok is false when the trial
// cannot be parsed; factOmitted reports a missing fact observation.
func (p *Parser) Parse(t model.Trial) (obs []model.RegionObservation, ok, factOmitted bool) {
	if t.IsFiller || len(t.Regions) < p.MinRegions || len(t.Regions) < 4 || len(t.Regions) != len(t.RegionRTs) {
		return nil, false, false
	}

	ref := t.Ref()
	obs = []model.RegionObservation{
		{Trial: ref, Type: model.RegionSubject, Text: t.Regions[0], RT: t.RegionRTs[0]},
		{Trial: ref, Type: model.RegionModifier, Text: t.Regions[1], RT: t.RegionRTs[1]},
		{Trial: ref, Type: model.RegionSpillover, Text: t.Regions[2], RT: t.RegionRTs[2]},
	}

	factRTs := filter.FilterValues(t.RegionRTs[3:], p.Band)
	if len(factRTs) == 0 {
		return obs, true, true
	}

	obs = append(obs, model.RegionObservation{
		Trial: ref,
		Type:  model.RegionFact,
		Text:  strings.Join(t.Regions[3:], " "),
		RT:    stats.Mean(factRTs),
	})
	return obs, true, false
}

// ParseAll parses every trial, skipping (and counting) unparseable ones
func (p *Parser) ParseAll(trials []model.Trial) Result {
	var res Result
	for _, t := range trials {
		obs, ok, omitted := p.Parse(t)
		if !ok {
			res.Skipped++
			p.logger.Warn("skipping trial",
				zap.String("reason", skipReason(t)),
				zap.String("participant", t.ParticipantID),
				zap.Int("trial", t.TrialIndex),
				zap.Int("regions", len(t.Regions)),
				zap.Int("min_regions", p.MinRegions))
			continue
		}
		if omitted {
			res.FactsOmitted++
		}
		res.Observations = append(res.Observations, obs...)
	}
	return res
}

func skipReason(t model.Trial) string {
	switch {
	case t.IsFiller:
		return "filler"
	case len(t.Regions) != len(t.RegionRTs):
		return "region and RT counts differ"
	default:
		return "too few regions"
	}
}
