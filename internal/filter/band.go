package filter

import "github.com/ppiankov/sprstat/internal/model"

// FilterValues keeps the reading times inside band, preserving order
func FilterValues(rts []float64, band model.Band) []float64 {
	out := make([]float64, 0, len(rts))
	for _, rt := range rts {
		if band.Contains(rt) {
			out = append(out, rt)
		}
	}
	return out
}

// FilterObservations keeps observations whose RT is inside band and
// reports how many were dropped
func FilterObservations(obs []model.RegionObservation, band model.Band) (kept []model.RegionObservation, removed int) {
	kept = make([]model.RegionObservation, 0, len(obs))
	for _, o := range obs {
		if !band.Contains(o.RT) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	return kept, removed
}
