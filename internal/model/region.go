package model

// RegionType classifies a parsed sentence zone
type RegionType string

const (
	RegionSubject   RegionType = "subject"
	RegionModifier  RegionType = "modifier"  // Critical manipulated word
	RegionSpillover RegionType = "spillover" // Word following the modifier
	RegionFact      RegionType = "fact"      // Remaining words, averaged
)

// RegionTypes lists region types in sentence order
var RegionTypes = []RegionType{RegionSubject, RegionModifier, RegionSpillover, RegionFact}

// RegionObservation is a reading time for one zone of one trial
type RegionObservation struct {
	Trial TrialRef   `json:"trial"`
	Type  RegionType `json:"region_type"`
	Text  string     `json:"text"`
	RT    float64    `json:"rt"`
}
