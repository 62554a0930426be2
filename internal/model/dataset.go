package model

// Dataset holds every table loaded from one experiment export
type Dataset struct {
	Source             string              `json:"source"`
	Trials             []Trial             `json:"trials"`
	Ratings            []RatingObservation `json:"ratings,omitempty"`
	ManipulationChecks []ManipulationCheck `json:"manipulation_checks,omitempty"`
	Recalls            []RecallResponse    `json:"recalls,omitempty"`
}
