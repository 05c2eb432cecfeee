package model

import "time"

// TransitionSource identifies the actor that applied a spot mutation.
type TransitionSource string

const (
	SourceSensor  TransitionSource = "sensor"
	SourceBooking TransitionSource = "booking"
	SourceSweep   TransitionSource = "sweep"
	SourceAdmin   TransitionSource = "admin"
)

// Transition records one applied status change on a spot.
type Transition struct {
	LotID     string           `json:"lot_id"`
	SpotID    string           `json:"spot_id"`
	From      SpotStatus       `json:"from"`
	To        SpotStatus       `json:"to"`
	Holder    string           `json:"holder,omitempty"`
	Source    TransitionSource `json:"source"`
	Timestamp time.Time        `json:"timestamp"`
	Version   int64            `json:"version"`
}

// Delta converts the transition to the wire shape pushed to subscribers.
func (t Transition) Delta() SpotDelta {
	return SpotDelta{SpotID: t.SpotID, Status: t.To, Timestamp: t.Timestamp}
}

// SpotDelta is the state-change notification delivered to lot subscribers.
type SpotDelta struct {
	SpotID    string     `json:"spotId"`
	Status    SpotStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}
