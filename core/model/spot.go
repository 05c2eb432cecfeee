package model

import (
	"fmt"
	"time"
)

// SpotStatus is the live state of a single parking spot.
type SpotStatus string

const (
	StatusAvailable   SpotStatus = "available"
	StatusOccupied    SpotStatus = "occupied"
	StatusReserved    SpotStatus = "reserved"
	StatusMaintenance SpotStatus = "maintenance"
)

// Valid reports whether s is one of the known statuses.
func (s SpotStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved, StatusMaintenance:
		return true
	}
	return false
}

// SpotType classifies the physical stall.
type SpotType string

const (
	TypeRegular    SpotType = "regular"
	TypeCompact    SpotType = "compact"
	TypeLarge      SpotType = "large"
	TypeDisabled   SpotType = "disabled"
	TypeEVCharging SpotType = "ev_charging"
)

// Spot is one physical stall. A spot belongs to exactly one lot for its
// lifetime. Status, holder and expiry are only ever mutated through the
// registry compare-and-set so the snapshot returned by reads is consistent.
type Spot struct {
	ID            string     `json:"id"`
	LotID         string     `json:"lot_id"`
	Number        string     `json:"number"`
	Type          SpotType   `json:"type"`
	SensorID      string     `json:"sensor_id,omitempty"`
	Status        SpotStatus `json:"status"`
	ReservedBy    string     `json:"reserved_by,omitempty"`
	ReservedUntil time.Time  `json:"reserved_until,omitempty"`
	LastUpdated   time.Time  `json:"last_updated"`
	Version       int64      `json:"version"`
}

// Reserved reports whether the spot currently carries a live reservation.
func (s Spot) Reserved(now time.Time) bool {
	return s.Status == StatusReserved && s.ReservedBy != "" && s.ReservedUntil.After(now)
}

// Lot is a physical parking facility. Occupancy and price are derived from
// the live spot collection on every read and are never stored here.
type Lot struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	BasePrice  float64 `json:"base_price"`
	TotalSpots int     `json:"total_spots"`
}

// Validate checks that the lot configuration is sound.
func (l Lot) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("lot id is required")
	}
	if l.BasePrice < 0 {
		return fmt.Errorf("base price must be >= 0")
	}
	if l.TotalSpots <= 0 {
		return fmt.Errorf("total spots must be positive")
	}
	return nil
}

// Window is the half-open booking interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the window against the given reference time.
func (w Window) Validate(now time.Time) error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("window end must be after start")
	}
	if !w.End.After(now) {
		return fmt.Errorf("window end must be in the future")
	}
	return nil
}

// Reservation is the ephemeral claim record returned by a successful claim.
// It exists only while the spot status is reserved.
type Reservation struct {
	ID        string    `json:"id"`
	SpotID    string    `json:"spot_id"`
	LotID     string    `json:"lot_id"`
	Holder    string    `json:"holder"`
	Window    Window    `json:"window"`
	CreatedAt time.Time `json:"created_at"`
}
