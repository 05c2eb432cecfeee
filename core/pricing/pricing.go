// Package pricing computes lot occupancy and the dynamic price. Both are pure
// functions over a fresh spot snapshot; nothing here is cached, so the value
// a booking sees is current at the moment it is priced.
package pricing

import "github.com/parkpulse/parkpulse/core/model"

// OccupancyRatio returns the fraction of spots not currently available, in
// [0,1]. A lot with zero spots yields 0.
func OccupancyRatio(spots []model.Spot) float64 {
	if len(spots) == 0 {
		return 0
	}
	busy := 0
	for _, s := range spots {
		if s.Status != model.StatusAvailable {
			busy++
		}
	}
	return float64(busy) / float64(len(spots))
}

// DynamicPrice applies the occupancy surcharge tiers to the base price.
// Boundaries are inclusive: exactly 90, 75 and 50 percent fall into the
// higher tier.
func DynamicPrice(basePrice, occupancyPct float64) float64 {
	switch {
	case occupancyPct >= 90:
		return basePrice * 1.5
	case occupancyPct >= 75:
		return basePrice * 1.3
	case occupancyPct >= 50:
		return basePrice * 1.1
	default:
		return basePrice
	}
}

// LotSummary is the live availability view exposed to the presentation layer.
type LotSummary struct {
	LotID          string  `json:"lot_id"`
	TotalSpots     int     `json:"totalSpots"`
	AvailableSpots int     `json:"availableSpots"`
	OccupancyRatio float64 `json:"occupancyRatio"`
	CurrentPrice   float64 `json:"currentPrice"`
}

// Summarize derives the live summary for a lot from a spot snapshot.
func Summarize(lot model.Lot, spots []model.Spot) LotSummary {
	ratio := OccupancyRatio(spots)
	available := 0
	for _, s := range spots {
		if s.Status == model.StatusAvailable {
			available++
		}
	}
	return LotSummary{
		LotID:          lot.ID,
		TotalSpots:     len(spots),
		AvailableSpots: available,
		OccupancyRatio: ratio,
		CurrentPrice:   DynamicPrice(lot.BasePrice, ratio*100),
	}
}
