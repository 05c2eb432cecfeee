// Package lots exposes read-only lot and spot state over HTTP.
package lots

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/pricing"
	"github.com/parkpulse/parkpulse/core/registry"
)

// NewListHandler returns an HTTP handler serving all lot summaries via
// GET /api/lots. Prices reflect occupancy at the time of the request.
func NewListHandler(reg *registry.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lotList := reg.Lots()
		summaries := make([]pricing.LotSummary, 0, len(lotList))
		for _, lot := range lotList {
			spots, err := reg.ListByLot(lot.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			summaries = append(summaries, pricing.Summarize(lot, spots))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summaries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewDetailHandler returns an HTTP handler serving one lot's summary via
// GET /api/lots/{id}.
func NewDetailHandler(reg *registry.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lot, err := reg.Lot(r.PathValue("id"))
		if err != nil {
			if errors.Is(err, registry.ErrLotNotFound) {
				http.Error(w, "lot not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		spots, err := reg.ListByLot(lot.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(pricing.Summarize(lot, spots)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewSpotsHandler returns an HTTP handler serving one lot's spot records via
// GET /api/lots/{id}/spots, ordered by spot number. An optional ?status=
// query narrows the result, e.g. ?status=available for bookable spots.
func NewSpotsHandler(reg *registry.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		spots, err := reg.ListByLot(r.PathValue("id"))
		if err != nil {
			if errors.Is(err, registry.ErrLotNotFound) {
				http.Error(w, "lot not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if s := r.URL.Query().Get("status"); s != "" {
			status := model.SpotStatus(s)
			if !status.Valid() {
				http.Error(w, "unknown status", http.StatusBadRequest)
				return
			}
			filtered := spots[:0]
			for _, spot := range spots {
				if spot.Status == status {
					filtered = append(filtered, spot)
				}
			}
			spots = filtered
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(spots); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
