// Package transitions exposes the spot transition audit trail over HTTP.
package transitions

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/statelog"
)

// NewLogHandler returns an HTTP handler exposing transition records via GET
// /api/transitions. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
func NewLogHandler(store statelog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := statelog.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.LotID = r.URL.Query().Get("lot_id")
		q.SpotID = r.URL.Query().Get("spot_id")
		if s := r.URL.Query().Get("source"); s != "" {
			if src, ok := sourceFromString(s); ok {
				q.Source = src
			}
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func sourceFromString(s string) (model.TransitionSource, bool) {
	switch s {
	case "sensor":
		return model.SourceSensor, true
	case "booking":
		return model.SourceBooking, true
	case "sweep":
		return model.SourceSweep, true
	case "admin":
		return model.SourceAdmin, true
	default:
		return "", false
	}
}
