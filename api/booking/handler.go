// Package booking exposes reservation claim and release over HTTP.
package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/reservation"
)

type claimRequest struct {
	SpotID string       `json:"spot_id"`
	Holder string       `json:"holder"`
	Window model.Window `json:"window"`
}

type releaseRequest struct {
	SpotID string `json:"spot_id"`
	Holder string `json:"holder"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// statusFor maps coordinator errors to HTTP status codes. Unknown errors
// stay 500 so callers never retry on an unclassified failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrNotAvailable):
		return http.StatusConflict
	case errors.Is(err, reservation.ErrNotHolder):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewClaimHandler returns an HTTP handler accepting POST /api/claim. A lost
// race against a concurrent claimer returns 409 with the current holder
// untouched.
func NewClaimHandler(coord *reservation.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req claimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SpotID == "" || req.Holder == "" {
			writeError(w, http.StatusBadRequest, "spot_id and holder are required")
			return
		}
		res, err := coord.Claim(req.SpotID, req.Holder, req.Window)
		if err != nil {
			if errors.Is(err, reservation.ErrNotAvailable) || errors.Is(err, registry.ErrNotFound) {
				writeError(w, statusFor(err), err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(res); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	})
}

// NewReleaseHandler returns an HTTP handler accepting POST /api/release.
// Only the current holder may release; anyone else gets 403.
func NewReleaseHandler(coord *reservation.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req releaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SpotID == "" || req.Holder == "" {
			writeError(w, http.StatusBadRequest, "spot_id and holder are required")
			return
		}
		if err := coord.Release(req.SpotID, req.Holder); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
