// Package api assembles the HTTP surface: lot reads, booking, the
// transition audit endpoint and the realtime WebSocket stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/parkpulse/parkpulse/api/booking"
	"github.com/parkpulse/parkpulse/api/lots"
	"github.com/parkpulse/parkpulse/api/realtime"
	"github.com/parkpulse/parkpulse/api/transitions"
	"github.com/parkpulse/parkpulse/core/broadcast"
	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/reservation"
	"github.com/parkpulse/parkpulse/core/statelog"
)

// Deps carries the components the HTTP surface exposes. Store and AuthToken
// are optional: with a nil Store the audit endpoint is not registered.
type Deps struct {
	Registry    *registry.Registry
	Coordinator *reservation.Coordinator
	Hub         *broadcast.Hub
	Store       statelog.Store
	AuthToken   string
	Log         logger.Logger
}

// NewRouter builds the route table.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/lots", lots.NewListHandler(d.Registry))
	mux.Handle("GET /api/lots/{id}", lots.NewDetailHandler(d.Registry))
	mux.Handle("GET /api/lots/{id}/spots", lots.NewSpotsHandler(d.Registry))
	mux.Handle("POST /api/claim", booking.NewClaimHandler(d.Coordinator))
	mux.Handle("POST /api/release", booking.NewReleaseHandler(d.Coordinator))
	mux.Handle("GET /ws/lots/{id}", realtime.NewSpotStreamHandler(d.Registry, d.Hub, d.Log))
	if d.Store != nil {
		mux.Handle("GET /api/transitions", transitions.NewLogHandler(d.Store, d.AuthToken))
	}
	return mux
}

// StartServer serves the API on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string, d Deps) error {
	srv := &http.Server{Addr: addr, Handler: NewRouter(d)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && d.Log != nil {
			d.Log.Errorf("api server shutdown: %v", err)
		}
	}()
	if d.Log != nil {
		d.Log.Infof("api server listening on %s", addr)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
