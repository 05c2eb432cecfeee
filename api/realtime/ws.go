// Package realtime streams spot deltas to WebSocket subscribers. Each
// connection joins exactly one lot room; a client wanting several lots opens
// several connections.
package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parkpulse/parkpulse/core/broadcast"
	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/registry"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewSpotStreamHandler returns an HTTP handler upgrading GET
// /ws/lots/{id} to a WebSocket that receives one JSON delta per applied
// transition in the lot. A subscriber that cannot keep up misses deltas
// rather than slowing the publisher; clients reconcile by re-fetching the
// spot list after a reconnect.
func NewSpotStreamHandler(reg *registry.Registry, hub *broadcast.Hub, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lotID := r.PathValue("id")
		if _, err := reg.Lot(lotID); err != nil {
			http.Error(w, "lot not found", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if log != nil {
				log.Warnf("websocket upgrade failed: %v", err)
			}
			return
		}
		sub := hub.Join(lotID)

		// Reader goroutine only detects disconnects; inbound frames
		// carry no meaning on this endpoint.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			defer func() {
				hub.Leave(sub)
				_ = conn.Close()
			}()
			for {
				select {
				case d, ok := <-sub.C:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteJSON(d); err != nil {
						if log != nil {
							log.Debugf("websocket write to lot %s subscriber: %v", lotID, err)
						}
						return
					}
				case <-done:
					return
				}
			}
		}()
	})
}
