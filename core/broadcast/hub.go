// Package broadcast fans out spot state deltas to the subscribers of a lot.
// Membership is in-memory only: a disconnected subscriber misses deltas and
// reconciles with a full re-fetch on reconnect.
package broadcast

import (
	"sync"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/internal/eventbus"
)

// Subscription is one subscriber's membership in a lot room. Deltas arrive on
// C in the order they were applied to the registry for any single spot.
type Subscription struct {
	LotID string
	C     <-chan model.SpotDelta
}

// Hub routes deltas to per-lot rooms. Publishing never blocks: a subscriber
// with a full buffer misses the delta, which is counted but not retried.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*eventbus.Bus[model.SpotDelta]
	buffer int
	sink   metrics.Sink
	log    logger.Logger
	closed bool
}

// New creates a Hub with the given per-subscriber buffer.
func New(buffer int, sink metrics.Sink, log logger.Logger) *Hub {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Hub{rooms: map[string]*eventbus.Bus[model.SpotDelta]{}, buffer: buffer, sink: sink, log: log}
}

// Join subscribes to the lot's room.
func (h *Hub) Join(lotID string) *Subscription {
	h.mu.Lock()
	room, ok := h.rooms[lotID]
	if !ok && !h.closed {
		room = eventbus.New[model.SpotDelta](h.buffer)
		h.rooms[lotID] = room
	}
	h.mu.Unlock()
	if room == nil {
		ch := make(chan model.SpotDelta)
		close(ch)
		return &Subscription{LotID: lotID, C: ch}
	}
	return &Subscription{LotID: lotID, C: room.Subscribe()}
}

// Leave removes the subscription from its room and closes its channel.
func (h *Hub) Leave(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.RLock()
	room := h.rooms[sub.LotID]
	h.mu.RUnlock()
	if room != nil {
		room.Unsubscribe(sub.C)
	}
}

// Publish delivers the delta to every subscriber of the lot's room.
func (h *Hub) Publish(lotID string, d model.SpotDelta) {
	h.mu.RLock()
	room := h.rooms[lotID]
	h.mu.RUnlock()
	if room == nil {
		return
	}
	if dropped := room.Publish(d); dropped > 0 {
		h.sink.RecordBroadcastDrop(lotID, dropped)
		if h.log != nil {
			h.log.Warnf("dropped delta for %d slow subscribers of lot %s", dropped, lotID)
		}
	}
}

// Subscribers returns the number of subscribers joined to the lot's room.
func (h *Hub) Subscribers(lotID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room := h.rooms[lotID]; room != nil {
		return room.Len()
	}
	return 0
}

// Close shuts down all rooms and their subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, room := range h.rooms {
		room.Close()
	}
	h.rooms = map[string]*eventbus.Bus[model.SpotDelta]{}
}
