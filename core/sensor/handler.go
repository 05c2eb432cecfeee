package sensor

import (
	"errors"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/reservation"
)

// Handler resolves sensor events to spots and applies the entry/exit
// transitions through the reservation coordinator, so a telemetry message
// can never bypass the reservation protocol.
type Handler struct {
	reg   *registry.Registry
	coord *reservation.Coordinator
	sink  metrics.Sink
	log   logger.Logger
}

// NewHandler creates a Handler. A nil sink disables metrics.
func NewHandler(reg *registry.Registry, coord *reservation.Coordinator, sink metrics.Sink, log logger.Logger) *Handler {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Handler{reg: reg, coord: coord, sink: sink, log: log}
}

// HandleMessage processes one raw message. Failures are per-message: nothing
// here stops the channel, and no error escapes to the transport.
func (h *Handler) HandleMessage(topic string, payload []byte) {
	ev, err := Decode(topic, payload)
	if err != nil {
		h.sink.RecordSensorEvent(metrics.SensorMalformed)
		if h.log != nil {
			h.log.Warnf("dropping malformed sensor message: %v", err)
		}
		return
	}
	h.Apply(ev)
}

// Apply routes a decoded event to the spot it targets. Unresolvable sensor
// ids are expected for unregistered or test sensors and are dropped quietly.
func (h *Handler) Apply(ev model.SensorEvent) {
	spot, err := h.reg.BySensor(ev.SensorID)
	if err != nil {
		h.sink.RecordSensorEvent(metrics.SensorUnresolved)
		if h.log != nil {
			h.log.Debugf("sensor %s not mapped to a spot, dropping event", ev.SensorID)
		}
		return
	}
	if ev.BatteryLevel != nil || ev.Temperature != nil {
		// Diagnostics are observability-only and never gate a transition.
		h.sink.RecordDiagnostics(ev)
	}

	if ev.Occupied {
		_, err = h.coord.ConfirmEntry(spot.ID)
	} else {
		_, err = h.coord.ConfirmExit(spot.ID)
	}
	switch {
	case err == nil:
		h.sink.RecordSensorEvent(metrics.SensorApplied)
	case errors.Is(err, reservation.ErrNoChange):
		h.sink.RecordSensorEvent(metrics.SensorNoop)
	case errors.Is(err, registry.ErrConflict):
		// A vacancy signal on a reserved spot, or a race lost to a claim.
		// The reservation keeps its lifetime; only the sweep may expire it.
		h.sink.RecordSensorEvent(metrics.SensorIgnored)
		if h.log != nil {
			h.log.Warnf("ignoring sensor event for %s (occupied=%t): %v", spot.ID, ev.Occupied, err)
		}
	default:
		h.sink.RecordSensorEvent(metrics.SensorIgnored)
		if h.log != nil {
			h.log.Errorf("sensor event for %s failed: %v", spot.ID, err)
		}
	}
}
