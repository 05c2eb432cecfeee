package metrics

import (
	coremetrics "github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
)

// MultiSink fans out every event to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordTransition(tr model.Transition) {
	for _, s := range m.Sinks {
		s.RecordTransition(tr)
	}
}

func (m *MultiSink) RecordSensorEvent(result string) {
	for _, s := range m.Sinks {
		s.RecordSensorEvent(result)
	}
}

func (m *MultiSink) RecordDiagnostics(ev model.SensorEvent) {
	for _, s := range m.Sinks {
		s.RecordDiagnostics(ev)
	}
}

func (m *MultiSink) RecordClaim(result string) {
	for _, s := range m.Sinks {
		s.RecordClaim(result)
	}
}

func (m *MultiSink) RecordRelease(result string) {
	for _, s := range m.Sinks {
		s.RecordRelease(result)
	}
}

func (m *MultiSink) RecordSweep(ev coremetrics.SweepEvent) {
	for _, s := range m.Sinks {
		s.RecordSweep(ev)
	}
}

func (m *MultiSink) RecordBroadcastDrop(lotID string, n int) {
	for _, s := range m.Sinks {
		s.RecordBroadcastDrop(lotID, n)
	}
}

func (m *MultiSink) SetOccupancy(lotID string, ratio float64) {
	for _, s := range m.Sinks {
		s.SetOccupancy(lotID, ratio)
	}
}

// Close closes all sinks, returning the first error encountered.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
