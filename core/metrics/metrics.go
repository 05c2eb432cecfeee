// Package metrics defines the observability sink interface implemented by
// the Prometheus and InfluxDB adapters in infra/metrics.
package metrics

import (
	"time"

	"github.com/parkpulse/parkpulse/core/model"
)

// Sensor ingestion outcomes recorded per message.
const (
	SensorApplied    = "applied"
	SensorNoop       = "noop"
	SensorIgnored    = "ignored"
	SensorMalformed  = "malformed"
	SensorUnresolved = "unresolved"
	SensorDropped    = "dropped"
)

// Booking operation outcomes.
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultNotAvailable = "not_available"
	ResultNotHolder    = "not_holder"
	ResultError        = "error"
)

// SweepEvent summarizes one expiry sweep pass.
type SweepEvent struct {
	Scanned   int
	Reclaimed int
	Duration  time.Duration
	Time      time.Time
}

// Sink records core events for observability purposes. Implementations must
// be safe for concurrent use and must never block the mutation path.
type Sink interface {
	RecordTransition(tr model.Transition)
	RecordSensorEvent(result string)
	RecordDiagnostics(ev model.SensorEvent)
	RecordClaim(result string)
	RecordRelease(result string)
	RecordSweep(ev SweepEvent)
	RecordBroadcastDrop(lotID string, n int)
	SetOccupancy(lotID string, ratio float64)
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordTransition(model.Transition)   {}
func (NopSink) RecordSensorEvent(string)            {}
func (NopSink) RecordDiagnostics(model.SensorEvent) {}
func (NopSink) RecordClaim(string)                  {}
func (NopSink) RecordRelease(string)                {}
func (NopSink) RecordSweep(SweepEvent)              {}
func (NopSink) RecordBroadcastDrop(string, int)     {}
func (NopSink) SetOccupancy(string, float64)        {}
func (NopSink) Close() error                        { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":2112"
	}
}
