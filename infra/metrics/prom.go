package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
)

// PromSink records core events in Prometheus metrics.
type PromSink struct {
	transitions *prometheus.CounterVec
	sensor      *prometheus.CounterVec
	claims      *prometheus.CounterVec
	releases    *prometheus.CounterVec
	reclaimed   prometheus.Counter
	sweepTime   prometheus.Histogram
	drops       *prometheus.CounterVec
	occupancy   *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The Prometheus server should be started separately on cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spot_transitions_total",
			Help: "Total number of applied spot status transitions",
		}, []string{"lot_id", "to", "source"}),
		sensor: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_events_total",
			Help: "Sensor messages processed, by outcome",
		}, []string{"result"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_claims_total",
			Help: "Claim attempts, by outcome",
		}, []string{"result"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_releases_total",
			Help: "Release attempts, by outcome",
		}, []string{"result"}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservations_expired_total",
			Help: "Reservations reclaimed by the expiry sweep",
		}),
		sweepTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of one expiry sweep pass",
			Buckets: prometheus.DefBuckets,
		}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_dropped_total",
			Help: "Deltas dropped for slow subscribers",
		}, []string{"lot_id"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lot_occupancy_ratio",
			Help: "Fraction of a lot's spots not currently available",
		}, []string{"lot_id"}),
	}

	collectors := []prometheus.Collector{
		s.transitions, s.sensor, s.claims, s.releases, s.reclaimed, s.sweepTime, s.drops, s.occupancy,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch i {
				case 0:
					s.transitions = are.ExistingCollector.(*prometheus.CounterVec)
				case 1:
					s.sensor = are.ExistingCollector.(*prometheus.CounterVec)
				case 2:
					s.claims = are.ExistingCollector.(*prometheus.CounterVec)
				case 3:
					s.releases = are.ExistingCollector.(*prometheus.CounterVec)
				case 4:
					s.reclaimed = are.ExistingCollector.(prometheus.Counter)
				case 5:
					s.sweepTime = are.ExistingCollector.(prometheus.Histogram)
				case 6:
					s.drops = are.ExistingCollector.(*prometheus.CounterVec)
				case 7:
					s.occupancy = are.ExistingCollector.(*prometheus.GaugeVec)
				}
				continue
			}
			return nil, err
		}
	}
	return s, nil
}

func (s *PromSink) RecordTransition(tr model.Transition) {
	s.transitions.WithLabelValues(tr.LotID, string(tr.To), string(tr.Source)).Inc()
}

func (s *PromSink) RecordSensorEvent(result string) {
	s.sensor.WithLabelValues(result).Inc()
}

// RecordDiagnostics is a no-op for Prometheus; per-sensor battery and
// temperature series belong in the time-series sink.
func (s *PromSink) RecordDiagnostics(model.SensorEvent) {}

func (s *PromSink) RecordClaim(result string) {
	s.claims.WithLabelValues(result).Inc()
}

func (s *PromSink) RecordRelease(result string) {
	s.releases.WithLabelValues(result).Inc()
}

func (s *PromSink) RecordSweep(ev coremetrics.SweepEvent) {
	if ev.Reclaimed > 0 {
		s.reclaimed.Add(float64(ev.Reclaimed))
	}
	s.sweepTime.Observe(ev.Duration.Seconds())
}

func (s *PromSink) RecordBroadcastDrop(lotID string, n int) {
	s.drops.WithLabelValues(lotID).Add(float64(n))
}

func (s *PromSink) SetOccupancy(lotID string, ratio float64) {
	s.occupancy.WithLabelValues(lotID).Set(ratio)
}

func (s *PromSink) Close() error { return nil }
