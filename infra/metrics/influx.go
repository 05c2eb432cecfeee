package metrics

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/infra/logger"
)

const influxQueueSize = 256

// InfluxSink writes transitions and sensor diagnostics to an InfluxDB
// instance using the official client. Points are queued and written by a
// background goroutine so callers never wait on the Influx endpoint; when
// the queue is full new points are dropped.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger

	ch   chan *write.Point
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint
// and starts its writer goroutine.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	s := &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
		ch:       make(chan *write.Point, influxQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		_ = sink.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// enqueue hands a point to the writer goroutine without blocking.
func (s *InfluxSink) enqueue(p *write.Point) {
	select {
	case s.ch <- p:
	default:
		s.log.Warnf("influx queue full, dropping point")
	}
}

// run drains the queue until Close is called. Writes happen here so slow or
// unreachable InfluxDB instances never stall the caller.
func (s *InfluxSink) run() {
	defer close(s.done)
	for {
		select {
		case p := <-s.ch:
			s.write(p)
		case <-s.quit:
			for {
				select {
				case p := <-s.ch:
					s.write(p)
				default:
					return
				}
			}
		}
	}
}

func (s *InfluxSink) write(p *write.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("write point: %v", err)
	}
}

// RecordTransition queues the transition as a point tagged by lot and spot.
func (s *InfluxSink) RecordTransition(tr model.Transition) {
	s.enqueue(influxdb2.NewPoint("spot_transition",
		map[string]string{
			"lot_id":  tr.LotID,
			"spot_id": tr.SpotID,
			"source":  string(tr.Source),
		},
		map[string]any{
			"from":    string(tr.From),
			"to":      string(tr.To),
			"version": tr.Version,
		},
		tr.Timestamp,
	))
}

func (s *InfluxSink) RecordSensorEvent(string) {}

// RecordDiagnostics queues battery and temperature readings for a sensor.
func (s *InfluxSink) RecordDiagnostics(ev model.SensorEvent) {
	fields := map[string]any{}
	if ev.BatteryLevel != nil {
		fields["battery_level"] = *ev.BatteryLevel
	}
	if ev.Temperature != nil {
		fields["temperature"] = *ev.Temperature
	}
	if len(fields) == 0 {
		return
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.enqueue(influxdb2.NewPoint("sensor_diagnostics",
		map[string]string{"lot_id": ev.LotID, "sensor_id": ev.SensorID},
		fields, ts))
}

func (s *InfluxSink) RecordClaim(string)                 {}
func (s *InfluxSink) RecordRelease(string)               {}
func (s *InfluxSink) RecordSweep(coremetrics.SweepEvent) {}
func (s *InfluxSink) RecordBroadcastDrop(string, int)    {}

// SetOccupancy queues the lot occupancy ratio as a gauge-style point.
func (s *InfluxSink) SetOccupancy(lotID string, ratio float64) {
	s.enqueue(influxdb2.NewPoint("lot_occupancy",
		map[string]string{"lot_id": lotID},
		map[string]any{"ratio": ratio},
		time.Now()))
}

// Close flushes queued points, stops the writer and releases the client.
func (s *InfluxSink) Close() error {
	s.once.Do(func() {
		close(s.quit)
		<-s.done
		s.client.Close()
	})
	return nil
}
