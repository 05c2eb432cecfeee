package app

import (
	"context"
	"fmt"
	"time"

	"github.com/parkpulse/parkpulse/api"
	"github.com/parkpulse/parkpulse/config"
	"github.com/parkpulse/parkpulse/core/broadcast"
	coremetrics "github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/reservation"
	"github.com/parkpulse/parkpulse/core/sensor"
	"github.com/parkpulse/parkpulse/core/statelog"
	"github.com/parkpulse/parkpulse/infra/logger"
	"github.com/parkpulse/parkpulse/infra/metrics"
	"github.com/parkpulse/parkpulse/infra/mqtt"
	"github.com/parkpulse/parkpulse/simulator"
)

// Service owns the full reconciliation pipeline: sensor ingestion, the spot
// registry, booking, expiry sweeps, the audit recorder and the HTTP surface.
type Service struct {
	cfg      *config.Config
	reg      *registry.Registry
	coord    *reservation.Coordinator
	hub      *broadcast.Hub
	sweeper  *reservation.Sweeper
	recorder *statelog.Recorder
	store    statelog.Store
	client   *mqtt.Client
	ingestor *mqtt.Ingestor
	sim      *simulator.Simulator
	sink     coremetrics.Sink
	log      logger.Logger
}

// New creates a Service from the configuration. The MQTT session is not
// opened until Run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	reg := registry.New(logger.New("registry"))
	for _, lc := range cfg.Lots {
		lot := lc.Lot()
		prefix := lc.SensorPrefix
		if prefix == "" {
			prefix = lot.ID
		}
		if err := reg.AddLot(lot, registry.BuildSpots(lot, prefix)); err != nil {
			return nil, fmt.Errorf("lot %s: %w", lot.ID, err)
		}
	}

	var store statelog.Store
	var err error
	switch cfg.StateLog.Backend {
	case "sqlite":
		store, err = statelog.NewSQLiteStore(cfg.StateLog.Path)
	default:
		store, err = statelog.NewJSONLStore(cfg.StateLog.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("statelog store: %w", err)
	}
	recorder := statelog.NewRecorder(store, cfg.StateLog.Queue, logger.New("statelog"))

	hub := broadcast.New(cfg.API.BroadcastBuffer, sink, logger.New("broadcast"))

	// Single fan-out point: every applied transition reaches the audit
	// recorder, the metrics sink and the lot's realtime subscribers.
	// None of these block the mutation path.
	reg.OnTransition(func(tr model.Transition) {
		recorder.Record(tr)
		sink.RecordTransition(tr)
		hub.Publish(tr.LotID, tr.Delta())
	})

	coord := reservation.New(reg, sink, logger.New("reservation"))
	sweepInterval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	sweeper := reservation.NewSweeper(reg, sweepInterval, sink, logger.New("sweeper"))

	return &Service{
		cfg:      cfg,
		reg:      reg,
		coord:    coord,
		hub:      hub,
		sweeper:  sweeper,
		recorder: recorder,
		store:    store,
		sink:     sink,
		log:      logg,
	}, nil
}

// Registry exposes the live spot table, for command-line tooling.
func (s *Service) Registry() *registry.Registry { return s.reg }

// Coordinator exposes the booking workflow, for command-line tooling.
func (s *Service) Coordinator() *reservation.Coordinator { return s.coord }

// Run connects the transport and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	client, err := mqtt.Connect(s.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	s.client = client

	handler := sensor.NewHandler(s.reg, s.coord, s.sink, logger.New("sensor"))
	s.ingestor = mqtt.NewIngestor(client, handler, s.cfg.MQTT.QueueSize, s.sink, logger.New("ingestor"))

	go s.recorder.Run(ctx)
	go s.sweeper.Run(ctx)
	go func() {
		if err := s.ingestor.Start(ctx); err != nil {
			s.log.Errorf("ingestor: %v", err)
		}
	}()
	go func() {
		if err := api.StartServer(ctx, s.cfg.API.Addr, api.Deps{
			Registry:    s.reg,
			Coordinator: s.coord,
			Hub:         s.hub,
			Store:       s.store,
			AuthToken:   s.cfg.API.AuthToken,
			Log:         logger.New("api"),
		}); err != nil {
			s.log.Errorf("api server: %v", err)
		}
	}()
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Simulator.Enabled {
		s.sim = simulator.New(s.reg, client, s.cfg.Simulator, logger.New("simulator"))
		go s.sim.Run(ctx)
	}

	s.log.Infof("parkpulse running with %d lots", len(s.cfg.Lots))
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	s.hub.Close()
	err := s.store.Close()
	if cerr := s.sink.Close(); err == nil {
		err = cerr
	}
	return err
}
