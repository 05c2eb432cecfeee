// Package simulator synthesizes sensor traffic when no physical sensors
// exist. It publishes through the exact topic and payload real sensors use,
// so the ingestion path cannot tell the difference, and it can be disabled
// entirely for deployments with real hardware.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/sensor"
)

// Publisher sends one raw message to the sensor transport.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Config holds parameters for the simulator.
type Config struct {
	Enabled bool `json:"enabled"`
	// TickSeconds is the period between simulation passes.
	TickSeconds int `json:"tick_seconds"`
	// FlipProbability is the per-spot chance of emitting an event each tick.
	FlipProbability float64 `json:"flip_probability"`
	// OccupiedBias is the probability an emitted event reports occupied.
	OccupiedBias float64 `json:"occupied_bias"`
	// Seed fixes the random source; 0 seeds from the clock.
	Seed uint64 `json:"seed"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TickSeconds <= 0 {
		c.TickSeconds = 30
	}
	if c.FlipProbability == 0 {
		c.FlipProbability = 0.1
	}
	if c.OccupiedBias == 0 {
		c.OccupiedBias = 0.6
	}
}

// Validate checks probability bounds.
func (c Config) Validate() error {
	if c.FlipProbability < 0 || c.FlipProbability > 1 {
		return fmt.Errorf("flip_probability must be in [0,1]")
	}
	if c.OccupiedBias < 0 || c.OccupiedBias > 1 {
		return fmt.Errorf("occupied_bias must be in [0,1]")
	}
	return nil
}

// Simulator periodically emits synthetic sensor events for every spot with
// an assigned sensor. It holds no global state: the composing service owns
// its lifecycle through Run's context.
type Simulator struct {
	reg *registry.Registry
	pub Publisher
	cfg Config
	log logger.Logger

	mu   sync.Mutex
	rng  *rand.Rand
	flip distuv.Bernoulli
	bias distuv.Bernoulli
}

// New creates a Simulator.
func New(reg *registry.Registry, pub Publisher, cfg Config, log logger.Logger) *Simulator {
	cfg.SetDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)
	return &Simulator{
		reg:  reg,
		pub:  pub,
		cfg:  cfg,
		log:  log,
		rng:  rand.New(src),
		flip: distuv.Bernoulli{P: cfg.FlipProbability, Src: src},
		bias: distuv.Bernoulli{P: cfg.OccupiedBias, Src: src},
	}
}

// Run emits events on every tick until ctx is cancelled. Per-tick failures
// are logged and the next tick proceeds normally.
func (s *Simulator) Run(ctx context.Context) {
	t := time.NewTicker(time.Duration(s.cfg.TickSeconds) * time.Second)
	defer t.Stop()
	if s.log != nil {
		s.log.Infof("sensor simulation started (tick %ds)", s.cfg.TickSeconds)
	}
	for {
		select {
		case <-ctx.Done():
			if s.log != nil {
				s.log.Infof("sensor simulation stopped")
			}
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick runs one simulation pass over all sensored spots.
func (s *Simulator) Tick() {
	for _, lot := range s.reg.Lots() {
		spots, err := s.reg.ListByLot(lot.ID)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("simulate lot %s: %v", lot.ID, err)
			}
			continue
		}
		for _, spot := range spots {
			if spot.SensorID == "" {
				continue
			}
			s.mu.Lock()
			emit := s.flip.Rand() == 1
			occupied := s.bias.Rand() == 1
			battery := s.rng.Intn(100)
			temperature := s.rng.Intn(40) + 10
			s.mu.Unlock()
			if !emit {
				continue
			}
			ev := model.SensorEvent{
				SensorID:     spot.SensorID,
				Occupied:     occupied,
				Timestamp:    time.Now().UTC(),
				BatteryLevel: &battery,
				Temperature:  &temperature,
			}
			if err := s.publish(spot, ev); err != nil && s.log != nil {
				s.log.Errorf("simulate %s: %v", spot.ID, err)
			}
		}
	}
}

// VehicleEntry emits an arrival event for the spot's sensor.
func (s *Simulator) VehicleEntry(spotID string) error {
	return s.vehicleEvent(spotID, true, model.EventVehicleEntry)
}

// VehicleExit emits a departure event for the spot's sensor.
func (s *Simulator) VehicleExit(spotID string) error {
	return s.vehicleEvent(spotID, false, model.EventVehicleExit)
}

func (s *Simulator) vehicleEvent(spotID string, occupied bool, event string) error {
	spot, err := s.reg.Get(spotID)
	if err != nil {
		return err
	}
	if spot.SensorID == "" {
		return fmt.Errorf("spot %s has no sensor", spotID)
	}
	return s.publish(spot, model.SensorEvent{
		SensorID:  spot.SensorID,
		Occupied:  occupied,
		Timestamp: time.Now().UTC(),
		Event:     event,
	})
}

func (s *Simulator) publish(spot model.Spot, ev model.SensorEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.pub.Publish(sensor.Topic(spot.LotID, spot.SensorID), payload)
}
