// Package config loads the service configuration from a JSON or YAML file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/infra/mqtt"
	"github.com/parkpulse/parkpulse/simulator"
)

// LotConfig declares one parking lot and its spot collection. Spots are
// generated deterministically at startup from the count and prefix.
type LotConfig struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	BasePrice float64 `json:"base_price"`
	Spots     int     `json:"spots"`
	// SensorPrefix namespaces the generated sensor IDs; it must be unique
	// across lots because sensor IDs resolve globally.
	SensorPrefix string `json:"sensor_prefix"`
}

// Lot converts the declaration into the runtime model.
func (c LotConfig) Lot() model.Lot {
	return model.Lot{
		ID:         c.ID,
		Name:       c.Name,
		Address:    c.Address,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		BasePrice:  c.BasePrice,
		TotalSpots: c.Spots,
	}
}

// StateLogConfig selects the transition audit store.
type StateLogConfig struct {
	// Backend selects the store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// Queue bounds the async recorder; overflow drops records.
	Queue int `json:"queue"`
}

// SetDefaults applies sane defaults.
func (c *StateLogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "transitions.log"
	}
	if c.Queue <= 0 {
		c.Queue = 256
	}
}

// Validate checks mandatory fields.
func (c StateLogConfig) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Addr string `json:"addr"`
	// AuthToken guards the transition audit endpoint when non-empty.
	AuthToken string `json:"auth_token"`
	// BroadcastBuffer is the per-subscriber delta buffer.
	BroadcastBuffer int `json:"broadcast_buffer"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.BroadcastBuffer <= 0 {
		c.BroadcastBuffer = 64
	}
}

type Config struct {
	MQTT      mqtt.Config      `json:"mqtt"`
	Metrics   metrics.Config   `json:"metrics"`
	StateLog  StateLogConfig   `json:"statelog"`
	API       APIConfig        `json:"api"`
	Simulator simulator.Config `json:"simulator"`
	// SweepIntervalSeconds is the period of the reservation expiry sweep.
	SweepIntervalSeconds int         `json:"sweep_interval_seconds"`
	Lots                 []LotConfig `json:"lots"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("PP_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "pp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.StateLog.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Simulator.SetDefaults()
	if cfg.SweepIntervalSeconds <= 0 {
		cfg.SweepIntervalSeconds = 30
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.StateLog.Validate(); err != nil {
		return fmt.Errorf("statelog: %w", err)
	}
	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	if len(c.Lots) == 0 {
		return fmt.Errorf("at least one lot is required")
	}
	seenLot := map[string]bool{}
	seenPrefix := map[string]bool{}
	for _, lot := range c.Lots {
		if err := lot.Lot().Validate(); err != nil {
			return fmt.Errorf("lot %s: %w", lot.ID, err)
		}
		if seenLot[lot.ID] {
			return fmt.Errorf("duplicate lot id %s", lot.ID)
		}
		seenLot[lot.ID] = true
		prefix := lot.SensorPrefix
		if prefix == "" {
			prefix = lot.ID
		}
		if seenPrefix[prefix] {
			return fmt.Errorf("duplicate sensor prefix %s", prefix)
		}
		seenPrefix[prefix] = true
	}
	return nil
}
