// Package scenarios runs YAML-described parking flows against the full
// in-process pipeline, for exploratory QA beyond the unit suites.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/parkpulse/parkpulse/core/model"
)

type LotDef struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	BasePrice float64 `yaml:"base_price"`
	Spots     int     `yaml:"spots"`
}

func (l LotDef) ToModel() model.Lot {
	return model.Lot{
		ID:         l.ID,
		Name:       l.Name,
		BasePrice:  l.BasePrice,
		TotalSpots: l.Spots,
	}
}

// Step is one action in a scenario. Exactly one field group is set per step.
// Spot numbers are 1-based indexes into the generated spot collection.
type Step struct {
	// Claim reserves a spot for a holder.
	Claim *struct {
		Spot    int    `yaml:"spot"`
		Holder  string `yaml:"holder"`
		Minutes int    `yaml:"minutes"`
	} `yaml:"claim,omitempty"`
	// Release cancels a holder's reservation.
	Release *struct {
		Spot   int    `yaml:"spot"`
		Holder string `yaml:"holder"`
	} `yaml:"release,omitempty"`
	// Sensor applies a synthetic occupancy reading.
	Sensor *struct {
		Spot     int  `yaml:"spot"`
		Occupied bool `yaml:"occupied"`
	} `yaml:"sensor,omitempty"`
	// AdvanceSeconds moves the scenario clock forward.
	AdvanceSeconds int `yaml:"advance_seconds,omitempty"`
	// Sweep runs one expiry pass.
	Sweep bool `yaml:"sweep,omitempty"`
	// Fails marks a claim or release step as expected to be rejected.
	Fails bool `yaml:"fails,omitempty"`
}

type Expected struct {
	Available int     `yaml:"available"`
	Occupied  int     `yaml:"occupied"`
	Reserved  int     `yaml:"reserved"`
	Price     float64 `yaml:"price,omitempty"`
}

type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Lot         LotDef   `yaml:"lot"`
	Steps       []Step   `yaml:"steps"`
	Expected    Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
