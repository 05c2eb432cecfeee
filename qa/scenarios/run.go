package scenarios

import (
	"testing"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/pricing"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/reservation"
	"github.com/parkpulse/parkpulse/core/sensor"
)

// RunScenario drives the registry, coordinator, sensor handler and sweeper
// through the scenario's steps on a fake clock, then checks the final lot
// state against the expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	reg := registry.New(nil)
	reg.SetClock(clock)
	lot := sc.Lot.ToModel()
	if err := reg.AddLot(lot, registry.BuildSpots(lot, "qa")); err != nil {
		t.Fatalf("scenario %s: add lot: %v", sc.Name, err)
	}
	coord := reservation.New(reg, nil, nil)
	coord.SetClock(clock)
	sweeper := reservation.NewSweeper(reg, 0, nil, nil)
	sweeper.SetClock(clock)
	handler := sensor.NewHandler(reg, coord, nil, nil)

	spots, err := reg.ListByLot(lot.ID)
	if err != nil {
		t.Fatalf("scenario %s: list spots: %v", sc.Name, err)
	}
	spotID := func(n int) string {
		if n < 1 || n > len(spots) {
			t.Fatalf("scenario %s: spot index %d out of range", sc.Name, n)
		}
		return spots[n-1].ID
	}
	sensorID := func(n int) string { return spots[n-1].SensorID }

	for i, step := range sc.Steps {
		switch {
		case step.Claim != nil:
			w := model.Window{Start: now, End: now.Add(time.Duration(step.Claim.Minutes) * time.Minute)}
			_, err := coord.Claim(spotID(step.Claim.Spot), step.Claim.Holder, w)
			if step.Fails && err == nil {
				t.Fatalf("scenario %s step %d: claim expected to fail", sc.Name, i)
			}
			if !step.Fails && err != nil {
				t.Fatalf("scenario %s step %d: claim: %v", sc.Name, i, err)
			}
		case step.Release != nil:
			err := coord.Release(spotID(step.Release.Spot), step.Release.Holder)
			if step.Fails && err == nil {
				t.Fatalf("scenario %s step %d: release expected to fail", sc.Name, i)
			}
			if !step.Fails && err != nil {
				t.Fatalf("scenario %s step %d: release: %v", sc.Name, i, err)
			}
		case step.Sensor != nil:
			handler.Apply(model.SensorEvent{
				SensorID:  sensorID(step.Sensor.Spot),
				Occupied:  step.Sensor.Occupied,
				Timestamp: now,
			})
		case step.AdvanceSeconds > 0:
			now = now.Add(time.Duration(step.AdvanceSeconds) * time.Second)
		case step.Sweep:
			sweeper.SweepOnce()
		default:
			t.Fatalf("scenario %s step %d: empty step", sc.Name, i)
		}
	}

	final, err := reg.ListByLot(lot.ID)
	if err != nil {
		t.Fatalf("scenario %s: list spots: %v", sc.Name, err)
	}
	counts := map[model.SpotStatus]int{}
	for _, s := range final {
		counts[s.Status]++
	}
	if counts[model.StatusAvailable] != sc.Expected.Available ||
		counts[model.StatusOccupied] != sc.Expected.Occupied ||
		counts[model.StatusReserved] != sc.Expected.Reserved {
		t.Errorf("scenario %s: expected %d/%d/%d available/occupied/reserved, got %d/%d/%d",
			sc.Name, sc.Expected.Available, sc.Expected.Occupied, sc.Expected.Reserved,
			counts[model.StatusAvailable], counts[model.StatusOccupied], counts[model.StatusReserved])
	}
	if sc.Expected.Price > 0 {
		summary := pricing.Summarize(lot, final)
		if summary.CurrentPrice != sc.Expected.Price {
			t.Errorf("scenario %s: expected price %.2f, got %.2f", sc.Name, sc.Expected.Price, summary.CurrentPrice)
		}
	}
}
