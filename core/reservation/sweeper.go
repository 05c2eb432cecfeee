package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/pricing"
	"github.com/parkpulse/parkpulse/core/registry"
)

// DefaultSweepInterval bounds the worst-case staleness of an expired
// reservation. It must stay short relative to the shortest booking window.
const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically reclaims reserved spots whose expiry has passed. Only
// reserved spots are touched: physical occupancy outlives the booking window
// until an exit signal arrives. The sweep is idempotent and the sole actor
// allowed to expire a reservation unilaterally.
type Sweeper struct {
	reg      *registry.Registry
	sink     metrics.Sink
	log      logger.Logger
	interval time.Duration
	now      func() time.Time
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(reg *registry.Registry, interval time.Duration, sink metrics.Sink, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Sweeper{reg: reg, sink: sink, log: log, interval: interval, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *Sweeper) SetClock(now func() time.Time) { s.now = now }

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Per-iteration failures are logged and never terminate the task.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.SweepOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce scans every lot and reclaims expired reservations. It also
// refreshes the per-lot occupancy gauge from the same snapshot.
func (s *Sweeper) SweepOnce() metrics.SweepEvent {
	start := s.now()
	ev := metrics.SweepEvent{Time: start}
	for _, lot := range s.reg.Lots() {
		spots, err := s.reg.ListByLot(lot.ID)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("sweep lot %s: %v", lot.ID, err)
			}
			continue
		}
		for _, spot := range spots {
			ev.Scanned++
			if spot.Status != model.StatusReserved || spot.ReservedUntil.After(start) {
				continue
			}
			_, err := s.reg.CompareAndSet(spot.ID, registry.CAS{
				Expected:       model.StatusReserved,
				ExpectedHolder: spot.ReservedBy,
				Next:           model.StatusAvailable,
				Source:         model.SourceSweep,
			})
			switch {
			case err == nil:
				ev.Reclaimed++
				if s.log != nil {
					s.log.Infof("reclaimed expired reservation on %s (holder %s)", spot.ID, spot.ReservedBy)
				}
			case errors.Is(err, registry.ErrConflict):
				// Lost the race to a sensor event or another actor; the
				// next pass will observe the new state.
			default:
				if s.log != nil {
					s.log.Errorf("sweep %s: %v", spot.ID, err)
				}
			}
		}
		if fresh, err := s.reg.ListByLot(lot.ID); err == nil {
			s.sink.SetOccupancy(lot.ID, pricing.OccupancyRatio(fresh))
		}
	}
	ev.Duration = time.Since(start)
	s.sink.RecordSweep(ev)
	if ev.Reclaimed > 0 && s.log != nil {
		s.log.Debugw("sweep complete", map[string]any{
			"scanned": ev.Scanned, "reclaimed": ev.Reclaimed, "took": ev.Duration.String(),
		})
	}
	return ev
}
