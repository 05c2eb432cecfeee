// Package reservation serializes claim, release and physical entry/exit
// transitions against the spot registry. Every operation is a single
// optimistic compare-and-set; a lost race is surfaced to the caller as a
// retryable error, never queued or silently dropped.
package reservation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
)

// Coordinator enforces at-most-one-holder-per-spot on behalf of the booking
// workflow and bridges the sensor-driven entry/exit transitions.
type Coordinator struct {
	reg  *registry.Registry
	sink metrics.Sink
	log  logger.Logger
	now  func() time.Time
}

// New creates a Coordinator. A nil sink disables metrics.
func New(reg *registry.Registry, sink metrics.Sink, log logger.Logger) *Coordinator {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Coordinator{reg: reg, sink: sink, log: log, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// Claim atomically reserves an available spot for holder over the window.
// It is optimistic and single-attempt: any status other than available at
// the moment of the attempt yields ErrNotAvailable.
func (c *Coordinator) Claim(spotID, holder string, w model.Window) (model.Reservation, error) {
	if holder == "" {
		return model.Reservation{}, fmt.Errorf("holder is required")
	}
	now := c.now()
	if err := w.Validate(now); err != nil {
		return model.Reservation{}, err
	}
	snap, err := c.reg.CompareAndSet(spotID, registry.CAS{
		Expected: model.StatusAvailable,
		Next:     model.StatusReserved,
		Holder:   holder,
		Expiry:   w.End,
		Source:   model.SourceBooking,
	})
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			c.sink.RecordClaim(metrics.ResultNotFound)
			return model.Reservation{}, err
		case errors.Is(err, registry.ErrConflict):
			c.sink.RecordClaim(metrics.ResultNotAvailable)
			return model.Reservation{}, fmt.Errorf("spot %s: %w", spotID, ErrNotAvailable)
		default:
			c.sink.RecordClaim(metrics.ResultError)
			return model.Reservation{}, err
		}
	}
	c.sink.RecordClaim(metrics.ResultOK)
	res := model.Reservation{
		ID:        uuid.NewString(),
		SpotID:    snap.ID,
		LotID:     snap.LotID,
		Holder:    holder,
		Window:    w,
		CreatedAt: now,
	}
	if c.log != nil {
		c.log.Infof("spot %s reserved by %s until %s", spotID, holder, w.End.Format(time.RFC3339))
	}
	return res, nil
}

// Release cancels the holder's reservation, freeing the spot. Only the
// recorded holder may release.
func (c *Coordinator) Release(spotID, holder string) error {
	spot, err := c.reg.Get(spotID)
	if err != nil {
		c.sink.RecordRelease(metrics.ResultNotFound)
		return err
	}
	if spot.Status != model.StatusReserved || spot.ReservedBy != holder {
		c.sink.RecordRelease(metrics.ResultNotHolder)
		return fmt.Errorf("spot %s: %w", spotID, ErrNotHolder)
	}
	// The holder guard repeats inside the CAS: between the read above and
	// the swap the reservation may have expired and been re-claimed.
	_, err = c.reg.CompareAndSet(spotID, registry.CAS{
		Expected:       model.StatusReserved,
		ExpectedHolder: holder,
		Next:           model.StatusAvailable,
		Source:         model.SourceBooking,
	})
	if err != nil {
		if errors.Is(err, registry.ErrConflict) {
			c.sink.RecordRelease(metrics.ResultNotHolder)
			return fmt.Errorf("spot %s: %w", spotID, ErrNotHolder)
		}
		c.sink.RecordRelease(metrics.ResultError)
		return err
	}
	c.sink.RecordRelease(metrics.ResultOK)
	if c.log != nil {
		c.log.Infof("spot %s released by %s", spotID, holder)
	}
	return nil
}

// ConfirmEntry transitions a spot to occupied on a physical arrival signal.
// A reserved spot converts to occupied, completing the reservation; an
// available spot becomes occupied directly. Reachable only from the
// ingestion path, never from the booking API.
func (c *Coordinator) ConfirmEntry(spotID string) (model.Spot, error) {
	spot, err := c.reg.Get(spotID)
	if err != nil {
		return model.Spot{}, err
	}
	switch spot.Status {
	case model.StatusOccupied:
		return spot, ErrNoChange
	case model.StatusReserved, model.StatusAvailable:
		return c.reg.CompareAndSet(spotID, registry.CAS{
			Expected: spot.Status,
			Next:     model.StatusOccupied,
			Source:   model.SourceSensor,
		})
	default:
		return spot, fmt.Errorf("spot %s is %s: %w", spotID, spot.Status, registry.ErrConflict)
	}
}

// ConfirmExit transitions an occupied spot back to available on a physical
// departure signal. A reserved spot is left untouched: the expiry sweep is
// the sole owner of reservation lifetime.
func (c *Coordinator) ConfirmExit(spotID string) (model.Spot, error) {
	spot, err := c.reg.Get(spotID)
	if err != nil {
		return model.Spot{}, err
	}
	switch spot.Status {
	case model.StatusAvailable:
		return spot, ErrNoChange
	case model.StatusOccupied:
		return c.reg.CompareAndSet(spotID, registry.CAS{
			Expected: model.StatusOccupied,
			Next:     model.StatusAvailable,
			Source:   model.SourceSensor,
		})
	default:
		return spot, fmt.Errorf("spot %s is %s: %w", spotID, spot.Status, registry.ErrConflict)
	}
}
