// Package registry holds the live spot table, the single source of truth for
// spot status. All mutations go through CompareAndSet, which serializes per
// spot only: unrelated spots never contend.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/model"
)

// Listener receives every applied transition. Listeners are invoked
// synchronously on the mutation path and must not block; slow consumers
// buffer or drop on their side.
type Listener func(model.Transition)

// CAS describes one conditional status mutation.
type CAS struct {
	// Expected is the status the spot must currently have.
	Expected model.SpotStatus
	// ExpectedHolder, when non-empty, additionally requires the current
	// reservation holder to match. Used by release so a holder cannot evict
	// a reservation re-acquired by someone else.
	ExpectedHolder string
	// Next is the status to apply.
	Next model.SpotStatus
	// Holder and Expiry are recorded when Next is reserved and cleared
	// otherwise.
	Holder string
	Expiry time.Time
	// Source tags the transition for the audit trail and metrics.
	Source model.TransitionSource
}

type record struct {
	mu   sync.Mutex
	spot model.Spot
}

// Registry is the in-memory spot table with per-spot mutual exclusion over
// versioned records.
type Registry struct {
	mu       sync.RWMutex
	lots     map[string]model.Lot
	lotSpots map[string][]string
	spots    map[string]*record
	bySensor map[string]string

	lmu       sync.RWMutex
	listeners []Listener

	log logger.Logger
	now func() time.Time
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	return &Registry{
		lots:     map[string]model.Lot{},
		lotSpots: map[string][]string{},
		spots:    map[string]*record{},
		bySensor: map[string]string{},
		log:      log,
		now:      time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// OnTransition registers a listener for applied transitions.
func (r *Registry) OnTransition(l Listener) {
	r.lmu.Lock()
	r.listeners = append(r.listeners, l)
	r.lmu.Unlock()
}

// BuildSpots creates the deterministic spot set for a lot. Spot numbers are
// zero-padded so the ListByLot order is stable. When sensorPrefix is
// non-empty each spot gets a unique sensor id.
func BuildSpots(lot model.Lot, sensorPrefix string) []model.Spot {
	spots := make([]model.Spot, 0, lot.TotalSpots)
	for i := 1; i <= lot.TotalSpots; i++ {
		num := fmt.Sprintf("S-%03d", i)
		s := model.Spot{
			ID:     fmt.Sprintf("%s/%s", lot.ID, num),
			LotID:  lot.ID,
			Number: num,
			Type:   model.TypeRegular,
			Status: model.StatusAvailable,
		}
		if sensorPrefix != "" {
			s.SensorID = fmt.Sprintf("%s-%03d", sensorPrefix, i)
		}
		spots = append(spots, s)
	}
	return spots
}

// AddLot registers a lot and its spots. Spots must belong to the lot and
// sensor ids must be unique across the registry.
func (r *Registry) AddLot(lot model.Lot, spots []model.Spot) error {
	if err := lot.Validate(); err != nil {
		return fmt.Errorf("lot %s: %w", lot.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[lot.ID]; ok {
		return fmt.Errorf("lot %s already registered", lot.ID)
	}
	// Validate the whole batch before touching the maps so a rejected lot
	// leaves no partially registered spots behind.
	batchIDs := make(map[string]struct{}, len(spots))
	batchSensors := make(map[string]string, len(spots))
	for _, s := range spots {
		if s.LotID != lot.ID {
			return fmt.Errorf("spot %s belongs to lot %s, not %s", s.ID, s.LotID, lot.ID)
		}
		if _, ok := r.spots[s.ID]; ok {
			return fmt.Errorf("spot %s already registered", s.ID)
		}
		if _, ok := batchIDs[s.ID]; ok {
			return fmt.Errorf("spot %s listed twice", s.ID)
		}
		batchIDs[s.ID] = struct{}{}
		if s.SensorID != "" {
			if dup, ok := r.bySensor[s.SensorID]; ok {
				return fmt.Errorf("sensor %s already mapped to spot %s", s.SensorID, dup)
			}
			if dup, ok := batchSensors[s.SensorID]; ok {
				return fmt.Errorf("sensor %s already mapped to spot %s", s.SensorID, dup)
			}
			batchSensors[s.SensorID] = s.ID
		}
	}
	ids := make([]string, 0, len(spots))
	for _, s := range spots {
		if !s.Status.Valid() {
			s.Status = model.StatusAvailable
		}
		if s.LastUpdated.IsZero() {
			s.LastUpdated = r.now()
		}
		r.spots[s.ID] = &record{spot: s}
		if s.SensorID != "" {
			r.bySensor[s.SensorID] = s.ID
		}
		ids = append(ids, s.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.spots[ids[i]].spot.Number < r.spots[ids[j]].spot.Number
	})
	lot.TotalSpots = len(ids)
	r.lots[lot.ID] = lot
	r.lotSpots[lot.ID] = ids
	return nil
}

// Lot returns the lot record for the given id.
func (r *Registry) Lot(lotID string) (model.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lot, ok := r.lots[lotID]
	if !ok {
		return model.Lot{}, ErrLotNotFound
	}
	return lot, nil
}

// Lots returns all registered lots ordered by id.
func (r *Registry) Lots() []model.Lot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Lot, 0, len(r.lots))
	for _, l := range r.lots {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a snapshot of the spot.
func (r *Registry) Get(spotID string) (model.Spot, error) {
	rec, err := r.record(spotID)
	if err != nil {
		return model.Spot{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.spot, nil
}

// BySensor resolves a sensor id to a spot snapshot.
func (r *Registry) BySensor(sensorID string) (model.Spot, error) {
	r.mu.RLock()
	spotID, ok := r.bySensor[sensorID]
	r.mu.RUnlock()
	if !ok {
		return model.Spot{}, ErrSensorNotFound
	}
	return r.Get(spotID)
}

// ListByLot returns snapshots of the lot's spots in stable spot-number order.
func (r *Registry) ListByLot(lotID string) ([]model.Spot, error) {
	r.mu.RLock()
	ids, ok := r.lotSpots[lotID]
	if !ok {
		r.mu.RUnlock()
		return nil, ErrLotNotFound
	}
	ids = append([]string(nil), ids...)
	r.mu.RUnlock()

	out := make([]model.Spot, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(id)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// CompareAndSet atomically applies op to the spot. It returns the updated
// snapshot on success, or ErrConflict when the current status or holder does
// not match the expectation. Every successful mutation bumps the version,
// stamps LastUpdated and notifies listeners in per-spot order.
func (r *Registry) CompareAndSet(spotID string, op CAS) (model.Spot, error) {
	if !op.Next.Valid() {
		return model.Spot{}, fmt.Errorf("invalid target status %q", op.Next)
	}
	rec, err := r.record(spotID)
	if err != nil {
		return model.Spot{}, err
	}
	now := r.now()
	if op.Next == model.StatusReserved {
		if op.Holder == "" {
			return model.Spot{}, fmt.Errorf("reserved status requires a holder")
		}
		if !op.Expiry.After(now) {
			return model.Spot{}, fmt.Errorf("reserved status requires a future expiry")
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.spot.Status != op.Expected {
		return model.Spot{}, fmt.Errorf("spot %s is %s: %w", spotID, rec.spot.Status, ErrConflict)
	}
	if op.ExpectedHolder != "" && rec.spot.ReservedBy != op.ExpectedHolder {
		return model.Spot{}, fmt.Errorf("spot %s held by %s: %w", spotID, rec.spot.ReservedBy, ErrConflict)
	}

	from := rec.spot.Status
	rec.spot.Status = op.Next
	if op.Next == model.StatusReserved {
		rec.spot.ReservedBy = op.Holder
		rec.spot.ReservedUntil = op.Expiry
	} else {
		rec.spot.ReservedBy = ""
		rec.spot.ReservedUntil = time.Time{}
	}
	rec.spot.LastUpdated = now
	rec.spot.Version++
	snap := rec.spot

	tr := model.Transition{
		LotID:     snap.LotID,
		SpotID:    snap.ID,
		From:      from,
		To:        snap.Status,
		Holder:    op.Holder,
		Source:    op.Source,
		Timestamp: now,
		Version:   snap.Version,
	}
	// Listeners run under the per-spot lock so a subscriber observes
	// transitions for one spot in the order they were applied.
	r.lmu.RLock()
	for _, l := range r.listeners {
		l(tr)
	}
	r.lmu.RUnlock()

	if r.log != nil {
		r.log.Debugw("spot transition", map[string]any{
			"spot": snap.ID, "from": string(from), "to": string(snap.Status), "source": string(op.Source),
		})
	}
	return snap, nil
}

func (r *Registry) record(spotID string) (*record, error) {
	r.mu.RLock()
	rec, ok := r.spots[spotID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}
