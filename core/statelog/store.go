// Package statelog persists an append-only audit trail of spot transitions.
// The registry stays authoritative for live state; this log exists for
// after-the-fact inspection of how a spot got where it is.
package statelog

import (
	"context"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
)

// Query defines filters for retrieving records.
type Query struct {
	Start  time.Time
	End    time.Time
	LotID  string
	SpotID string
	Source model.TransitionSource
}

// Store persists transitions and supports querying.
type Store interface {
	Append(ctx context.Context, tr model.Transition) error
	Query(ctx context.Context, q Query) ([]model.Transition, error)
	Close() error
}

func match(tr model.Transition, q Query) bool {
	if !q.Start.IsZero() && tr.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && tr.Timestamp.After(q.End) {
		return false
	}
	if q.LotID != "" && tr.LotID != q.LotID {
		return false
	}
	if q.SpotID != "" && tr.SpotID != q.SpotID {
		return false
	}
	if q.Source != "" && tr.Source != q.Source {
		return false
	}
	return true
}
