package statelog

import (
	"context"

	"github.com/parkpulse/parkpulse/core/logger"
	"github.com/parkpulse/parkpulse/core/model"
)

// Recorder decouples the registry mutation path from log store IO: Record is
// a non-blocking enqueue, a single goroutine drains to the store. When the
// queue is full the transition is counted as lost rather than delaying the
// mutator.
type Recorder struct {
	store Store
	log   logger.Logger
	ch    chan model.Transition
}

// NewRecorder creates a Recorder with the given queue size.
func NewRecorder(store Store, queue int, log logger.Logger) *Recorder {
	if queue <= 0 {
		queue = 256
	}
	return &Recorder{store: store, log: log, ch: make(chan model.Transition, queue)}
}

// Record enqueues the transition for persistence. Never blocks.
func (r *Recorder) Record(tr model.Transition) {
	select {
	case r.ch <- tr:
	default:
		if r.log != nil {
			r.log.Warnf("state log queue full, dropping transition for %s", tr.SpotID)
		}
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is buffered.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case tr := <-r.ch:
					r.append(tr)
				default:
					return
				}
			}
		case tr := <-r.ch:
			r.append(tr)
		}
	}
}

func (r *Recorder) append(tr model.Transition) {
	if err := r.store.Append(context.Background(), tr); err != nil && r.log != nil {
		r.log.Errorf("append transition for %s: %v", tr.SpotID, err)
	}
}
