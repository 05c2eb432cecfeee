package statelog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
)

func sampleTransitions() []model.Transition {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	return []model.Transition{
		{LotID: "lot1", SpotID: "lot1/S-001", From: model.StatusAvailable, To: model.StatusReserved, Holder: "u1", Source: model.SourceBooking, Timestamp: base, Version: 1},
		{LotID: "lot1", SpotID: "lot1/S-001", From: model.StatusReserved, To: model.StatusOccupied, Source: model.SourceSensor, Timestamp: base.Add(time.Minute), Version: 2},
		{LotID: "lot2", SpotID: "lot2/S-001", From: model.StatusAvailable, To: model.StatusOccupied, Source: model.SourceSensor, Timestamp: base.Add(2 * time.Minute), Version: 1},
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, tr := range sampleTransitions() {
		if err := s.Append(ctx, tr); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	byLot, err := s.Query(ctx, Query{LotID: "lot1"})
	if err != nil {
		t.Fatalf("query lot: %v", err)
	}
	if len(byLot) != 2 {
		t.Fatalf("expected 2 lot1 records, got %d", len(byLot))
	}
	if byLot[0].Version != 1 || byLot[1].Version != 2 {
		t.Fatalf("records out of order: %+v", byLot)
	}

	bySource, err := s.Query(ctx, Query{Source: model.SourceBooking})
	if err != nil {
		t.Fatalf("query source: %v", err)
	}
	if len(bySource) != 1 || bySource[0].Holder != "u1" {
		t.Fatalf("source filter failed: %+v", bySource)
	}

	windowed, err := s.Query(ctx, Query{
		Start: time.Date(2026, 8, 30, 10, 1, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 30, 10, 1, 30, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("query window: %v", err)
	}
	if len(windowed) != 1 || windowed[0].To != model.StatusOccupied {
		t.Fatalf("window filter failed: %+v", windowed)
	}
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "transitions.log"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	testStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "transitions.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	testStore(t, s)
}

func TestRecorderDrains(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "transitions.log"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rec := NewRecorder(s, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()
	for _, tr := range sampleTransitions() {
		rec.Record(tr)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	all, err := s.Query(context.Background(), Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 persisted records, got %d", len(all))
	}
}
