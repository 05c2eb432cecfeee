package transitions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/statelog"
)

type memStore struct{ recs []model.Transition }

func (m *memStore) Append(ctx context.Context, tr model.Transition) error {
	m.recs = append(m.recs, tr)
	return nil
}

func (m *memStore) Query(ctx context.Context, q statelog.Query) ([]model.Transition, error) {
	var res []model.Transition
	for _, tr := range m.recs {
		if q.LotID != "" && tr.LotID != q.LotID {
			continue
		}
		if q.Source != "" && tr.Source != q.Source {
			continue
		}
		res = append(res, tr)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	if err := store.Append(context.Background(), model.Transition{
		LotID:     "lot-1",
		SpotID:    "lot-1/S-001",
		From:      model.StatusAvailable,
		To:        model.StatusOccupied,
		Source:    model.SourceSensor,
		Timestamp: time.Now(),
		Version:   1,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(context.Background(), model.Transition{
		LotID:     "lot-2",
		SpotID:    "lot-2/S-001",
		From:      model.StatusReserved,
		To:        model.StatusAvailable,
		Source:    model.SourceSweep,
		Timestamp: time.Now(),
		Version:   3,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/transitions?lot_id=lot-1&source=sensor", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []model.Transition
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].SpotID != "lot-1/S-001" {
		t.Fatalf("unexpected records: %+v", out)
	}

	// unauthorized
	req = httptest.NewRequest("GET", "/api/transitions", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestLogHandler_NoToken(t *testing.T) {
	h := NewLogHandler(&memStore{}, "")
	req := httptest.NewRequest("GET", "/api/transitions", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}
