package lots

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/pricing"
	"github.com/parkpulse/parkpulse/core/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	lot := model.Lot{ID: "lot-1", Name: "Central", BasePrice: 10, TotalSpots: 4}
	if err := reg.AddLot(lot, registry.BuildSpots(lot, "sens")); err != nil {
		t.Fatalf("add lot: %v", err)
	}
	return reg
}

func TestListHandler(t *testing.T) {
	reg := testRegistry(t)
	h := NewListHandler(reg)

	req := httptest.NewRequest("GET", "/api/lots", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []pricing.LotSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].LotID != "lot-1" {
		t.Fatalf("unexpected summaries: %+v", out)
	}
	if out[0].AvailableSpots != 4 || out[0].CurrentPrice != 10 {
		t.Fatalf("empty lot must price at base: %+v", out[0])
	}
}

func TestListHandler_MethodNotAllowed(t *testing.T) {
	h := NewListHandler(testRegistry(t))
	req := httptest.NewRequest("POST", "/api/lots", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestDetailHandler(t *testing.T) {
	h := NewDetailHandler(testRegistry(t))

	req := httptest.NewRequest("GET", "/api/lots/lot-1", nil)
	req.SetPathValue("id", "lot-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out pricing.LotSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.TotalSpots != 4 {
		t.Fatalf("unexpected summary: %+v", out)
	}

	req = httptest.NewRequest("GET", "/api/lots/nope", nil)
	req.SetPathValue("id", "nope")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestSpotsHandler_Ordered(t *testing.T) {
	h := NewSpotsHandler(testRegistry(t))

	req := httptest.NewRequest("GET", "/api/lots/lot-1/spots", nil)
	req.SetPathValue("id", "lot-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []model.Spot
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 spots, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Number >= out[i].Number {
			t.Fatalf("spots not ordered: %s before %s", out[i-1].Number, out[i].Number)
		}
	}
}

func TestSpotsHandler_StatusFilter(t *testing.T) {
	reg := testRegistry(t)
	spots, err := reg.ListByLot("lot-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := reg.CompareAndSet(spots[0].ID, registry.CAS{
		Expected: model.StatusAvailable,
		Next:     model.StatusOccupied,
		Source:   model.SourceSensor,
	}); err != nil {
		t.Fatalf("cas: %v", err)
	}
	h := NewSpotsHandler(reg)

	req := httptest.NewRequest("GET", "/api/lots/lot-1/spots?status=available", nil)
	req.SetPathValue("id", "lot-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []model.Spot
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 available spots, got %d", len(out))
	}

	req = httptest.NewRequest("GET", "/api/lots/lot-1/spots?status=bogus", nil)
	req.SetPathValue("id", "lot-1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
}
