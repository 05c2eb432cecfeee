package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
)

func sample() []model.Transition {
	return []model.Transition{
		{
			LotID:     "lot-1",
			SpotID:    "lot-1/S-001",
			From:      model.StatusAvailable,
			To:        model.StatusReserved,
			Holder:    "alice",
			Source:    model.SourceBooking,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Version:   1,
		},
		{
			LotID:     "lot-1",
			SpotID:    "lot-1/S-001",
			From:      model.StatusReserved,
			To:        model.StatusOccupied,
			Source:    model.SourceSensor,
			Timestamp: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
			Version:   2,
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out []model.Transition
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 || out[0].Holder != "alice" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,lot_id,spot_id") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[2], "sensor") || !strings.Contains(lines[2], "occupied") {
		t.Fatalf("unexpected row: %s", lines[2])
	}
}
