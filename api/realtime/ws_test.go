package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parkpulse/parkpulse/core/broadcast"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
)

func setup(t *testing.T) (*registry.Registry, *broadcast.Hub, *httptest.Server) {
	t.Helper()
	reg := registry.New(nil)
	lot := model.Lot{ID: "lot-1", Name: "Central", BasePrice: 10, TotalSpots: 2}
	if err := reg.AddLot(lot, registry.BuildSpots(lot, "sens")); err != nil {
		t.Fatalf("add lot: %v", err)
	}
	hub := broadcast.New(16, nil, nil)
	mux := http.NewServeMux()
	mux.Handle("GET /ws/lots/{id}", NewSpotStreamHandler(reg, hub, nil))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return reg, hub, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestSpotStreamDeliversDeltas(t *testing.T) {
	_, hub, srv := setup(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/lots/lot-1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Join is asynchronous from the dialer's perspective; wait for the
	// subscription before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("lot-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never joined")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := model.SpotDelta{SpotID: "lot-1/S-001", Status: model.StatusOccupied, Timestamp: time.Now().UTC()}
	hub.Publish("lot-1", want)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.SpotDelta
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.SpotID != want.SpotID || got.Status != want.Status {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestSpotStreamUnknownLot(t *testing.T) {
	_, _, srv := setup(t)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/lots/nope"), nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown lot")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}

func TestSpotStreamClientDisconnectLeavesRoom(t *testing.T) {
	_, hub, srv := setup(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/lots/lot-1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("lot-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never joined")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribers("lot-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never left after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
