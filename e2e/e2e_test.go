package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parkpulse/parkpulse/app"
	"github.com/parkpulse/parkpulse/config"
	"github.com/parkpulse/parkpulse/core/metrics"
	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/sensor"
	"github.com/parkpulse/parkpulse/infra/mqtt"
)

const apiAddr = ":18085"

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

// writeJUnit writes the provided report to the given path.
func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// Test_E2E_FullPipeline drives the complete service against a real broker:
// sensor messages in over MQTT, state out over the HTTP API, transitions
// optionally verified in InfluxDB. Set E2E_MQTT_BROKER to run, and
// E2E_INFLUX_URL / E2E_INFLUX_TOKEN / E2E_INFLUX_ORG / E2E_INFLUX_BUCKET
// for the Influx leg.
func Test_E2E_FullPipeline(t *testing.T) {
	broker := os.Getenv("E2E_MQTT_BROKER")
	if broker == "" {
		t.Skip("E2E_MQTT_BROKER not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	influxURL := os.Getenv("E2E_INFLUX_URL")
	cfg := &config.Config{
		MQTT: mqtt.Config{Broker: broker, ClientID: "parkpulse-e2e", QoS: 1},
		Metrics: metrics.Config{
			InfluxEnabled: influxURL != "",
			InfluxURL:     influxURL,
			InfluxToken:   os.Getenv("E2E_INFLUX_TOKEN"),
			InfluxOrg:     os.Getenv("E2E_INFLUX_ORG"),
			InfluxBucket:  os.Getenv("E2E_INFLUX_BUCKET"),
		},
		StateLog:             config.StateLogConfig{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "transitions.log"), Queue: 64},
		API:                  config.APIConfig{Addr: apiAddr, BroadcastBuffer: 16},
		SweepIntervalSeconds: 1,
		Lots: []config.LotConfig{
			{ID: "lot-e2e", Name: "E2E Garage", BasePrice: 10, Spots: 5, SensorPrefix: "e2e"},
		},
	}
	cfg.MQTT.SetDefaults()

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	go func() { _ = svc.Run(ctx) }()
	defer func() { _ = svc.Close() }()

	pub, err := mqtt.Connect(mqtt.Config{Broker: broker, ClientID: "parkpulse-e2e-pub", QoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pub.Disconnect()

	base := "http://localhost" + apiAddr

	waitForAPI(t, base+"/api/lots")

	rep := junitReport{Name: "e2e"}
	check := func(name string, fn func() error) {
		start := time.Now()
		tc := junitTestCase{Name: name}
		if err := fn(); err != nil {
			msg := err.Error()
			tc.Failure = &msg
			rep.Failures++
			t.Errorf("%s: %v", name, err)
		}
		tc.Time = time.Since(start).Seconds()
		rep.Tests++
		rep.Cases = append(rep.Cases, tc)
	}

	check("sensor_drives_state", func() error {
		payload, err := json.Marshal(model.SensorEvent{SensorID: "e2e-001", Occupied: true, Timestamp: time.Now().UTC()})
		if err != nil {
			return err
		}
		deadline := time.Now().Add(15 * time.Second)
		for time.Now().Before(deadline) {
			if err := pub.Publish(sensor.Topic("lot-e2e", "e2e-001"), payload); err == nil {
				if spotStatus(t, base, "lot-e2e/S-001") == model.StatusOccupied {
					return nil
				}
			}
			time.Sleep(300 * time.Millisecond)
		}
		return fmt.Errorf("spot never became occupied")
	})

	check("claim_and_conflict", func() error {
		body := map[string]any{
			"spot_id": "lot-e2e/S-002",
			"holder":  "alice",
			"window":  model.Window{Start: time.Now(), End: time.Now().Add(time.Hour)},
		}
		if code := postStatus(t, base+"/api/claim", body); code != http.StatusCreated {
			return fmt.Errorf("claim returned %d", code)
		}
		body["holder"] = "bob"
		if code := postStatus(t, base+"/api/claim", body); code != http.StatusConflict {
			return fmt.Errorf("second claim returned %d, want 409", code)
		}
		return nil
	})

	check("expiry_sweep", func() error {
		body := map[string]any{
			"spot_id": "lot-e2e/S-003",
			"holder":  "carol",
			"window":  model.Window{Start: time.Now(), End: time.Now().Add(2 * time.Second)},
		}
		if code := postStatus(t, base+"/api/claim", body); code != http.StatusCreated {
			return fmt.Errorf("claim returned %d", code)
		}
		deadline := time.Now().Add(15 * time.Second)
		for time.Now().Before(deadline) {
			if spotStatus(t, base, "lot-e2e/S-003") == model.StatusAvailable {
				return nil
			}
			time.Sleep(300 * time.Millisecond)
		}
		return fmt.Errorf("reservation never swept")
	})

	if influxURL != "" {
		check("influx_transitions", func() error {
			cli := NewInfluxClient(influxURL, os.Getenv("E2E_INFLUX_ORG"), os.Getenv("E2E_INFLUX_BUCKET"), os.Getenv("E2E_INFLUX_TOKEN"))
			defer cli.Close()
			n, err := cli.CountTransitions(ctx, "lot-e2e", 5*time.Minute)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no spot_transition points recorded")
			}
			return nil
		})
	}

	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}

func waitForAPI(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatal("api never came up")
}

func spotStatus(t *testing.T, base, spotID string) model.SpotStatus {
	t.Helper()
	resp, err := http.Get(base + "/api/lots/lot-e2e/spots")
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	var spots []model.Spot
	if err := json.NewDecoder(resp.Body).Decode(&spots); err != nil {
		return ""
	}
	for _, s := range spots {
		if s.ID == spotID {
			return s.Status
		}
	}
	return ""
}

func postStatus(t *testing.T, url string, body map[string]any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode
}
