package test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parkpulse/parkpulse/core/model"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/core/reservation"
	"github.com/parkpulse/parkpulse/core/sensor"
	"github.com/parkpulse/parkpulse/infra/mqtt"
)

// Requires a reachable broker; set MQTT_BROKER_URL (e.g. tcp://localhost:1883)
// to run.
func TestMQTTIngestion_EndToEnd(t *testing.T) {
	broker := os.Getenv("MQTT_BROKER_URL")
	if broker == "" {
		t.Skip("MQTT_BROKER_URL not set")
	}

	reg := registry.New(nil)
	lot := model.Lot{ID: "lot-it", Name: "Integration", BasePrice: 10, TotalSpots: 3}
	require.NoError(t, reg.AddLot(lot, registry.BuildSpots(lot, "it")))
	coord := reservation.New(reg, nil, nil)
	handler := sensor.NewHandler(reg, coord, nil, nil)

	cfg := mqtt.Config{Broker: broker, ClientID: "parkpulse-it-sub", QoS: 1}
	cfg.SetDefaults()
	subClient, err := mqtt.Connect(cfg)
	require.NoError(t, err)
	defer subClient.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ing := mqtt.NewIngestor(subClient, handler, 64, nil, nil)
	go func() { _ = ing.Start(ctx) }()

	pubCfg := mqtt.Config{Broker: broker, ClientID: "parkpulse-it-pub", QoS: 1}
	pubCfg.SetDefaults()
	pubClient, err := mqtt.Connect(pubCfg)
	require.NoError(t, err)
	defer pubClient.Disconnect()

	spots, err := reg.ListByLot("lot-it")
	require.NoError(t, err)
	target := spots[0]

	// Subscription setup races the first publish; retry until applied.
	payload, err := json.Marshal(model.SensorEvent{
		SensorID:  target.SensorID,
		Occupied:  true,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	topic := sensor.Topic("lot-it", target.SensorID)

	require.Eventually(t, func() bool {
		if err := pubClient.Publish(topic, payload); err != nil {
			return false
		}
		spot, err := reg.Get(target.ID)
		return err == nil && spot.Status == model.StatusOccupied
	}, 10*time.Second, 200*time.Millisecond)
}
