// Package sensor decodes stall telemetry and applies the resulting status
// transitions. Decoding fails closed: a malformed message is dropped and
// logged without disturbing the channel.
package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/parkpulse/parkpulse/core/model"
)

// TopicPrefix is the root of the sensor topic hierarchy:
// parking/{lotId}/sensor/{sensorId}.
const TopicPrefix = "parking"

// ErrMalformed is returned for undecodable topics or payloads.
var ErrMalformed = errors.New("malformed sensor message")

// SubscribeFilter returns the wildcard filter covering every lot and sensor.
func SubscribeFilter() string {
	return TopicPrefix + "/+/sensor/+"
}

// Topic builds the publish topic for one sensor.
func Topic(lotID, sensorID string) string {
	return fmt.Sprintf("%s/%s/sensor/%s", TopicPrefix, lotID, sensorID)
}

// DecodeTopic extracts the lot and sensor identifiers from a topic.
func DecodeTopic(topic string) (lotID, sensorID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[2] != "sensor" || parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("topic %q: %w", topic, ErrMalformed)
	}
	return parts[1], parts[3], nil
}

// Decode parses one raw message into a SensorEvent. The topic is
// authoritative for lot and sensor identity; unknown payload fields are
// ignored.
func Decode(topic string, payload []byte) (model.SensorEvent, error) {
	lotID, sensorID, err := DecodeTopic(topic)
	if err != nil {
		return model.SensorEvent{}, err
	}
	var ev model.SensorEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return model.SensorEvent{}, fmt.Errorf("payload on %q: %v: %w", topic, err, ErrMalformed)
	}
	ev.LotID = lotID
	ev.SensorID = sensorID
	return ev, nil
}
