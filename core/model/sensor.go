package model

import "time"

// Sensor event types carried in the optional payload "event" field.
const (
	EventVehicleEntry = "vehicle_entry"
	EventVehicleExit  = "vehicle_exit"
)

// SensorEvent is one decoded telemetry message from a stall sensor. Battery
// and temperature are diagnostics only and never influence a transition.
type SensorEvent struct {
	LotID        string    `json:"-"`
	SensorID     string    `json:"sensorId"`
	Occupied     bool      `json:"occupied"`
	Timestamp    time.Time `json:"timestamp"`
	BatteryLevel *int      `json:"batteryLevel,omitempty"`
	Temperature  *int      `json:"temperature,omitempty"`
	Event        string    `json:"event,omitempty"`
}
