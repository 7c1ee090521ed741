package types

import "time"

// Telemetry is one reading forwarded by the gateway.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	MACAddress  string    `json:"mac_address,omitempty"`
	Status      string    `json:"status,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`
}

// StationHealth is the retained link state of a node as seen by the gateway.
type StationHealth struct {
	StationID string    `json:"station_id"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
}
