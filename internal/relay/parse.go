package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrMalformedPayload = errors.New("malformed node payload")

// NodeReading is the decoded notification text of a sensor node.
type NodeReading struct {
	Temperature float64
	Humidity    float64
	MACAddress  string
	Status      string
}

type wireReading struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	MACAddress  string   `json:"macAddress"`
	Status      string   `json:"status"`
}

// ParseNotification decodes a node payload. Both measurements must be present
// and finite.
func ParseNotification(data []byte) (NodeReading, error) {
	var w wireReading
	if err := json.Unmarshal(data, &w); err != nil {
		return NodeReading{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if w.Temperature == nil || w.Humidity == nil {
		return NodeReading{}, fmt.Errorf("%w: missing temperature or humidity", ErrMalformedPayload)
	}
	if !finite(*w.Temperature) || !finite(*w.Humidity) {
		return NodeReading{}, fmt.Errorf("%w: non-finite value", ErrMalformedPayload)
	}
	return NodeReading{
		Temperature: *w.Temperature,
		Humidity:    *w.Humidity,
		MACAddress:  w.MACAddress,
		Status:      w.Status,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
