package node

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidReading marks a sensor transaction that produced no usable values.
// It is transient: the loop skips the cycle and tries again on the next one.
var ErrInvalidReading = errors.New("invalid sensor reading")

// Reading is one temperature/humidity sample. It is not retained across cycles.
type Reading struct {
	Temperature float32 // °C
	Humidity    float32 // %RH
	Valid       bool
}

// Sensor is a single-shot temperature/humidity source bound to fixed hardware.
type Sensor interface {
	Read() (Reading, error)
}

// ReadSensor reads s once and folds driver errors and non-finite values into
// ErrInvalidReading. The returned Reading has Valid set only on success.
func ReadSensor(s Sensor) (Reading, error) {
	r, err := s.Read()
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	if !isFinite(r.Temperature) || !isFinite(r.Humidity) {
		return Reading{}, fmt.Errorf("%w: non-finite value (T=%v H=%v)", ErrInvalidReading, r.Temperature, r.Humidity)
	}
	r.Valid = true
	return r, nil
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
