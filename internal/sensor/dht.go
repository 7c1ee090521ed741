//go:build tinygo

// DHT11/DHT22 single-wire temperature and humidity sensor.
package sensor

import (
	"machine"

	"tinygo.org/x/drivers/dht"

	"github.com/petterssonb/portfolio-project/internal/node"
)

type DHT struct {
	device dht.Device
}

func NewDHT(pin machine.Pin, kind dht.DeviceType) *DHT {
	return &DHT{device: dht.New(pin, kind)}
}

// Read forces a fresh transaction. Timeouts and checksum mismatches come back
// as errors and the loop treats them as a skipped cycle.
func (d *DHT) Read() (node.Reading, error) {
	if err := d.device.ReadMeasurements(); err != nil {
		return node.Reading{}, err
	}
	t, h, err := d.device.Measurements()
	if err != nil {
		return node.Reading{}, err
	}
	// The driver reports tenths of a degree and tenths of a percent.
	return node.Reading{
		Temperature: float32(t) / 10,
		Humidity:    float32(h) / 10,
	}, nil
}
