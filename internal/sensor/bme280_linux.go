//go:build linux && !tinygo

// BME280 over I2C for nodes running on a Linux board.
package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/petterssonb/portfolio-project/internal/node"
)

type BME280 struct {
	bus i2c.BusCloser
	dev *bmxx80.Dev
}

// OpenBME280 opens busName ("" for the default bus) and the device at addr.
// host.Init must have run first.
func OpenBME280(busName string, addr uint16) (*BME280, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2creg.Open(%q): %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("bmxx80.NewI2C(%#x): %w", addr, err)
	}
	return &BME280{bus: bus, dev: dev}, nil
}

func (b *BME280) Read() (node.Reading, error) {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return node.Reading{}, fmt.Errorf("bme280 sense: %w", err)
	}

	// env.Humidity is fixed point at 0.00001 %rH.
	humidity := float64(env.Humidity) / 100000.0

	return node.Reading{
		Temperature: float32(env.Temperature.Celsius()),
		Humidity:    float32(humidity),
	}, nil
}

func (b *BME280) Close() error {
	if err := b.dev.Halt(); err != nil {
		_ = b.bus.Close()
		return err
	}
	return b.bus.Close()
}
