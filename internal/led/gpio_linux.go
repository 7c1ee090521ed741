//go:build linux && !tinygo

package led

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIO is an LED on a Linux GPIO line. host.Init must have run before Open.
type GPIO struct {
	name   string
	pin    gpio.PinOut
	logger *slog.Logger
}

// Open looks up a line by name ("GPIO26", "26", ...) and drives it low.
func Open(name string, logger *slog.Logger) (*GPIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("led: gpio %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led: gpio %q out: %w", name, err)
	}
	return &GPIO{name: name, pin: p, logger: logger}, nil
}

func (g *GPIO) Set(on bool) {
	if err := g.pin.Out(gpio.Level(on)); err != nil {
		g.logger.Debug("led: write failed", "pin", g.name, "error", err)
	}
}

// Close turns the LED off and releases the line.
func (g *GPIO) Close() error {
	if err := g.pin.Out(gpio.Low); err != nil {
		return err
	}
	return g.pin.Halt()
}
