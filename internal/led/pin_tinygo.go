//go:build tinygo

package led

import "machine"

// Output configures pin as a push-pull output, drives it low and returns it.
// machine.Pin already satisfies node.Output.
func Output(pin machine.Pin) machine.Pin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return pin
}
