// GATT peripheral for the sensor node: one service with one notify
// characteristic carrying the JSON reading.
package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"
)

type PeripheralOptions struct {
	LocalName          string
	ServiceUUID        bluetooth.UUID
	CharacteristicUUID bluetooth.UUID
	Interval           time.Duration // advertising interval, 100ms when zero
}

// LinkObserver receives connect/disconnect events from the stack.
// node.Tracker implements it.
type LinkObserver interface {
	OnConnect()
	OnDisconnect()
}

var errNotStarted = errors.New("ble: peripheral not started")

// advertisement is the part of *bluetooth.Advertisement used after Start.
type advertisement interface {
	Start() error
	Stop() error
}

type Peripheral struct {
	adapter *bluetooth.Adapter
	adv     advertisement
	char    bluetooth.Characteristic
	opts    PeripheralOptions
	address string
	logger  *slog.Logger

	// reregister re-adds the GATT service after a stop, on stacks where
	// stopping the advertisement drops it.
	reregister func() error
}

func NewPeripheral(adapter *bluetooth.Adapter, opts PeripheralOptions, logger *slog.Logger) *Peripheral {
	if opts.LocalName == "" {
		opts.LocalName = DefaultLocalName
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	p := &Peripheral{
		adapter: adapter,
		opts:    opts,
		logger:  logger,
	}
	if stopDropsServices {
		p.reregister = p.registerService
	}
	return p
}

// Start enables the stack, registers the service and begins advertising.
// Link events are forwarded to obs from the stack's callback context.
func (p *Peripheral) Start(obs LinkObserver) error {
	// Must be set before Enable on SoftDevice targets.
	p.adapter.SetConnectHandler(func(_ bluetooth.Device, connected bool) {
		if connected {
			obs.OnConnect()
		} else {
			obs.OnDisconnect()
		}
	})

	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable: %w", err)
	}

	addr, err := p.adapter.Address()
	if err != nil {
		return fmt.Errorf("ble address: %w", err)
	}
	p.address = addr.String()
	p.logger.Info("ble: adapter enabled", "address", p.address)

	if err := p.registerService(); err != nil {
		return err
	}

	adv := p.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.opts.LocalName,
		ServiceUUIDs: []bluetooth.UUID{p.opts.ServiceUUID},
		Interval:     bluetooth.NewDuration(p.opts.Interval),
	}); err != nil {
		return fmt.Errorf("ble configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("ble start advertisement: %w", err)
	}
	p.adv = adv

	p.logger.Info("ble: advertising",
		"name", p.opts.LocalName,
		"service", p.opts.ServiceUUID.String(),
		"characteristic", p.opts.CharacteristicUUID.String(),
	)
	return nil
}

// Address is the adapter MAC captured by Start.
func (p *Peripheral) Address() string {
	return p.address
}

// Notify sets the characteristic value, which notifies subscribed centrals.
func (p *Peripheral) Notify(payload []byte) error {
	if _, err := p.char.Write(payload); err != nil {
		return fmt.Errorf("ble notify: %w", err)
	}
	return nil
}

// Advertise restarts advertising with the configuration from Start.
func (p *Peripheral) Advertise() error {
	if p.adv == nil {
		return errNotStarted
	}
	return restartAdvertising(p.adv, p.reregister, p.logger)
}

func (p *Peripheral) registerService() error {
	err := p.adapter.AddService(&bluetooth.Service{
		UUID: p.opts.ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &p.char,
				UUID:   p.opts.CharacteristicUUID,
				Value:  []byte{},
				// The stack attaches the client characteristic configuration
				// descriptor for notify characteristics.
				Flags: bluetooth.CharacteristicNotifyPermission | bluetooth.CharacteristicReadPermission,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ble add service: %w", err)
	}
	return nil
}

// restartAdvertising stops adv before starting it again. Start on HCI stacks
// spawns a new event poller per call and BlueZ rejects a second registration.
// A failed Stop means nothing was running.
func restartAdvertising(adv advertisement, reregister func() error, logger *slog.Logger) error {
	if err := adv.Stop(); err != nil {
		logger.Debug("ble: advertisement was not running", "error", err)
	}
	if reregister != nil {
		if err := reregister(); err != nil {
			return err
		}
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("ble restart advertisement: %w", err)
	}
	logger.Info("ble: advertising resumed")
	return nil
}
