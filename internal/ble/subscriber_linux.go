//go:build linux && !tinygo

package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"tinygo.org/x/bluetooth"
)

var (
	errNodeNotFound = errors.New("node not found")
	errLinkLost     = errors.New("link lost")
)

type SubscriberOptions struct {
	Adapter            string // "hci0" by default
	DeviceName         string
	ServiceUUID        bluetooth.UUID
	CharacteristicUUID bluetooth.UUID
	ScanTimeout        time.Duration
	MaxRetryInterval   time.Duration
}

// scanner is the discovery half of *bluetooth.Adapter.
type scanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// Subscriber finds a node over BlueZ, subscribes to its notify
// characteristic and reconnects with exponential backoff when the link drops.
type Subscriber struct {
	adapter *bluetooth.Adapter
	scanner scanner
	opts    SubscriberOptions
	logger  *slog.Logger

	lost    chan string
	backoff *backoff.ExponentialBackOff
}

func NewSubscriber(opts SubscriberOptions, logger *slog.Logger) *Subscriber {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if opts.DeviceName == "" {
		opts.DeviceName = DefaultLocalName
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 30 * time.Second
	}
	if opts.MaxRetryInterval <= 0 {
		opts.MaxRetryInterval = time.Minute
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxInterval = opts.MaxRetryInterval
	eb.MaxElapsedTime = 0 // retry until ctx is done

	adapter := bluetooth.NewAdapter(opts.Adapter)
	return &Subscriber{
		adapter: adapter,
		scanner: adapter,
		opts:    opts,
		logger:  logger,
		lost:    make(chan string, 1),
		backoff: eb,
	}
}

// Run blocks until ctx is cancelled, keeping one subscription alive.
func (s *Subscriber) Run(ctx context.Context, h NotificationHandler) error {
	s.logger.Info("ble: enabling adapter", "adapter", s.opts.Adapter)
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", s.opts.Adapter, err)
	}

	s.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		select {
		case s.lost <- device.Address.String():
		default:
		}
	})

	op := func() error {
		err := s.session(ctx, h)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn("ble: session ended, retrying", "error", err, "retry_in", next)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(s.backoff, ctx), notify)
	if ctx.Err() != nil {
		s.logger.Info("ble: subscriber stopped (context canceled)")
		return nil
	}
	return err
}

func (s *Subscriber) session(ctx context.Context, h NotificationHandler) error {
	result, err := s.scan(ctx)
	if err != nil {
		return err
	}
	addr := result.Address.String()

	device, err := s.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("ble connect %s: %w", addr, err)
	}
	subscribed := false
	defer func() {
		_ = device.Disconnect()
		if subscribed {
			h.HandleLink(addr, false)
		}
	}()
	s.logger.Info("ble: connected", "addr", addr, "rssi", result.RSSI)

	// Drop a stale loss signal from a previous session.
	select {
	case <-s.lost:
	default:
	}

	svcs, err := device.DiscoverServices([]bluetooth.UUID{s.opts.ServiceUUID})
	if err != nil {
		return fmt.Errorf("ble discover services: %w", err)
	}
	if len(svcs) == 0 {
		return fmt.Errorf("ble: service %s not found on %s", s.opts.ServiceUUID.String(), addr)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{s.opts.CharacteristicUUID})
	if err != nil {
		return fmt.Errorf("ble discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return fmt.Errorf("ble: characteristic %s not found on %s", s.opts.CharacteristicUUID.String(), addr)
	}

	err = chars[0].EnableNotifications(func(buf []byte) {
		h.HandleNotification(Notification{
			Address:    addr,
			Data:       append([]byte(nil), buf...),
			ReceivedAt: time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("ble enable notifications: %w", err)
	}

	s.backoff.Reset()
	subscribed = true
	h.HandleLink(addr, true)
	s.logger.Info("ble: subscribed", "addr", addr, "characteristic", s.opts.CharacteristicUUID.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case lostAddr := <-s.lost:
			if lostAddr != addr {
				continue
			}
			return fmt.Errorf("%w: %s", errLinkLost, addr)
		}
	}
}

// scan blocks until a node advertising the configured name shows up, the scan
// timeout elapses or ctx ends.
func (s *Subscriber) scan(ctx context.Context) (bluetooth.ScanResult, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
	defer cancel()

	go func() {
		<-scanCtx.Done()
		_ = s.scanner.StopScan()
	}()

	s.logger.Info("ble: scanning", "name", s.opts.DeviceName, "timeout", s.opts.ScanTimeout)

	found := make(chan bluetooth.ScanResult, 1)
	// adapter.Scan blocks until StopScan() or error.
	err := s.scanner.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		if !matchesName(r.LocalName(), s.opts.DeviceName) {
			return
		}
		select {
		case found <- r:
			_ = s.scanner.StopScan()
		default:
		}
	})

	select {
	case r := <-found:
		s.logger.Info("ble: found node", "addr", r.Address.String(), "name", r.LocalName(), "rssi", r.RSSI)
		return r, nil
	default:
	}

	if ctx.Err() != nil {
		return bluetooth.ScanResult{}, ctx.Err()
	}
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("ble scan: %w", err)
	}
	return bluetooth.ScanResult{}, fmt.Errorf("%w: no %q within %s", errNodeNotFound, s.opts.DeviceName, s.opts.ScanTimeout)
}
