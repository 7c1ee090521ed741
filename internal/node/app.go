package node

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval   = 60 * time.Second
	DefaultFaultThreshold = 5
)

// Notifier pushes a payload to subscribed BLE clients. Callers only invoke it
// while connected.
type Notifier interface {
	Notify(payload []byte) error
}

// Advertiser restarts advertising. Some stacks stop advertising once a
// central connects and do not resume after it leaves.
type Advertiser interface {
	Advertise() error
}

// CycleResult says how a single loop pass ended.
type CycleResult int

const (
	Skipped      CycleResult = iota // sensor reading invalid
	NotConnected                    // valid reading, no client
	Sent                            // notified and pulsed
	NotifyFailed                    // stack rejected the notification
)

func (r CycleResult) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case NotConnected:
		return "not_connected"
	case Sent:
		return "sent"
	case NotifyFailed:
		return "notify_failed"
	default:
		return "unknown"
	}
}

type Options struct {
	// Identity is the device address captured at startup.
	Identity string
	// PollInterval is the wait after every pass, including skipped ones.
	PollInterval time.Duration
	// FaultThreshold is the number of consecutive invalid readings after
	// which the failure streak is logged at error level.
	FaultThreshold int

	Sensor     Sensor
	Notifier   Notifier
	Advertiser Advertiser // optional
	Tracker    *Tracker
	Indicator  *Indicator
	Sleep      Sleeper
	Logger     *slog.Logger
}

// App is the node's single cooperative loop.
type App struct {
	opts Options

	failures        int
	lastState       ConnectionState
	lastDisconnects uint32
}

func NewApp(opts Options) *App {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FaultThreshold <= 0 {
		opts.FaultThreshold = DefaultFaultThreshold
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &App{opts: opts, lastState: Disconnected}
}

// Run repeats Cycle followed by the poll interval wait until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.opts.Logger.Info("node: loop started",
		"identity", a.opts.Identity,
		"poll_interval", a.opts.PollInterval,
	)
	for {
		if _, err := a.Cycle(ctx); err != nil {
			return err
		}
		if err := a.opts.Sleep(ctx, a.opts.PollInterval); err != nil {
			return err
		}
	}
}

// Cycle runs one pass: idle pulse, read, encode, notify and activity pulse.
// The returned error is non-nil only when ctx ended during a wait.
func (a *App) Cycle(ctx context.Context) (CycleResult, error) {
	log := a.opts.Logger
	tracker := a.opts.Tracker

	a.observeState(tracker.Current(), tracker.Disconnects())

	if err := a.opts.Indicator.IdlePulse(ctx, tracker.Connected); err != nil {
		return Skipped, err
	}

	reading, err := ReadSensor(a.opts.Sensor)
	if err != nil {
		a.failures++
		log.Warn("sensor: read failed", "error", err, "consecutive_failures", a.failures)
		if a.failures == a.opts.FaultThreshold {
			log.Error("sensor: persistent failure", "consecutive_failures", a.failures)
		}
		return Skipped, nil
	}
	if a.failures > 0 {
		log.Info("sensor: recovered", "after_failures", a.failures)
		a.failures = 0
	}

	payload := EncodePayload(reading, a.opts.Identity)

	if !tracker.Connected() {
		log.Info("ble: not connected", "payload", string(payload))
		return NotConnected, nil
	}

	if err := a.opts.Notifier.Notify(payload); err != nil {
		log.Warn("ble: notify failed", "error", err)
		return NotifyFailed, nil
	}
	log.Info("ble: data sent", "payload", string(payload))

	if err := a.opts.Indicator.ActivityPulse(ctx); err != nil {
		return Sent, err
	}
	return Sent, nil
}

// observeState logs link transitions seen since the previous pass and
// re-arms advertising after a client leaves. A client may connect and leave
// within one wait, so the disconnect count decides, not the state.
func (a *App) observeState(s ConnectionState, disconnects uint32) {
	if s != a.lastState {
		a.lastState = s
		a.opts.Logger.Info("ble: link state changed", "state", s.String())
	}

	if disconnects == a.lastDisconnects {
		return
	}
	a.lastDisconnects = disconnects
	if s != Disconnected || a.opts.Advertiser == nil {
		return
	}
	if err := a.opts.Advertiser.Advertise(); err != nil {
		a.opts.Logger.Warn("ble: re-advertise failed", "error", err)
	}
}

// IsShutdown reports whether err is the loop ending because its context did.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
