package node

import (
	"context"
	"time"
)

const (
	defaultPulseOn        = 200 * time.Millisecond
	defaultPulseOff       = 200 * time.Millisecond
	defaultActivityBlinks = 4
)

// Output is a binary indicator such as an LED. machine.Pin satisfies it.
type Output interface {
	Set(on bool)
}

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type IndicatorOptions struct {
	PulseOn        time.Duration
	PulseOff       time.Duration
	ActivityBlinks int
	// ConnectedLevel is what the status output holds while a client is
	// connected. false turns it off, true keeps it lit.
	ConnectedLevel bool
}

// Indicator drives the status and activity outputs.
type Indicator struct {
	status   Output
	activity Output
	sleep    Sleeper
	opts     IndicatorOptions
}

func NewIndicator(status, activity Output, sleep Sleeper, opts IndicatorOptions) *Indicator {
	if opts.PulseOn <= 0 {
		opts.PulseOn = defaultPulseOn
	}
	if opts.PulseOff <= 0 {
		opts.PulseOff = defaultPulseOff
	}
	if opts.ActivityBlinks <= 0 {
		opts.ActivityBlinks = defaultActivityBlinks
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Indicator{
		status:   status,
		activity: activity,
		sleep:    sleep,
		opts:     opts,
	}
}

// ConnectionChanged is meant to be the Tracker hook. It runs in the BLE
// callback context, so it only touches the status output.
func (i *Indicator) ConnectionChanged(s ConnectionState) {
	if s == Connected {
		i.status.Set(i.opts.ConnectedLevel)
		return
	}
	i.status.Set(false)
}

// IdlePulse runs one on/off period of the "searching" blink on the status
// output. It does nothing when connected() is already true and stops early if
// a client connects while the LED is lit.
func (i *Indicator) IdlePulse(ctx context.Context, connected func() bool) error {
	if connected() {
		return nil
	}

	i.status.Set(true)
	if err := i.sleep(ctx, i.opts.PulseOn); err != nil {
		i.status.Set(false)
		return err
	}

	i.status.Set(false)
	// The connect callback may have fired between the check above and here.
	if connected() {
		i.status.Set(i.opts.ConnectedLevel)
		return nil
	}
	return i.sleep(ctx, i.opts.PulseOff)
}

// ActivityPulse blinks the activity output ActivityBlinks times. It blocks for
// the whole pattern.
func (i *Indicator) ActivityPulse(ctx context.Context) error {
	for n := 0; n < i.opts.ActivityBlinks; n++ {
		i.activity.Set(true)
		if err := i.sleep(ctx, i.opts.PulseOn); err != nil {
			i.activity.Set(false)
			return err
		}
		i.activity.Set(false)
		if err := i.sleep(ctx, i.opts.PulseOff); err != nil {
			return err
		}
	}
	return nil
}
