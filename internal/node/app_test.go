package node

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIdentity = "AA:BB:CC:DD:EE:FF"

type harness struct {
	app      *App
	tracker  *Tracker
	clock    *fakeClock
	status   *recordingOutput
	activity *recordingOutput
	sensor   *stubSensor
	notifier *recordingNotifier
}

func newHarness(t *testing.T, sensor *stubSensor, opts Options) *harness {
	t.Helper()

	h := &harness{
		clock:    &fakeClock{},
		status:   &recordingOutput{},
		activity: &recordingOutput{},
		sensor:   sensor,
		notifier: &recordingNotifier{},
	}
	ind := NewIndicator(h.status, h.activity, h.clock.Sleep, IndicatorOptions{ConnectedLevel: true})
	h.tracker = NewTracker(ind.ConnectionChanged)

	opts.Identity = testIdentity
	opts.Sensor = sensor
	if opts.Notifier == nil {
		opts.Notifier = h.notifier
	}
	opts.Tracker = h.tracker
	opts.Indicator = ind
	opts.Sleep = h.clock.Sleep
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	h.app = NewApp(opts)
	return h
}

func validSensor() *stubSensor {
	return &stubSensor{readings: []Reading{{Temperature: 23.5, Humidity: 47.2}}}
}

func invalidSensor() *stubSensor {
	nan := float32(math.NaN())
	return &stubSensor{readings: []Reading{{Temperature: nan, Humidity: nan}}}
}

func TestCycle_ConnectedValidReading(t *testing.T) {
	h := newHarness(t, validSensor(), Options{})
	h.tracker.OnConnect()

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Sent, res)
	require.Len(t, h.notifier.payloads, 1)
	assert.Equal(t,
		`{"temperature": 23.50, "humidity": 47.20, "macAddress": "AA:BB:CC:DD:EE:FF", "status": "online"}`,
		h.notifier.payloads[0],
	)
	assert.Equal(t, []bool{true, false, true, false, true, false, true, false}, h.activity.Levels())
	// Only the connect callback touched the status LED; no idle pulse.
	assert.Equal(t, []bool{true}, h.status.Levels())
}

func TestCycle_InvalidReadingConnected(t *testing.T) {
	h := newHarness(t, invalidSensor(), Options{})
	h.tracker.OnConnect()

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Skipped, res)
	assert.Empty(t, h.notifier.payloads)
	assert.Empty(t, h.activity.Levels())
}

func TestCycle_DriverErrorConnected(t *testing.T) {
	s := &stubSensor{readings: []Reading{{}}, errs: []error{errors.New("checksum mismatch")}}
	h := newHarness(t, s, Options{})
	h.tracker.OnConnect()

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Skipped, res)
	assert.Empty(t, h.notifier.payloads)
	assert.Empty(t, h.activity.Levels())
}

func TestCycle_DisconnectedValidReading(t *testing.T) {
	var logs bytes.Buffer
	h := newHarness(t, validSensor(), Options{Logger: bufferLogger(&logs)})

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, NotConnected, res)
	assert.Empty(t, h.notifier.payloads)
	assert.Empty(t, h.activity.Levels())
	assert.Equal(t, []bool{true, false}, h.status.Levels(), "idle pulse ran")
	assert.Equal(t, []time.Duration{ms(200), ms(200)}, h.clock.Waits())
	assert.Contains(t, logs.String(), "ble: not connected")
}

func TestCycle_NotifyFailure(t *testing.T) {
	h := newHarness(t, validSensor(), Options{Notifier: &recordingNotifier{err: errors.New("stack busy")}})
	h.tracker.OnConnect()

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, NotifyFailed, res)
	assert.Empty(t, h.activity.Levels())
}

func TestRun_InvalidReadingWaitsPollInterval(t *testing.T) {
	h := newHarness(t, invalidSensor(), Options{})
	h.tracker.OnConnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.clock.onSleep = func(_ int, d time.Duration) error {
		if d == DefaultPollInterval {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	err := h.app.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsShutdown(err))

	assert.Equal(t, []time.Duration{DefaultPollInterval}, h.clock.Waits())
	assert.Empty(t, h.notifier.payloads)
	assert.Empty(t, h.activity.Levels())
	assert.Equal(t, 1, h.sensor.calls)
}

func TestRun_OneNotifyPerCycle(t *testing.T) {
	h := newHarness(t, validSensor(), Options{PollInterval: time.Minute})
	h.tracker.OnConnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	polls := 0
	h.clock.onSleep = func(_ int, d time.Duration) error {
		if d == time.Minute {
			polls++
			if polls == 3 {
				cancel()
				return ctx.Err()
			}
		}
		return nil
	}

	err := h.app.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Len(t, h.notifier.payloads, 3)
	assert.Len(t, h.activity.Levels(), 3*8)
}

func TestCycle_FaultThresholdLoggedOnce(t *testing.T) {
	var logs bytes.Buffer
	h := newHarness(t, invalidSensor(), Options{FaultThreshold: 3, Logger: bufferLogger(&logs)})
	h.tracker.OnConnect()

	for i := 0; i < 7; i++ {
		_, err := h.app.Cycle(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "sensor: persistent failure"))
	assert.Equal(t, 7, strings.Count(logs.String(), "sensor: read failed"))
}

func TestCycle_FailureStreakResetsOnRecovery(t *testing.T) {
	nan := float32(math.NaN())
	s := &stubSensor{readings: []Reading{
		{Temperature: nan}, {Temperature: nan},
		{Temperature: 20, Humidity: 30},
		{Temperature: nan}, {Temperature: nan},
	}}
	var logs bytes.Buffer
	h := newHarness(t, s, Options{FaultThreshold: 3, Logger: bufferLogger(&logs)})
	h.tracker.OnConnect()

	for i := 0; i < 5; i++ {
		_, err := h.app.Cycle(context.Background())
		require.NoError(t, err)
	}

	assert.Contains(t, logs.String(), "sensor: recovered")
	assert.NotContains(t, logs.String(), "sensor: persistent failure")
}

func TestCycle_ReadvertisesAfterDisconnect(t *testing.T) {
	adv := &countingAdvertiser{}
	h := newHarness(t, validSensor(), Options{Advertiser: adv})

	h.tracker.OnConnect()
	_, err := h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, adv.calls)

	h.tracker.OnDisconnect()
	_, err = h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, adv.calls)

	_, err = h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, adv.calls, "no repeat while state is unchanged")
}

func TestCycle_ReadvertisesAfterVisitWithinOneWait(t *testing.T) {
	adv := &countingAdvertiser{}
	h := newHarness(t, validSensor(), Options{Advertiser: adv})

	_, err := h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, adv.calls)

	// Both events land between two passes.
	h.tracker.OnConnect()
	h.tracker.OnDisconnect()

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NotConnected, res)
	assert.Equal(t, 1, adv.calls)

	_, err = h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, adv.calls)
}

func TestCycle_NoReadvertiseWhileReconnected(t *testing.T) {
	adv := &countingAdvertiser{}
	h := newHarness(t, validSensor(), Options{Advertiser: adv})

	h.tracker.OnConnect()
	h.tracker.OnDisconnect()
	h.tracker.OnConnect()

	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sent, res)
	assert.Equal(t, 0, adv.calls, "stack is connected again, nothing to restart")

	h.tracker.OnDisconnect()
	_, err = h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, adv.calls)
}

func TestCycle_ReadvertiseFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	h := newHarness(t, validSensor(), Options{
		Advertiser: &failingAdvertiser{err: errors.New("stack busy")},
		Logger:     bufferLogger(&logs),
	})

	h.tracker.OnConnect()
	h.tracker.OnDisconnect()
	res, err := h.app.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NotConnected, res)
	assert.Contains(t, logs.String(), "ble: re-advertise failed")
}

func TestCycleResult_String(t *testing.T) {
	assert.Equal(t, "sent", Sent.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "not_connected", NotConnected.String())
	assert.Equal(t, "notify_failed", NotifyFailed.String())
}
