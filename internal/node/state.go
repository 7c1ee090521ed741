package node

import "sync/atomic"

type ConnectionState uint32

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Tracker holds the link state reported by the BLE stack.
//
// OnConnect and OnDisconnect are the only writers and may run in the stack's
// callback context (an interrupt on some MCUs), concurrently with the loop.
// The last event wins.
type Tracker struct {
	state       atomic.Uint32
	disconnects atomic.Uint32
	onChange    func(ConnectionState)
}

// NewTracker returns a tracker in the Disconnected state. onChange, if not nil,
// runs synchronously in the caller's context on every event and must not block.
func NewTracker(onChange func(ConnectionState)) *Tracker {
	return &Tracker{onChange: onChange}
}

func (t *Tracker) OnConnect() { t.set(Connected) }

func (t *Tracker) OnDisconnect() {
	t.disconnects.Add(1)
	t.set(Disconnected)
}

func (t *Tracker) Current() ConnectionState {
	return ConnectionState(t.state.Load())
}

func (t *Tracker) Connected() bool {
	return t.Current() == Connected
}

// Disconnects counts disconnect events since creation. It wraps on overflow;
// compare values for equality only.
func (t *Tracker) Disconnects() uint32 {
	return t.disconnects.Load()
}

func (t *Tracker) set(s ConnectionState) {
	t.state.Store(uint32(s))
	if t.onChange != nil {
		t.onChange(s)
	}
}
