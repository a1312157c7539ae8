// Package liveness implements the receiver's tri-state alive indicator
// (spec §4.6): unknown until the first byte arrives, alive while input
// keeps arriving inside the configured dead interval, dead once it
// doesn't. Grounded on the donor's top708.Device read-loop, which
// tracks a comparable "last good frame" timestamp to detect a stalled
// port.
package liveness

import "time"

// State is the three-valued liveness indicator published on "alive".
type State int

const (
	// Unknown is the state before any input has been observed.
	Unknown State = -1
	// Dead means no input arrived within the dead interval.
	Dead State = 0
	// Alive means input is arriving within the dead interval.
	Alive State = 1
)

// String renders State the way it is published on the wire.
func (s State) String() string {
	switch s {
	case Alive:
		return "1"
	case Dead:
		return "0"
	default:
		return ""
	}
}

// Monitor tracks liveness against a configurable dead interval. It holds
// no goroutine or timer of its own; the caller drives it from its own
// select loop via Deadline/Touch/CheckExpired, matching the style the
// spec ties to a single reset-on-read timer rather than a ticking clock.
type Monitor struct {
	deadAfter time.Duration
	state     State
}

// New returns a Monitor in the Unknown state.
func New(deadAfter time.Duration) *Monitor {
	return &Monitor{deadAfter: deadAfter, state: Unknown}
}

// SetDeadAfter updates the dead interval, e.g. from a cfg/deadtime
// message. It takes effect on the next Touch/CheckExpired.
func (m *Monitor) SetDeadAfter(d time.Duration) {
	m.deadAfter = d
}

// State returns the current liveness state.
func (m *Monitor) State() State {
	return m.state
}

// Touch records that input was just observed; the receiver transitions
// (or stays) Alive, and the caller should reset its deadline timer to
// m.deadAfter from now.
func (m *Monitor) Touch() (changed bool) {
	prev := m.state
	m.state = Alive
	return prev != Alive
}

// CheckExpired is called when the deadline timer fires with no
// intervening Touch; it transitions to Dead. The original tracks
// portalive starting at -1 (Unknown) and fires its alarm handler
// whenever portalive != 0, so the very first deadline with no input at
// all still publishes alive=0 — Unknown counts as "not yet dead" here
// too.
func (m *Monitor) CheckExpired() (changed bool) {
	changed = m.state != Dead
	m.state = Dead
	return changed
}

// Deadline returns the duration to arm a timer for after Touch.
func (m *Monitor) Deadline() time.Duration {
	return m.deadAfter
}
