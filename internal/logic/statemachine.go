package logic

import "time"

// StateMachine tracks Off/Running/Error and the on/off switch edge.
//
//	Off     + trip                 -> Error
//	Off     + switch on            -> Running (session starts)
//	Running + trip                 -> Error
//	Running + switch off           -> Off
//	Error   + switch off->on edge  -> Running if not tripped, else stays Error
type StateMachine struct {
	state        SystemState
	switchPrev   bool
	fault        Trip
	sessionStart time.Time
}

// NewStateMachine returns a machine in StateOff with the switch considered released.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateOff}
}

// Step feeds one cycle's switch level and monitor verdict. It returns the new
// state and whether it differs from the previous one.
func (m *StateMachine) Step(switchOn bool, trip Trip, now time.Time) (SystemState, bool) {
	rising := switchOn && !m.switchPrev
	m.switchPrev = switchOn

	next := m.state
	switch m.state {
	case StateOff:
		if trip.Tripped {
			next = StateError
		} else if switchOn {
			next = StateRunning
		}
	case StateRunning:
		if trip.Tripped {
			next = StateError
		} else if !switchOn {
			next = StateOff
		}
	case StateError:
		if rising && !trip.Tripped {
			next = StateRunning
		}
	}

	if next == m.state {
		return m.state, false
	}

	switch next {
	case StateError:
		m.fault = trip
		m.sessionStart = time.Time{}
	case StateRunning:
		m.fault = Trip{}
		m.sessionStart = now
	case StateOff:
		m.sessionStart = time.Time{}
	}
	m.state = next
	return next, true
}

// State returns the current state.
func (m *StateMachine) State() SystemState {
	return m.state
}

// Fault returns the trip that latched the current error. It is the zero Trip
// outside StateError.
func (m *StateMachine) Fault() Trip {
	return m.fault
}

// SessionStart returns when the current Running session began.
func (m *StateMachine) SessionStart() time.Time {
	return m.sessionStart
}
