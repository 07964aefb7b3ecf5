package logic

import "time"

// actuator enforces the minimum dwell between toggles of a binary output.
type actuator struct {
	state    ActuatorState
	minCycle time.Duration
}

func (a *actuator) canToggle(now time.Time) bool {
	if a.state.LastToggle.IsZero() {
		return true
	}
	return now.Sub(a.state.LastToggle) >= a.minCycle
}

func (a *actuator) set(on bool, now time.Time) {
	a.state.On = on
	a.state.LastToggle = now
}

// forceOff switches the output off regardless of dwell. It reports whether
// the output was on.
func (a *actuator) forceOff(now time.Time) bool {
	if !a.state.On {
		return false
	}
	a.set(false, now)
	return true
}
