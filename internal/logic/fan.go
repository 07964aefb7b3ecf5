package logic

import "time"

// FanController runs the circulation fan on the spread between the top and
// bottom enclosure readings.
type FanController struct {
	onSpread  int
	offSpread int
	act       actuator
}

// NewFanController creates a controller with the fan off. onSpread must be
// greater than offSpread for the hysteresis band to exist.
func NewFanController(onSpread, offSpread int, minCycle time.Duration) *FanController {
	return &FanController{
		onSpread:  onSpread,
		offSpread: offSpread,
		act:       actuator{minCycle: minCycle},
	}
}

// Evaluate runs one cycle and returns the event for a toggle, or "".
func (f *FanController) Evaluate(top, bottom int, now time.Time) EventType {
	if !f.act.canToggle(now) {
		return ""
	}
	spread := top - bottom
	if spread < 0 {
		spread = -spread
	}
	if !f.act.state.On && spread > f.onSpread {
		f.act.set(true, now)
		return EventFanOn
	}
	if f.act.state.On && spread <= f.offSpread {
		f.act.set(false, now)
		return EventFanOff
	}
	return ""
}

// ForceOff stops the fan immediately. It returns EventFanOff if the fan was on.
func (f *FanController) ForceOff(now time.Time) EventType {
	if f.act.forceOff(now) {
		return EventFanOff
	}
	return ""
}

// State returns the commanded fan state.
func (f *FanController) State() ActuatorState {
	return f.act.state
}
