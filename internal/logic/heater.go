package logic

import "time"

// HeaterController drives the heating element with a hysteresis buffer below
// the enclosure target and a minimum dwell between toggles.
type HeaterController struct {
	buffer int
	act    actuator
}

// NewHeaterController creates a controller with the element off.
func NewHeaterController(buffer int, minCycle time.Duration) *HeaterController {
	return &HeaterController{
		buffer: buffer,
		act:    actuator{minCycle: minCycle},
	}
}

// Evaluate runs one cycle against the enclosure target and returns the event
// for a toggle, or "" if the element holds its state.
//
// ON when off and top < target-buffer. OFF when on and top or bottom has
// reached the target. Both directions wait for the minimum dwell.
func (h *HeaterController) Evaluate(top, bottom, target int, now time.Time) EventType {
	if !h.act.canToggle(now) {
		return ""
	}
	if !h.act.state.On && top < target-h.buffer {
		h.act.set(true, now)
		return EventHeaterOn
	}
	if h.act.state.On && (top >= target || bottom >= target) {
		h.act.set(false, now)
		return EventHeaterOff
	}
	return ""
}

// ForceOff switches the element off immediately. It returns EventHeaterOff if
// the element was on.
func (h *HeaterController) ForceOff(now time.Time) EventType {
	if h.act.forceOff(now) {
		return EventHeaterOff
	}
	return ""
}

// State returns the commanded element state.
func (h *HeaterController) State() ActuatorState {
	return h.act.state
}
