package logic

import "time"

// Targets is the shared setpoint store as seen from the control context.
type Targets interface {
	// Snapshot returns a consistent copy of the setpoints.
	Snapshot() Setpoints
	// ConvergeEnclosure applies ConvergeTargets atomically against the
	// store's current values and returns the result.
	ConvergeEnclosure(probe Reading) (Setpoints, bool)
}

// Controller runs one control cycle at a time: emergency check, state
// machine, then heater and fan while running.
type Controller struct {
	monitor EmergencyMonitor
	machine *StateMachine
	heater  *HeaterController
	fan     *FanController

	newSessionID func() string
	sessionID    string

	last          Status
	eventCounts   EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewController creates a controller in StateOff with both actuators off.
// newSessionID is called on every entry to StateRunning; it may be nil.
func NewController(p Params, startTime time.Time, newSessionID func() string) *Controller {
	c := &Controller{
		monitor:       EmergencyMonitor{Threshold: p.EmergencyThreshold, TripOnFault: p.TripOnSensorFault},
		machine:       NewStateMachine(),
		heater:        NewHeaterController(p.HeaterBuffer, p.HeaterMinCycle),
		fan:           NewFanController(p.FanOnSpread, p.FanOffSpread, p.FanMinCycle),
		newSessionID:  newSessionID,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	c.last = Status{Time: startTime, State: StateOff}
	return c
}

// Step takes a new input sample and returns the resulting status and any
// events. Outside StateRunning both actuators are forced off every cycle.
func (c *Controller) Step(in Input, targets Targets) Output {
	trip := c.monitor.Check(in.Readings)

	// Hold Off until every channel has reported once. A trip always sees the
	// real switch level.
	switchOn := in.Switch
	if in.Readings.Pending() && !trip.Tripped && c.machine.State() == StateOff {
		switchOn = false
	}

	var types []EventType
	state, changed := c.machine.Step(switchOn, trip, in.Time)
	if changed {
		switch state {
		case StateRunning:
			types = append(types, EventRunning)
			c.sessionID = ""
			if c.newSessionID != nil {
				c.sessionID = c.newSessionID()
			}
		case StateOff:
			types = append(types, EventOff)
		case StateError:
			types = append(types, EventError)
		}
	}

	var sp Setpoints
	if state == StateRunning {
		var converged bool
		sp, converged = targets.ConvergeEnclosure(in.Readings.Probe)
		if converged {
			types = append(types, EventTargetConverged)
		}
		top := in.Readings.Top.Effective()
		bottom := in.Readings.Bottom.Effective()
		types = appendEvent(types, c.heater.Evaluate(top, bottom, sp.Enclosure, in.Time))
		types = appendEvent(types, c.fan.Evaluate(top, bottom, in.Time))
	} else {
		sp = targets.Snapshot()
		types = appendEvent(types, c.heater.ForceOff(in.Time))
		types = appendEvent(types, c.fan.ForceOff(in.Time))
	}

	c.last = Status{
		Time:         in.Time,
		State:        state,
		Fault:        c.machine.Fault(),
		Readings:     in.Readings,
		Setpoints:    sp,
		Heater:       c.heater.State(),
		Fan:          c.fan.State(),
		SessionStart: c.machine.SessionStart(),
	}
	if state == StateRunning {
		c.last.SessionID = c.sessionID
	}

	var events []Event
	for _, t := range types {
		c.count(t)
		events = append(events, Event{Timestamp: in.Time, Type: t, Status: c.last})
	}
	return Output{Status: c.last, Events: events}
}

func appendEvent(types []EventType, t EventType) []EventType {
	if t == "" {
		return types
	}
	return append(types, t)
}

func (c *Controller) count(t EventType) {
	switch t {
	case EventRunning:
		c.eventCounts.Sessions++
	case EventError:
		c.eventCounts.Errors++
	case EventHeaterOn:
		c.eventCounts.HeaterOn++
	case EventHeaterOff:
		c.eventCounts.HeaterOff++
	case EventFanOn:
		c.eventCounts.FanOn++
	case EventFanOff:
		c.eventCounts.FanOff++
	case EventTargetConverged:
		c.eventCounts.Converged++
	}
}

// Status returns the status produced by the most recent Step.
func (c *Controller) Status() Status {
	return c.last
}

// EventCountsSnapshot returns a copy of the event counters.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
		Status:    c.last,
	}
}
