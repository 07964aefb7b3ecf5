// Package logic contains the pure thermal control core of the smoker controller.
// This package has NO external dependencies (no GPIO, serial, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// SystemState is the top-level controller state.
type SystemState string

const (
	StateOff     SystemState = "OFF"
	StateRunning SystemState = "RUNNING"
	StateError   SystemState = "ERROR"
)

// Channel identifies one of the three thermocouples.
type Channel int

const (
	ChannelTop Channel = iota
	ChannelBottom
	ChannelProbe
)

// Channels lists every channel in evaluation order.
var Channels = []Channel{ChannelTop, ChannelBottom, ChannelProbe}

func (c Channel) String() string {
	switch c {
	case ChannelTop:
		return "top"
	case ChannelBottom:
		return "bottom"
	case ChannelProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// MaxReading and MinReading bound every representable temperature. Sensor
// glitches and open thermocouples are clamped to them.
const (
	MaxReading = 999
	MinReading = -999
)

// Reading is one conditioned temperature sample in whole degrees Fahrenheit.
type Reading struct {
	Value int
	// Latest is the newest conditioned sample when Value is a moving
	// average. Zero means Value is the newest sample.
	Latest  int
	Fault   bool // channel unavailable; Value is meaningless
	Pending bool // no sample has arrived yet; implies Fault
}

// PendingReading returns a reading for a channel that has not reported yet.
func PendingReading() Reading {
	return Reading{Fault: true, Pending: true}
}

// Peak returns the higher of Value and Latest. The emergency monitor trips on
// it so a rising average cannot hide a hot sample.
func (r Reading) Peak() int {
	if r.Latest > r.Value {
		return r.Latest
	}
	return r.Value
}

// Effective returns the value used by the controllers. A faulted channel
// reads as 0.
func (r Reading) Effective() int {
	if r.Fault {
		return 0
	}
	return r.Value
}

// Readings holds one sample per channel for a single control cycle.
type Readings struct {
	Top    Reading
	Bottom Reading
	Probe  Reading
}

// Pending reports whether any channel has not reported yet.
func (r Readings) Pending() bool {
	return r.Top.Pending || r.Bottom.Pending || r.Probe.Pending
}

// Get returns the reading for ch.
func (r Readings) Get(ch Channel) Reading {
	switch ch {
	case ChannelTop:
		return r.Top
	case ChannelBottom:
		return r.Bottom
	default:
		return r.Probe
	}
}

// Selector chooses which target the rotary encoder adjusts.
type Selector string

const (
	SelectEnclosure Selector = "ENCLOSURE"
	SelectProbe     Selector = "PROBE"
)

// Toggle returns the other selector.
func (s Selector) Toggle() Selector {
	if s == SelectProbe {
		return SelectEnclosure
	}
	return SelectProbe
}

// Setpoints are the user-adjustable targets.
type Setpoints struct {
	Enclosure int
	Probe     int
	Selected  Selector
}

// ActuatorState is the commanded state of a binary output.
type ActuatorState struct {
	On         bool
	LastToggle time.Time // zero if the actuator has never toggled
}

// Cause explains why the controller latched an error.
type Cause string

const (
	CauseNone            Cause = ""
	CauseOverTemperature Cause = "OVER_TEMPERATURE"
	CauseSensorFault     Cause = "SENSOR_FAULT"
)

// Trip is the result of one EmergencyMonitor evaluation.
type Trip struct {
	Tripped bool
	Cause   Cause
	Channel Channel
	Value   int
}

// EventType represents a controller transition to be published.
type EventType string

const (
	EventRunning         EventType = "RUNNING"
	EventOff             EventType = "OFF"
	EventError           EventType = "ERROR"
	EventHeaterOn        EventType = "HEATER_ON"
	EventHeaterOff       EventType = "HEATER_OFF"
	EventFanOn           EventType = "FAN_ON"
	EventFanOff          EventType = "FAN_OFF"
	EventTargetConverged EventType = "TARGET_CONVERGED"
)

// Status is a point-in-time view of the controller after a cycle.
type Status struct {
	Time         time.Time
	State        SystemState
	Fault        Trip // latched cause while State is StateError
	Readings     Readings
	Setpoints    Setpoints
	Heater       ActuatorState
	Fan          ActuatorState
	SessionID    string
	SessionStart time.Time
}

// Elapsed returns the session time. It is zero unless the controller is running.
func (s Status) Elapsed() time.Duration {
	if s.State != StateRunning || s.SessionStart.IsZero() {
		return 0
	}
	return s.Time.Sub(s.SessionStart)
}

// Event represents a transition together with the status it produced.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Status    Status
}

// Input is a single control cycle sample.
type Input struct {
	Switch   bool // on/off switch asserted
	Readings Readings
	Time     time.Time
}

// Output is the result of one control cycle.
type Output struct {
	Status Status
	Events []Event
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Sessions  int
	Errors    int
	HeaterOn  int
	HeaterOff int
	FanOn     int
	FanOff    int
	Converged int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
	Status    Status
}

// Params are the tunable constants of the control core.
type Params struct {
	EmergencyThreshold int
	TripOnSensorFault  bool

	HeaterBuffer   int
	HeaterMinCycle time.Duration

	FanOnSpread  int
	FanOffSpread int
	FanMinCycle  time.Duration
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		EmergencyThreshold: 250,
		TripOnSensorFault:  true,
		HeaterBuffer:       5,
		HeaterMinCycle:     10 * time.Second,
		FanOnSpread:        30,
		FanOffSpread:       15,
		FanMinCycle:        60 * time.Second,
	}
}
