// Package status provides a thread-safe status tracker for the smoker controller.
// The control loop presents every cycle's status to it; HTTP handlers and
// MQTT system events read snapshots from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	ControlPeriodMs    int64
	InputPeriodMs      int64
	HeartbeatMs        int64
	EmergencyThreshold int
	HeaterBuffer       int
	HeaterMinCycleMs   int64
	FanOnSpread        int
	FanOffSpread       int
	FanMinCycleMs      int64
	SensorPort         string
	Broker             string
	HTTPAddr           string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Controller    logic.Status
	Counts        logic.EventCounts
	Presented     bool // at least one control cycle has completed
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Controller: logic.Status{State: logic.StateOff},
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// Present records the status produced by a control cycle.
func (t *Tracker) Present(st logic.Status, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Controller = st
	t.snap.Counts = counts
	t.snap.Presented = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
