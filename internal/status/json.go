package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	State         string           `json:"state"`
	Ready         bool             `json:"ready"`
	Fault         *FaultJSON       `json:"fault,omitempty"`
	Temperatures  TemperaturesJSON `json:"temperatures"`
	Setpoints     SetpointsJSON    `json:"setpoints"`
	Heater        ActuatorJSON     `json:"heater"`
	Fan           ActuatorJSON     `json:"fan"`
	Session       *SessionJSON     `json:"session,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Counts        CountsJSON       `json:"event_counts"`
	Config        ConfigJSON       `json:"config"`
}

// FaultJSON describes the latched error.
type FaultJSON struct {
	Cause   string `json:"cause"`
	Channel string `json:"channel"`
	Value   int    `json:"value"`
}

// TemperaturesJSON holds one reading per channel in degrees F.
// A faulted channel is null.
type TemperaturesJSON struct {
	Top    *int `json:"top"`
	Bottom *int `json:"bottom"`
	Probe  *int `json:"probe"`
}

// SetpointsJSON is the JSON representation of the user targets.
type SetpointsJSON struct {
	Enclosure int    `json:"enclosure"`
	Probe     int    `json:"probe"`
	Selected  string `json:"selected"`
}

// ActuatorJSON is the JSON representation of an actuator.
type ActuatorJSON struct {
	On         bool   `json:"on"`
	LastToggle string `json:"last_toggle,omitempty"`
}

// SessionJSON describes the current cooking session.
type SessionJSON struct {
	ID             string `json:"id"`
	Start          string `json:"start"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Sessions  int `json:"sessions"`
	Errors    int `json:"errors"`
	HeaterOn  int `json:"heater_on"`
	HeaterOff int `json:"heater_off"`
	FanOn     int `json:"fan_on"`
	FanOff    int `json:"fan_off"`
	Converged int `json:"converged"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ControlPeriodMs    int64  `json:"control_period_ms"`
	InputPeriodMs      int64  `json:"input_period_ms"`
	HeartbeatMs        int64  `json:"heartbeat_ms"`
	EmergencyThreshold int    `json:"emergency_threshold"`
	HeaterBuffer       int    `json:"heater_buffer"`
	HeaterMinCycleMs   int64  `json:"heater_min_cycle_ms"`
	FanOnSpread        int    `json:"fan_on_spread"`
	FanOffSpread       int    `json:"fan_off_spread"`
	FanMinCycleMs      int64  `json:"fan_min_cycle_ms"`
	SensorPort         string `json:"sensor_port"`
	Broker             string `json:"broker"`
	HTTPAddr           string `json:"http_addr"`
}

func readingJSON(r logic.Reading) *int {
	if r.Fault {
		return nil
	}
	v := r.Value
	return &v
}

func actuatorJSON(a logic.ActuatorState) ActuatorJSON {
	out := ActuatorJSON{On: a.On}
	if !a.LastToggle.IsZero() {
		out.LastToggle = a.LastToggle.UTC().Format(time.RFC3339)
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.Controller
	state := string(st.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State: state,
		Ready: snap.Presented,
		Temperatures: TemperaturesJSON{
			Top:    readingJSON(st.Readings.Top),
			Bottom: readingJSON(st.Readings.Bottom),
			Probe:  readingJSON(st.Readings.Probe),
		},
		Setpoints: SetpointsJSON{
			Enclosure: st.Setpoints.Enclosure,
			Probe:     st.Setpoints.Probe,
			Selected:  string(st.Setpoints.Selected),
		},
		Heater:        actuatorJSON(st.Heater),
		Fan:           actuatorJSON(st.Fan),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Sessions:  snap.Counts.Sessions,
			Errors:    snap.Counts.Errors,
			HeaterOn:  snap.Counts.HeaterOn,
			HeaterOff: snap.Counts.HeaterOff,
			FanOn:     snap.Counts.FanOn,
			FanOff:    snap.Counts.FanOff,
			Converged: snap.Counts.Converged,
		},
		Config: ConfigJSON{
			ControlPeriodMs:    snap.Config.ControlPeriodMs,
			InputPeriodMs:      snap.Config.InputPeriodMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			EmergencyThreshold: snap.Config.EmergencyThreshold,
			HeaterBuffer:       snap.Config.HeaterBuffer,
			HeaterMinCycleMs:   snap.Config.HeaterMinCycleMs,
			FanOnSpread:        snap.Config.FanOnSpread,
			FanOffSpread:       snap.Config.FanOffSpread,
			FanMinCycleMs:      snap.Config.FanMinCycleMs,
			SensorPort:         snap.Config.SensorPort,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
		},
	}

	if st.State == logic.StateError && st.Fault.Tripped {
		inner.Fault = &FaultJSON{
			Cause:   string(st.Fault.Cause),
			Channel: st.Fault.Channel.String(),
			Value:   st.Fault.Value,
		}
	}
	if st.State == logic.StateRunning {
		inner.Session = &SessionJSON{
			ID:             st.SessionID,
			Start:          st.SessionStart.UTC().Format(time.RFC3339),
			ElapsedSeconds: int64(st.Elapsed().Truncate(time.Second).Seconds()),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
