// Package mqtt provides telemetry publishing with abstraction for testing.
// Publishing is one-way: nothing received over MQTT feeds back into control.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// Topic is the MQTT topic for controller events.
const Topic = "smoker/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "smoker/controller/system"

// Publisher publishes events to MQTT. It is called from the control loop, so
// implementations must return without waiting on the network.
type Publisher interface {
	// Publish queues a controller event for the broker.
	// Returns error if the event cannot be queued (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem queues a system lifecycle event for the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Smoker SmokerPayload `json:"smoker"`
}

// SmokerPayload contains the controller event details.
type SmokerPayload struct {
	Timestamp      string              `json:"timestamp"`
	Event          string              `json:"event"`
	State          string              `json:"state"`
	Temperatures   TemperaturesPayload `json:"temperatures"`
	Setpoints      SetpointsPayload    `json:"setpoints"`
	Heater         string              `json:"heater"`
	Fan            string              `json:"fan"`
	SessionID      string              `json:"session_id,omitempty"`
	ElapsedSeconds int64               `json:"elapsed_seconds"`
	Fault          *FaultPayload       `json:"fault,omitempty"`
}

// TemperaturesPayload holds one reading per channel. A faulted channel is null.
type TemperaturesPayload struct {
	Top    *int `json:"top"`
	Bottom *int `json:"bottom"`
	Probe  *int `json:"probe"`
}

// SetpointsPayload holds the user targets.
type SetpointsPayload struct {
	Enclosure int `json:"enclosure"`
	Probe     int `json:"probe"`
}

// FaultPayload describes why the controller entered ERROR.
type FaultPayload struct {
	Cause   string `json:"cause"`
	Channel string `json:"channel"`
	Value   int    `json:"value"`
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func temperature(r logic.Reading) *int {
	if r.Fault {
		return nil
	}
	v := r.Value
	return &v
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event logic.Event) ([]byte, error) {
	st := event.Status
	p := SmokerPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		State:     string(st.State),
		Temperatures: TemperaturesPayload{
			Top:    temperature(st.Readings.Top),
			Bottom: temperature(st.Readings.Bottom),
			Probe:  temperature(st.Readings.Probe),
		},
		Setpoints:      SetpointsPayload{Enclosure: st.Setpoints.Enclosure, Probe: st.Setpoints.Probe},
		Heater:         onOff(st.Heater.On),
		Fan:            onOff(st.Fan.On),
		SessionID:      st.SessionID,
		ElapsedSeconds: int64(st.Elapsed().Truncate(time.Second).Seconds()),
	}
	if st.State == logic.StateError && st.Fault.Tripped {
		p.Fault = &FaultPayload{
			Cause:   string(st.Fault.Cause),
			Channel: st.Fault.Channel.String(),
			Value:   st.Fault.Value,
		}
	}
	return json.Marshal(Payload{Smoker: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
