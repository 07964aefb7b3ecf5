// Package control runs the periodic control context: sample, decide, actuate,
// report.
package control

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/smoker-controller/internal/gpio"
	"github.com/sweeney/smoker-controller/internal/logic"
	"github.com/sweeney/smoker-controller/internal/mqtt"
	"github.com/sweeney/smoker-controller/internal/status"
)

// ShutdownReason is the cancellation cause that names why the daemon is
// stopping (e.g. "SIGTERM"). It is reported in the SHUTDOWN event.
type ShutdownReason string

func (r ShutdownReason) Error() string { return "shutdown: " + string(r) }

// Sampler produces one set of conditioned readings per cycle.
type Sampler interface {
	Sample() logic.Readings
}

// Sink receives the status of every cycle.
type Sink interface {
	Present(st logic.Status, counts logic.EventCounts)
}

// Deps are the collaborators of a Loop. Publisher, MQTTStatus and Tracker
// may be nil.
type Deps struct {
	Switch     gpio.Switch
	Outputs    gpio.Outputs
	Sampler    Sampler
	Targets    logic.Targets
	Controller *logic.Controller
	Tracker    *status.Tracker
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Heartbeat  time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Loop is the control context. All actuator state is owned by it.
type Loop struct {
	Deps

	switchFailing bool
	heaterFailing bool
	fanFailing    bool
}

// New creates a control loop.
func New(d Deps) *Loop {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Loop{Deps: d}
}

// Run executes a cycle on every tick. When ctx is cancelled both actuators
// are forced off and a SHUTDOWN event is published before Run returns.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			reason := "CANCELLED"
			var r ShutdownReason
			if errors.As(context.Cause(ctx), &r) {
				reason = string(r)
			}
			l.Shutdown(reason)
			return nil
		case <-tick:
			l.Cycle()
		}
	}
}

// Cycle performs one control cycle and returns its output.
func (l *Loop) Cycle() logic.Output {
	t := l.Now()

	switchOn, err := l.Switch.ReadSwitch()
	if err != nil {
		// A switch we cannot read is treated as released.
		if !l.switchFailing {
			l.Logger.Warn("switch read failed, treating as off", "err", err)
			l.switchFailing = true
		}
		switchOn = false
	} else if l.switchFailing {
		l.Logger.Info("switch read recovered")
		l.switchFailing = false
	}

	out := l.Controller.Step(logic.Input{
		Switch:   switchOn,
		Readings: l.Sampler.Sample(),
		Time:     t,
	}, l.Targets)

	l.drive(out.Status)

	for _, event := range out.Events {
		l.logEvent(event)
		if l.Publisher != nil {
			if err := l.Publisher.Publish(event); err != nil {
				l.Logger.Warn("publish failed", "event", event.Type, "err", err)
			}
		}
	}

	if l.Tracker != nil {
		l.Tracker.Present(out.Status, l.Controller.EventCountsSnapshot())
		if l.MQTTStatus != nil {
			l.Tracker.SetMQTTConnected(l.MQTTStatus.IsConnected())
		}
	}

	if hb := l.Controller.CheckHeartbeat(t, l.Heartbeat); hb != nil {
		l.Logger.Info("heartbeat",
			"uptime", hb.Uptime.Truncate(time.Second),
			"state", hb.Status.State,
			"sessions", hb.Counts.Sessions,
			"errors", hb.Counts.Errors,
			"heater_on", hb.Counts.HeaterOn,
			"fan_on", hb.Counts.FanOn)
		l.publishSystem(hb.Timestamp, "HEARTBEAT", "", false)
	}

	return out
}

// drive reissues both actuator commands. Writes are idempotent, so a failed
// write is simply retried on the next cycle.
func (l *Loop) drive(st logic.Status) {
	if err := l.Outputs.SetHeater(st.Heater.On); err != nil {
		if !l.heaterFailing {
			l.Logger.Warn("heater write failed", "on", st.Heater.On, "err", err)
			l.heaterFailing = true
		}
	} else {
		l.heaterFailing = false
	}

	if err := l.Outputs.SetFan(st.Fan.On); err != nil {
		if !l.fanFailing {
			l.Logger.Warn("fan write failed", "on", st.Fan.On, "err", err)
			l.fanFailing = true
		}
	} else {
		l.fanFailing = false
	}
}

func (l *Loop) logEvent(e logic.Event) {
	st := e.Status
	switch e.Type {
	case logic.EventError:
		l.Logger.Error("emergency shutdown",
			"cause", st.Fault.Cause,
			"channel", st.Fault.Channel,
			"value", st.Fault.Value)
	case logic.EventRunning:
		l.Logger.Info("session started", "session", st.SessionID,
			"enclosure_target", st.Setpoints.Enclosure, "probe_target", st.Setpoints.Probe)
	case logic.EventTargetConverged:
		l.Logger.Info("probe reached target, enclosure target lowered",
			"probe", st.Readings.Probe.Value, "enclosure_target", st.Setpoints.Enclosure)
	default:
		l.Logger.Info("event", "type", e.Type,
			"top", st.Readings.Top.Value, "bottom", st.Readings.Bottom.Value)
	}
}

// Shutdown forces both actuators off and publishes a retained SHUTDOWN event.
func (l *Loop) Shutdown(reason string) {
	l.Logger.Info("shutting down", "reason", reason)

	if err := l.Outputs.SetHeater(false); err != nil {
		l.Logger.Error("failed to turn heater off", "err", err)
	}
	if err := l.Outputs.SetFan(false); err != nil {
		l.Logger.Error("failed to turn fan off", "err", err)
	}

	l.publishSystem(l.Now(), "SHUTDOWN", reason, true)
}

// PublishStartup publishes a retained STARTUP event with a status snapshot.
func (l *Loop) PublishStartup() {
	l.publishSystem(l.Now(), "STARTUP", "", true)
}

func (l *Loop) publishSystem(t time.Time, name, reason string, retained bool) {
	if l.Publisher == nil {
		return
	}
	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     name,
		Reason:    reason,
		Retained:  retained,
	}
	if l.Tracker != nil {
		if l.MQTTStatus != nil {
			l.Tracker.SetMQTTConnected(l.MQTTStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.Tracker.Snapshot(), name, reason)
	}
	if err := l.Publisher.PublishSystem(event); err != nil {
		l.Logger.Warn("failed to publish system event", "event", name, "err", err)
		return
	}
	l.Logger.Debug("published system event", "event", name)
}
