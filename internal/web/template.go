package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/smoker-controller/internal/logic"
	"github.com/sweeney/smoker-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"temp": func(r logic.Reading) string {
		if r.Pending {
			return "waiting"
		}
		if r.Fault {
			return "FAULT"
		}
		return fmt.Sprintf("%d°F", r.Value)
	},
	"onOff": func(a logic.ActuatorState) string {
		if a.On {
			return "ON"
		}
		return "OFF"
	},
	"stateClass": func(s logic.SystemState) string {
		switch s {
		case logic.StateRunning:
			return "on"
		case logic.StateError:
			return "error"
		default:
			return "off"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Smoker Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.error { color: red; font-weight: bold; }
.selected { text-decoration: underline; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Smoker Controller</h1>

<h2>State</h2>
<table>
<tr><th>System</th><td id="state" class="{{stateClass .Controller.State}}">{{.Controller.State}}</td></tr>
{{if eq .Controller.State "ERROR"}}<tr><th>Fault</th><td class="error">{{.Controller.Fault.Cause}} on {{.Controller.Fault.Channel}}{{if eq .Controller.Fault.Cause "OVER_TEMPERATURE"}} ({{.Controller.Fault.Value}}°F){{end}}. Cycle the switch off and on to reset.</td></tr>{{end}}
{{if eq .Controller.State "RUNNING"}}<tr><th>Session</th><td>{{uptime .Elapsed}}</td></tr>{{end}}
<tr><th>Heater</th><td class="{{if .Controller.Heater.On}}on{{else}}off{{end}}">{{onOff .Controller.Heater}}</td></tr>
<tr><th>Fan</th><td class="{{if .Controller.Fan.On}}on{{else}}off{{end}}">{{onOff .Controller.Fan}}</td></tr>
<tr><th>Ready</th><td>{{if .Presented}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Temperatures</h2>
<table>
<tr><th>Top</th><td>{{temp .Controller.Readings.Top}}</td></tr>
<tr><th>Bottom</th><td>{{temp .Controller.Readings.Bottom}}</td></tr>
<tr><th>Probe</th><td>{{temp .Controller.Readings.Probe}}</td></tr>
</table>

<h2>Targets</h2>
<table>
<tr><th>Enclosure</th><td{{if eq .Controller.Setpoints.Selected "ENCLOSURE"}} class="selected"{{end}}>{{.Controller.Setpoints.Enclosure}}°F</td></tr>
<tr><th>Probe</th><td{{if eq .Controller.Setpoints.Selected "PROBE"}} class="selected"{{end}}>{{.Controller.Setpoints.Probe}}°F</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Sessions</th><td>{{.Counts.Sessions}}</td></tr>
<tr><th>Errors</th><td>{{.Counts.Errors}}</td></tr>
<tr><th>Heater ON</th><td>{{.Counts.HeaterOn}}</td></tr>
<tr><th>Fan ON</th><td>{{.Counts.FanOn}}</td></tr>
<tr><th>Converged</th><td>{{.Counts.Converged}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Running}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Control period</th><td>{{.Config.ControlPeriodMs}}ms</td></tr>
<tr><th>Emergency threshold</th><td>{{.Config.EmergencyThreshold}}°F</td></tr>
<tr><th>Heater</th><td>buffer {{.Config.HeaterBuffer}}°F, min cycle {{.Config.HeaterMinCycleMs}}ms</td></tr>
<tr><th>Fan</th><td>on &gt; {{.Config.FanOnSpread}}°F, off &le; {{.Config.FanOffSpread}}°F, min cycle {{.Config.FanMinCycleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sensors</th><td>{{.Config.SensorPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Running time.Duration
		Elapsed time.Duration
	}{
		Snapshot: snap,
		Running:  snap.Uptime(),
		Elapsed:  snap.Controller.Elapsed(),
	}
	return indexTmpl.Execute(w, data)
}
