package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/smoker-controller/internal/logic"
	"github.com/sweeney/smoker-controller/internal/sensor"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, logic.DefaultParams(), cfg.Params())
	assert.Equal(t, 100*time.Millisecond, cfg.Control.Period)
	assert.Equal(t, 5*time.Millisecond, cfg.Input.Period)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
control:
  emergency_threshold: 275
fan:
  min_cycle: 90s
sensors:
  unit: " c "
  offsets:
    top: 3
    bottom: 3
mqtt:
  broker: tcp://192.168.1.200:1883
log:
  level: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 275, cfg.Control.EmergencyThreshold)
	assert.Equal(t, 100*time.Millisecond, cfg.Control.Period, "unset field keeps default")
	assert.True(t, cfg.Control.TripOnSensorFault)
	assert.Equal(t, 90*time.Second, cfg.Fan.MinCycle)
	assert.Equal(t, 30, cfg.Fan.OnSpread)
	assert.Equal(t, "C", cfg.Sensors.Unit, "unit is trimmed and upper-cased")
	assert.Equal(t, "debug", cfg.Log.Level, "level is lower-cased")
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)

	sc := cfg.SamplerConfig()
	assert.Equal(t, sensor.Celsius, sc.Unit)
	assert.Equal(t, [3]int{3, 3, 0}, sc.Offsets)
}

func TestLoadDisableSensorFaultTrip(t *testing.T) {
	path := writeConfig(t, "control:\n  trip_on_sensor_fault: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Params().TripOnSensorFault)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "control: [not, a, map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"zero control period", "control:\n  period: 0s\n", "control.period"},
		{"negative heater cycle", "heater:\n  min_cycle: -1s\n", "heater.min_cycle"},
		{"empty hysteresis band", "fan:\n  on_spread: 15\n  off_spread: 15\n", "fan.on_spread"},
		{"enclosure above max", "setpoints:\n  enclosure: 245\n", "setpoints.enclosure"},
		{"probe below min", "setpoints:\n  probe: 90\n", "setpoints.probe"},
		{"inverted probe bounds", "setpoints:\n  probe_min: 220\n  probe_max: 210\n", "setpoints.probe_max"},
		{"zero step", "setpoints:\n  step: 0\n", "setpoints.step"},
		{"bad unit", "sensors:\n  unit: K\n", "sensors.unit"},
		{"bad level", "log:\n  level: verbose\n", "log.level"},
		{"zero average", "sensors:\n  average: 0\n", "sensors.average"},
		{"target reaches emergency", "control:\n  emergency_threshold: 240\n", "emergency_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetpointConfig(t *testing.T) {
	sc := Default().SetpointConfig()

	assert.Equal(t, logic.Setpoints{Enclosure: 230, Probe: 190, Selected: logic.SelectEnclosure}, sc.Initial)
	assert.Equal(t, 2, sc.Step)
	assert.Equal(t, 150, sc.Enclosure.Min)
	assert.Equal(t, 240, sc.Enclosure.Max)
	assert.Equal(t, 100, sc.Probe.Min)
	assert.Equal(t, 210, sc.Probe.Max)
}

func TestPins(t *testing.T) {
	cfg := Default()
	cfg.GPIO.Heater = 5

	p := cfg.Pins()
	assert.Equal(t, 5, p.Heater)
	assert.Equal(t, 17, p.Switch)
}
