// Package config loads the controller configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/leebenson/conform"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/smoker-controller/internal/gpio"
	"github.com/sweeney/smoker-controller/internal/logic"
	"github.com/sweeney/smoker-controller/internal/sensor"
	"github.com/sweeney/smoker-controller/internal/setpoint"
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/smoker-controller/config.yaml"

// Config represents the daemon configuration.
type Config struct {
	Control   ControlConfig   `yaml:"control"`
	Heater    HeaterConfig    `yaml:"heater"`
	Fan       FanConfig       `yaml:"fan"`
	Setpoints SetpointsConfig `yaml:"setpoints"`
	Input     InputConfig     `yaml:"input"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// ControlConfig configures the control context.
type ControlConfig struct {
	Period             time.Duration `yaml:"period" validate:"gt=0"`
	EmergencyThreshold int           `yaml:"emergency_threshold" validate:"gt=0"`
	TripOnSensorFault  bool          `yaml:"trip_on_sensor_fault"`
}

// HeaterConfig tunes the heater controller.
type HeaterConfig struct {
	Buffer   int           `yaml:"buffer" validate:"gte=0"`
	MinCycle time.Duration `yaml:"min_cycle" validate:"gt=0"`
}

// FanConfig tunes the fan controller. OnSpread must exceed OffSpread so the
// hysteresis band is non-empty.
type FanConfig struct {
	OnSpread  int           `yaml:"on_spread" validate:"gtfield=OffSpread"`
	OffSpread int           `yaml:"off_spread" validate:"gte=0"`
	MinCycle  time.Duration `yaml:"min_cycle" validate:"gt=0"`
}

// SetpointsConfig holds the initial targets and encoder limits.
type SetpointsConfig struct {
	Enclosure    int `yaml:"enclosure" validate:"gtefield=EnclosureMin,ltefield=EnclosureMax"`
	Probe        int `yaml:"probe" validate:"gtefield=ProbeMin,ltefield=ProbeMax"`
	Step         int `yaml:"step" validate:"gt=0"`
	EnclosureMin int `yaml:"enclosure_min"`
	EnclosureMax int `yaml:"enclosure_max" validate:"gtfield=EnclosureMin"`
	ProbeMin     int `yaml:"probe_min"`
	ProbeMax     int `yaml:"probe_max" validate:"gtfield=ProbeMin"`
}

// InputConfig configures the input context.
type InputConfig struct {
	Period         time.Duration `yaml:"period" validate:"gt=0"`
	ButtonDebounce time.Duration `yaml:"button_debounce" validate:"gte=0"`
}

// OffsetsConfig holds per-channel calibration offsets in degrees F.
type OffsetsConfig struct {
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
	Probe  int `yaml:"probe"`
}

// SensorsConfig configures the thermocouple bridge.
type SensorsConfig struct {
	Port       string        `yaml:"port" conform:"trim" validate:"required"`
	Baud       int           `yaml:"baud" validate:"gt=0"`
	StaleAfter time.Duration `yaml:"stale_after" validate:"gt=0"`
	Unit       string        `yaml:"unit" conform:"trim,upper" validate:"oneof=F C"`
	Offsets    OffsetsConfig `yaml:"offsets"`
	Average    int           `yaml:"average" validate:"gte=1,lte=50"`
}

// GPIOConfig holds the chip name and BCM line offsets.
type GPIOConfig struct {
	Chip       string `yaml:"chip" conform:"trim" validate:"required"`
	Switch     int    `yaml:"switch" validate:"gte=0"`
	EncoderCLK int    `yaml:"encoder_clk" validate:"gte=0"`
	EncoderDT  int    `yaml:"encoder_dt" validate:"gte=0"`
	Button     int    `yaml:"button" validate:"gte=0"`
	Heater     int    `yaml:"heater" validate:"gte=0"`
	Fan        int    `yaml:"fan" validate:"gte=0"`
}

// MQTTConfig configures telemetry. An empty broker disables it.
type MQTTConfig struct {
	Broker    string        `yaml:"broker" conform:"trim"`
	ClientID  string        `yaml:"client_id" conform:"trim" validate:"required"`
	Heartbeat time.Duration `yaml:"heartbeat" validate:"gte=0"`
	Buffer    int           `yaml:"buffer" validate:"gt=0"`
}

// HTTPConfig configures the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr" conform:"trim"`
}

// LogConfig configures logging. An empty file logs to the console only.
type LogConfig struct {
	Level string `yaml:"level" conform:"trim,lower" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" conform:"trim"`
}

// Default returns the reference configuration.
func Default() *Config {
	p := logic.DefaultParams()
	return &Config{
		Control: ControlConfig{
			Period:             100 * time.Millisecond,
			EmergencyThreshold: p.EmergencyThreshold,
			TripOnSensorFault:  p.TripOnSensorFault,
		},
		Heater: HeaterConfig{
			Buffer:   p.HeaterBuffer,
			MinCycle: p.HeaterMinCycle,
		},
		Fan: FanConfig{
			OnSpread:  p.FanOnSpread,
			OffSpread: p.FanOffSpread,
			MinCycle:  p.FanMinCycle,
		},
		Setpoints: SetpointsConfig{
			Enclosure:    230,
			Probe:        190,
			Step:         2,
			EnclosureMin: 150,
			EnclosureMax: 240,
			ProbeMin:     100,
			ProbeMax:     210,
		},
		Input: InputConfig{
			Period:         5 * time.Millisecond,
			ButtonDebounce: 500 * time.Millisecond,
		},
		Sensors: SensorsConfig{
			Port:       "/dev/ttyACM0",
			Baud:       sensor.DefaultBaudRate,
			StaleAfter: 2 * time.Second,
			Unit:       string(sensor.Fahrenheit),
			Average:    1,
		},
		GPIO: GPIOConfig{
			Chip:       "gpiochip0",
			Switch:     gpio.DefaultPinSwitch,
			EncoderCLK: gpio.DefaultPinEncoderCLK,
			EncoderDT:  gpio.DefaultPinEncoderDT,
			Button:     gpio.DefaultPinButton,
			Heater:     gpio.DefaultPinHeater,
			Fan:        gpio.DefaultPinFan,
		},
		MQTT: MQTTConfig{
			ClientID:  "smoker-controller",
			Heartbeat: 15 * time.Minute,
			Buffer:    100,
		},
		HTTP: HTTPConfig{Addr: ":80"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; fields missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return cfg.Validate()
}

// Validate normalises string fields and checks every constraint.
func (c *Config) Validate() error {
	if err := conform.Strings(c); err != nil {
		return fmt.Errorf("normalise config: %w", err)
	}

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", trimNamespace(fe.Namespace()), fieldRule(fe), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validate config: %w", err)
	}

	// A target the user can dial in must never be an emergency.
	if c.Setpoints.EnclosureMax >= c.Control.EmergencyThreshold {
		return fmt.Errorf("invalid config: setpoints.enclosure_max (%d) must be below control.emergency_threshold (%d)",
			c.Setpoints.EnclosureMax, c.Control.EmergencyThreshold)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// Params returns the control core tuning.
func (c *Config) Params() logic.Params {
	return logic.Params{
		EmergencyThreshold: c.Control.EmergencyThreshold,
		TripOnSensorFault:  c.Control.TripOnSensorFault,
		HeaterBuffer:       c.Heater.Buffer,
		HeaterMinCycle:     c.Heater.MinCycle,
		FanOnSpread:        c.Fan.OnSpread,
		FanOffSpread:       c.Fan.OffSpread,
		FanMinCycle:        c.Fan.MinCycle,
	}
}

// SetpointConfig returns the setpoint store configuration.
func (c *Config) SetpointConfig() setpoint.Config {
	s := c.Setpoints
	return setpoint.Config{
		Initial:   logic.Setpoints{Enclosure: s.Enclosure, Probe: s.Probe, Selected: logic.SelectEnclosure},
		Step:      s.Step,
		Enclosure: setpoint.Bounds{Min: s.EnclosureMin, Max: s.EnclosureMax},
		Probe:     setpoint.Bounds{Min: s.ProbeMin, Max: s.ProbeMax},
	}
}

// SamplerConfig returns the sensor conditioning configuration.
func (c *Config) SamplerConfig() sensor.SamplerConfig {
	o := c.Sensors.Offsets
	return sensor.SamplerConfig{
		Unit:    sensor.Unit(c.Sensors.Unit),
		Offsets: [3]int{o.Top, o.Bottom, o.Probe},
		Average: c.Sensors.Average,
	}
}

// Pins returns the GPIO line offsets.
func (c *Config) Pins() gpio.Pins {
	g := c.GPIO
	return gpio.Pins{
		Switch:     g.Switch,
		EncoderCLK: g.EncoderCLK,
		EncoderDT:  g.EncoderDT,
		Button:     g.Button,
		Heater:     g.Heater,
		Fan:        g.Fan,
	}
}
