// Package gpio provides the on/off switch, rotary encoder and button inputs
// and the heater and fan outputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Controls is one sample of the user controls, already in logical form.
type Controls struct {
	EncoderCLK bool
	EncoderDT  bool
	Button     bool // true = pressed
}

// Switch reads the on/off switch.
type Switch interface {
	// ReadSwitch returns true when the switch is asserted.
	ReadSwitch() (bool, error)
}

// ControlReader samples the rotary encoder and its push button.
type ControlReader interface {
	ReadControls() (Controls, error)
}

// Outputs drives the two actuators. Calls are idempotent and are reissued
// every control cycle.
type Outputs interface {
	SetHeater(on bool) error
	SetFan(on bool) error
}

// Pins holds BCM line offsets.
type Pins struct {
	Switch     int
	EncoderCLK int
	EncoderDT  int
	Button     int
	Heater     int
	Fan        int
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinSwitch     = 17
	DefaultPinEncoderCLK = 27
	DefaultPinEncoderDT  = 22
	DefaultPinButton     = 23
	DefaultPinHeater     = 24 // solid state relay
	DefaultPinFan        = 25 // MOSFET gate
)

// DefaultPins returns the reference wiring.
func DefaultPins() Pins {
	return Pins{
		Switch:     DefaultPinSwitch,
		EncoderCLK: DefaultPinEncoderCLK,
		EncoderDT:  DefaultPinEncoderDT,
		Button:     DefaultPinButton,
		Heater:     DefaultPinHeater,
		Fan:        DefaultPinFan,
	}
}

func boolToValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
