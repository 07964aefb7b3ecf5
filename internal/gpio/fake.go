package gpio

import (
	"errors"
	"sync"
)

// Fake is a test double for the whole board. Inputs return scripted
// values and outputs are recorded. It is safe for concurrent use by the
// control and input loops.
type Fake struct {
	mu sync.Mutex

	// switchSamples and controlSamples are consumed one per read.
	// When exhausted the last sample repeats.
	switchSamples  []bool
	switchIndex    int
	controlSamples []Controls
	controlIndex   int

	readErr  error
	writeErr error

	heater      bool
	fan         bool
	heaterCalls int
	fanCalls    int

	closed bool
}

// NewFake creates a Fake with the switch released and controls idle.
func NewFake() *Fake {
	return &Fake{}
}

// ScriptSwitch replaces the scripted switch samples.
func (f *Fake) ScriptSwitch(samples ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchSamples = samples
	f.switchIndex = 0
}

// SetSwitch holds the switch at on until changed.
func (f *Fake) SetSwitch(on bool) {
	f.ScriptSwitch(on)
}

// ScriptControls replaces the scripted control samples.
func (f *Fake) ScriptControls(samples ...Controls) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controlSamples = samples
	f.controlIndex = 0
}

// SetReadError makes every read fail with err. Pass nil to clear.
func (f *Fake) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

// SetWriteError makes every output write fail with err. Pass nil to clear.
func (f *Fake) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// ReadSwitch returns the next scripted switch sample.
func (f *Fake) ReadSwitch() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return false, f.readErr
	}
	if len(f.switchSamples) == 0 {
		return false, nil
	}

	on := f.switchSamples[f.switchIndex]
	if f.switchIndex < len(f.switchSamples)-1 {
		f.switchIndex++
	}
	return on, nil
}

// ReadControls returns the next scripted control sample.
func (f *Fake) ReadControls() (Controls, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return Controls{}, f.readErr
	}
	if len(f.controlSamples) == 0 {
		return Controls{}, nil
	}

	c := f.controlSamples[f.controlIndex]
	if f.controlIndex < len(f.controlSamples)-1 {
		f.controlIndex++
	}
	return c, nil
}

// SetHeater records the heater command.
func (f *Fake) SetHeater(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	f.heater = on
	f.heaterCalls++
	return nil
}

// SetFan records the fan command.
func (f *Fake) SetFan(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	f.fan = on
	f.fanCalls++
	return nil
}

// Heater returns the last commanded heater state.
func (f *Fake) Heater() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heater
}

// Fan returns the last commanded fan state.
func (f *Fake) Fan() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fan
}

// Writes returns how many successful heater and fan writes were made.
func (f *Fake) Writes() (heater, fan int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heaterCalls, f.fanCalls
}

// Close drives both outputs low and marks the fake closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New("already closed")
	}
	f.heater = false
	f.fan = false
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
