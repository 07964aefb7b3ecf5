// Package input turns raw rotary encoder and push button samples into
// setpoint adjustments.
package input

import (
	"time"

	"github.com/sweeney/smoker-controller/internal/gpio"
)

// DefaultButtonDebounce is the minimum time between two accepted presses.
const DefaultButtonDebounce = 500 * time.Millisecond

// Decoder detects encoder detents and debounced button presses from
// successive control samples. It is not safe for concurrent use.
type Decoder struct {
	debounce time.Duration

	primed     bool
	prevCLK    bool
	prevButton bool
	lastPress  time.Time // zero until the first accepted press
}

// NewDecoder creates a Decoder. The first sample only primes the previous
// levels and never produces output.
func NewDecoder(debounce time.Duration) *Decoder {
	return &Decoder{debounce: debounce}
}

// Process consumes one sample. ticks is +1 for a clockwise detent, -1 for
// counter-clockwise and 0 otherwise. press reports an accepted button press.
func (d *Decoder) Process(c gpio.Controls, now time.Time) (ticks int, press bool) {
	if !d.primed {
		d.primed = true
		d.prevCLK = c.EncoderCLK
		d.prevButton = c.Button
		return 0, false
	}

	// A detent is counted on the CLK rising edge; DT lags CLK when turning clockwise.
	if c.EncoderCLK && !d.prevCLK {
		if c.EncoderDT != c.EncoderCLK {
			ticks = 1
		} else {
			ticks = -1
		}
	}
	d.prevCLK = c.EncoderCLK

	if c.Button && !d.prevButton {
		if d.lastPress.IsZero() || now.Sub(d.lastPress) >= d.debounce {
			press = true
			d.lastPress = now
		}
	}
	d.prevButton = c.Button

	return ticks, press
}
