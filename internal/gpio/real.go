//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "smoker-controller"

// Board drives the controller hardware through the Linux GPIO character device.
type Board struct {
	chip   *gpiocdev.Chip
	sw     *gpiocdev.Line
	clk    *gpiocdev.Line
	dt     *gpiocdev.Line
	button *gpiocdev.Line
	heater *gpiocdev.Line
	fan    *gpiocdev.Line
}

// NewBoard requests all lines on chipName. Both outputs start low.
func NewBoard(chipName string, pins Pins) (*Board, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	b := &Board{chip: chip}
	request := func(name string, pin int, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
		l, err := chip.RequestLine(pin, opts...)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", name, pin, err)
		}
		return l, nil
	}

	// Outputs first so the relay is driven low as early as possible.
	if b.heater, err = request("heater", pins.Heater, gpiocdev.AsOutput(0)); err != nil {
		return nil, err
	}
	if b.fan, err = request("fan", pins.Fan, gpiocdev.AsOutput(0)); err != nil {
		return nil, err
	}
	// Switch and button close to ground.
	if b.sw, err = request("switch", pins.Switch, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow); err != nil {
		return nil, err
	}
	if b.button, err = request("button", pins.Button, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow); err != nil {
		return nil, err
	}
	if b.clk, err = request("encoder clk", pins.EncoderCLK, gpiocdev.AsInput); err != nil {
		return nil, err
	}
	if b.dt, err = request("encoder dt", pins.EncoderDT, gpiocdev.AsInput); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadSwitch returns true when the on/off switch is closed.
func (b *Board) ReadSwitch() (bool, error) {
	v, err := b.sw.Value()
	if err != nil {
		return false, fmt.Errorf("read switch pin: %w", err)
	}
	return v == 1, nil
}

// ReadControls samples the encoder phases and the button.
func (b *Board) ReadControls() (Controls, error) {
	clk, err := b.clk.Value()
	if err != nil {
		return Controls{}, fmt.Errorf("read encoder clk pin: %w", err)
	}
	dt, err := b.dt.Value()
	if err != nil {
		return Controls{}, fmt.Errorf("read encoder dt pin: %w", err)
	}
	btn, err := b.button.Value()
	if err != nil {
		return Controls{}, fmt.Errorf("read button pin: %w", err)
	}
	return Controls{EncoderCLK: clk == 1, EncoderDT: dt == 1, Button: btn == 1}, nil
}

// SetHeater drives the heater relay.
func (b *Board) SetHeater(on bool) error {
	if err := b.heater.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set heater pin: %w", err)
	}
	return nil
}

// SetFan drives the fan MOSFET.
func (b *Board) SetFan(on bool) error {
	if err := b.fan.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set fan pin: %w", err)
	}
	return nil
}

// Close drives both outputs low, returns them to input with pull-down
// (matching Pi boot defaults) and releases all lines.
func (b *Board) Close() error {
	var errs []error

	for _, out := range []*gpiocdev.Line{b.heater, b.fan} {
		if out == nil {
			continue
		}
		if err := out.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive output low: %w", err))
		}
		if err := out.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure output: %w", err))
		}
	}
	for _, l := range []*gpiocdev.Line{b.heater, b.fan, b.sw, b.button, b.clk, b.dt} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	return errors.Join(errs...)
}
