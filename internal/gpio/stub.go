//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Board is not available on non-Linux platforms.
type Board struct{}

// NewBoard returns an error on non-Linux platforms.
func NewBoard(chipName string, pins Pins) (*Board, error) {
	return nil, errUnsupported
}

// ReadSwitch is not implemented on non-Linux platforms.
func (b *Board) ReadSwitch() (bool, error) { return false, errUnsupported }

// ReadControls is not implemented on non-Linux platforms.
func (b *Board) ReadControls() (Controls, error) { return Controls{}, errUnsupported }

// SetHeater is not implemented on non-Linux platforms.
func (b *Board) SetHeater(on bool) error { return errUnsupported }

// SetFan is not implemented on non-Linux platforms.
func (b *Board) SetFan(on bool) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (b *Board) Close() error { return nil }
