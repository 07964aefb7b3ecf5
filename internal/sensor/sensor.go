// Package sensor provides the three thermocouple channels to the control loop.
package sensor

import (
	"errors"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// Unit is the temperature unit reported by a Source.
type Unit string

const (
	Fahrenheit Unit = "F"
	Celsius    Unit = "C"
)

var (
	// ErrNoData means nothing has been received for the channel yet.
	ErrNoData = errors.New("sensor: no data")
	// ErrFault means the bridge reported the thermocouple as faulted.
	ErrFault = errors.New("sensor: channel fault")
	// ErrStale means the last good value is older than the staleness limit.
	ErrStale = errors.New("sensor: reading stale")
)

// Source returns the latest raw temperature for a channel in the source's unit.
type Source interface {
	Read(ch logic.Channel) (float64, error)
}
