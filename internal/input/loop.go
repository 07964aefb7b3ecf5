package input

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweeney/smoker-controller/internal/gpio"
	"github.com/sweeney/smoker-controller/internal/logic"
)

// Targets is the part of the setpoint store the input context writes to.
type Targets interface {
	Adjust(ticks int) logic.Setpoints
	ToggleSelector() logic.Setpoints
}

// Loop is the input context. It polls the controls at a fixed period and
// applies decoded actions to the shared setpoints.
type Loop struct {
	controls gpio.ControlReader
	targets  Targets
	decoder  *Decoder
	logger   *slog.Logger
	now      func() time.Time

	readFailing bool
}

// NewLoop creates an input loop.
func NewLoop(controls gpio.ControlReader, targets Targets, debounce time.Duration, logger *slog.Logger, now func() time.Time) *Loop {
	return &Loop{
		controls: controls,
		targets:  targets,
		decoder:  NewDecoder(debounce),
		logger:   logger,
		now:      now,
	}
}

// Poll performs one input cycle.
func (l *Loop) Poll() {
	c, err := l.controls.ReadControls()
	if err != nil {
		// Logged once per failure streak; the loop runs every few milliseconds.
		if !l.readFailing {
			l.logger.Warn("controls read failed", "err", err)
			l.readFailing = true
		}
		return
	}
	if l.readFailing {
		l.logger.Info("controls read recovered")
		l.readFailing = false
	}

	ticks, press := l.decoder.Process(c, l.now())
	if ticks != 0 {
		sp := l.targets.Adjust(ticks)
		l.logger.Debug("setpoint adjusted", "selected", sp.Selected, "enclosure", sp.Enclosure, "probe", sp.Probe)
	}
	if press {
		sp := l.targets.ToggleSelector()
		l.logger.Info("selector toggled", "selected", sp.Selected)
	}
}

// Run polls on every tick until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			l.Poll()
		}
	}
}
