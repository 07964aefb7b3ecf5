package input

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/smoker-controller/internal/gpio"
	"github.com/sweeney/smoker-controller/internal/logic"
	"github.com/sweeney/smoker-controller/internal/setpoint"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock returns start, start+step, start+2*step, ... on successive calls.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func newLoop(board *gpio.Fake) (*Loop, *setpoint.Store) {
	store := setpoint.New(setpoint.Config{
		Initial:   logic.Setpoints{Enclosure: 230, Probe: 190},
		Step:      2,
		Enclosure: setpoint.Bounds{Min: 150, Max: 240},
		Probe:     setpoint.Bounds{Min: 100, Max: 210},
	})
	return NewLoop(board, store, DefaultButtonDebounce, discardLogger(), fakeClock(t0, 5*time.Millisecond)), store
}

func TestLoopAdjustsSelectedTarget(t *testing.T) {
	board := gpio.NewFake()
	board.ScriptControls(
		enc(false, false),
		enc(true, false), // +1
		enc(false, false),
		enc(true, false), // +1
		enc(false, false),
		enc(true, true), // -1
		enc(false, false),
	)
	loop, store := newLoop(board)

	for i := 0; i < 7; i++ {
		loop.Poll()
	}

	assert.Equal(t, 232, store.Snapshot().Enclosure)
	assert.Equal(t, 190, store.Snapshot().Probe)
}

func TestLoopButtonTogglesSelector(t *testing.T) {
	board := gpio.NewFake()
	board.ScriptControls(
		btn(false),
		btn(true), // toggle to probe
		btn(false),
		enc(false, true),
		enc(true, true), // -1 on probe
		enc(false, false),
	)
	loop, store := newLoop(board)

	for i := 0; i < 6; i++ {
		loop.Poll()
	}

	sp := store.Snapshot()
	assert.Equal(t, logic.SelectProbe, sp.Selected)
	assert.Equal(t, 188, sp.Probe)
	assert.Equal(t, 230, sp.Enclosure)
}

func TestLoopSurvivesReadErrors(t *testing.T) {
	board := gpio.NewFake()
	board.SetReadError(errors.New("line busy"))
	loop, store := newLoop(board)

	for i := 0; i < 10; i++ {
		loop.Poll()
	}
	assert.Equal(t, 230, store.Snapshot().Enclosure)

	board.SetReadError(nil)
	board.ScriptControls(enc(false, false), enc(true, false))
	loop.Poll()
	loop.Poll()
	assert.Equal(t, 232, store.Snapshot().Enclosure)
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	board := gpio.NewFake()
	board.ScriptControls(enc(false, false), enc(true, false), enc(false, false))
	loop, store := newLoop(board)

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, tick) }()

	for i := 0; i < 3; i++ {
		tick <- time.Time{}
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 232, store.Snapshot().Enclosure)
}
