package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var overTemp = Trip{Tripped: true, Cause: CauseOverTemperature, Channel: ChannelTop, Value: 260}

func TestStateMachineInitial(t *testing.T) {
	m := NewStateMachine()
	assert.Equal(t, StateOff, m.State())
	assert.True(t, m.SessionStart().IsZero())
	assert.False(t, m.Fault().Tripped)
}

func TestStateMachineOffToRunningStartsSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewStateMachine()

	state, changed := m.Step(false, Trip{}, now)
	assert.Equal(t, StateOff, state)
	assert.False(t, changed)

	state, changed = m.Step(true, Trip{}, now.Add(time.Second))
	assert.Equal(t, StateRunning, state)
	assert.True(t, changed)
	assert.Equal(t, now.Add(time.Second), m.SessionStart())

	state, changed = m.Step(true, Trip{}, now.Add(2*time.Second))
	assert.Equal(t, StateRunning, state)
	assert.False(t, changed)
}

func TestStateMachineSwitchOnAtBoot(t *testing.T) {
	m := NewStateMachine()
	state, changed := m.Step(true, Trip{}, time.Now())
	assert.Equal(t, StateRunning, state)
	assert.True(t, changed)
}

func TestStateMachineOffWhileTripped(t *testing.T) {
	m := NewStateMachine()
	state, _ := m.Step(true, overTemp, time.Now())
	assert.Equal(t, StateError, state)
	assert.Equal(t, overTemp, m.Fault())
}

func TestStateMachineTripWhileSwitchReleased(t *testing.T) {
	m := NewStateMachine()
	state, changed := m.Step(false, overTemp, time.Now())
	assert.Equal(t, StateError, state)
	assert.True(t, changed)
}

func TestStateMachineRunningToOff(t *testing.T) {
	now := time.Now()
	m := NewStateMachine()
	m.Step(true, Trip{}, now)

	state, changed := m.Step(false, Trip{}, now.Add(time.Second))
	assert.Equal(t, StateOff, state)
	assert.True(t, changed)
	assert.True(t, m.SessionStart().IsZero())
}

func TestStateMachineErrorLatch(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewStateMachine()
	m.Step(true, Trip{}, now)

	state, changed := m.Step(true, overTemp, now.Add(time.Second))
	assert.Equal(t, StateError, state)
	assert.True(t, changed)
	assert.True(t, m.SessionStart().IsZero())

	// Cause clears, switch held: stays latched.
	for i := 2; i < 10; i++ {
		state, changed = m.Step(true, Trip{}, now.Add(time.Duration(i)*time.Second))
		assert.Equal(t, StateError, state)
		assert.False(t, changed)
	}

	// Released: still latched.
	state, _ = m.Step(false, Trip{}, now.Add(10*time.Second))
	assert.Equal(t, StateError, state)

	// Reasserted: cleared and a new session starts.
	state, changed = m.Step(true, Trip{}, now.Add(11*time.Second))
	assert.Equal(t, StateRunning, state)
	assert.True(t, changed)
	assert.False(t, m.Fault().Tripped)
	assert.Equal(t, now.Add(11*time.Second), m.SessionStart())
}

func TestStateMachineEdgeWhileStillTripped(t *testing.T) {
	now := time.Now()
	m := NewStateMachine()
	m.Step(true, overTemp, now)
	m.Step(false, overTemp, now.Add(time.Second))

	state, _ := m.Step(true, overTemp, now.Add(2*time.Second))
	assert.Equal(t, StateError, state, "edge while tripped must not clear")

	// Cooled down but no new edge.
	state, _ = m.Step(true, Trip{}, now.Add(3*time.Second))
	assert.Equal(t, StateError, state)

	m.Step(false, Trip{}, now.Add(4*time.Second))
	state, _ = m.Step(true, Trip{}, now.Add(5*time.Second))
	assert.Equal(t, StateRunning, state)
}

func TestStateMachineTripBeatsSwitchRelease(t *testing.T) {
	m := NewStateMachine()
	m.Step(true, Trip{}, time.Now())
	state, _ := m.Step(false, overTemp, time.Now())
	assert.Equal(t, StateError, state)
}
