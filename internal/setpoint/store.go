// Package setpoint holds the user-adjustable targets shared between the input
// context (writer) and the control context (reader).
package setpoint

import (
	"sync"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// Bounds limits encoder adjustment of one target. The zero value is unbounded.
type Bounds struct {
	Min int
	Max int
}

func (b Bounds) clamp(v int) int {
	if b == (Bounds{}) {
		return v
	}
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Config configures a Store.
type Config struct {
	Initial   logic.Setpoints
	Step      int // degrees per encoder tick
	Enclosure Bounds
	Probe     Bounds
}

// Store guards the setpoints with a mutex. Every method operates on the whole
// struct under the lock, so readers never observe a partial update.
type Store struct {
	mu        sync.Mutex
	sp        logic.Setpoints
	step      int
	enclosure Bounds
	probe     Bounds
}

// New creates a Store. An empty selector defaults to the enclosure target.
func New(cfg Config) *Store {
	sp := cfg.Initial
	if sp.Selected == "" {
		sp.Selected = logic.SelectEnclosure
	}
	return &Store{
		sp:        sp,
		step:      cfg.Step,
		enclosure: cfg.Enclosure,
		probe:     cfg.Probe,
	}
}

// Snapshot returns a consistent copy of the setpoints.
func (s *Store) Snapshot() logic.Setpoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sp
}

// Adjust moves the selected target by ticks*step degrees (negative ticks
// lower it), clamped to that target's bounds.
func (s *Store) Adjust(ticks int) logic.Setpoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticks == 0 {
		return s.sp
	}
	delta := ticks * s.step
	if s.sp.Selected == logic.SelectProbe {
		s.sp.Probe = s.probe.clamp(s.sp.Probe + delta)
	} else {
		s.sp.Enclosure = s.enclosure.clamp(s.sp.Enclosure + delta)
	}
	return s.sp
}

// ToggleSelector switches which target the encoder adjusts.
func (s *Store) ToggleSelector() logic.Setpoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp.Selected = s.sp.Selected.Toggle()
	return s.sp
}

// ConvergeEnclosure applies logic.ConvergeTargets against the current values.
// Bounds are not applied: convergence is the controller's decision, not an
// encoder adjustment.
func (s *Store) ConvergeEnclosure(probe logic.Reading) (logic.Setpoints, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	s.sp, changed = logic.ConvergeTargets(probe, s.sp)
	return s.sp, changed
}

var _ logic.Targets = (*Store)(nil)
