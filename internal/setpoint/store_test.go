package setpoint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/smoker-controller/internal/logic"
)

func newTestStore() *Store {
	return New(Config{
		Initial:   logic.Setpoints{Enclosure: 230, Probe: 190},
		Step:      2,
		Enclosure: Bounds{Min: 150, Max: 240},
		Probe:     Bounds{Min: 100, Max: 210},
	})
}

func TestNewDefaultsSelector(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, logic.SelectEnclosure, s.Snapshot().Selected)
}

func TestAdjustSelectedTarget(t *testing.T) {
	s := newTestStore()

	sp := s.Adjust(1)
	assert.Equal(t, 232, sp.Enclosure)
	assert.Equal(t, 190, sp.Probe)

	sp = s.Adjust(-3)
	assert.Equal(t, 226, sp.Enclosure)

	s.ToggleSelector()
	sp = s.Adjust(2)
	assert.Equal(t, 226, sp.Enclosure)
	assert.Equal(t, 194, sp.Probe)

	assert.Equal(t, sp, s.Adjust(0))
}

func TestAdjustClampsToBounds(t *testing.T) {
	s := newTestStore()

	assert.Equal(t, 240, s.Adjust(50).Enclosure)
	assert.Equal(t, 150, s.Adjust(-500).Enclosure)

	s.ToggleSelector()
	assert.Equal(t, 210, s.Adjust(50).Probe)
	assert.Equal(t, 100, s.Adjust(-500).Probe)
}

func TestAdjustUnbounded(t *testing.T) {
	s := New(Config{Initial: logic.Setpoints{Enclosure: 230, Probe: 190}, Step: 2})
	assert.Equal(t, 1230, s.Adjust(500).Enclosure)
	assert.Equal(t, -770, s.Adjust(-1000).Enclosure)
}

func TestToggleSelector(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, logic.SelectProbe, s.ToggleSelector().Selected)
	assert.Equal(t, logic.SelectEnclosure, s.ToggleSelector().Selected)
}

func TestConvergeEnclosureIgnoresBounds(t *testing.T) {
	s := New(Config{
		Initial:   logic.Setpoints{Enclosure: 230, Probe: 120},
		Step:      2,
		Enclosure: Bounds{Min: 150, Max: 240},
	})

	sp, changed := s.ConvergeEnclosure(logic.Reading{Value: 119})
	assert.False(t, changed)
	assert.Equal(t, 230, sp.Enclosure)

	sp, changed = s.ConvergeEnclosure(logic.Reading{Value: 121})
	assert.True(t, changed)
	assert.Equal(t, 120, sp.Enclosure)
	assert.Equal(t, 120, s.Snapshot().Enclosure)
}

// Concurrent writers must not lose increments and a concurrent reader must
// never see the target move backwards.
func TestConcurrentAdjustAndSnapshot(t *testing.T) {
	s := New(Config{Initial: logic.Setpoints{Enclosure: 0, Probe: 0}, Step: 1})

	const writers = 4
	const perWriter = 1000

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Adjust(1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		last := 0
		for i := 0; i < 5000; i++ {
			sp := s.Snapshot()
			if sp.Enclosure < last {
				t.Errorf("snapshot went backwards: %d after %d", sp.Enclosure, last)
				return
			}
			last = sp.Enclosure
		}
	}()

	wg.Wait()
	<-done
	require.Equal(t, writers*perWriter, s.Snapshot().Enclosure)
}
