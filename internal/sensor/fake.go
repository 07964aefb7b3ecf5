package sensor

import (
	"sync"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// Fake is a Source with settable per-channel values. It is safe for
// concurrent use.
type Fake struct {
	mu     sync.Mutex
	values [3]float64
	errs   [3]error
	reads  int
}

// NewFake creates a Fake with all channels at the given values.
func NewFake(top, bottom, probe float64) *Fake {
	return &Fake{values: [3]float64{top, bottom, probe}}
}

// Set updates all three channels and clears any errors.
func (f *Fake) Set(top, bottom, probe float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = [3]float64{top, bottom, probe}
	f.errs = [3]error{}
}

// SetError makes reads of ch fail with err. Pass nil to clear.
func (f *Fake) SetError(ch logic.Channel, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[ch] = err
}

// Read implements Source.
func (f *Fake) Read(ch logic.Channel) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.errs[ch] != nil {
		return 0, f.errs[ch]
	}
	return f.values[ch], nil
}

// Reads returns the number of Read calls.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}
