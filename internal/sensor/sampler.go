package sensor

import (
	"errors"
	"log/slog"
	"math"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// SamplerConfig conditions raw source values.
type SamplerConfig struct {
	Unit    Unit
	Offsets [3]int // per channel, whole degrees F, added after conversion
	Average int    // moving average window; 0 or 1 disables averaging
}

// Sampler turns raw source values into conditioned readings for one
// control cycle. It is owned by the control context and is not safe for
// concurrent use.
type Sampler struct {
	src     Source
	cfg     SamplerConfig
	logger  *slog.Logger
	windows [3]window
	faulted [3]bool
}

// NewSampler creates a Sampler reading from src.
func NewSampler(src Source, cfg SamplerConfig, logger *slog.Logger) *Sampler {
	size := cfg.Average
	if size < 1 {
		size = 1
	}
	s := &Sampler{src: src, cfg: cfg, logger: logger}
	for i := range s.windows {
		s.windows[i] = window{buf: make([]float64, 0, size), size: size}
	}
	return s
}

// Sample reads every channel once.
func (s *Sampler) Sample() logic.Readings {
	return logic.Readings{
		Top:    s.read(logic.ChannelTop),
		Bottom: s.read(logic.ChannelBottom),
		Probe:  s.read(logic.ChannelProbe),
	}
}

func (s *Sampler) read(ch logic.Channel) logic.Reading {
	raw, err := s.src.Read(ch)
	if errors.Is(err, ErrNoData) {
		return logic.PendingReading()
	}
	if err == nil && (math.IsNaN(raw) || math.IsInf(raw, 0)) {
		err = ErrFault
	}
	if err != nil {
		if !s.faulted[ch] {
			s.logger.Warn("sensor fault", "channel", ch, "err", err)
			s.faulted[ch] = true
		}
		s.windows[ch].reset()
		return logic.Reading{Fault: true}
	}
	if s.faulted[ch] {
		s.logger.Info("sensor recovered", "channel", ch)
		s.faulted[ch] = false
	}

	f := raw
	if s.cfg.Unit == Celsius {
		f = CelsiusToFahrenheit(raw)
	}
	avg := s.windows[ch].add(f)

	r := logic.Reading{Value: Condition(avg, s.cfg.Offsets[ch])}
	if s.windows[ch].size > 1 {
		r.Latest = Condition(f, s.cfg.Offsets[ch])
	}
	return r
}

// CelsiusToFahrenheit converts c to degrees Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Condition truncates f to whole degrees, applies the calibration offset
// and clamps the result to [logic.MinReading, logic.MaxReading].
func Condition(f float64, offset int) int {
	if f >= logic.MaxReading {
		return logic.MaxReading
	}
	if f <= logic.MinReading {
		return logic.MinReading
	}
	v := int(f) + offset
	switch {
	case v > logic.MaxReading:
		return logic.MaxReading
	case v < logic.MinReading:
		return logic.MinReading
	}
	return v
}

// window is a fixed-size moving average.
type window struct {
	buf  []float64
	next int
	size int
}

func (w *window) add(v float64) float64 {
	if len(w.buf) < w.size {
		w.buf = append(w.buf, v)
	} else {
		w.buf[w.next] = v
	}
	w.next = (w.next + 1) % w.size

	var sum float64
	for _, x := range w.buf {
		sum += x
	}
	return sum / float64(len(w.buf))
}

func (w *window) reset() {
	w.buf = w.buf[:0]
	w.next = 0
}
