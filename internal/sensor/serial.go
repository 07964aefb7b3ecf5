package sensor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/smoker-controller/internal/logic"
)

// DefaultBaudRate is the bridge MCU's USB serial rate.
const DefaultBaudRate = 115200

type channelState struct {
	value    float64
	fault    bool
	received time.Time // zero until the first line
}

// SerialSource reads "top,bottom,probe" lines from the thermocouple bridge
// and keeps the latest value of each channel.
type SerialSource struct {
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.RWMutex
	channels [3]channelState

	conn io.ReadCloser
	done chan struct{}
}

// OpenSerial opens the bridge port and starts reading lines.
func OpenSerial(port string, baudRate int, staleAfter time.Duration, logger *slog.Logger) (*SerialSource, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	logger.Info("thermocouple bridge connected", "port", port, "baud", baudRate)
	return NewStreamSource(conn, staleAfter, logger, time.Now), nil
}

// NewStreamSource reads bridge lines from conn until it is closed or fails.
func NewStreamSource(conn io.ReadCloser, staleAfter time.Duration, logger *slog.Logger, now func() time.Time) *SerialSource {
	s := &SerialSource{
		staleAfter: staleAfter,
		now:        now,
		logger:     logger,
		conn:       conn,
		done:       make(chan struct{}),
	}
	go s.readLines()
	return s
}

// Read returns the latest value for ch.
func (s *SerialSource) Read(ch logic.Channel) (float64, error) {
	if ch < 0 || int(ch) >= len(s.channels) {
		return 0, fmt.Errorf("sensor: unknown channel %d", ch)
	}

	s.mu.RLock()
	st := s.channels[ch]
	s.mu.RUnlock()

	switch {
	case st.received.IsZero():
		return 0, ErrNoData
	case st.fault:
		return 0, ErrFault
	case s.staleAfter > 0 && s.now().Sub(st.received) > s.staleAfter:
		return 0, ErrStale
	}
	return st.value, nil
}

// Close closes the port and waits for the reader goroutine to exit.
func (s *SerialSource) Close() error {
	err := s.conn.Close()
	<-s.done
	if err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}

func (s *SerialSource) readLines() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		values, faults, err := parseLine(line)
		if err != nil {
			s.logger.Debug("ignoring bridge line", "line", line, "err", err)
			continue
		}

		t := s.now()
		s.mu.Lock()
		for i := range s.channels {
			s.channels[i] = channelState{value: values[i], fault: faults[i], received: t}
		}
		s.mu.Unlock()
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		s.logger.Warn("thermocouple bridge read stopped", "err", err)
		return
	}
	s.logger.Info("thermocouple bridge closed")
}

// parseLine parses one bridge line.
// Format: top,bottom,probe where each field is a number or NAN/ERR.
// Example: 231.25,198.50,NAN
func parseLine(line string) (values [3]float64, faults [3]bool, err error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return values, faults, fmt.Errorf("invalid line format: expected 3 comma-separated values, got %d", len(parts))
	}

	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch strings.ToUpper(p) {
		case "NAN", "ERR":
			faults[i] = true
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return values, faults, fmt.Errorf("invalid %s value %q: %w", logic.Channel(i), p, err)
		}
		values[i] = v
	}
	return values, faults, nil
}
