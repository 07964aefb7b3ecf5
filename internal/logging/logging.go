// Package logging builds the daemon's structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the optional log file.
const (
	RotateMaxSize    = 10 // MB
	RotateMaxAge     = 30 // days
	RotateMaxBackups = 5
	RotateCompress   = true
)

// Options configures New.
type Options struct {
	Level   string    // debug, info, warn or error
	File    string    // rotated log file; empty logs to Console only
	Console io.Writer // defaults to os.Stderr
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return l, nil
}

// New returns a tint logger. When a file is configured output is duplicated
// into it, colour is disabled and the returned closer releases the file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	out := console
	var closer io.Closer = nopCloser{}
	noColor := false
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    RotateMaxSize,
			MaxAge:     RotateMaxAge,
			MaxBackups: RotateMaxBackups,
			LocalTime:  true,
			Compress:   RotateCompress,
		}
		out = io.MultiWriter(console, file)
		closer = file
		noColor = true
	}

	handler := tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	})
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
