// Package xlog is the structured-logging seam shared by every package in
// this module. It wraps github.com/joeycumines/logiface, backed by
// github.com/joeycumines/izerolog over github.com/rs/zerolog, so every
// component logs through one facade and callers can swap the backend.
package xlog

import (
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Event is the concrete logiface event type used throughout this module.
type Event = izerolog.Event

// Logger is the concrete logiface logger type used throughout this module.
type Logger = logiface.Logger[*Event]

// New builds a Logger writing JSON lines to w (os.Stderr if w is nil) at or
// above level.
func New(w *os.File, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	return logiface.New[*Event](
		izerolog.WithZerolog(zl),
		logiface.WithLevel[*Event](level),
	)
}

// Default is a package-level logger at informational level, used by
// components that were not constructed with one of their own.
var Default = New(nil, logiface.LevelInformational)

// NoOp is a logger that discards everything, for components constructed
// without a Logger and that should not default to stderr (e.g. inside
// tests).
var NoOp = logiface.New[*Event]()

// OrDefault returns l, or Default if l is nil.
func OrDefault(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return Default
}
