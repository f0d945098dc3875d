// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package rlog is a small leveled-logging helper, the same shape as
// the (pe.Options.Logger / log.Helper) pair saferwall-pe's File takes
// — a minimal Logger interface plus a Helper that adds level
// filtering and printf-style convenience methods, reimplemented here
// because the teacher's own log subpackage isn't part of this module.
package rlog

import (
	"fmt"
	"io"
	"log"
)

// Level is a log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every subsystem logs through.
type Logger interface {
	Log(level Level, msg string)
}

// stdLogger writes leveled lines to an io.Writer via the standard
// library's log.Logger.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger that writes timestamped lines to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{l: log.New(w, "", log.LstdFlags)}
}

func (s *stdLogger) Log(level Level, msg string) {
	s.l.Printf("%s %s", level, msg)
}

// nopLogger discards everything; used as the zero-value fallback.
type nopLogger struct{}

func (nopLogger) Log(Level, string) {}

// NewNopLogger returns a Logger that discards all output.
func NewNopLogger() Logger { return nopLogger{} }

// filterLogger drops any record below a minimum level.
type filterLogger struct {
	next Logger
	min  Level
}

// NewFilter wraps next so that only records at or above FilterLevel
// pass through.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filterLogger{next: next, min: LevelDebug}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FilterOption configures NewFilter.
type FilterOption func(*filterLogger)

// FilterLevel sets the minimum level that passes the filter.
func FilterLevel(min Level) FilterOption {
	return func(f *filterLogger) { f.min = min }
}

func (f *filterLogger) Log(level Level, msg string) {
	if level < f.min {
		return
	}
	f.next.Log(level, msg)
}

// Helper adds printf-style convenience methods over a Logger, mirroring
// the call shape used throughout this module's decoders
// (logger.Warnf/Debugf/Errorf).
type Helper struct {
	logger Logger
}

// NewHelper wraps logger. A nil logger is replaced with a no-op sink.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...any) {
	if h == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	h.logger.Log(level, msg)
}

func (h *Helper) Debugf(format string, args ...any) { h.log(LevelDebug, format, args...) }
func (h *Helper) Infof(format string, args ...any)  { h.log(LevelInfo, format, args...) }
func (h *Helper) Warnf(format string, args ...any)  { h.log(LevelWarn, format, args...) }
func (h *Helper) Errorf(format string, args ...any) { h.log(LevelError, format, args...) }

func (h *Helper) Warn(args ...any) { h.log(LevelWarn, fmt.Sprint(args...)) }

// Default returns a Helper suitable when the caller supplied no
// logger: writes to w, filtered to warnings and above, the same default
// pe.File falls back to (NewStdLogger(os.Stdout) filtered to
// LevelError) except one notch more permissive since decode
// diagnostics here are expected to be common, not exceptional.
func Default(w io.Writer) *Helper {
	base := NewStdLogger(w)
	return NewHelper(NewFilter(base, FilterLevel(LevelWarn)))
}
