// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides the leveled, slog-based logging used by every
// subsystem in this module. It mirrors the teacher's severity model (TRACE
// through ERROR, below stdlib's Debug/Info/Warn/Error) with a custom handler
// that emits either text or JSON records, each carrying an explicit
// "severity" field rather than stdlib slog's four-level scheme.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Severity is the module's five-level logging scale. It maps onto slog.Level
// values below the stdlib floor so TRACE can exist without a negative level
// clashing with user-supplied slog attributes.
type Severity int

const (
	OFF Severity = iota
	ERROR
	WARNING
	INFO
	DEBUG
	TRACE
)

func (s Severity) slogLevel() slog.Level {
	switch s {
	case TRACE:
		return slog.Level(-8)
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARNING:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		// OFF: set a level high enough that nothing is ever enabled.
		return slog.Level(1 << 30)
	}
}

func severityName(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// severityHandler renders records with a "severity" field instead of
// slog's default "level", in either text or JSON form.
type severityHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	format string // "text" or "json"
	prefix string
}

func newSeverityHandler(w io.Writer, level *slog.LevelVar, format, prefix string) *severityHandler {
	return &severityHandler{w: w, level: level, format: format, prefix: prefix}
}

func (h *severityHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *severityHandler) Handle(_ context.Context, r slog.Record) error {
	sev := severityName(r.Level)
	msg := h.prefix + r.Message

	var line string
	if h.format == "json" {
		line = fmt.Sprintf(
			"{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), sev, msg)
	} else {
		line = fmt.Sprintf("time=%q severity=%s message=%q\n", r.Time.Format(timeFormat), sev, msg)
	}

	_, err := io.WriteString(h.w, line)
	return err
}

func (h *severityHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *severityHandler) WithGroup(_ string) slog.Handler      { return h }

const timeFormat = "2006/01/02 15:04:05.000000"

// Logger is a named, leveled logger for one subsystem (e.g. "statcache").
type Logger struct {
	slog  *slog.Logger
	level *slog.LevelVar
}

var (
	defaultOutput io.Writer = os.Stderr
	defaultFormat           = "text"
)

// Configure sets the process-wide output destination and rendering format
// ("text" or "json") used by every Logger subsequently created with New.
// Intended to be called once, early in cmd/fusedav's startup, typically with
// an *lumberjack.Logger as w for on-disk rotation.
func Configure(w io.Writer, format string) {
	defaultOutput = w
	defaultFormat = format
}

// New returns a Logger for the named subsystem at the given severity.
func New(component string, sev Severity) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(sev.slogLevel())

	prefix := ""
	if component != "" {
		prefix = component + ": "
	}

	h := newSeverityHandler(defaultOutput, lv, defaultFormat, prefix)
	return &Logger{slog: slog.New(h), level: lv}
}

// SetLevel adjusts the logger's severity at runtime.
func (l *Logger) SetLevel(sev Severity) {
	l.level.Set(sev.slogLevel())
}

func (l *Logger) Tracef(format string, args ...any) {
	l.slog.Log(context.Background(), slog.Level(-8), fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) {
	l.slog.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.slog.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.slog.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.slog.Error(fmt.Sprintf(format, args...))
}
