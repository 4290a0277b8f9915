/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package log implements the leveled logger used across the cache. It
// wraps hashicorp's hclog behind a small interface so the embedder can
// silence it, redirect it, or plug its own implementation.
package log

import (
	"io"
	"strings"
)

// Level represents the logging level.
type Level uint32

const (
	// NotSet is used to indicate that no level has been set and allow
	// for a default to be used.
	NotSet Level = iota

	// Off avoids tracing any action.
	Off

	// Error designates rare error events that might still allow the
	// cache to continue operating (failed store writes, rejected
	// configuration...).
	Error

	// Warn designates potentially harmful situations (clamped section
	// sizes, best-effort flush failures...).
	Warn

	// Info designates coarse-grained progress messages: section
	// creation and removal, optimizer moves.
	Info

	// Debug designates fine-grained events useful to debug the cache.
	// Don't use it in production.
	Debug

	// Trace designates even finer-grained events than Debug. Don't use
	// it in production.
	Trace
)

// String returns a string representation of the level.
func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	default:
		return "unknown"
	}
}

// LevelFromString returns a Level type for the named log level, or
// NotSet if the level passed as argument is invalid.
func LevelFromString(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "silent":
		return Off
	case "error":
		return Error
	case "warn":
		return Warn
	case "info":
		return Info
	case "debug":
		return Debug
	case "trace":
		return Trace
	default:
		return NotSet
	}
}

// Logger describes the interface that must be implemented by all loggers.
type Logger interface {
	Trace(msg string)
	Tracef(format string, args ...interface{})
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	// Named returns a logger with the given subsystem name appended to
	// the current name.
	Named(name string) Logger
}

// LoggerOptions drives the construction of a new Logger.
type LoggerOptions struct {
	Name   string
	Level  Level
	Output io.Writer
}
