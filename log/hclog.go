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

package log

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// hclogger adapts hclog.Logger to our Logger interface.
type hclogger struct {
	l hclog.Logger
}

// New returns a Logger backed by hclog with the given options. A nil
// options value yields a logger named "farcache" at Error level on
// stderr.
func New(opts *LoggerOptions) Logger {
	if opts == nil {
		opts = &LoggerOptions{}
	}
	name := opts.Name
	if name == "" {
		name = "farcache"
	}
	level := opts.Level
	if level == NotSet {
		level = Error
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if level == Off {
		return &silentLogger{}
	}
	return &hclogger{
		l: hclog.New(&hclog.LoggerOptions{
			Name:   name,
			Level:  hclogLevel(level),
			Output: out,
		}),
	}
}

func hclogLevel(l Level) hclog.Level {
	switch l {
	case Trace:
		return hclog.Trace
	case Debug:
		return hclog.Debug
	case Info:
		return hclog.Info
	case Warn:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (h *hclogger) Trace(msg string) { h.l.Trace(msg) }
func (h *hclogger) Tracef(format string, args ...interface{}) {
	h.l.Trace(fmt.Sprintf(format, args...))
}
func (h *hclogger) Debug(msg string) { h.l.Debug(msg) }
func (h *hclogger) Debugf(format string, args ...interface{}) {
	h.l.Debug(fmt.Sprintf(format, args...))
}
func (h *hclogger) Info(msg string) { h.l.Info(msg) }
func (h *hclogger) Infof(format string, args ...interface{}) {
	h.l.Info(fmt.Sprintf(format, args...))
}
func (h *hclogger) Warn(msg string) { h.l.Warn(msg) }
func (h *hclogger) Warnf(format string, args ...interface{}) {
	h.l.Warn(fmt.Sprintf(format, args...))
}
func (h *hclogger) Error(msg string) { h.l.Error(msg) }
func (h *hclogger) Errorf(format string, args ...interface{}) {
	h.l.Error(fmt.Sprintf(format, args...))
}
func (h *hclogger) Fatal(msg string) {
	h.l.Error(msg)
	osExit(1)
}
func (h *hclogger) Fatalf(format string, args ...interface{}) {
	h.l.Error(fmt.Sprintf(format, args...))
	osExit(1)
}
func (h *hclogger) Named(name string) Logger {
	return &hclogger{l: h.l.Named(name)}
}

// To allow mocking we require a switchable variable.
var osExit = os.Exit

// silentLogger drops everything. Fatal still terminates the process.
type silentLogger struct{}

func (l *silentLogger) Trace(msg string)                          {}
func (l *silentLogger) Tracef(format string, args ...interface{}) {}
func (l *silentLogger) Debug(msg string)                          {}
func (l *silentLogger) Debugf(format string, args ...interface{}) {}
func (l *silentLogger) Info(msg string)                           {}
func (l *silentLogger) Infof(format string, args ...interface{})  {}
func (l *silentLogger) Warn(msg string)                           {}
func (l *silentLogger) Warnf(format string, args ...interface{})  {}
func (l *silentLogger) Error(msg string)                          {}
func (l *silentLogger) Errorf(format string, args ...interface{}) {}
func (l *silentLogger) Fatal(msg string)                          { osExit(1) }
func (l *silentLogger) Fatalf(format string, args ...interface{}) { osExit(1) }
func (l *silentLogger) Named(name string) Logger                  { return l }
