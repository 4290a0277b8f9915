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

import "sync"

var (
	mu  sync.RWMutex
	std Logger = New(&LoggerOptions{Level: Error})
)

// Default returns the package-level logger.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
}

// Below is the public proxy for the switchable default logger.

func Trace(msg string) { Default().Trace(msg) }

func Tracef(format string, args ...interface{}) { Default().Tracef(format, args...) }

func Debug(msg string) { Default().Debug(msg) }

func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }

func Info(msg string) { Default().Info(msg) }

func Infof(format string, args ...interface{}) { Default().Infof(format, args...) }

func Warn(msg string) { Default().Warn(msg) }

func Warnf(format string, args ...interface{}) { Default().Warnf(format, args...) }

func Error(msg string) { Default().Error(msg) }

func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }

func Fatal(msg string) { Default().Fatal(msg) }

func Fatalf(format string, args ...interface{}) { Default().Fatalf(format, args...) }
