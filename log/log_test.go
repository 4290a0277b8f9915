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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	testCases := []struct {
		in  string
		out Level
	}{
		{"off", Off},
		{"ERROR", Error},
		{" info ", Info},
		{"debug", Debug},
		{"trace", Trace},
		{"bogus", NotSet},
	}
	for _, c := range testCases {
		require.Equal(t, c.out, LevelFromString(c.in), c.in)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&LoggerOptions{Name: "test", Level: Warn, Output: &buf})

	l.Info("dropped")
	l.Warn("kept")

	out := buf.String()
	require.False(t, strings.Contains(out, "dropped"))
	require.True(t, strings.Contains(out, "kept"))
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	l := New(&LoggerOptions{Name: "cache", Level: Info, Output: &buf})

	l.Named("heap").Info("hello")
	require.True(t, strings.Contains(buf.String(), "cache.heap"))
}
