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

package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNullStoreZeroFillsReads(t *testing.T) {
	s := NewNullStore(64)

	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xFF
	}
	require.NoError(t, s.Read(7, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestNullStoreDiscardsWrites(t *testing.T) {
	s := NewNullStore(64)

	payload := make([]byte, 64)
	payload[0] = 0xAB
	require.NoError(t, s.Write(7, payload))

	buf := make([]byte, 64)
	require.NoError(t, s.Read(7, buf))
	require.Equal(t, byte(0), buf[0])
	require.Equal(t, 64, s.PageSize())
	require.NoError(t, s.Close())
}

func TestIsTransient(t *testing.T) {
	require.False(t, IsTransient(nil))
	require.False(t, IsTransient(errors.New("permanent")))
	require.False(t, IsTransient(ErrPageNotFound))
	require.True(t, IsTransient(&TransientError{Err: errors.New("timeout")}))
}

func TestDelayedStoreAddsReadLatency(t *testing.T) {
	base := 20 * time.Millisecond
	s := NewDelayed(NewNullStore(64), base, 0)

	buf := make([]byte, 64)
	start := time.Now()
	require.NoError(t, s.Read(1, buf))
	require.True(t, time.Since(start) >= base, "read returned before the simulated latency elapsed")
}

func TestDelayedStoreJitterStaysNonNegative(t *testing.T) {
	s := NewDelayed(NewNullStore(64), time.Millisecond, 5*time.Millisecond)

	buf := make([]byte, 64)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Read(1, buf))
	}
}

func TestDelayedStoreDoesNotDelayWrites(t *testing.T) {
	s := NewDelayed(NewNullStore(64), 250*time.Millisecond, 0)

	start := time.Now()
	require.NoError(t, s.Write(1, make([]byte, 64)))
	require.True(t, time.Since(start) < 100*time.Millisecond, "writes must not pay the read latency")
}
