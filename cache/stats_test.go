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

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMissRate(t *testing.T) {
	var s Stats
	require.Equal(t, 0.0, s.MissRate())

	s.recordMiss()
	s.recordMiss()
	s.recordHit(0)
	s.recordHit(0)

	require.Equal(t, uint64(4), s.Accesses)
	require.Equal(t, 0.5, s.MissRate())
}

func TestRollingAverages(t *testing.T) {
	var s Stats

	s.recordHit(10 * time.Millisecond)
	s.recordHit(20 * time.Millisecond)
	require.Equal(t, 15*time.Millisecond, s.AvgHitTime)

	s.recordMiss()
	s.recordMissTime(40 * time.Millisecond)
	s.recordMiss()
	s.recordMissTime(20 * time.Millisecond)
	require.Equal(t, 30*time.Millisecond, s.AvgMissTime)
}

func TestFailedMissLeavesCountersConsistent(t *testing.T) {
	var s Stats

	s.recordMiss()
	// no recordMissTime: the backing-store read failed
	require.Equal(t, s.Accesses, s.Hits+s.Misses)
	require.Equal(t, time.Duration(0), s.AvgMissTime)
}
