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

import "time"

// Stats carries the per-section counters. Accesses == Hits + Misses at
// every instant; MissRate is derived. The service-time fields are
// running means updated under the section lock, so snapshots are never
// torn.
type Stats struct {
	SectionID   SectionID
	Accesses    uint64
	Hits        uint64
	Misses      uint64
	AvgHitTime  time.Duration
	AvgMissTime time.Duration
}

// MissRate returns misses over accesses, or 0 when the section has not
// been accessed yet.
func (s Stats) MissRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Accesses)
}

// recordHit folds one hit service time into the running mean.
func (s *Stats) recordHit(d time.Duration) {
	s.Accesses++
	s.Hits++
	s.AvgHitTime += (d - s.AvgHitTime) / time.Duration(s.Hits)
}

// recordMiss counts a miss attempt. The service time is folded in
// separately once the miss completes, so a failed backing-store read
// still leaves Accesses == Hits + Misses.
func (s *Stats) recordMiss() {
	s.Accesses++
	s.Misses++
}

func (s *Stats) recordMissTime(d time.Duration) {
	if s.Misses == 0 {
		return
	}
	s.AvgMissTime += (d - s.AvgMissTime) / time.Duration(s.Misses)
}
