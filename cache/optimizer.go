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
	"sort"

	"github.com/farcache/farcache/log"
)

// Optimize rebalances section capacities so that each section's share
// of the pool (available bytes plus the sum of current sizes) is
// proportional to its observed miss rate, floored at two lines per
// section. It is an explicit one-shot operation; nothing invokes it
// periodically.
func (c *Cache) Optimize() error {
	type candidate struct {
		id       SectionID
		size     uint64
		lineSize uint64
		missRate float64
		target   uint64
	}

	c.mu.RLock()
	pool := c.available
	cands := make([]*candidate, 0, len(c.sections))
	for id, sec := range c.sections {
		cfg := sec.conf()
		pool += cfg.Capacity
		cands = append(cands, &candidate{
			id:       id,
			size:     cfg.Capacity,
			lineSize: cfg.LineSize,
			missRate: sec.snapshot().MissRate(),
		})
	}
	c.mu.RUnlock()

	if len(cands) <= 1 {
		return nil
	}
	var totalMissRate float64
	for _, cand := range cands {
		totalMissRate += cand.missRate
	}
	if totalMissRate <= 0 {
		return nil
	}

	// highest miss rate first
	sort.Slice(cands, func(i, j int) bool { return cands[i].missRate > cands[j].missRate })

	var sum uint64
	for _, cand := range cands {
		target := uint64(cand.missRate / totalMissRate * float64(pool))
		if floor := 2 * cand.lineSize; target < floor {
			target = floor
		}
		cand.target = target
		sum += target
	}

	if sum > pool {
		// trim the excess from the lowest-miss-rate sections first,
		// never below the floor
		excess := sum - pool
		for i := len(cands) - 1; i > 0 && excess > 0; i-- {
			floor := 2 * cands[i].lineSize
			room := uint64(0)
			if cands[i].target > floor {
				room = cands[i].target - floor
			}
			cut := excess
			if cut > room {
				cut = room
			}
			cands[i].target -= cut
			excess -= cut
		}
	} else if sum < pool {
		// hand the surplus to the highest-miss-rate sections first
		extra := pool - sum
		for i := 0; i < len(cands) && extra > 0; i++ {
			add := extra / uint64(len(cands)-i)
			if add == 0 {
				add = extra
			}
			cands[i].target += add
			extra -= add
		}
	}

	// shrink before growing so the freed bytes are available to the
	// growing sections
	sort.Slice(cands, func(i, j int) bool {
		di := int64(cands[i].target) - int64(cands[i].size)
		dj := int64(cands[j].target) - int64(cands[j].size)
		return di < dj
	})
	for _, cand := range cands {
		if cand.target == cand.size {
			continue
		}
		log.Infof("optimizer: section %d %d -> %d bytes (miss rate %.3f)",
			cand.id, cand.size, cand.target, cand.missRate)
		if err := c.ResizeSection(cand.id, cand.target); err != nil {
			return err
		}
	}
	return nil
}
