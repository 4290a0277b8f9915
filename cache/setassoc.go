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
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/farcache/farcache/log"
	"github.com/farcache/farcache/metrics"
	"github.com/farcache/farcache/storage"
)

// slot is one line of a set-based section.
type slot struct {
	id         PageID
	page       *Page
	valid      bool
	referenced bool
}

// setSection implements the direct-mapped and set-associative variants.
// Direct-mapped is the one-way special case: every set holds a single
// slot and the incumbent is always the victim. Replacement inside a set
// is clock: a per-set hand rotates, clearing reference bits, and the
// first unpinned slot found clear is the victim.
type setSection struct {
	sectionBase

	mu    sync.RWMutex
	sets  [][]slot
	hands []int
}

func newSetSection(cfg SectionConfig, store storage.PageStore, victim VictimCache) *setSection {
	if cfg.Kind == DirectMapped {
		cfg.Associativity = 1
	}
	s := &setSection{sectionBase: sectionBase{cfg: cfg, store: store, victim: victim}}
	s.stats.SectionID = cfg.ID
	s.buildSets()
	return s
}

func (s *setSection) buildSets() {
	n := s.cfg.NumSets()
	s.sets = make([][]slot, n)
	for i := range s.sets {
		s.sets[i] = make([]slot, s.cfg.Associativity)
	}
	s.hands = make([]int, n)
}

func (s *setSection) setIndex(id PageID) int {
	return int(uint32(id) % uint32(len(s.sets)))
}

// lookup returns the resident page for id, or nil. Callers hold the
// section lock in either mode.
func (s *setSection) lookup(id PageID) *Page {
	set := s.sets[s.setIndex(id)]
	for i := range set {
		if set[i].valid && set[i].id == id {
			return set[i].page
		}
	}
	return nil
}

// touch marks the slot holding id as referenced. Callers hold the
// section lock exclusively.
func (s *setSection) touch(id PageID) {
	set := s.sets[s.setIndex(id)]
	for i := range set {
		if set[i].valid && set[i].id == id {
			set[i].referenced = true
			return
		}
	}
}

func (s *setSection) fetch(id PageID) (*Page, error) {
	start := time.Now()
	for {
		s.mu.RLock()
		if p := s.lookup(id); p != nil {
			p.Pin()
			s.mu.RUnlock()
			p.ULock()
			// commit: residency may have changed while unlocked
			s.mu.Lock()
			if s.lookup(id) == p {
				s.stats.recordHit(time.Since(start))
				s.touch(id)
				s.mu.Unlock()
				metrics.FarcacheHitsTotal.Inc()
				return p, nil
			}
			s.mu.Unlock()
			p.UUnlock()
			p.Unpin()
			continue
		}
		s.mu.RUnlock()

		// classify before any fallible step; degrade to a hit if the
		// id became resident since the optimistic check
		s.mu.Lock()
		if s.lookup(id) != nil {
			s.mu.Unlock()
			continue
		}
		s.stats.recordMiss()
		s.mu.Unlock()
		metrics.FarcacheMissesTotal.Inc()

		buf, err := s.loadBuffer(id)
		if err != nil {
			return nil, err
		}

		p := newPage(id, int(s.cfg.PageSize))
		copy(p.buf, buf)
		p.Pin()
		p.ULock()

		s.mu.Lock()
		if r := s.lookup(id); r != nil {
			// lost the install race; adopt the resident page
			r.Pin()
			s.mu.Unlock()
			p.UUnlock()
			r.ULock()
			s.mu.Lock()
			if s.lookup(id) == r {
				s.touch(id)
				s.stats.recordMissTime(time.Since(start))
				s.mu.Unlock()
				return r, nil
			}
			s.mu.Unlock()
			r.UUnlock()
			r.Unpin()
			continue
		}
		if err := s.install(id, p, true); err != nil {
			s.mu.Unlock()
			p.UUnlock()
			return nil, err
		}
		s.stats.recordMissTime(time.Since(start))
		s.mu.Unlock()
		return p, nil
	}
}

func (s *setSection) newSlot(id PageID) (*Page, error) {
	start := time.Now()
	p := newPage(id, int(s.cfg.PageSize))
	p.Pin()
	p.Lock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.recordMiss()
	metrics.FarcacheMissesTotal.Inc()
	if r := s.lookup(id); r != nil {
		// a stale resident under a recycled id; retire it in place
		set := s.sets[s.setIndex(id)]
		for i := range set {
			if set[i].valid && set[i].id == id {
				if err := s.evict(r); err != nil {
					p.Unlock()
					return nil, err
				}
				set[i].page = p
				set[i].referenced = true
				s.stats.recordMissTime(time.Since(start))
				return p, nil
			}
		}
	}
	if err := s.install(id, p, true); err != nil {
		p.Unlock()
		return nil, err
	}
	s.stats.recordMissTime(time.Since(start))
	return p, nil
}

func (s *setSection) prefetch(id PageID) error {
	s.mu.RLock()
	resident := s.lookup(id) != nil
	s.mu.RUnlock()
	if resident {
		return nil
	}

	buf, err := s.loadBuffer(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup(id) != nil {
		return nil
	}
	p := newPage(id, int(s.cfg.PageSize))
	copy(p.buf, buf)
	if err := s.install(id, p, false); err != nil {
		return err
	}
	metrics.FarcachePrefetchesTotal.Inc()
	return nil
}

// install places p in the set owning id, evicting a victim when the
// set is full. Callers hold the section lock exclusively.
func (s *setSection) install(id PageID, p *Page, referenced bool) error {
	idx := s.setIndex(id)
	set := s.sets[idx]

	for i := range set {
		if !set[i].valid {
			set[i] = slot{id: id, page: p, valid: true, referenced: referenced}
			return nil
		}
	}

	vi, ok := s.clockVictim(idx)
	if !ok {
		return errors.Wrapf(ErrNoEvictableSlot, "section %d, set %d", s.cfg.ID, idx)
	}
	if err := s.evict(set[vi].page); err != nil {
		return err
	}
	set[vi] = slot{id: id, page: p, valid: true, referenced: referenced}
	return nil
}

// clockVictim rotates the set's hand, clearing reference bits on
// unpinned slots, and returns the first unpinned slot found clear. Two
// full rotations without a candidate mean every slot is pinned.
func (s *setSection) clockVictim(idx int) (int, bool) {
	set := s.sets[idx]
	ways := len(set)
	hand := s.hands[idx]
	for i := 0; i < 2*ways; i++ {
		pos := (hand + i) % ways
		if set[pos].page.PinCount() > 0 {
			continue
		}
		if set[pos].referenced {
			set[pos].referenced = false
			continue
		}
		s.hands[idx] = (pos + 1) % ways
		return pos, true
	}
	return 0, false
}

func (s *setSection) flushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	for i := range s.sets {
		for j := range s.sets[i] {
			sl := &s.sets[i][j]
			if sl.valid && sl.page.Dirty() {
				if err := s.writeBack(sl.page); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
	}
	return result.ErrorOrNil()
}

// resize rebuilds the set geometry for the new capacity and re-places
// the residents. Pinned pages are kept first, then referenced ones;
// unpinned pages the new geometry cannot hold are flushed and dropped.
// A pinned page with no free way leaves residency tracking unflushed.
func (s *setSection) resize(capacity uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if capacity == s.cfg.Capacity {
		return nil
	}

	var pinned, referenced, rest []slot
	for i := range s.sets {
		for j := range s.sets[i] {
			sl := s.sets[i][j]
			if !sl.valid {
				continue
			}
			switch {
			case sl.page.PinCount() > 0:
				pinned = append(pinned, sl)
			case sl.referenced:
				referenced = append(referenced, sl)
			default:
				rest = append(rest, sl)
			}
		}
	}

	s.cfg.Capacity = capacity
	s.buildSets()

	var result *multierror.Error
	survivors := append(append(pinned, referenced...), rest...)
	for _, sl := range survivors {
		if s.place(sl) {
			continue
		}
		if sl.page.PinCount() > 0 {
			// the new geometry has no way for it; the client's pin keeps
			// the page alive outside residency tracking
			log.Warnf("resize of section %d dropped pinned page %d from residency", s.cfg.ID, sl.id)
			continue
		}
		if err := s.evict(sl.page); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// place drops a surviving slot into the rebuilt geometry if its target
// set has a free way.
func (s *setSection) place(sl slot) bool {
	set := s.sets[s.setIndex(sl.id)]
	for i := range set {
		if !set[i].valid {
			set[i] = sl
			return true
		}
	}
	return false
}

func (s *setSection) pageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := range s.sets {
		for j := range s.sets[i] {
			if s.sets[i][j].valid {
				count++
			}
		}
	}
	return count
}

func (s *setSection) conf() SectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *setSection) snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *setSection) resetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{SectionID: s.cfg.ID}
}
