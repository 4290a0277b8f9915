package cache

import (
	"container/list"
	"sync"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/farcache/farcache/metrics"
	"github.com/farcache/farcache/storage"
)

type faEntry struct {
	id   PageID
	page *Page
}

// faSection implements the fully-associative variant: an LRU order over
// all lines (most-recently-used first) plus an index from identifier to
// list element. The victim is the least-recently-used unpinned entry,
// scanning from the tail toward the head.
type faSection struct {
	sectionBase

	mu    sync.RWMutex
	order *list.List
	index map[PageID]*list.Element
}

func newFaSection(cfg SectionConfig, store storage.PageStore, victim VictimCache) *faSection {
	s := &faSection{
		sectionBase: sectionBase{cfg: cfg, store: store, victim: victim},
		order:       list.New(),
		index:       make(map[PageID]*list.Element),
	}
	s.stats.SectionID = cfg.ID
	return s
}

// lines floors the slot budget at one so a zero-byte section can still
// admit a page, mirroring the set variants' single-set floor.
func (s *faSection) lines() int {
	n := s.cfg.Lines()
	if n < 1 {
		n = 1
	}
	return n
}

func (s *faSection) lookup(id PageID) *Page {
	if e, ok := s.index[id]; ok {
		return e.Value.(*faEntry).page
	}
	return nil
}

func (s *faSection) fetch(id PageID) (*Page, error) {
	start := time.Now()
	for {
		s.mu.RLock()
		if p := s.lookup(id); p != nil {
			p.Pin()
			s.mu.RUnlock()
			p.ULock()
			s.mu.Lock()
			if s.lookup(id) == p {
				s.stats.recordHit(time.Since(start))
				s.order.MoveToFront(s.index[id])
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
			r.Pin()
			s.mu.Unlock()
			p.UUnlock()
			r.ULock()
			s.mu.Lock()
			if s.lookup(id) == r {
				s.order.MoveToFront(s.index[id])
				s.stats.recordMissTime(time.Since(start))
				s.mu.Unlock()
				return r, nil
			}
			s.mu.Unlock()
			r.UUnlock()
			r.Unpin()
			continue
		}
		if err := s.install(id, p); err != nil {
			s.mu.Unlock()
			p.UUnlock()
			return nil, err
		}
		s.stats.recordMissTime(time.Since(start))
		s.mu.Unlock()
		return p, nil
	}
}

func (s *faSection) newSlot(id PageID) (*Page, error) {
	start := time.Now()
	p := newPage(id, int(s.cfg.PageSize))
	p.Pin()
	p.Lock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.recordMiss()
	metrics.FarcacheMissesTotal.Inc()
	if r := s.lookup(id); r != nil {
		if err := s.evict(r); err != nil {
			p.Unlock()
			return nil, err
		}
		e := s.index[id]
		e.Value.(*faEntry).page = p
		s.order.MoveToFront(e)
		s.stats.recordMissTime(time.Since(start))
		return p, nil
	}
	if err := s.install(id, p); err != nil {
		p.Unlock()
		return nil, err
	}
	s.stats.recordMissTime(time.Since(start))
	return p, nil
}

func (s *faSection) prefetch(id PageID) error {
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
	if err := s.install(id, p); err != nil {
		return err
	}
	metrics.FarcachePrefetchesTotal.Inc()
	return nil
}

// install pushes p at the head of the LRU order, evicting the tail-most
// unpinned entry when the section is full. Callers hold the section
// lock exclusively.
func (s *faSection) install(id PageID, p *Page) error {
	if s.order.Len() >= s.lines() {
		victim := s.tailVictim()
		if victim == nil {
			return errors.Wrapf(ErrNoEvictableSlot, "section %d", s.cfg.ID)
		}
		entry := victim.Value.(*faEntry)
		if err := s.evict(entry.page); err != nil {
			return err
		}
		s.order.Remove(victim)
		delete(s.index, entry.id)
	}
	s.index[id] = s.order.PushFront(&faEntry{id: id, page: p})
	return nil
}

// tailVictim returns the least-recently-used unpinned element, or nil
// when every resident page is pinned.
func (s *faSection) tailVictim() *list.Element {
	for e := s.order.Back(); e != nil; e = e.Prev() {
		if e.Value.(*faEntry).page.PinCount() == 0 {
			return e
		}
	}
	return nil
}

func (s *faSection) flushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	for e := s.order.Front(); e != nil; e = e.Next() {
		p := e.Value.(*faEntry).page
		if p.Dirty() {
			if err := s.writeBack(p); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// resize keeps pinned pages unconditionally, fills the remaining budget
// with unpinned pages in recency order, and flushes what gets dropped.
func (s *faSection) resize(capacity uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if capacity == s.cfg.Capacity {
		return nil
	}
	s.cfg.Capacity = capacity

	budget := s.lines()
	pinned := 0
	for e := s.order.Front(); e != nil; e = e.Next() {
		if e.Value.(*faEntry).page.PinCount() > 0 {
			pinned++
		}
	}
	unpinnedBudget := budget - pinned
	if unpinnedBudget < 0 {
		unpinnedBudget = 0
	}

	var result *multierror.Error
	var next *list.Element
	for e := s.order.Front(); e != nil; e = next {
		next = e.Next()
		entry := e.Value.(*faEntry)
		if entry.page.PinCount() > 0 {
			continue
		}
		if unpinnedBudget > 0 {
			unpinnedBudget--
			continue
		}
		if err := s.evict(entry.page); err != nil {
			result = multierror.Append(result, err)
		}
		s.order.Remove(e)
		delete(s.index, entry.id)
	}
	return result.ErrorOrNil()
}

func (s *faSection) pageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

func (s *faSection) conf() SectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *faSection) snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *faSection) resetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{SectionID: s.cfg.ID}
}

// residentOrder returns the identifiers in LRU order, most recently
// used first.
func (s *faSection) residentOrder() []PageID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]PageID, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(*faEntry).id)
	}
	return ids
}
