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

// Package cache implements a sectioned page cache for disk or
// far-memory backed B+Trees. The cache is a router over one or more
// sections, each a self-contained cache with its own geometry,
// replacement policy and statistics; page identifiers are mapped to
// sections through explicit overrides, ordered ranges and a default
// section.
package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/farcache/farcache/log"
	"github.com/farcache/farcache/metrics"
	"github.com/farcache/farcache/storage"
)

type pageRange struct {
	low, high PageID
	section   SectionID
}

// Cache is the router: it owns the section registry, dispenses page
// identifiers, resolves every identifier to its owning section and
// forwards the page operations there.
//
// Handles returned to clients are non-owning borrows bound to a pin;
// the pin is the lifetime token. The router itself never keeps a page
// reference, only section identifiers and mapping metadata.
type Cache struct {
	store    storage.PageStore
	victim   VictimCache
	pageSize uint64
	total    uint64

	nextPageID uint32

	mu             sync.RWMutex
	available      uint64
	nextSectionID  SectionID
	sections       map[SectionID]section
	defaultSection SectionID
	overrides      map[PageID]SectionID
	ranges         []pageRange
}

// New builds a cache from cfg backed by store. A nil store is replaced
// by a null sink of the configured page size. The default section is
// fully-associative and takes whatever cfg.Sections leave of the total
// budget.
func New(cfg Config, store storage.PageStore) (*Cache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = storage.NewNullStore(int(cfg.PageSize))
	}
	if store.PageSize() != int(cfg.PageSize) {
		return nil, errors.Wrapf(ErrInvalidConfig,
			"store page size %d does not match cache page size %d", store.PageSize(), cfg.PageSize)
	}

	c := &Cache{
		store:     store,
		victim:    cfg.victimCache(),
		pageSize:  cfg.PageSize,
		total:     cfg.TotalBytes,
		available: cfg.TotalBytes,
		sections:  make(map[SectionID]section),
		overrides: make(map[PageID]SectionID),
	}

	var reserved uint64
	for _, spec := range cfg.Sections {
		reserved += spec.Bytes
	}
	if reserved > cfg.TotalBytes {
		return nil, errors.Wrapf(ErrInvalidConfig,
			"configured sections need %d bytes, budget is %d", reserved, cfg.TotalBytes)
	}

	defaultLine := cfg.DefaultLineSize
	if defaultLine == 0 {
		defaultLine = cfg.PageSize
	}
	defaultID, err := c.createSectionLocked(cfg.TotalBytes-reserved, defaultLine, FullyAssociative, 0)
	if err != nil {
		return nil, err
	}
	c.defaultSection = defaultID

	created := make([]SectionID, 0, len(cfg.Sections))
	for _, spec := range cfg.Sections {
		kind, err := KindFromString(spec.Kind)
		if err != nil {
			return nil, err
		}
		sid, err := c.createSectionLocked(spec.Bytes, spec.LineSize, kind, spec.Associativity)
		if err != nil {
			return nil, err
		}
		created = append(created, sid)
	}

	for _, r := range cfg.Ranges {
		if r.Section < 0 || r.Section >= len(created) {
			return nil, errors.Wrapf(ErrInvalidConfig, "range [%d,%d] names section index %d", r.Low, r.High, r.Section)
		}
		if err := c.MapRange(r.Low, r.High, created[r.Section]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewPage allocates the next identifier, resolves its section and
// installs a fresh zeroed page there. The page comes back pinned and
// exclusively locked; identifier 0 is never dispensed and identifier 1
// goes to the first caller, reserved by convention for tree metadata.
func (c *Cache) NewPage() (*Page, error) {
	id := PageID(atomic.AddUint32(&c.nextPageID, 1))
	for id == InvalidPageID {
		id = PageID(atomic.AddUint32(&c.nextPageID, 1))
	}
	return c.resolve(id).newSlot(id)
}

// Fetch returns the resident page for id, reading through to the
// backing store on a miss. The page comes back pinned and holding the
// upgradeable lock.
func (c *Cache) Fetch(id PageID) (*Page, error) {
	if id == InvalidPageID {
		return nil, ErrInvalidPageID
	}
	return c.resolve(id).fetch(id)
}

// Pin increments the page's pin counter.
func (c *Cache) Pin(p *Page) {
	p.Pin()
}

// Unpin decrements the pin counter, marking the page dirty first when
// requested. The write-back happens on eviction or flush, not here.
func (c *Cache) Unpin(p *Page, dirty bool) {
	if dirty {
		p.SetDirty(true)
	}
	p.Unpin()
}

// Flush writes the page through to the backing store if dirty. A clean
// page is a no-op.
func (c *Cache) Flush(p *Page) error {
	if !p.Dirty() {
		return nil
	}
	start := time.Now()
	if err := c.store.Write(uint32(p.id), p.buf); err != nil {
		return errors.Wrapf(err, "flushing page %d", p.id)
	}
	metrics.FarcacheStoreWriteDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.FarcacheFlushesTotal.Inc()
	p.SetDirty(false)
	return nil
}

// FlushAll flushes every resident dirty page in every section. It is
// best-effort: failures are accumulated and reported collectively, and
// pages re-dirtied concurrently may remain dirty on return.
func (c *Cache) FlushAll() error {
	var result *multierror.Error
	for _, sec := range c.snapshotSections() {
		if err := sec.flushAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Prefetch performs miss-path work for id without transferring a pin
// or a lock to the caller. A resident id is a no-op.
func (c *Cache) Prefetch(id PageID) error {
	if id == InvalidPageID {
		return ErrInvalidPageID
	}
	return c.resolve(id).prefetch(id)
}

// PrefetchAll groups ids by owning section and prefetches each group,
// amortizing the section resolution.
func (c *Cache) PrefetchAll(ids []PageID) error {
	groups := make(map[SectionID][]PageID)
	c.mu.RLock()
	for _, id := range ids {
		if id == InvalidPageID {
			continue
		}
		sid := c.sectionForLocked(id)
		groups[sid] = append(groups[sid], id)
	}
	c.mu.RUnlock()

	var result *multierror.Error
	for sid, group := range groups {
		sec := c.sectionByID(sid)
		if sec == nil {
			continue
		}
		for _, id := range group {
			if err := sec.prefetch(id); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// PageSize returns the page granularity in bytes.
func (c *Cache) PageSize() int { return int(c.pageSize) }

// TotalBytes returns the aggregate capacity budget.
func (c *Cache) TotalBytes() uint64 { return c.total }

// Available returns the part of the budget not allocated to any
// section.
func (c *Cache) Available() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// SectionConfigs returns the current shape of every section, ordered
// by section identifier.
func (c *Cache) SectionConfigs() []SectionConfig {
	secs := c.snapshotSections()
	configs := make([]SectionConfig, 0, len(secs))
	for _, sec := range secs {
		configs = append(configs, sec.conf())
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

// Size returns the number of resident pages across all sections.
func (c *Cache) Size() int {
	total := 0
	for _, sec := range c.snapshotSections() {
		total += sec.pageCount()
	}
	return total
}

// CreateSection registers a new section. Requests beyond the available
// budget are clamped to it; New, by contrast, rejects configured
// sections that exceed the total budget.
func (c *Cache) CreateSection(bytes, lineSize uint64, kind Kind, associativity int) (SectionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createSectionLocked(bytes, lineSize, kind, associativity)
}

func (c *Cache) createSectionLocked(bytes, lineSize uint64, kind Kind, associativity int) (SectionID, error) {
	if lineSize < c.pageSize {
		return 0, errors.Wrapf(ErrLineSizeTooSmall, "line %d, page %d", lineSize, c.pageSize)
	}
	if kind == SetAssociative && associativity < 1 {
		return 0, errors.Wrapf(ErrInvalidConfig, "associativity %d", associativity)
	}
	if bytes > c.available {
		log.Warnf("section request of %d bytes clamped to %d available", bytes, c.available)
		bytes = c.available
	}

	id := c.nextSectionID
	c.nextSectionID++

	cfg := SectionConfig{
		ID:            id,
		Capacity:      bytes,
		LineSize:      lineSize,
		PageSize:      c.pageSize,
		Kind:          kind,
		Associativity: associativity,
	}
	var sec section
	switch kind {
	case DirectMapped, SetAssociative:
		sec = newSetSection(cfg, c.store, c.victim)
	case FullyAssociative:
		sec = newFaSection(cfg, c.store, c.victim)
	default:
		return 0, errors.Wrapf(ErrInvalidConfig, "unknown section kind %d", kind)
	}
	c.sections[id] = sec
	c.available -= bytes
	log.Infof("created %s section %d: %d bytes, line %d", kind, id, bytes, lineSize)
	return id, nil
}

// RemoveSection drops a section, returning its capacity to the
// available pool and purging every override and range that points at
// it. Dirty residents are flushed first; the default section cannot be
// removed.
func (c *Cache) RemoveSection(id SectionID) error {
	c.mu.Lock()
	if id == c.defaultSection {
		c.mu.Unlock()
		return ErrDefaultSection
	}
	sec, ok := c.sections[id]
	if !ok {
		c.mu.Unlock()
		return ErrSectionNotFound
	}

	delete(c.sections, id)
	c.available += sec.conf().Capacity
	for pid, sid := range c.overrides {
		if sid == id {
			delete(c.overrides, pid)
		}
	}
	kept := c.ranges[:0]
	for _, r := range c.ranges {
		if r.section != id {
			kept = append(kept, r)
		}
	}
	c.ranges = kept
	c.mu.Unlock()

	log.Infof("removed section %d", id)
	return sec.flushAll()
}

// ResizeSection changes a section's capacity. Growth is clamped to the
// available pool; shrinking returns the difference to it.
func (c *Cache) ResizeSection(id SectionID, bytes uint64) error {
	c.mu.Lock()
	sec, ok := c.sections[id]
	if !ok {
		c.mu.Unlock()
		return ErrSectionNotFound
	}
	current := sec.conf().Capacity
	if bytes > current {
		grow := bytes - current
		if grow > c.available {
			bytes = current + c.available
			grow = c.available
		}
		c.available -= grow
	} else {
		c.available += current - bytes
	}
	c.mu.Unlock()

	log.Debugf("resizing section %d: %d -> %d bytes", id, current, bytes)
	return sec.resize(bytes)
}

// MapPage installs a single-identifier override. Overrides win over
// ranges and survive range operations.
func (c *Cache) MapPage(id PageID, sid SectionID) error {
	if id == InvalidPageID {
		return ErrInvalidPageID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sections[sid]; !ok {
		return ErrSectionNotFound
	}
	c.overrides[id] = sid
	return nil
}

// MapRange routes [low, high] to a section. The overlapping part of
// every existing range is displaced by the new one; the non-overlapping
// remainders keep their old section, so ranges never overlap.
func (c *Cache) MapRange(low, high PageID, sid SectionID) error {
	if low == InvalidPageID || low > high {
		return ErrInvalidRange
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sections[sid]; !ok {
		return ErrSectionNotFound
	}
	kept := make([]pageRange, 0, len(c.ranges)+1)
	for _, r := range c.ranges {
		if r.high < low || r.low > high {
			kept = append(kept, r)
			continue
		}
		if r.low < low {
			kept = append(kept, pageRange{low: r.low, high: low - 1, section: r.section})
		}
		if r.high > high {
			kept = append(kept, pageRange{low: high + 1, high: r.high, section: r.section})
		}
	}
	c.ranges = append(kept, pageRange{low: low, high: high, section: sid})
	return nil
}

// SectionFor resolves an identifier to its owning section: override
// map first, then the first matching range, then the default section.
func (c *Cache) SectionFor(id PageID) SectionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sectionForLocked(id)
}

func (c *Cache) sectionForLocked(id PageID) SectionID {
	if sid, ok := c.overrides[id]; ok {
		return sid
	}
	for _, r := range c.ranges {
		if id >= r.low && id <= r.high {
			return r.section
		}
	}
	return c.defaultSection
}

// DefaultSection returns the identifier of the default section.
func (c *Cache) DefaultSection() SectionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultSection
}

// StatsPerSection returns a stable snapshot of every section's
// statistics, ordered by section identifier.
func (c *Cache) StatsPerSection() []Stats {
	secs := c.snapshotSections()
	stats := make([]Stats, 0, len(secs))
	for _, sec := range secs {
		stats = append(stats, sec.snapshot())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].SectionID < stats[j].SectionID })
	return stats
}

// ResetStats zeroes the statistics of every section.
func (c *Cache) ResetStats() {
	for _, sec := range c.snapshotSections() {
		sec.resetStats()
	}
}

// SectionStats returns one section's statistics snapshot.
func (c *Cache) SectionStats(id SectionID) (Stats, error) {
	sec := c.sectionByID(id)
	if sec == nil {
		return Stats{}, ErrSectionNotFound
	}
	return sec.snapshot(), nil
}

// Close flushes every dirty resident page and closes the backing
// store.
func (c *Cache) Close() error {
	var result *multierror.Error
	if err := c.FlushAll(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.store.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// resolve returns the owning section for id. The default section
// always exists, so resolution never fails.
func (c *Cache) resolve(id PageID) section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sec, ok := c.sections[c.sectionForLocked(id)]
	if !ok {
		sec = c.sections[c.defaultSection]
	}
	return sec
}

func (c *Cache) sectionByID(id SectionID) section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sections[id]
}

func (c *Cache) snapshotSections() []section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	secs := make([]section, 0, len(c.sections))
	for _, sec := range c.sections {
		secs = append(secs, sec)
	}
	return secs
}
