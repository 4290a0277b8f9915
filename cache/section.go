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
	"time"

	"github.com/pkg/errors"

	"github.com/farcache/farcache/metrics"
	"github.com/farcache/farcache/storage"
)

// SectionID identifies a section inside one cache instance.
type SectionID uint32

// Kind selects the storage shape and replacement policy of a section.
type Kind int

const (
	// DirectMapped gives every identifier exactly one slot; the
	// incumbent is always the victim.
	DirectMapped Kind = iota

	// SetAssociative groups slots into sets of Associativity ways with
	// clock replacement inside the target set.
	SetAssociative

	// FullyAssociative keeps one LRU order over all slots.
	FullyAssociative
)

func (k Kind) String() string {
	switch k {
	case DirectMapped:
		return "direct-mapped"
	case SetAssociative:
		return "set-associative"
	case FullyAssociative:
		return "fully-associative"
	default:
		return "unknown"
	}
}

// KindFromString parses the textual form used in configuration files.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "direct-mapped", "direct":
		return DirectMapped, nil
	case "set-associative", "set":
		return SetAssociative, nil
	case "fully-associative", "full":
		return FullyAssociative, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfig, "unknown section kind %q", s)
	}
}

// SectionConfig is the immutable shape of a section, except Capacity
// which changes under resize.
type SectionConfig struct {
	ID            SectionID
	Capacity      uint64
	LineSize      uint64
	PageSize      uint64
	Kind          Kind
	Associativity int
}

// Lines returns the slot budget derived from capacity and line size.
func (c SectionConfig) Lines() int {
	return int(c.Capacity / c.LineSize)
}

// NumSets returns the set count for the set-based variants, floored at
// one set so a section can always admit at least one page.
func (c SectionConfig) NumSets() int {
	n := int(c.Capacity / (c.LineSize * uint64(c.Associativity)))
	if n < 1 {
		n = 1
	}
	return n
}

// section is the contract the router forwards to. Implementations are
// self-contained: they own their resident pages, their statistics and
// their replacement state.
type section interface {
	// fetch returns the page pinned and upgradeable-locked, reading
	// through to the backing store on a miss.
	fetch(id PageID) (*Page, error)

	// newSlot installs a brand-new page, born clean, zeroed, pinned and
	// exclusively locked. Counted as a miss.
	newSlot(id PageID) (*Page, error)

	// prefetch performs miss-path work without pinning or locking; a
	// resident id is a no-op.
	prefetch(id PageID) error

	flushAll() error
	resize(capacity uint64) error
	pageCount() int
	snapshot() Stats
	resetStats()
	conf() SectionConfig
}

// sectionBase carries what every variant shares: configuration, the
// backing store, the optional victim cache and statistics. The stats
// are guarded by the owning variant's mutex.
type sectionBase struct {
	cfg    SectionConfig
	store  storage.PageStore
	victim VictimCache
	stats  Stats
}

// loadBuffer materializes the contents for id: from the victim cache
// when enabled and populated, from the backing store otherwise. The
// returned slice is PageSize bytes.
func (b *sectionBase) loadBuffer(id PageID) ([]byte, error) {
	buf := make([]byte, b.cfg.PageSize)
	if b.victim != nil {
		if cached, ok := b.victim.Get(id); ok && uint64(len(cached)) == b.cfg.PageSize {
			copy(buf, cached)
			metrics.FarcacheVictimHitsTotal.Inc()
			return buf, nil
		}
	}
	start := time.Now()
	if err := b.store.Read(uint32(id), buf); err != nil {
		return nil, errors.Wrapf(err, "reading page %d from backing store", id)
	}
	metrics.FarcacheStoreReadDurationSeconds.Observe(time.Since(start).Seconds())
	return buf, nil
}

// writeBack hands a page buffer to the backing store and clears the
// dirty flag on success.
func (b *sectionBase) writeBack(p *Page) error {
	start := time.Now()
	if err := b.store.Write(uint32(p.id), p.buf); err != nil {
		return errors.Wrapf(err, "writing page %d to backing store", p.id)
	}
	metrics.FarcacheStoreWriteDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.FarcacheFlushesTotal.Inc()
	p.SetDirty(false)
	return nil
}

// evict retires a page from its slot: dirty contents are offered to
// the backing store first, then the buffer is stashed in the victim
// cache. Callers hold the section lock; the page is unpinned, so no
// client lock can be held on it.
func (b *sectionBase) evict(p *Page) error {
	if p.Dirty() {
		if err := b.writeBack(p); err != nil {
			return err
		}
	}
	if b.victim != nil {
		b.victim.Put(p.id, p.buf)
	}
	metrics.FarcacheEvictionsTotal.Inc()
	return nil
}
