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

	"github.com/stretchr/testify/require"
)

func fetchRelease(t *testing.T, c *Cache, id PageID) {
	t.Helper()
	p, err := c.Fetch(id)
	require.NoError(t, err)
	p.UUnlock()
	c.Unpin(p, false)
}

// capacitySum returns the capacity of every section plus the available
// pool, which must always equal the total budget.
func capacitySum(c *Cache) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sum := c.available
	for _, sec := range c.sections {
		sum += sec.conf().Capacity
	}
	return sum
}

func TestOptimizeRebalancesTowardMissyWorkload(t *testing.T) {
	cfg := Config{
		TotalBytes:      40 * testPageSize,
		PageSize:        testPageSize,
		DefaultLineSize: testPageSize,
		Sections: []SectionSpec{
			{Bytes: 20 * testPageSize, LineSize: testPageSize, Kind: "fully-associative"},
			{Bytes: 20 * testPageSize, LineSize: testPageSize, Kind: "fully-associative"},
		},
		Ranges: []RangeSpec{
			{Low: 1, High: 1000, Section: 0},
			{Low: 1001, High: 2000, Section: 1},
		},
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)

	missy := c.SectionFor(1)
	quiet := c.SectionFor(1001)
	require.NotEqual(t, missy, quiet)

	// ~90% misses on the first section: 900 distinct ids, 100 repeats
	for id := PageID(1); id <= 900; id++ {
		fetchRelease(t, c, id)
	}
	for i := 0; i < 100; i++ {
		fetchRelease(t, c, 900)
	}
	// ~0.1% misses on the second: one id over and over
	for i := 0; i < 1000; i++ {
		fetchRelease(t, c, 1001)
	}

	missyStats, err := c.SectionStats(missy)
	require.NoError(t, err)
	quietStats, err := c.SectionStats(quiet)
	require.NoError(t, err)
	require.True(t, missyStats.MissRate() > 0.8)
	require.True(t, quietStats.MissRate() < 0.1)

	before := capacitySum(c)
	require.NoError(t, c.Optimize())

	missyCap := c.sectionByID(missy).conf().Capacity
	quietCap := c.sectionByID(quiet).conf().Capacity
	require.True(t, missyCap > quietCap,
		"section with 90%% misses should end up larger (got %d vs %d)", missyCap, quietCap)
	require.Equal(t, before, capacitySum(c), "optimizer must conserve the pool")
}

func TestOptimizeSingleSectionIsNoop(t *testing.T) {
	c, err := New(testConfig(8), nil)
	require.NoError(t, err)

	fetchRelease(t, c, 1)
	before := c.sectionByID(c.DefaultSection()).conf().Capacity
	require.NoError(t, c.Optimize())
	require.Equal(t, before, c.sectionByID(c.DefaultSection()).conf().Capacity)
}

func TestOptimizeZeroMissRateIsNoop(t *testing.T) {
	cfg := Config{
		TotalBytes:      8 * testPageSize,
		PageSize:        testPageSize,
		DefaultLineSize: testPageSize,
		Sections: []SectionSpec{
			{Bytes: 4 * testPageSize, LineSize: testPageSize, Kind: "fully-associative"},
		},
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)

	// no accesses anywhere: nothing to learn from, nothing moves
	caps := make(map[SectionID]uint64)
	for _, sec := range c.snapshotSections() {
		caps[sec.conf().ID] = sec.conf().Capacity
	}
	require.NoError(t, c.Optimize())
	for _, sec := range c.snapshotSections() {
		require.Equal(t, caps[sec.conf().ID], sec.conf().Capacity)
	}
}

func TestOptimizeEnforcesFloor(t *testing.T) {
	cfg := Config{
		TotalBytes:      40 * testPageSize,
		PageSize:        testPageSize,
		DefaultLineSize: testPageSize,
		Sections: []SectionSpec{
			{Bytes: 20 * testPageSize, LineSize: testPageSize, Kind: "fully-associative"},
			{Bytes: 20 * testPageSize, LineSize: testPageSize, Kind: "fully-associative"},
		},
		Ranges: []RangeSpec{
			{Low: 1, High: 1000, Section: 0},
			{Low: 1001, High: 2000, Section: 1},
		},
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)

	quiet := c.SectionFor(1001)

	for id := PageID(1); id <= 500; id++ {
		fetchRelease(t, c, id)
	}
	for i := 0; i < 500; i++ {
		fetchRelease(t, c, 1001)
	}

	require.NoError(t, c.Optimize())
	quietCap := c.sectionByID(quiet).conf().Capacity
	require.True(t, quietCap >= 2*testPageSize,
		"every section keeps at least two lines, got %d bytes", quietCap)
}
