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
	"github.com/VictoriaMetrics/fastcache"
	"github.com/coocood/freecache"

	"github.com/farcache/farcache/util"
)

// VictimCache retains the buffers of evicted pages so that a miss can
// be served without paying the far-memory read. It is byte-bounded and
// lossy: entries vanish under memory pressure and Get may miss at any
// time.
type VictimCache interface {
	Get(id PageID) ([]byte, bool)
	Put(id PageID, buf []byte)
	Reset()
}

// FastVictimCache is a VictimCache on VictoriaMetrics' fastcache.
type FastVictimCache struct {
	cached *fastcache.Cache
}

func NewFastVictimCache(maxBytes int64) *FastVictimCache {
	return &FastVictimCache{cached: fastcache.New(int(maxBytes))}
}

func (c *FastVictimCache) Get(id PageID) ([]byte, bool) {
	value := c.cached.Get(nil, util.Uint32AsBytes(uint32(id)))
	if value == nil {
		return nil, false
	}
	return value, true
}

func (c *FastVictimCache) Put(id PageID, buf []byte) {
	c.cached.Set(util.Uint32AsBytes(uint32(id)), buf)
}

func (c *FastVictimCache) Reset() {
	c.cached.Reset()
}

// FreeVictimCache is a VictimCache on coocood's freecache.
type FreeVictimCache struct {
	cached *freecache.Cache
}

func NewFreeVictimCache(size int) *FreeVictimCache {
	return &FreeVictimCache{cached: freecache.NewCache(size)}
}

func (c *FreeVictimCache) Get(id PageID) ([]byte, bool) {
	value, err := c.cached.Get(util.Uint32AsBytes(uint32(id)))
	if err != nil {
		return nil, false
	}
	return value, true
}

func (c *FreeVictimCache) Put(id PageID, buf []byte) {
	_ = c.cached.Set(util.Uint32AsBytes(uint32(id)), buf, 0)
}

func (c *FreeVictimCache) Reset() {
	c.cached.Clear()
}
