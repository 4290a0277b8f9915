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
	"math/rand"
	"sync"
	"time"
)

// Delayed decorates a PageStore with simulated far-memory latency.
// Every Read sleeps for Base plus a uniform jitter in [-Jitter, Jitter]
// before delegating; writes are not delayed. The delay is an explicit
// attribute of the store rather than process-wide state, so instances
// with different latencies compose in one test.
type Delayed struct {
	inner  PageStore
	base   time.Duration
	jitter time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDelayed(inner PageStore, base, jitter time.Duration) *Delayed {
	return &Delayed{
		inner:  inner,
		base:   base,
		jitter: jitter,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Delayed) Read(id uint32, buf []byte) error {
	s.sleep()
	return s.inner.Read(id, buf)
}

func (s *Delayed) Write(id uint32, buf []byte) error {
	return s.inner.Write(id, buf)
}

func (s *Delayed) PageSize() int { return s.inner.PageSize() }

func (s *Delayed) Close() error { return s.inner.Close() }

func (s *Delayed) sleep() {
	if s.base <= 0 && s.jitter <= 0 {
		return
	}
	delay := s.base
	if s.jitter > 0 {
		s.mu.Lock()
		offset := time.Duration(s.rnd.Int63n(int64(2*s.jitter)+1)) - s.jitter
		s.mu.Unlock()
		delay += offset
		if delay < 0 {
			delay = 0
		}
	}
	time.Sleep(delay)
}
