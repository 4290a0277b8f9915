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

	"github.com/farcache/farcache/storage"
)

// FakeStore is an in-memory PageStore that counts its traffic. Reads
// of unknown identifiers zero-fill like the null sink unless Strict is
// set, in which case they fail with storage.ErrPageNotFound.
type FakeStore struct {
	mu       sync.Mutex
	pageSize int
	pages    map[uint32][]byte

	Strict bool
	Reads  int
	Writes int
}

func NewFakeStore(pageSize int) *FakeStore {
	return &FakeStore{
		pageSize: pageSize,
		pages:    make(map[uint32][]byte),
	}
}

func (s *FakeStore) Read(id uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	value, ok := s.pages[id]
	if !ok {
		if s.Strict {
			return storage.ErrPageNotFound
		}
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, value)
	return nil
}

func (s *FakeStore) Write(id uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes++
	value := make([]byte, len(buf))
	copy(value, buf)
	s.pages[id] = value
	return nil
}

func (s *FakeStore) PageSize() int { return s.pageSize }

func (s *FakeStore) Close() error { return nil }

// Stored returns a copy of the bytes persisted for id, if any.
func (s *FakeStore) Stored(id uint32) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.pages[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true
}
