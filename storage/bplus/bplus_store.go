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

// Package bplus implements an in-memory PageStore on an in-process
// B-tree. It backs tests and purely in-memory embeddings that still
// need written pages to be re-readable, unlike the null sink.
package bplus

import (
	"sync"

	"github.com/google/btree"

	"github.com/farcache/farcache/storage"
)

type kvItem struct {
	id    uint32
	value []byte
}

func (i kvItem) Less(than btree.Item) bool {
	return i.id < than.(kvItem).id
}

// BPlusTreeStore keeps page buffers in a btree keyed by identifier.
type BPlusTreeStore struct {
	mu       sync.RWMutex
	db       *btree.BTree
	pageSize int
}

func NewBPlusTreeStore(pageSize int) *BPlusTreeStore {
	return &BPlusTreeStore{db: btree.New(2), pageSize: pageSize}
}

func (s *BPlusTreeStore) Read(id uint32, buf []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.db.Get(kvItem{id: id})
	if item == nil {
		return storage.ErrPageNotFound
	}
	copy(buf, item.(kvItem).value)
	return nil
}

func (s *BPlusTreeStore) Write(id uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := make([]byte, len(buf))
	copy(value, buf)
	s.db.ReplaceOrInsert(kvItem{id: id, value: value})
	return nil
}

func (s *BPlusTreeStore) PageSize() int { return s.pageSize }

func (s *BPlusTreeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Clear(false)
	return nil
}

// Len returns the number of stored pages.
func (s *BPlusTreeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Len()
}
