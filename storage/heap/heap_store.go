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

// Package heap implements a PageStore over a flat heap file with
// positioned I/O. The file starts with a small header (magic, page
// size, page count) occupying the slot of the reserved identifier 0;
// page id n lives at byte offset n * page_size.
package heap

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/farcache/farcache/log"
	"github.com/farcache/farcache/storage"
	"github.com/farcache/farcache/util"
)

const magic uint32 = 0x48454150 // "HEAP"

const headerLen = 12

// HeapStore is a PageStore backed by a single heap file.
type HeapStore struct {
	mu        sync.Mutex
	f         *os.File
	path      string
	pageSize  uint32
	pageCount uint32
}

// NewHeapStore opens the heap file at path, creating it when create is
// set and it does not exist yet. An existing file must carry the
// expected magic and page size.
func NewHeapStore(path string, create bool, pageSize uint32) (*HeapStore, error) {
	s := &HeapStore{path: path, pageSize: pageSize}

	_, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if !create {
			return nil, errors.Wrapf(err, "heap file %q does not exist", path)
		}
		if err := s.create(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, errors.Wrapf(err, "unable to stat heap file %q", path)
	}

	s.f, err = os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open heap file %q", path)
	}
	if err := s.readHeader(); err != nil {
		s.f.Close()
		return nil, err
	}
	log.Debugf("opened heap file %q: %d pages of %d bytes", path, s.pageCount, s.pageSize)
	return s, nil
}

func (s *HeapStore) create() error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "unable to create heap file %q", s.path)
	}
	s.f = f
	// slot 0 holds the header; real pages start at identifier 1
	s.pageCount = 1
	if err := s.f.Truncate(int64(s.pageSize)); err != nil {
		return errors.Wrap(err, "unable to size heap file")
	}
	return s.writeHeader()
}

func (s *HeapStore) readHeader() error {
	hdr := make([]byte, headerLen)
	if _, err := s.f.ReadAt(hdr, 0); err != nil {
		return errors.Wrap(err, "unable to read heap file header")
	}
	if util.BytesAsUint32(hdr[0:4]) != magic {
		return errors.Errorf("bad heap file %q (magic)", s.path)
	}
	pageSize := util.BytesAsUint32(hdr[4:8])
	if pageSize != s.pageSize {
		return errors.Errorf("heap file %q has page size %d, want %d", s.path, pageSize, s.pageSize)
	}
	s.pageCount = util.BytesAsUint32(hdr[8:12])
	return nil
}

func (s *HeapStore) writeHeader() error {
	hdr := make([]byte, 0, headerLen)
	hdr = append(hdr, util.Uint32AsBytes(magic)...)
	hdr = append(hdr, util.Uint32AsBytes(s.pageSize)...)
	hdr = append(hdr, util.Uint32AsBytes(s.pageCount)...)
	if _, err := s.f.WriteAt(hdr, 0); err != nil {
		return errors.Wrap(err, "unable to write heap file header")
	}
	return nil
}

func (s *HeapStore) Read(id uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 {
		return errors.Wrap(storage.ErrPageNotFound, "page id 0 is invalid")
	}
	if id >= s.pageCount {
		return errors.Wrapf(storage.ErrPageNotFound, "page %d beyond %d pages", id, s.pageCount)
	}
	if _, err := s.f.ReadAt(buf, int64(id)*int64(s.pageSize)); err != nil {
		return errors.Wrapf(err, "reading page %d", id)
	}
	return nil
}

func (s *HeapStore) Write(id uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 {
		return errors.Wrap(storage.ErrPageNotFound, "page id 0 is invalid")
	}
	if id >= s.pageCount {
		if err := s.extendLocked(id + 1); err != nil {
			return err
		}
	}
	if _, err := s.f.WriteAt(buf, int64(id)*int64(s.pageSize)); err != nil {
		return errors.Wrapf(err, "writing page %d", id)
	}
	return nil
}

// Extend grows the file so identifiers below count are materializable.
func (s *HeapStore) Extend(count uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count <= s.pageCount {
		return nil
	}
	return s.extendLocked(count)
}

func (s *HeapStore) extendLocked(count uint32) error {
	if err := s.f.Truncate(int64(count) * int64(s.pageSize)); err != nil {
		return errors.Wrap(err, "unable to grow heap file")
	}
	s.pageCount = count
	return s.writeHeader()
}

// PageCount returns the number of slots in the file, the header slot
// included.
func (s *HeapStore) PageCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCount
}

func (s *HeapStore) PageSize() int { return int(s.pageSize) }

func (s *HeapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	if err := s.writeHeader(); err != nil {
		s.f.Close()
		return err
	}
	err := s.f.Close()
	s.f = nil
	return err
}
