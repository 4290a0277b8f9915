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

// Package badger implements a PageStore over a local badger database,
// for embedders that want cold pages on an LSM instead of a flat file.
package badger

import (
	b "github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"github.com/farcache/farcache/log"
	"github.com/farcache/farcache/storage"
	"github.com/farcache/farcache/util"
)

// BadgerStore keeps page buffers keyed by their little-endian
// identifier.
type BadgerStore struct {
	db       *b.DB
	pageSize int
}

// Options contains the configuration used to open the badger db.
type Options struct {
	// Path is the directory path to the badger db to use.
	Path string

	// PageSize is the page granularity the cache was built with.
	PageSize int

	// NoSync causes the database to skip fsync calls after each write.
	// This is unsafe, so it should be used with caution.
	NoSync bool
}

func NewBadgerStore(path string, pageSize int) (*BadgerStore, error) {
	return NewBadgerStoreOpts(&Options{Path: path, PageSize: pageSize})
}

func NewBadgerStoreOpts(opts *Options) (*BadgerStore, error) {
	bOpts := b.DefaultOptions
	bOpts.Dir = opts.Path
	bOpts.ValueDir = opts.Path
	bOpts.SyncWrites = !opts.NoSync

	db, err := b.Open(bOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open badger store at %q", opts.Path)
	}
	log.Debugf("opened badger page store at %q", opts.Path)
	return &BadgerStore{db: db, pageSize: opts.PageSize}, nil
}

func (s *BadgerStore) Read(id uint32, buf []byte) error {
	return s.db.View(func(txn *b.Txn) error {
		item, err := txn.Get(util.Uint32AsBytes(id))
		if err == b.ErrKeyNotFound {
			return storage.ErrPageNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "reading page %d", id)
		}
		value, err := item.Value()
		if err != nil {
			return errors.Wrapf(err, "reading page %d value", id)
		}
		copy(buf, value)
		return nil
	})
}

func (s *BadgerStore) Write(id uint32, buf []byte) error {
	value := make([]byte, len(buf))
	copy(value, buf)
	return s.db.Update(func(txn *b.Txn) error {
		return txn.Set(util.Uint32AsBytes(id), value)
	})
}

func (s *BadgerStore) PageSize() int { return s.pageSize }

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
