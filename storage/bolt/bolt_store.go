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

// Package bolt implements a PageStore over a bbolt database file.
package bolt

import (
	bolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"

	"github.com/farcache/farcache/storage"
	"github.com/farcache/farcache/util"
)

var pagesBucket = []byte("pages")

// BoltStore keeps page buffers in a single bucket keyed by identifier.
type BoltStore struct {
	db       *bolt.DB
	pageSize int
}

func NewBoltStore(path string, pageSize int) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open bolt store at %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create pages bucket")
	}
	return &BoltStore{db: db, pageSize: pageSize}, nil
}

func (s *BoltStore) Read(id uint32, buf []byte) error {
	return s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(pagesBucket).Get(util.Uint32AsBytes(id))
		if value == nil {
			return storage.ErrPageNotFound
		}
		copy(buf, value)
		return nil
	})
}

func (s *BoltStore) Write(id uint32, buf []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Put(util.Uint32AsBytes(id), buf)
	})
}

func (s *BoltStore) PageSize() int { return s.pageSize }

func (s *BoltStore) Close() error {
	return s.db.Close()
}
