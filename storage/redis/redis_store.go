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

// Package redis implements a PageStore over a redis server. It is the
// closest thing to real far memory in this repository: pages live in
// another process's RAM and every miss pays a network round trip.
package redis

import (
	"strconv"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/farcache/farcache/storage"
)

// RedisStore keeps page buffers under "page:<id>" keys.
type RedisStore struct {
	client   *redis.Client
	pageSize int
}

func NewRedisStore(addr string, pageSize int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "unable to reach redis at %q", addr)
	}
	return &RedisStore{client: client, pageSize: pageSize}, nil
}

func key(id uint32) string {
	return "page:" + strconv.FormatUint(uint64(id), 10)
}

func (s *RedisStore) Read(id uint32, buf []byte) error {
	value, err := s.client.Get(key(id)).Bytes()
	if err == redis.Nil {
		return storage.ErrPageNotFound
	}
	if err != nil {
		// network failures are worth a retry at the caller
		return &storage.TransientError{Err: errors.Wrapf(err, "reading page %d", id)}
	}
	copy(buf, value)
	return nil
}

func (s *RedisStore) Write(id uint32, buf []byte) error {
	if err := s.client.Set(key(id), buf, 0).Err(); err != nil {
		return &storage.TransientError{Err: errors.Wrapf(err, "writing page %d", id)}
	}
	return nil
}

func (s *RedisStore) PageSize() int { return s.pageSize }

func (s *RedisStore) Close() error {
	return s.client.Close()
}
