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

package redis

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/farcache/farcache/storage"
	"github.com/farcache/farcache/testutils/rand"
)

// openTestStore needs a reachable server; set REDIS_ADDR to run these.
func openTestStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(addr, 128)
	require.NoError(t, err)
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	payload := rand.Bytes(128)
	require.NoError(t, s.Write(90001, payload))

	buf := make([]byte, 128)
	require.NoError(t, s.Read(90001, buf))
	require.Equal(t, payload, buf)
}

func TestRedisStoreMissingPage(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	err := s.Read(98765, make([]byte, 128))
	require.Equal(t, storage.ErrPageNotFound, err)
}
