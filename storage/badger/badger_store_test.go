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

package badger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/farcache/farcache/storage"
	"github.com/farcache/farcache/testutils/rand"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStoreOpts(&Options{Path: t.TempDir(), PageSize: 128, NoSync: true})
	require.NoError(t, err)
	return s
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	payload := rand.Bytes(128)
	require.NoError(t, s.Write(1, payload))

	buf := make([]byte, 128)
	require.NoError(t, s.Read(1, buf))
	require.Equal(t, payload, buf)
}

func TestBadgerStoreMissingPage(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	err := s.Read(42, make([]byte, 128))
	require.Equal(t, storage.ErrPageNotFound, err)
}

func TestBadgerStoreOverwrite(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.Write(1, rand.Bytes(128)))
	second := rand.Bytes(128)
	require.NoError(t, s.Write(1, second))

	buf := make([]byte, 128)
	require.NoError(t, s.Read(1, buf))
	require.Equal(t, second, buf)
}
