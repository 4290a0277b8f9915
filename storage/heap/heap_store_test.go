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

package heap

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/farcache/farcache/storage"
	"github.com/farcache/farcache/testutils/rand"
)

const pageSize = 256

func TestHeapStoreWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.heap")
	s, err := NewHeapStore(path, true, pageSize)
	require.NoError(t, err)
	defer s.Close()

	payload := rand.Bytes(pageSize)
	require.NoError(t, s.Write(3, payload))

	buf := make([]byte, pageSize)
	require.NoError(t, s.Read(3, buf))
	require.Equal(t, payload, buf)

	// writing id 3 extended the file through slot 3
	require.Equal(t, uint32(4), s.PageCount())
}

func TestHeapStoreHeaderSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.heap")
	s, err := NewHeapStore(path, true, pageSize)
	require.NoError(t, err)

	payload := rand.Bytes(pageSize)
	require.NoError(t, s.Write(5, payload))
	require.NoError(t, s.Close())

	s, err = NewHeapStore(path, false, pageSize)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, uint32(6), s.PageCount())
	buf := make([]byte, pageSize)
	require.NoError(t, s.Read(5, buf))
	require.Equal(t, payload, buf)
}

func TestHeapStoreReadBeyondEndIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.heap")
	s, err := NewHeapStore(path, true, pageSize)
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, pageSize)
	err = s.Read(9, buf)
	require.Error(t, err)
	require.Equal(t, storage.ErrPageNotFound, errors.Cause(err))

	err = s.Read(0, buf)
	require.Error(t, err)
	require.Equal(t, storage.ErrPageNotFound, errors.Cause(err))
}

func TestHeapStoreExtend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.heap")
	s, err := NewHeapStore(path, true, pageSize)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Extend(10))
	require.Equal(t, uint32(10), s.PageCount())

	buf := make([]byte, pageSize)
	require.NoError(t, s.Read(9, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}

	// shrinking requests are ignored
	require.NoError(t, s.Extend(2))
	require.Equal(t, uint32(10), s.PageCount())
}

func TestHeapStoreRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.heap")
	require.NoError(t, ioutil.WriteFile(path, rand.Bytes(pageSize), 0644))

	_, err := NewHeapStore(path, false, pageSize)
	require.Error(t, err)
}

func TestHeapStoreRejectsPageSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.heap")
	s, err := NewHeapStore(path, true, pageSize)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = NewHeapStore(path, false, pageSize*2)
	require.Error(t, err)
}

func TestHeapStoreMissingFileWithoutCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.heap")
	_, err := NewHeapStore(path, false, pageSize)
	require.Error(t, err)
}
