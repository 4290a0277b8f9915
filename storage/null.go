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

// NullStore is a sink: reads come back zero-filled and writes are
// discarded. It backs purely in-memory cache configurations and tests
// that only exercise residency behavior.
type NullStore struct {
	pageSize int
}

func NewNullStore(pageSize int) *NullStore {
	return &NullStore{pageSize: pageSize}
}

func (s *NullStore) Read(id uint32, buf []byte) error {
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (s *NullStore) Write(id uint32, buf []byte) error { return nil }

func (s *NullStore) PageSize() int { return s.pageSize }

func (s *NullStore) Close() error { return nil }
