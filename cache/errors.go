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
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/farcache/farcache/storage"
)

var (
	// ErrInvalidPageID is returned when an operation names the reserved
	// identifier 0.
	ErrInvalidPageID = errors.New("cache: invalid page id")

	// ErrNoEvictableSlot is returned when every candidate slot in the
	// target section is pinned and capacity cannot be grown. It usually
	// means the client forgot to unpin pages.
	ErrNoEvictableSlot = errors.New("cache: no evictable slot in section")

	// ErrSectionNotFound is returned by management operations naming an
	// unknown section identifier.
	ErrSectionNotFound = errors.New("cache: section not found")

	// ErrDefaultSection is returned on attempts to remove the default
	// section.
	ErrDefaultSection = errors.New("cache: default section cannot be removed")

	// ErrLineSizeTooSmall is returned when a section's line size is
	// below the cache's page size.
	ErrLineSizeTooSmall = errors.New("cache: line size smaller than page size")

	// ErrInvalidConfig is returned when router construction parameters
	// are inconsistent.
	ErrInvalidConfig = errors.New("cache: invalid configuration")

	// ErrInvalidRange is returned by MapRange when low exceeds high or
	// the range touches the reserved identifier 0.
	ErrInvalidRange = errors.New("cache: invalid page range")
)

// IsNotFound reports whether err means the backing store refused to
// materialize the requested page.
func IsNotFound(err error) bool {
	return pkgerrors.Cause(err) == storage.ErrPageNotFound
}

// IsExhausted reports whether err means the target section had no
// evictable slot.
func IsExhausted(err error) bool {
	return pkgerrors.Cause(err) == ErrNoEvictableSlot
}
