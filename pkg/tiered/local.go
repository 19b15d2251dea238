// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tiered

import (
	"math/rand"

	"github.com/tidetxn/tidetxn/pkg/skiplist"
)

// LocalTier is the writable tier at index 0: a skiplist index storing
// tombstone-encoded values, the only tier Insert/Update/Remove/Reserve
// are ever allowed to reach (§4.4's failure semantics: every mutating
// call on a non-LOCAL tier returns ErrReadOnlyTier).
type LocalTier struct {
	list *skiplist.SkipList
	cmp  Comparator

	// snapshot is a cached ascending view rebuilt on Reset/Search/
	// SearchNear; Next/Prev walk it by index. Rebuilding on every
	// reposition is O(n) in the tier's size, a deliberate simplicity
	// trade-off for a reference tier — see DESIGN.md.
	snapshot []skiplist.Entry
	pos      int
	valid    bool
}

func NewLocalTier(maxLevel int, p float64, cmp Comparator) *LocalTier {
	if cmp == nil {
		cmp = defaultCompare
	}
	return &LocalTier{
		list: skiplist.New(maxLevel, p),
		cmp:  cmp,
	}
}

func (t *LocalTier) refresh() {
	t.snapshot = t.list.All()
	t.pos = -1
	t.valid = false
}

func (t *LocalTier) Reset() error {
	t.refresh()
	return nil
}

func (t *LocalTier) Search(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	t.refresh()
	idx, found := t.find(key)
	if !found || isTombstone(t.snapshot[idx].Value) {
		return ErrNotFound
	}
	t.pos, t.valid = idx, true
	return nil
}

func (t *LocalTier) SearchNear(key []byte) (int, error) {
	if len(key) == 0 {
		return 0, ErrEmptyKey
	}
	t.refresh()
	idx, found := t.find(key)
	if found {
		t.pos, t.valid = idx, true
		return 0, nil
	}
	if idx >= len(t.snapshot) {
		if idx == 0 {
			return 0, ErrNotFound
		}
		t.pos, t.valid = idx-1, true
		return -1, nil
	}
	t.pos, t.valid = idx, true
	return 1, nil
}

// find returns the index of key in the cached snapshot (binary search)
// and whether it was an exact match.
func (t *LocalTier) find(key []byte) (int, bool) {
	lo, hi := 0, len(t.snapshot)
	for lo < hi {
		mid := (lo + hi) / 2
		c := t.cmp(t.snapshot[mid].Key, key)
		if c < 0 {
			lo = mid + 1
		} else if c > 0 {
			hi = mid
		} else {
			return mid, true
		}
	}
	return lo, false
}

func (t *LocalTier) Next() error {
	if !t.valid {
		t.pos = -1
	}
	t.pos++
	if t.pos >= len(t.snapshot) {
		t.valid = false
		return ErrNotFound
	}
	t.valid = true
	return nil
}

func (t *LocalTier) Prev() error {
	if !t.valid {
		t.pos = len(t.snapshot)
	}
	t.pos--
	if t.pos < 0 {
		t.valid = false
		return ErrNotFound
	}
	t.valid = true
	return nil
}

func (t *LocalTier) Key() []byte {
	if !t.valid {
		return nil
	}
	return t.snapshot[t.pos].Key
}

// Value returns the still tombstone-encoded bytes. TieredCursor decodes
// (and filters tombstones out of) what tier cursors expose, the same
// split __curtiered_deleted / __curtiered_get_current keep in the
// original cursor.
func (t *LocalTier) Value() []byte {
	if !t.valid {
		return nil
	}
	return t.snapshot[t.pos].Value
}

func (t *LocalTier) Insert(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	t.list.Set(key, encodeValue(value))
	return nil
}

func (t *LocalTier) Update(key, value []byte) error {
	return t.Insert(key, value)
}

func (t *LocalTier) Remove(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	t.list.Set(key, append([]byte(nil), tombstoneMarker...))
	return nil
}

func (t *LocalTier) Reserve(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if _, ok := t.list.Get(key); ok {
		return nil
	}
	// a reservation with no value yet is encoded as a zero-length value:
	// distinct from a tombstone, but the same bytes an empty real value
	// encodes to.
	t.list.Set(key, []byte{})
	return nil
}

func (t *LocalTier) NextRandom() error {
	t.refresh()
	if len(t.snapshot) == 0 {
		return ErrNotFound
	}
	t.pos = rand.Intn(len(t.snapshot))
	t.valid = true
	return nil
}

func (t *LocalTier) Close() error { return nil }

var _ Cursor = (*LocalTier)(nil)
