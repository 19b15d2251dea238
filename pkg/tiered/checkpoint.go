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
	"bytes"
	"encoding/binary"
	"math/rand"
	"sort"

	"github.com/tidetxn/tidetxn/pkg/bufferpool"
	"github.com/tidetxn/tidetxn/pkg/codec"
	"github.com/tidetxn/tidetxn/pkg/filter"
)

// Entry is one key/value pair fed into BuildCheckpointTier. Value is
// expected to already be tombstone-encoded the way LocalTier stores it —
// a checkpoint tier built from a LOCAL tier's flushed contents must keep
// tombstones (they still need to shadow an older, lower-priority tier
// beneath this one); only the final cross-tier read drops them.
type Entry struct {
	Key   []byte
	Value []byte
}

// block is one compressed, LCP-encoded run of entries, the in-memory
// analogue of an SSTable data block — same key-compression and
// compression scheme as the teacher's table/data.go, minus the block
// ever touching a file.
type block struct {
	firstKey []byte
	raw      []byte // decompressed, LCP-encoded bytes; decoded lazily
}

// CheckpointTier is a read-only, point-in-time tier built once via
// BuildCheckpointTier. Every mutating Cursor method returns
// ErrReadOnlyTier.
type CheckpointTier struct {
	cmp    Comparator
	blocks []block
	filter *filter.Filter

	blockIdx int
	entries  []Entry
	pos      int
	valid    bool
}

// BuildCheckpointTier LCP-encodes and s2-compresses entries (already
// ascending-sorted by Key) into blocks of roughly blockBytesThreshold
// bytes each, and builds a Bloom filter over every key so a miss can
// often be answered without decompressing anything.
func BuildCheckpointTier(entries []Entry, blockBytesThreshold int, cmp Comparator) (*CheckpointTier, error) {
	if cmp == nil {
		cmp = defaultCompare
	}
	ct := &CheckpointTier{cmp: cmp}
	if blockBytesThreshold <= 0 {
		blockBytesThreshold = 4096
	}

	keys := make([][]byte, 0, len(entries))
	var cur []Entry
	curSize := 0

	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		encoded, err := encodeBlock(cur)
		if err != nil {
			return err
		}
		var compressed bytes.Buffer
		if err := codec.Compress(bytes.NewReader(encoded), &compressed); err != nil {
			return err
		}
		var decompressed bytes.Buffer
		if err := codec.Decompress(bytes.NewReader(compressed.Bytes()), &decompressed); err != nil {
			return err
		}
		ct.blocks = append(ct.blocks, block{firstKey: cur[0].Key, raw: decompressed.Bytes()})
		cur = nil
		curSize = 0
		return nil
	}

	for _, e := range entries {
		keys = append(keys, e.Key)
		cur = append(cur, e)
		curSize += len(e.Key) + len(e.Value)
		if curSize >= blockBytesThreshold {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		ct.filter = filter.New(1, 0.01)
	} else {
		ct.filter = filter.Build(keys)
	}
	return ct, nil
}

// encodeBlock writes entries as a run of (prefixLen, suffixLen, suffix,
// valueLen, value) tuples, each suffix sharing the longest common prefix
// with the entry before it — the same scheme table/data.go uses for its
// SSTable data blocks.
func encodeBlock(entries []Entry) ([]byte, error) {
	buf := bufferpool.Pool.Get()
	defer bufferpool.Pool.Put(buf)
	w := codec.NewErrorWriter(buf)

	var prevKey []byte
	for _, e := range entries {
		prefixLen := 0
		if prevKey != nil {
			prefixLen = codec.LCP(prevKey, e.Key)
		}
		suffix := e.Key[prefixLen:]

		w.Write(binary.BigEndian, uint16(prefixLen))
		w.Write(binary.BigEndian, uint16(len(suffix)))
		w.Write(binary.BigEndian, suffix)
		w.Write(binary.BigEndian, uint32(len(e.Value)))
		w.Write(binary.BigEndian, e.Value)

		prevKey = e.Key
	}
	if err := w.Error(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decodeBlock(raw []byte) ([]Entry, error) {
	r := codec.NewErrorReader(bytes.NewReader(raw))
	var entries []Entry
	var prevKey []byte
	for {
		var prefixLen, suffixLen uint16
		r.Read(binary.BigEndian, &prefixLen)
		if r.Error() != nil {
			break
		}
		r.Read(binary.BigEndian, &suffixLen)
		suffix := make([]byte, suffixLen)
		r.Read(binary.BigEndian, &suffix)
		var valueLen uint32
		r.Read(binary.BigEndian, &valueLen)
		value := make([]byte, valueLen)
		r.Read(binary.BigEndian, &value)
		if r.Error() != nil {
			return nil, r.Error()
		}

		key := make([]byte, int(prefixLen)+len(suffix))
		copy(key, prevKey[:prefixLen])
		copy(key[prefixLen:], suffix)

		entries = append(entries, Entry{Key: key, Value: value})
		prevKey = key
	}
	return entries, nil
}

func (t *CheckpointTier) loadBlock(idx int) error {
	if idx < 0 || idx >= len(t.blocks) {
		t.entries, t.valid = nil, false
		return ErrNotFound
	}
	entries, err := decodeBlock(t.blocks[idx].raw)
	if err != nil {
		return err
	}
	t.blockIdx = idx
	t.entries = entries
	return nil
}

// blockFor returns the index of the last block whose firstKey <= key.
func (t *CheckpointTier) blockFor(key []byte) int {
	idx := sort.Search(len(t.blocks), func(i int) bool {
		return t.cmp(t.blocks[i].firstKey, key) > 0
	})
	return idx - 1
}

func (t *CheckpointTier) Search(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if t.filter != nil && !t.filter.Contains(key) {
		t.valid = false
		return ErrNotFound
	}
	bi := t.blockFor(key)
	if bi < 0 {
		t.valid = false
		return ErrNotFound
	}
	if err := t.loadBlock(bi); err != nil {
		return err
	}
	idx, found := t.findInBlock(key)
	if !found || isTombstone(t.entries[idx].Value) {
		t.valid = false
		return ErrNotFound
	}
	t.pos, t.valid = idx, true
	return nil
}

func (t *CheckpointTier) findInBlock(key []byte) (int, bool) {
	lo, hi := 0, len(t.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		c := t.cmp(t.entries[mid].Key, key)
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

func (t *CheckpointTier) SearchNear(key []byte) (int, error) {
	if len(key) == 0 {
		return 0, ErrEmptyKey
	}
	bi := t.blockFor(key)
	if bi < 0 {
		bi = 0
	}
	if err := t.loadBlock(bi); err != nil {
		return 0, ErrNotFound
	}
	idx, found := t.findInBlock(key)
	if found {
		t.pos, t.valid = idx, true
		return 0, nil
	}
	if idx >= len(t.entries) {
		t.pos = len(t.entries) - 1
		if err := t.Next(); err != nil {
			// no larger key in this or later blocks; fall back to the
			// largest key overall.
			if err2 := t.loadBlock(bi); err2 != nil {
				return 0, ErrNotFound
			}
			if len(t.entries) == 0 {
				return 0, ErrNotFound
			}
			t.pos, t.valid = len(t.entries)-1, true
			return -1, nil
		}
		return 1, nil
	}
	t.pos, t.valid = idx, true
	return 1, nil
}

func (t *CheckpointTier) Reset() error {
	t.valid = false
	t.pos = -1
	if len(t.blocks) > 0 {
		return t.loadBlock(0)
	}
	t.entries = nil
	return nil
}

func (t *CheckpointTier) Next() error {
	if len(t.entries) == 0 && len(t.blocks) > 0 && t.blockIdx == 0 {
		if err := t.loadBlock(0); err != nil {
			return err
		}
		t.pos = -1
	}
	t.pos++
	for t.pos >= len(t.entries) {
		if err := t.loadBlock(t.blockIdx + 1); err != nil {
			t.valid = false
			return ErrNotFound
		}
		t.pos = 0
		if len(t.entries) > 0 {
			break
		}
	}
	t.valid = true
	return nil
}

func (t *CheckpointTier) Prev() error {
	if !t.valid && t.pos < 0 {
		// unpositioned (after Reset): start from the last block's end
		if err := t.loadBlock(len(t.blocks) - 1); err != nil {
			t.valid = false
			return ErrNotFound
		}
		t.pos = len(t.entries)
	}
	if t.pos <= 0 {
		if err := t.loadBlock(t.blockIdx - 1); err != nil {
			t.valid = false
			return ErrNotFound
		}
		t.pos = len(t.entries)
	}
	t.pos--
	if t.pos < 0 {
		t.valid = false
		return ErrNotFound
	}
	t.valid = true
	return nil
}

func (t *CheckpointTier) Key() []byte {
	if !t.valid {
		return nil
	}
	return t.entries[t.pos].Key
}

func (t *CheckpointTier) Value() []byte {
	if !t.valid {
		return nil
	}
	return t.entries[t.pos].Value
}

func (t *CheckpointTier) Insert(_, _ []byte) error { return ErrReadOnlyTier }
func (t *CheckpointTier) Update(_, _ []byte) error { return ErrReadOnlyTier }
func (t *CheckpointTier) Remove(_ []byte) error    { return ErrReadOnlyTier }
func (t *CheckpointTier) Reserve(_ []byte) error   { return ErrReadOnlyTier }

func (t *CheckpointTier) NextRandom() error {
	if len(t.blocks) == 0 {
		return ErrNotFound
	}
	bi := rand.Intn(len(t.blocks))
	if err := t.loadBlock(bi); err != nil {
		return err
	}
	if len(t.entries) == 0 {
		return ErrNotFound
	}
	t.pos = rand.Intn(len(t.entries))
	t.valid = true
	return nil
}

func (t *CheckpointTier) Close() error { return nil }

var _ Cursor = (*CheckpointTier)(nil)
