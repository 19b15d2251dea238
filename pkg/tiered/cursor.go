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

// Package tiered implements the LSM-style K-way merged cursor: a tier
// array with the writable LOCAL tier at index 0 and progressively older,
// read-only tiers above it, multiplexed behind a single Cursor.
package tiered

import (
	"bytes"
	"errors"
)

var (
	ErrNotFound     = errors.New("tiered: not found")
	ErrEmptyKey     = errors.New("tiered: key is empty")
	ErrReadOnlyTier = errors.New("tiered: tier is read-only")
	ErrNotSupported = errors.New("tiered: operation not supported")

	// ErrDuplicateKey is returned by Insert, in non-overwrite mode, when
	// a preceding search across every tier finds a visible, non-
	// tombstoned value already at the key.
	ErrDuplicateKey = errors.New("tiered: duplicate key")
)

// Cursor is the tier-cursor protocol every tier (LOCAL or checkpointed)
// and the merged TieredCursor itself implement, standing in for
// WT_CURSOR's method set restricted to the operations a tiered handle
// actually drives.
type Cursor interface {
	// Search positions the cursor exactly on key. Returns ErrNotFound if
	// key (or a visible, non-tombstoned version of it) does not exist.
	Search(key []byte) error

	// SearchNear positions the cursor at key or its nearest neighbor,
	// returning -1/0/1 the way a key comparison does to report whether the
	// cursor landed before, on, or after key.
	SearchNear(key []byte) (int, error)

	Next() error
	Prev() error

	// Reset repositions the cursor off any key, so the next Next/Prev
	// starts from the beginning/end of the tier.
	Reset() error

	Key() []byte

	// Value returns the still tombstone-encoded value bytes. Decoding
	// and tombstone interpretation happen one level up, in the merged
	// cursor, so every tier (including the LOCAL tier itself when
	// addressed directly) is consistent about what "the value" means at
	// this layer.
	Value() []byte

	Insert(key, value []byte) error
	Update(key, value []byte) error
	Remove(key []byte) error
	Reserve(key []byte) error

	// NextRandom positions the cursor on a pseudo-random visible key,
	// used by the random-read mode §4.4 describes.
	NextRandom() error

	Close() error
}

// Comparator orders two keys the way the tier's collator would; nil means
// plain lexicographic byte order.
type Comparator func(a, b []byte) int

func defaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}
