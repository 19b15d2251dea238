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
	"errors"
	"math/rand"
)

// TieredCursor multiplexes a tier array behind a single Cursor, index 0
// being the writable LOCAL tier and every higher index a progressively
// older, read-only tier — the WT_CURSOR_TIERED shape: it both drives
// child Cursors and, to its own caller, is itself one.
//
// Direction handling follows __curtiered_get_current/__curtiered_next:
// repeated Next calls (or repeated Prev calls) are fully supported;
// reversing direction mid-scan re-establishes position the slow way, via
// a fresh SearchNear, rather than the original's in-place direction flip
// — a reference-implementation simplification recorded in DESIGN.md.
type TieredCursor struct {
	tiers []Cursor
	cmp   Comparator

	bulk bool // true once OpenBulk has been called; no method reads it, so every Cursor method stays available

	// overwrite mirrors the WT_CURSOR config key of the same name: false
	// (the default) means Insert/Update/Remove must each be preceded by
	// a cross-tier search that agrees with the operation's precondition,
	// per §4.4.
	overwrite bool

	pending   []bool // tier needs to move before it is reconsidered
	exhausted []bool

	curTier    int
	positioned bool

	// valueCleared and clearedKey implement "remove on a positioned
	// cursor leaves the cursor positioned with a key but no value":
	// clearedKey is the removed key itself, cached here rather than
	// read back off a tier cursor, since the key being removed may only
	// have existed in a tier other than LOCAL (the tombstone just
	// written to LOCAL leaves that tier's own cursor unpositioned).
	// Both are cleared by any repositioning call.
	valueCleared bool
	clearedKey   []byte
}

// Open builds a TieredCursor over tiers, index 0 must be the writable
// LOCAL tier. The cursor starts in non-overwrite mode; call SetOverwrite
// to relax it.
func Open(tiers []Cursor, cmp Comparator) *TieredCursor {
	if cmp == nil {
		cmp = defaultCompare
	}
	return &TieredCursor{
		tiers:     tiers,
		cmp:       cmp,
		pending:   make([]bool, len(tiers)),
		exhausted: make([]bool, len(tiers)),
	}
}

// SetOverwrite toggles overwrite mode: true skips the pre-operation search
// Insert/Update/Remove otherwise perform, matching a cursor opened with
// the WT_CURSOR "overwrite" config string set.
func (c *TieredCursor) SetOverwrite(overwrite bool) { c.overwrite = overwrite }

// OpenBulk marks the cursor for bulk-load mode, valid only when every
// tier is currently empty — matching §4.4's bulk-mode precondition.
func (c *TieredCursor) OpenBulk() error {
	for _, t := range c.tiers {
		if err := t.Reset(); err != nil {
			continue
		}
		if err := t.Next(); err == nil {
			return ErrNotSupported
		}
	}
	c.bulk = true
	return nil
}

func (c *TieredCursor) Close() error {
	for _, t := range c.tiers {
		_ = t.Close()
	}
	return nil
}

func (c *TieredCursor) Reset() error {
	c.positioned = false
	c.valueCleared = false
	for i, t := range c.tiers {
		if err := t.Reset(); err != nil {
			return err
		}
		c.pending[i] = true
		c.exhausted[i] = false
	}
	return nil
}

// Search looks key up across every tier, in index order, so a live
// LOCAL-tier entry always wins over a stale checkpointed one at the same
// key — the "lowest tier wins" rule __curtiered_search applies by
// checking tiers in ascending index order and returning the first match.
func (c *TieredCursor) Search(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	c.valueCleared = false
	for i, t := range c.tiers {
		if err := t.Search(key); err == nil {
			c.curTier = i
			c.positioned = true
			for j := range c.tiers {
				c.pending[j] = j != i
			}
			if isTombstone(t.Value()) {
				c.positioned = false
				return ErrNotFound
			}
			return nil
		}
		// A tier's Search reports a tombstoned key as ErrNotFound; probe it
		// with SearchNear so a tombstone here ends the scan instead of
		// letting an older tier's value at the same key show through.
		if exact, err := t.SearchNear(key); err == nil && exact == 0 && isTombstone(t.Value()) {
			c.positioned = false
			return ErrNotFound
		}
	}
	c.positioned = false
	return ErrNotFound
}

// SearchNear positions on key or its nearest neighbor, scanning every
// tier and keeping the candidate that is exact (preferring the lowest
// tier index on an exact tie), else the smallest key >= target, else the
// largest key < target — the closest-candidate tracking with an
// exact-match shortcut __curtiered_search_near performs.
func (c *TieredCursor) SearchNear(key []byte) (int, error) {
	if len(key) == 0 {
		return 0, ErrEmptyKey
	}
	c.valueCleared = false

	type cand struct {
		tier int
		key  []byte
		cmp  int
	}
	var best *cand

	for i, t := range c.tiers {
		cmpResult, err := t.SearchNear(key)
		if err != nil {
			continue
		}
		k := t.Key()
		if isTombstone(t.Value()) {
			continue
		}
		candidate := cand{tier: i, key: k, cmp: cmpResult}
		switch {
		case best == nil:
			best = &candidate
		case candidate.cmp == 0 && best.cmp != 0:
			best = &candidate
		case candidate.cmp == 0 && best.cmp == 0:
			// exact match in two tiers: lower index (newer) wins.
		case best.cmp != 0 && candidate.cmp == 1 && best.cmp == 1 && c.cmp(candidate.key, best.key) < 0:
			best = &candidate
		case best.cmp != 0 && candidate.cmp == -1 && best.cmp == -1 && c.cmp(candidate.key, best.key) > 0:
			best = &candidate
		case best.cmp == -1 && candidate.cmp == 1:
			best = &candidate
		}
	}

	if best == nil {
		c.positioned = false
		return 0, ErrNotFound
	}

	c.curTier = best.tier
	c.positioned = true
	for j := range c.tiers {
		c.pending[j] = j != best.tier
	}
	// re-home the winning tier's cursor exactly on best.key (SearchNear
	// calls above already did, for the winner).
	if err := c.tiers[best.tier].SearchNear(best.key); err != nil {
		return 0, err
	}
	return best.cmp, nil
}

// Next advances to the next visible, non-tombstoned key across every
// tier, the __curtiered_next advance-and-reselect loop: tiers whose
// current key was just exposed (the winner, and any shadowed tiers tied
// with it) are marked pending and pulled forward before the next minimum
// is chosen; a tombstoned winner causes an immediate re-selection instead
// of being returned to the caller.
func (c *TieredCursor) Next() error {
	return c.advance(func(t Cursor) error { return t.Next() }, +1)
}

func (c *TieredCursor) Prev() error {
	return c.advance(func(t Cursor) error { return t.Prev() }, -1)
}

func (c *TieredCursor) advance(step func(Cursor) error, dir int) error {
	c.valueCleared = false
	for {
		for i, t := range c.tiers {
			if c.exhausted[i] || !c.pending[i] {
				continue
			}
			if err := step(t); err != nil {
				c.exhausted[i] = true
			}
			c.pending[i] = false
		}

		winner := -1
		for i, t := range c.tiers {
			if c.exhausted[i] {
				continue
			}
			if winner == -1 {
				winner = i
				continue
			}
			cmpResult := c.cmp(t.Key(), c.tiers[winner].Key())
			if (dir > 0 && cmpResult < 0) || (dir < 0 && cmpResult > 0) {
				winner = i
			}
		}

		if winner == -1 {
			c.positioned = false
			return ErrNotFound
		}

		winnerKey := c.tiers[winner].Key()
		for i, t := range c.tiers {
			if c.exhausted[i] {
				continue
			}
			if c.cmp(t.Key(), winnerKey) == 0 {
				c.pending[i] = true
			}
		}

		c.curTier = winner
		c.positioned = true

		if isTombstone(c.tiers[winner].Value()) {
			continue
		}
		return nil
	}
}

func (c *TieredCursor) Key() []byte {
	if !c.positioned {
		return nil
	}
	if c.valueCleared {
		return c.clearedKey
	}
	return c.tiers[c.curTier].Key()
}

func (c *TieredCursor) Value() []byte {
	if !c.positioned || c.valueCleared {
		return nil
	}
	return decodeValue(c.tiers[c.curTier].Value())
}

// Insert/Update/Remove/Reserve only ever reach tiers[0], the LOCAL tier —
// every other tier is read-only, per §4.4's failure semantics. In
// non-overwrite mode each is preceded by a cross-tier Search establishing
// the operation's precondition: Insert requires the key to be absent,
// Update and Remove require it to be present.
func (c *TieredCursor) Insert(key, value []byte) error {
	if !c.overwrite {
		err := c.Search(key)
		switch {
		case err == nil:
			return ErrDuplicateKey
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	return c.tiers[0].Insert(key, value)
}

func (c *TieredCursor) Update(key, value []byte) error {
	if !c.overwrite {
		if err := c.Search(key); err != nil {
			return err
		}
	}
	return c.tiers[0].Update(key, value)
}

func (c *TieredCursor) Remove(key []byte) error {
	// Search always runs, even in overwrite mode, so tiers[0] ends up
	// positioned on key; only non-overwrite mode treats a not-found
	// result as a hard failure.
	err := c.Search(key)
	if !c.overwrite && err != nil {
		return err
	}
	if err := c.tiers[0].Remove(key); err != nil {
		return err
	}
	// "leaves the cursor positioned with a key but no value" (§4.4):
	// clearedKey caches key itself rather than relying on tiers[0]'s
	// cursor state, since the removed key may have come from a higher
	// tier that tiers[0] was never positioned on.
	c.curTier = 0
	c.positioned = true
	c.valueCleared = true
	c.clearedKey = append([]byte(nil), key...)
	return nil
}

func (c *TieredCursor) Reserve(key []byte) error {
	return c.tiers[0].Reserve(key)
}

// NextRandom visits the tiers in a uniformly random order (the LOCAL tier
// on equal footing with every checkpointed tier, so sampling covers the
// whole handle, not just its largest tier) and returns the first random
// key a tier yields that is not a tombstone.
func (c *TieredCursor) NextRandom() error {
	c.valueCleared = false
	order := rand.Perm(len(c.tiers))
	for _, i := range order {
		if err := c.tiers[i].NextRandom(); err == nil {
			if isTombstone(c.tiers[i].Value()) {
				continue
			}
			c.curTier = i
			c.positioned = true
			for j := range c.tiers {
				c.pending[j] = j != i
			}
			return nil
		}
	}
	c.positioned = false
	return ErrNotFound
}

// Compare orders this cursor's current key against other's with this
// cursor's comparator, for callers that need to order two open cursors
// without materializing both keys themselves.
func (c *TieredCursor) Compare(other *TieredCursor) (int, error) {
	if !c.positioned || !other.positioned {
		return 0, ErrNotFound
	}
	return c.cmp(c.Key(), other.Key()), nil
}

// Equals reports whether this cursor and other are on the same key.
func (c *TieredCursor) Equals(other *TieredCursor) (bool, error) {
	cmp, err := c.Compare(other)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

var _ Cursor = (*TieredCursor)(nil)
