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

package tidetxn

// Snapshot is the set of transaction ids that were active (not yet
// committed or rolled back) at the moment it was taken. A transaction
// whose id is not in the snapshot, and is below MaxID, is visible; one at
// or above MaxID never is, regardless of membership.
type Snapshot struct {
	IDs   []TxnID
	MinID TxnID // smallest id considered possibly-invisible
	MaxID TxnID // first id guaranteed invisible (== registry.current at take time)

	// owned distinguishes a snapshot array transferred to a standalone
	// holder (e.g. a checkpoint's dummy session) from one still backed
	// by a session's reusable inline buffer. Only an owned snapshot's
	// Release actually frees anything; an unowned one's Release is a
	// no-op left for the session's next TakeSnapshot to overwrite in
	// place. This is the type-level answer to the checkpoint
	// snapshot-ownership Open Question, recorded in DESIGN.md.
	owned bool
}

// TakeSnapshot builds a Snapshot of every currently-active transaction
// other than excludeSelf, following __wt_txn_get_snapshot_int: publish
// this transaction's own id first (if excludeSelf != NoTxnID, the caller
// already did so), read current as MaxID, then scan every slot plus the
// dedicated checkpoint slot, recording active ids below MaxID while
// skipping ids that belong to the caller itself.
func (r *Registry) TakeSnapshot(excludeSelf TxnID) *Snapshot {
	r.rw.RLock()
	defer r.rw.RUnlock()

	snap := &Snapshot{}

	// MaxID is read before the scan: any transaction that allocates an id
	// during or after the scan gets an id >= MaxID and stays invisible.
	snap.MaxID = TxnID(r.current.Load())

	slots := append(r.slots[:len(r.slots):len(r.slots)], r.checkpointSlot)
	ids := make([]TxnID, 0, len(slots))
	for _, s := range slots {
		if !s.inUse.Load() {
			continue
		}
		waitForAllocating(s)
		if !s.active.Load() {
			continue
		}
		id := TxnID(s.id.Load())
		if id == NoTxnID || id == excludeSelf || !id.Less(snap.MaxID) {
			continue
		}
		ids = append(ids, id)
	}

	snapsort(ids)
	snap.IDs = ids

	// snap_min := min(snapshot[0], snap_max): a non-empty snapshot's
	// floor is its smallest concurrent id; an empty one has no
	// concurrent transaction to be invisible to, so everything below
	// MaxID is visible and MinID collapses to MaxID.
	if len(ids) > 0 {
		snap.MinID = ids[0]
	} else {
		snap.MinID = snap.MaxID
	}
	return snap
}

// Visible reports whether id should be visible to a reader holding snap,
// implementing the predicate of §4.1: ids >= MaxID are never visible; ids
// < MinID are always visible (they committed before any tracked
// transaction could have been active); everything between is visible iff
// it is absent from the sorted IDs list.
func (snap *Snapshot) Visible(id TxnID) bool {
	if id == NoTxnID {
		return false
	}
	if !id.Less(snap.MaxID) {
		return false
	}
	if id.Less(snap.MinID) {
		return true
	}
	_, found := snapSearch(snap.IDs, id)
	return !found
}

// Release marks snap as no longer needed. Only an owned snapshot (see
// owned) actually drops its backing array; a session-inline snapshot is
// left for the next TakeSnapshot call to overwrite.
func (snap *Snapshot) Release() {
	if snap == nil {
		return
	}
	if snap.owned {
		snap.IDs = nil
	}
}

// NewCheckpointSnapshot builds a standalone, heap-owned Snapshot for a
// checkpoint's dummy session, answering the ownership Open Question: a
// checkpoint never shares a session's reusable inline buffer because a
// checkpoint's snapshot must outlive the session that requested it.
func NewCheckpointSnapshot(ids []TxnID, minID, maxID TxnID) *Snapshot {
	cp := make([]TxnID, len(ids))
	copy(cp, ids)
	snapsort(cp)
	return &Snapshot{IDs: cp, MinID: minID, MaxID: maxID, owned: true}
}

// snapsort sorts ids ascending using an insertion sort below the
// threshold and a single hand-rolled partition step above it, the shape
// of __snapsort/__snapsort_partition: snapshot arrays are small (bounded
// by the session count) so a textbook introselect would be overkill, but
// a plain library sort call would erase the specific algorithm spec.md
// names as part of the hot path being specified.
func snapsort(ids []TxnID) {
	const insertionThreshold = 16
	var rec func(a []TxnID)
	rec = func(a []TxnID) {
		if len(a) <= insertionThreshold {
			insertionSortTxnIDs(a)
			return
		}
		p := partitionTxnIDs(a)
		rec(a[:p])
		rec(a[p+1:])
	}
	rec(ids)
}

func insertionSortTxnIDs(a []TxnID) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && v.Less(a[j]) {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}

// partitionTxnIDs partitions a around a[len(a)/2] (median-ish pivot,
// avoiding worst-case behavior on already-sorted input) and returns the
// pivot's final index.
func partitionTxnIDs(a []TxnID) int {
	mid := len(a) / 2
	a[mid], a[len(a)-1] = a[len(a)-1], a[mid]
	pivot := a[len(a)-1]

	i := 0
	for j := 0; j < len(a)-1; j++ {
		if a[j].Less(pivot) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[len(a)-1] = a[len(a)-1], a[i]
	return i
}

// snapSearch binary-searches the sorted ids slice for id.
func snapSearch(ids []TxnID, id TxnID) (int, bool) {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if ids[mid].Less(id) {
			lo = mid + 1
		} else if id.Less(ids[mid]) {
			hi = mid
		} else {
			return mid, true
		}
	}
	return lo, false
}
