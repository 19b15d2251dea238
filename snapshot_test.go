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

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotVisibleBelowMinIDIsAlwaysVisible(t *testing.T) {
	snap := &Snapshot{MinID: 10, MaxID: 20, IDs: []TxnID{12, 15}}
	assert.True(t, snap.Visible(5))
}

func TestSnapshotVisibleAtOrAboveMaxIDIsNeverVisible(t *testing.T) {
	snap := &Snapshot{MinID: 10, MaxID: 20, IDs: []TxnID{12, 15}}
	assert.False(t, snap.Visible(20))
	assert.False(t, snap.Visible(25))
}

func TestSnapshotVisibleInRangeDependsOnMembership(t *testing.T) {
	snap := &Snapshot{MinID: 10, MaxID: 20, IDs: []TxnID{12, 15}}
	assert.False(t, snap.Visible(12), "a transaction still active in the snapshot must not be visible")
	assert.True(t, snap.Visible(13), "a transaction absent from the snapshot's active set is visible")
}

func TestSnapshotVisibleRejectsNoTxnID(t *testing.T) {
	snap := &Snapshot{MinID: 10, MaxID: 20}
	assert.False(t, snap.Visible(NoTxnID))
}

func TestTakeSnapshotExcludesSelf(t *testing.T) {
	r := newTestRegistry(t)

	s1 := r.acquireSlot()
	id1 := r.AllocateTxnID(s1)
	s2 := r.acquireSlot()
	id2 := r.AllocateTxnID(s2)

	snap := r.TakeSnapshot(id1)
	assert.NotContains(t, snap.IDs, id1)
	assert.Contains(t, snap.IDs, id2)
}

func TestSnapsortMatchesStandardSortForVariousSizes(t *testing.T) {
	for _, n := range []int{0, 1, 2, 15, 16, 17, 100, 257} {
		ids := make([]TxnID, n)
		for i := range ids {
			ids[i] = TxnID(rand.Intn(10_000))
		}
		want := make([]TxnID, n)
		copy(want, ids)
		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

		snapsort(ids)
		assert.Equal(t, want, ids, "snapsort mismatch for n=%d", n)
	}
}

func TestNewCheckpointSnapshotIsIndependentlyOwned(t *testing.T) {
	ids := []TxnID{5, 3, 4}
	cp := NewCheckpointSnapshot(ids, 1, 10)

	// mutating the caller's backing slice must not affect the snapshot:
	// NewCheckpointSnapshot copies rather than aliasing.
	ids[0] = 999

	assert.Equal(t, []TxnID{3, 4, 5}, cp.IDs)
	cp.Release()
	assert.Nil(t, cp.IDs, "an owned snapshot frees its backing array on Release")
}

func TestUnownedSnapshotReleaseIsANoop(t *testing.T) {
	snap := &Snapshot{IDs: []TxnID{1, 2, 3}, owned: false}
	snap.Release()
	assert.NotNil(t, snap.IDs)
}
