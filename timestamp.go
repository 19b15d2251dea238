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

import "context"

// TimestampSnapshot holds the four timestamps §4.5 names as one
// Timestamps call read them. Each is loaded separately, so the four are
// not read atomically as a group.
type TimestampSnapshot struct {
	Oldest, Pinned, Stable, Durable Timestamp
}

// Timestamps returns the registry's current timestamp quad. Pinned is
// recomputed from the slot walk; the other three are simple loads.
func (r *Registry) Timestamps() TimestampSnapshot {
	pinned, _ := r.PinnedTimestamp()
	oldest, _ := r.OldestTimestamp()
	stable, _ := r.StableTimestamp()
	return TimestampSnapshot{
		Oldest:  oldest,
		Pinned:  pinned,
		Stable:  stable,
		Durable: r.DurableTimestamp(),
	}
}

// WaitForReadersThrough blocks until every session holding a read
// timestamp <= ts has called Commit/Rollback/Close, i.e. until
// readMark.DoneUntil() reaches ts. A checkpoint uses this the way
// __wt_txn_update_oldest's caller waits before cementing a new oldest
// timestamp: there is no point pinning a value still being read.
func (r *Registry) WaitForReadersThrough(ctx context.Context, ts Timestamp) error {
	return r.readMark.WaitForMark(ctx, uint64(ts))
}

// AdvanceOldestTimestamp raises oldestTS to ts, refusing to move it
// backwards or past the current stable timestamp, the invariant ordering
// §4.5 and I4 require.
func (r *Registry) AdvanceOldestTimestamp(ts Timestamp) error {
	if cur, ok := r.OldestTimestamp(); ok && ts.Less(cur) {
		return ErrTimestampOrder
	}
	if stable, ok := r.StableTimestamp(); ok && stable.Less(ts) {
		return ErrTimestampOrder
	}
	r.SetOldestTimestamp(ts)
	return nil
}

// AdvanceStableTimestamp raises stableTS to ts, refusing to move it
// backwards.
func (r *Registry) AdvanceStableTimestamp(ts Timestamp) error {
	if cur, ok := r.StableTimestamp(); ok && ts.Less(cur) {
		return ErrTimestampOrder
	}
	r.SetStableTimestamp(ts)
	return nil
}
