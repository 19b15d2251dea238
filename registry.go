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
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tidetxn/tidetxn/pkg/watermark"
)

// sessionSlot is the registry's view of one session's transaction state,
// the array spec.md §3 describes: a flat, fixed-size table the registry
// walks with rw held for read, and a session writes its own slot through
// atomic stores plus the brief isAllocating barrier; mu is not locked
// anywhere.
type sessionSlot struct {
	mu sync.Mutex

	inUse   atomic.Bool
	active  atomic.Bool
	id      atomic.Uint64 // TxnID, 0 == NoTxnID
	readTS  atomic.Uint64
	hasRead atomic.Bool

	// pinnedID, metadataPinned and pinnedDurableTS are the three
	// publication fields spec.md §3 lists alongside id/read_ts: the
	// lowest id (resp. metadata-table id, resp. durable timestamp) this
	// session's outstanding cursors still need retained. Begin publishes
	// the session's own id as both pins. UpdateOldest takes oldest_id
	// from id and the metadata bound from metadataPinned (falling back to
	// id when no metadata pin is published); PinnedTimestamp reads
	// readTS. Nothing reads pinnedID or pinnedDurableTS.
	pinnedID        atomic.Uint64
	metadataPinned  atomic.Uint64
	pinnedDurableTS atomic.Uint64

	// isAllocating is held true for the brief window between "reserve
	// the next id" and "publish it into id", so a concurrent snapshot
	// scan can tell the difference between "no transaction" and "a
	// transaction id is being minted right now" and wait it out instead
	// of racing ahead with a stale view (mirrors
	// __wt_txn_get_snapshot_int's is_allocating poll).
	isAllocating atomic.Bool
}

// Registry is the process-wide shared state of §3/§4.1: the global
// transaction-id counter, the oldest/pinned/stable/durable timestamp
// quad, and the session slot array snapshots are built from. Callers own
// a *Registry and thread it explicitly through every Session, never as a
// package-level global, per §9.
type Registry struct {
	cfg Config

	rw sync.RWMutex // guards slot membership changes (grow, close)

	current          atomic.Uint64 // next TxnID to allocate
	lastRunning      atomic.Uint64 // cached result of the last UpdateOldest scan
	oldestID         atomic.Uint64
	metadataPinnedID atomic.Uint64

	oldestTS  atomic.Uint64
	stableTS  atomic.Uint64
	pinnedTS  atomic.Uint64
	durableTS atomic.Uint64

	hasOldestTS atomic.Bool
	hasStableTS atomic.Bool
	hasPinnedTS atomic.Bool

	slots []*sessionSlot

	// checkpointSlot is a dedicated slot outside the ordinary session
	// array, matching the teacher's reserved checkpoint transaction
	// state: a checkpoint publishes its own long-lived snapshot/pin here
	// rather than occupying a slot a real session could otherwise
	// acquire, and both UpdateOldest and TakeSnapshot fold it into their
	// walk like any other in-use slot.
	checkpointSlot *sessionSlot

	readMark   *watermark.WaterMark
	commitMark *watermark.WaterMark

	// Diagnostic mirrors cfg.Diagnostic for quick access from hot paths.
	Diagnostic bool
}

// NewRegistry allocates a registry with cfg.MaxSessions pre-allocated
// slots, following the teacher's DefaultConfig/validate()-then-construct
// shape from config.go/db.go.
func NewRegistry(cfg Config) *Registry {
	_ = cfg.validate()

	r := &Registry{
		cfg:            cfg,
		Diagnostic:     cfg.Diagnostic,
		slots:          make([]*sessionSlot, cfg.MaxSessions),
		checkpointSlot: &sessionSlot{},
		readMark:       watermark.New(),
		commitMark:     watermark.New(),
	}
	for i := range r.slots {
		r.slots[i] = &sessionSlot{}
	}
	r.current.Store(uint64(FirstTxnID))
	return r
}

// Stop releases the registry's background watermark goroutines.
func (r *Registry) Stop() {
	r.readMark.Stop()
	r.commitMark.Stop()
}

// acquireSlot claims a free slot for a new Session, growing under rw if
// every existing slot is in use.
func (r *Registry) acquireSlot() *sessionSlot {
	r.rw.RLock()
	for _, s := range r.slots {
		if s.inUse.CompareAndSwap(false, true) {
			r.rw.RUnlock()
			return s
		}
	}
	r.rw.RUnlock()

	r.rw.Lock()
	defer r.rw.Unlock()
	s := &sessionSlot{}
	s.inUse.Store(true)
	r.slots = append(r.slots, s)
	return s
}

func (r *Registry) releaseSlot(s *sessionSlot) {
	s.active.Store(false)
	s.id.Store(0)
	s.hasRead.Store(false)
	s.pinnedID.Store(0)
	s.metadataPinned.Store(0)
	s.pinnedDurableTS.Store(0)
	s.inUse.Store(false)
}

// AllocateTxnID reserves and publishes the next transaction id for slot,
// using the publish/barrier dance __wt_txn_get_snapshot_int relies on: the
// slot is marked isAllocating before the id is visible, and cleared only
// after id/active are both published, so a concurrent TakeSnapshot never
// observes a half-published transaction.
func (r *Registry) AllocateTxnID(s *sessionSlot) TxnID {
	s.isAllocating.Store(true)
	id := TxnID(r.current.Add(1) - 1)
	s.id.Store(uint64(id))
	s.active.Store(true)
	s.isAllocating.Store(false)
	return id
}

// waitForAllocating busy-waits (with a Gosched yield, not a spin) until s
// finishes publishing an in-flight id allocation. There is no primitive in
// the teacher's or pack's dependency surface for this specific
// publish-barrier; it stays on sync/atomic + runtime.Gosched deliberately
// — see DESIGN.md.
func waitForAllocating(s *sessionSlot) {
	for s.isAllocating.Load() {
		runtime.Gosched()
	}
}

// PublishPinned stores the lowest TxnID this session currently needs
// retained (its own transaction id, once it has one) into the slot's
// dedicated pinned_id field (UpdateOldest reads the slot's id, not this
// field). I2 requires a published
// pinned_id never fall below the oldest_id the registry had observed at
// publication time; since id is minted from the registry's monotonic
// counter, it is always >= any previously-observed oldest_id, so calling
// this with the session's own id trivially satisfies I2.
func (r *Registry) PublishPinned(s *sessionSlot, id TxnID) {
	s.pinnedID.Store(uint64(id))
}

// PublishMetadataPinned stores the lowest TxnID a session's metadata-table
// access needs retained. This module has no separate metadata-table
// transaction path from the data-table one __wt_txn_update_oldest
// distinguishes, so callers publish the same id to both; I1 (metadata_
// pinned <= oldest_id) then holds by construction rather than by a
// separate metadata-specific scan.
func (r *Registry) PublishMetadataPinned(s *sessionSlot, id TxnID) {
	s.metadataPinned.Store(uint64(id))
}

// PublishPinnedDurableTimestamp records the durable timestamp a session's
// outstanding cursors still need the history store to retain. No code in
// this module reads the published value.
func (r *Registry) PublishPinnedDurableTimestamp(s *sessionSlot, ts Timestamp) {
	s.pinnedDurableTS.Store(uint64(ts))
}

// CheckpointSlot returns the registry's dedicated checkpoint slot, letting
// a checkpoint routine publish its own pin without competing with ordinary
// sessions for a slot from the pool.
func (r *Registry) CheckpointSlot() *sessionSlot {
	return r.checkpointSlot
}

// UpdateOldest recomputes oldestID by scanning every in-use slot (plus the
// dedicated checkpoint slot) for its published id and metadata_pinned,
// taking the minimum of each — the slot walk spec.md describes verbatim.
// The readMark watermark is not consulted; the slot walk alone decides
// I1–I3.
func (r *Registry) UpdateOldest() TxnID {
	r.rw.RLock()
	defer r.rw.RUnlock()

	oldest := TxnID(r.current.Load())
	metadataPinned := oldest
	walk := func(s *sessionSlot) {
		if !s.inUse.Load() {
			return
		}
		waitForAllocating(s)
		if !s.active.Load() {
			return
		}
		id := TxnID(s.id.Load())
		if id != NoTxnID && id.Less(oldest) {
			oldest = id
		}
		// a slot that published no metadata pin holds it at its own id
		mp := TxnID(s.metadataPinned.Load())
		if mp == NoTxnID {
			mp = id
		}
		if mp != NoTxnID && mp.Less(metadataPinned) {
			metadataPinned = mp
		}
	}
	for _, s := range r.slots {
		walk(s)
	}
	walk(r.checkpointSlot)

	prev := TxnID(r.oldestID.Load())
	invariant(!oldest.Less(prev), "oldest transaction id must not move backwards")
	r.oldestID.Store(uint64(oldest))
	r.lastRunning.Store(uint64(oldest))

	// I1: metadata_pinned must never run ahead of the oldest id the data
	// tables are pinned to.
	invariant(!oldest.Less(metadataPinned), "metadata_pinned must not exceed oldest_id")
	r.metadataPinnedID.Store(uint64(metadataPinned))
	return oldest
}

// OldestID returns the last value UpdateOldest computed.
func (r *Registry) OldestID() TxnID { return TxnID(r.oldestID.Load()) }

// MetadataPinnedID returns the last value UpdateOldest computed for I1's
// metadata_pinned bound.
func (r *Registry) MetadataPinnedID() TxnID { return TxnID(r.metadataPinnedID.Load()) }

// --- timestamp quad, invariant I4: oldest <= pinned <= stable <= durable ---

func (r *Registry) SetOldestTimestamp(ts Timestamp) {
	r.oldestTS.Store(uint64(ts))
	r.hasOldestTS.Store(true)
}

func (r *Registry) OldestTimestamp() (Timestamp, bool) {
	return Timestamp(r.oldestTS.Load()), r.hasOldestTS.Load()
}

func (r *Registry) SetStableTimestamp(ts Timestamp) {
	r.stableTS.Store(uint64(ts))
	r.hasStableTS.Store(true)
}

func (r *Registry) StableTimestamp() (Timestamp, bool) {
	return Timestamp(r.stableTS.Load()), r.hasStableTS.Load()
}

// PinnedTimestamp returns the lowest read timestamp any active session
// still needs, computed from a walk of the session slots and cached. When
// no active session holds a read timestamp it returns the cached value of
// the last walk that found one (false if none ever did); the result is
// not clamped to the oldest or the stable timestamp.
func (r *Registry) PinnedTimestamp() (Timestamp, bool) {
	r.rw.RLock()
	defer r.rw.RUnlock()

	var min Timestamp
	found := false
	for _, s := range r.slots {
		if !s.inUse.Load() || !s.active.Load() || !s.hasRead.Load() {
			continue
		}
		ts := Timestamp(s.readTS.Load())
		if !found || ts.Less(min) {
			min, found = ts, true
		}
	}
	if found {
		r.pinnedTS.Store(uint64(min))
		r.hasPinnedTS.Store(true)
		return min, true
	}
	return Timestamp(r.pinnedTS.Load()), r.hasPinnedTS.Load()
}

// advanceDurableTimestamp CAS-loops the durable timestamp up to at least
// ts, the lock-free "only moves forward" update §4.5 specifies.
func (r *Registry) advanceDurableTimestamp(ts Timestamp) {
	for {
		cur := r.durableTS.Load()
		if cur != 0 && !Timestamp(cur).Less(ts) {
			return
		}
		if r.durableTS.CompareAndSwap(cur, uint64(ts)) {
			return
		}
	}
}

func (r *Registry) DurableTimestamp() Timestamp {
	return Timestamp(r.durableTS.Load())
}
