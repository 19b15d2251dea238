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
	"context"
	"time"
)

// txnState is the per-session transaction state machine of §4.2.
type txnState int

const (
	txnStateNone txnState = iota
	txnStateRunning
	txnStatePrepared
	txnStateCommitted
	txnStateAborted
)

// Session owns one transaction's state: the id, isolation, snapshot, the
// five timestamp fields, and its modification list. A Registry hands out
// Sessions; the Session never reaches back into the registry except
// through the *Registry pointer it was given, matching §9's
// no-package-globals rule.
type Session struct {
	reg  *Registry
	slot *sessionSlot

	cfg   TxnConfig
	state txnState

	id TxnID

	commitTS      Timestamp
	hasCommitTS   bool
	durableTS     Timestamp
	hasDurableTS  bool
	prepareTS     Timestamp
	hasPrepareTS  bool
	readTS        Timestamp
	hasReadTS     bool
	firstCommitTS Timestamp
	hasFirstCommitTS bool

	flags txnFlags

	snapshot *Snapshot

	mod []modEntry

	rollbackReason string

	doneRead bool

	// hs is the consumed history-store collaborator; nil means this
	// session never needs one (no prepared transactions touched it).
	hs HistoryStore

	// logger is the consumed write-ahead-log collaborator; nil means
	// this session's commits never produce a logrec.
	logger TxnLogger

	operationDeadline time.Time
}

// SetLogger attaches l as this session's write-ahead-log collaborator.
// Commit calls l.LogRecord once per committing transaction that touched
// at least one update, after its updates are stamped with their final
// timestamps; a failure at that point can no longer be reported back to
// the caller as a rollback; see Commit.
func (s *Session) SetLogger(l TxnLogger) { s.logger = l }

// txnFlags bitset, mirroring updateFlags: one word, not a pile of bools.
type txnFlags uint32

const (
	sessHasID txnFlags = 1 << iota
	sessHasSnapshot
	sessIgnorePrepareForce
	sessReadOnly
)

func (f txnFlags) Has(bit txnFlags) bool { return f&bit != 0 }
func (f *txnFlags) Set(bit txnFlags)      { *f |= bit }
func (f *txnFlags) Clear(bit txnFlags)    { *f &^= bit }

// NewSession acquires a registry slot and returns an idle Session. Begin
// must be called before any read/write operation.
func NewSession(reg *Registry, hs HistoryStore) *Session {
	return &Session{
		reg:   reg,
		slot:  reg.acquireSlot(),
		state: txnStateNone,
		hs:    hs,
	}
}

// Close releases the session's registry slot. Any running transaction is
// rolled back first.
func (s *Session) Close() {
	if s.state == txnStateRunning || s.state == txnStatePrepared {
		_ = s.Rollback()
	}
	s.reg.releaseSlot(s.slot)
}

// Begin starts a new transaction on s under cfg, allocating a transaction
// id and taking a snapshot.
func (s *Session) Begin(cfg TxnConfig) error {
	if s.state == txnStateRunning || s.state == txnStatePrepared {
		return ErrDiscardedTxn
	}
	s.cfg = cfg
	s.state = txnStateRunning
	s.flags = 0
	s.mod = s.mod[:0]
	s.hasCommitTS, s.hasDurableTS, s.hasPrepareTS, s.hasFirstCommitTS = false, false, false, false
	s.rollbackReason = ""

	if cfg.IgnorePrepare == IgnorePrepareForce {
		s.flags.Set(sessIgnorePrepareForce)
	}

	s.id = s.reg.AllocateTxnID(s.slot)
	s.flags.Set(sessHasID)
	s.reg.PublishPinned(s.slot, s.id)
	s.reg.PublishMetadataPinned(s.slot, s.id)

	if cfg.HasReadTS {
		s.readTS, s.hasReadTS = cfg.ReadTimestamp, true
		if oldest, ok := s.reg.OldestTimestamp(); ok && s.readTS.Less(oldest) {
			if cfg.RoundToOldest {
				s.readTS = oldest
			} else if s.reg.Diagnostic {
				invariant(false, "read timestamp older than oldest timestamp")
			} else {
				return ErrTimestampOrder
			}
		}
		s.slot.readTS.Store(uint64(s.readTS))
		s.slot.hasRead.Store(true)
		s.reg.readMark.Begin(uint64(s.readTS))
		s.doneRead = false
	}

	s.snapshot = s.reg.TakeSnapshot(s.id)
	s.flags.Set(sessHasSnapshot)

	if cfg.OperationTimeout > 0 {
		s.operationDeadline = time.Now().Add(cfg.OperationTimeout)
	} else {
		s.operationDeadline = time.Time{}
	}
	return nil
}

// checkDeadline implements the context-cancellation-at-yield-points model
// of §5: called at the same points the original yields on a condition
// variable, it returns ErrOperationTimedOut once the deadline has passed.
func (s *Session) checkDeadline(ctx context.Context) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if !s.operationDeadline.IsZero() && time.Now().After(s.operationDeadline) {
		return ErrOperationTimedOut
	}
	return nil
}

// Modify records e as part of this transaction's modification list and
// stamps e.Update with this transaction's id and start timestamp; the
// caller (Tree.push) links the update onto owner's chain before calling
// it. Visibility/conflict checking
// against concurrent writers is the caller's (the tree's) job; Session
// only bookkeeps.
func (s *Session) Modify(e modEntry) error {
	if s.state != txnStateRunning {
		return ErrDiscardedTxn
	}
	if len(e.Key) == 0 {
		return ErrEmptyKey
	}
	if e.Update != nil {
		e.Update.Txn = s.id
		e.Update.StartTS = s.readStartTS()
	}
	s.mod = append(s.mod, e)
	return nil
}

// doneReadMark retires this session's read timestamp from the registry's
// readMark watermark exactly once, mirroring the teacher's
// oracle.doneRead guard against double-retiring the same mark.
func (s *Session) doneReadMark() {
	if s.doneRead || !s.hasReadTS {
		return
	}
	s.reg.readMark.Done(uint64(s.readTS))
	s.doneRead = true
}

func (s *Session) readStartTS() Timestamp {
	if s.hasCommitTS {
		return s.commitTS
	}
	return NoTimestamp
}

// SetCommitTimestamp assigns the commit timestamp this transaction will
// use, validating commitTS >= any previously-set commit timestamp and
// commitTS >= registry oldest, per §4.5's ordering rules.
func (s *Session) SetCommitTimestamp(ts Timestamp) error {
	if s.hasCommitTS && ts.Less(s.commitTS) {
		if s.reg.Diagnostic {
			invariant(false, "commit timestamp must not move backwards within a transaction")
		}
		return ErrTimestampOrder
	}
	if oldest, ok := s.reg.OldestTimestamp(); ok && ts.Less(oldest) {
		return ErrTimestampOrder
	}
	if !s.hasFirstCommitTS {
		s.firstCommitTS, s.hasFirstCommitTS = ts, true
	}
	s.commitTS, s.hasCommitTS = ts, true
	return nil
}

func (s *Session) SetDurableTimestamp(ts Timestamp) error {
	if s.hasCommitTS && ts.Less(s.commitTS) {
		return ErrTimestampOrder
	}
	s.durableTS, s.hasDurableTS = ts, true
	return nil
}

// Prepare moves the transaction into the prepared state, per §4.2: every
// entry in mod gets PrepareInProgress stamped on its update node, and
// prepareTS is recorded. A prepared transaction may only later Commit or
// Rollback, never Begin again.
func (s *Session) Prepare(prepareTS Timestamp) error {
	if s.state != txnStateRunning {
		return ErrDiscardedTxn
	}
	if stable, ok := s.reg.StableTimestamp(); ok && prepareTS.LessEqual(stable) {
		return ErrTimestampOrder
	}
	for i := range s.mod {
		if u := s.mod[i].Update; u != nil {
			u.PrepareState = PrepareInProgress
			u.PrepareTS = prepareTS
		}
	}
	s.prepareTS, s.hasPrepareTS = prepareTS, true
	s.state = txnStatePrepared
	return nil
}

// Commit finalizes the transaction: every prepared update is resolved via
// resolvePreparedOp (a no-op walk for non-prepared entries), commit/
// durable timestamps are stamped onto every touched node, and the
// transaction id is retired from the registry's active set.
//
// Once the modify loop below (step 5) completes cleanly, cannotFail
// becomes true and this function enters the "cannot fail" epoch §4.2
// names: the update nodes it just stamped are already reachable by any
// concurrent reader whose snapshot includes this transaction's id, so a
// failure from this point on can no longer be reported to the caller as a
// rollback — it is escalated to a panic instead. The one operation left
// in that window that can actually fail is the write-ahead-log append.
func (s *Session) Commit() error {
	if s.state != txnStateRunning && s.state != txnStatePrepared {
		return ErrDiscardedTxn
	}
	wasPrepared := s.state == txnStatePrepared

	if wasPrepared {
		for i := range s.mod {
			if err := s.resolvePreparedOp(&s.mod[i], true); err != nil {
				return err
			}
		}
	}

	if !s.hasCommitTS && len(s.mod) > 0 {
		// snapshot isolation without an explicit commit timestamp still
		// needs an ordering point; use the registry's allocation order.
		s.commitTS = NoTimestamp
	}
	if !s.hasDurableTS {
		s.durableTS = s.commitTS
	}

	// I5: prepare_ts <= commit_ts <= durable_ts.
	if s.hasPrepareTS {
		invariant(s.prepareTS.LessEqual(s.commitTS), "prepare timestamp must not exceed commit timestamp")
	}
	invariant(s.commitTS.LessEqual(s.durableTS), "commit timestamp must not exceed durable timestamp")

	cannotFail := false
	for i := range s.mod {
		u := s.mod[i].Update
		if u == nil {
			continue
		}
		cannotFail = true
		u.StartTS = s.commitTS
		u.DurableTS = s.durableTS
		if u.PrepareState == PrepareInProgress {
			u.PrepareState = PrepareResolved
		}
	}

	// I5, continued: a prepared commit's durable timestamp must clear
	// the stable timestamp, or a checkpoint taken at stable could miss a
	// durability point the transaction already promised.
	if wasPrepared {
		if stable, ok := s.reg.StableTimestamp(); ok {
			invariant(stable.Less(s.durableTS), "durable timestamp must exceed stable timestamp for a prepared commit")
		}
	}

	if cannotFail && s.logger != nil {
		if err := s.logger.LogRecord(s.id, s.commitTS, nil); err != nil {
			getLogger().Panicf("tidetxn: write-ahead log append failed inside the cannot-fail commit epoch: %v", err)
		}
	}

	s.reg.commitMark.Begin(uint64(s.id))
	s.reg.advanceDurableTimestamp(s.durableTS)
	s.reg.PublishPinnedDurableTimestamp(s.slot, s.durableTS)
	s.slot.active.Store(false)
	s.slot.hasRead.Store(false)
	s.doneReadMark()
	s.snapshot.Release()
	s.state = txnStateCommitted
	s.reg.commitMark.Done(uint64(s.id))
	return nil
}

// Rollback undoes every modification this transaction made: prepared
// updates are resolved with commit=false (restoring the chain from the
// history store where needed), and every non-prepared update node this
// transaction owns is unlinked from its chain.
func (s *Session) Rollback() error {
	if s.state != txnStateRunning && s.state != txnStatePrepared {
		return ErrDiscardedTxn
	}

	if s.state == txnStatePrepared {
		for i := range s.mod {
			if err := s.resolvePreparedOp(&s.mod[i], false); err != nil {
				getLogger().Errorf("rollback of prepared op failed, continuing: %v", err)
			}
		}
	} else {
		for i := len(s.mod) - 1; i >= 0; i-- {
			unlinkUpdate(&s.mod[i])
		}
	}

	s.slot.active.Store(false)
	s.slot.hasRead.Store(false)
	s.doneReadMark()
	s.snapshot.Release()
	s.state = txnStateAborted
	return nil
}

// unlinkUpdate removes m.Update from m.Owner's chain, restoring whatever
// node was underneath it.
func unlinkUpdate(m *modEntry) {
	if m.Update == nil || m.Owner == nil {
		return
	}
	chain := m.Owner
	if chain.Head == m.Update {
		chain.Head = m.Update.Next
		return
	}
	for n := chain.Head; n != nil; n = n.Next {
		if n.Next == m.Update {
			n.Next = m.Update.Next
			return
		}
	}
}

// Release returns the session to the idle state without discarding its
// registry slot, ready for the next Begin, mirroring WT_SESSION's
// transaction_sync-then-reuse pattern.
func (s *Session) Release() {
	s.state = txnStateNone
	s.mod = s.mod[:0]
	s.snapshot = nil
}
