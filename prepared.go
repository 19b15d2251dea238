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

// resolvePreparedOp resolves a single prepared modification. The caller
// (Commit/Rollback) still invokes this once per mod-list entry, matching
// __txn_resolve_prepared_op's per-WT_TXN_OP loop; what makes repeated keys
// safe is firstCommittedBelow skipping this transaction's own other nodes
// on the same chain, so a key written twice while prepared does not
// mistake its own earlier write for a committed predecessor.
func (s *Session) resolvePreparedOp(m *modEntry, commit bool) error {
	if m.Update == nil || m.Owner == nil {
		return nil
	}
	if commit {
		return s.commitPreparedUpdate(m.Owner, m.Update)
	}
	return s.rollbackPreparedUpdate(m.Owner, m.Update)
}

// commitPreparedUpdate finalizes a prepared update that is committing. If
// an earlier reconciliation already pushed this key's prior value into
// the history store with an open-ended stop bound (flagHSSeen), that
// bound must now be closed at this transaction's commit point — the "fix
// up the history store time window" step of __txn_resolve_prepared_op.
func (s *Session) commitPreparedUpdate(chain *keyChain, upd *updateNode) error {
	upd.PrepareState = PrepareResolved

	if !upd.Flags.Has(flagHSSeen) || s.hs == nil {
		return nil
	}
	prev := firstCommittedBelow(upd)
	if prev == nil {
		return nil
	}

	key, _, found, err := s.hs.SearchNearBefore(HSKey{
		Key:      chain.Key,
		StartTS:  MaxTimestamp,
		StartTxn: maxTxnID,
	})
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	// Commit resolves prepared updates before it stamps StartTS, so the
	// session's commit timestamp is used when one is set.
	stopTS := upd.StartTS
	if s.hasCommitTS {
		stopTS = s.commitTS
	}
	return s.hs.MarkStop(key, upd.Txn, stopTS)
}

// rollbackPreparedUpdate undoes a prepared update that is rolling back,
// following __txn_resolve_prepared_op's rollback branch: if a committed
// version already exists further down the chain, the prepared node
// simply unlinks and that version is exposed again. Otherwise the history
// store is consulted for the nearest version before this key with the
// widest possible (ts, txn) search bound; if the history store has
// nothing either (the in-memory-engine edge case this function guards
// against, since there is no on-disk copy to fall back to at all), a
// fresh tombstone is appended so the key reads as deleted rather than
// reverting to whatever the arena happens to hold underneath.
func (s *Session) rollbackPreparedUpdate(chain *keyChain, upd *updateNode) error {
	if prev := firstCommittedBelow(upd); prev != nil {
		// prev is already part of the chain below upd (and below any
		// still-in-progress prepared nodes between them); splice
		// straight to it rather than relinking through replaceNode,
		// which would wire prev.Next back to itself.
		unlinkTo(chain, upd, prev)
		return nil
	}

	if s.hs != nil {
		key, rec, found, err := s.hs.SearchNearBefore(HSKey{
			Key:      chain.Key,
			StartTS:  MaxTimestamp,
			StartTxn: maxTxnID,
		})
		if err != nil {
			return err
		}
		if found {
			restored := &updateNode{
				Txn:       NoTxnID,
				StartTS:   key.StartTS,
				DurableTS: rec.DurableStartTS,
				Type:      rec.UpdateType,
				Value:     rec.Value,
				Flags:     flagRestoredFromHS,
			}
			replaceNode(chain, upd, restored)
			return nil
		}
	}

	tomb := &updateNode{Txn: NoTxnID, Type: UpdateTombstone}
	replaceNode(chain, upd, tomb)
	return nil
}

// maxTxnID is the widest possible transaction-id search bound, used the
// same way __txn_resolve_prepared_op searches the history store with
// WT_TS_MAX/WT_TXN_MAX to find the version immediately preceding the
// prepared one regardless of who committed it.
const maxTxnID TxnID = ^TxnID(0)

// firstCommittedBelow walks upd's tail looking for the first node that is
// neither a still-in-progress prepared update nor another update this same
// transaction made to the same key — the "first committed update in the
// chain below the prepared ones" __txn_resolve_prepared_op computes before
// deciding whether the history store needs consulting. A prepared
// transaction that wrote the same key twice links two of its own nodes
// onto one chain; resolving the upper one must skip past the lower one
// rather than mistake it for a committed predecessor; the lower node is
// resolved in its own right when the caller's mod-list loop reaches it.
func firstCommittedBelow(upd *updateNode) *updateNode {
	for n := upd.Next; n != nil; n = n.Next {
		if n.Txn == upd.Txn || n.PrepareState == PrepareInProgress {
			continue
		}
		return n
	}
	return nil
}

// replaceNode swaps old for replacement in chain, preserving the rest of
// the chain below old. replacement must not already be reachable from
// old.Next — it is meant for a brand-new node (a history-store restore or
// a fresh tombstone), never for a node already sitting further down the
// chain.
func replaceNode(chain *keyChain, old, replacement *updateNode) {
	replacement.Next = old.Next
	if chain.Head == old {
		chain.Head = replacement
		return
	}
	for n := chain.Head; n != nil; n = n.Next {
		if n.Next == old {
			n.Next = replacement
			return
		}
	}
}

// unlinkTo splices old (and anything still chained between old and
// target, all discarded in the same rollback) out of chain, pointing
// directly at target, which is already part of the chain below old.
func unlinkTo(chain *keyChain, old, target *updateNode) {
	if chain.Head == old {
		chain.Head = target
		return
	}
	for n := chain.Head; n != nil; n = n.Next {
		if n.Next == old {
			n.Next = target
			return
		}
	}
}
