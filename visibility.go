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

// ReadVisible walks chain's update list, newest first, and returns the
// first node this session's snapshot can see — the per-key read path
// __wt_txn_read drives, generalized from a single page slot to the
// in-memory reference chain.
//
// A node still in PrepareInProgress is handled according to cfg.IgnorePrepare:
//   - IgnorePrepareFalse: a visible-but-prepared node (one this session did
//     not itself prepare) is reported as ErrPrepareConflict rather than
//     silently skipped, so the caller can retry instead of reading stale data.
//   - IgnorePrepareTrue: the prepared node is treated as not yet present —
//     skipped in favor of whatever is beneath it in the chain.
//   - IgnorePrepareForce: the prepared node is treated as if it had already
//     committed, so a reader that must make progress regardless (the
//     eviction/checkpoint case WiredTiger's ignore_prepare=force exists for)
//     is never blocked by a conflict it cannot resolve itself.
//
// A transaction always sees its own updates, prepared or not, regardless of
// IgnorePrepare.
//
// A node that is otherwise txn-id-visible is additionally filtered by
// read_ts when this session pinned one at Begin: node.start_ts must be <=
// reader.read_ts, the first bullet of §4.1's predicate. Without a read
// timestamp (the common case, isolation decided purely by snapshot
// membership) this filter never applies.
func (s *Session) ReadVisible(chain *keyChain) (*updateNode, error) {
	for n := chain.Head; n != nil; n = n.Next {
		if n.Txn == s.id {
			return n, nil
		}
		if n.PrepareState == PrepareInProgress {
			switch s.cfg.IgnorePrepare {
			case IgnorePrepareFalse:
				if s.snapshot.Visible(n.Txn) {
					return nil, ErrPrepareConflict
				}
				continue
			case IgnorePrepareTrue:
				continue
			case IgnorePrepareForce:
				return n, nil
			}
		}
		if !s.snapshot.Visible(n.Txn) {
			continue
		}
		if s.hasReadTS && !n.StartTS.LessEqual(s.readTS) {
			continue
		}
		return n, nil
	}
	return nil, nil
}
