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

// PrepareState is the three-state machine a prepared update's node moves
// through: none (never prepared), in-progress (prepared, not yet resolved),
// resolved (commit or rollback decided).
type PrepareState int

const (
	PrepareNone PrepareState = iota
	PrepareInProgress
	PrepareResolved
)

// UpdateType distinguishes what kind of change a chain node represents.
type UpdateType int

const (
	UpdateStandard UpdateType = iota
	UpdateTombstone
	UpdateReserve
	UpdateModify
)

// updateFlags is a uint32 bitset, kept as a single word rather than a
// handful of bool fields so a flag test is one load, matching the
// "flags as typed bitflag" guidance this module follows throughout.
type updateFlags uint32

const (
	flagRestoredFromHS updateFlags = 1 << iota
	flagToDeleteFromHS
	flagRestoredFastTruncate
	flagHSSeen
	flagPrepareRestoredFromDS
)

func (f updateFlags) Has(bit updateFlags) bool  { return f&bit != 0 }
func (f *updateFlags) Set(bit updateFlags)       { *f |= bit }
func (f *updateFlags) Clear(bit updateFlags)      { *f &^= bit }

// updateNode is one version in a key's newest-first update chain. The
// chain itself is owned by whatever holds the key (the in-memory test
// tree, or a real B-tree page in a full engine) — this package never
// allocates a chain head itself, only links/unlinks nodes via Next,
// matching §9's "arena owns nodes" guidance.
type updateNode struct {
	Txn      TxnID
	StartTS  Timestamp
	// DurableTS is the timestamp at which this update became durable;
	// zero until commit assigns it.
	DurableTS Timestamp
	// PrevDurableTS mirrors the "previous" durable value
	// __wt_txn_resolve_prepared_update keeps; nothing in this module
	// sets or reads it.
	PrevDurableTS Timestamp

	PrepareState PrepareState
	PrepareTS    Timestamp

	Type  UpdateType
	Flags updateFlags

	Value []byte

	Next *updateNode
}

// IsTombstone reports whether this node represents a deletion.
func (u *updateNode) IsTombstone() bool {
	return u != nil && u.Type == UpdateTombstone
}

// modKind tags the union stored in a modEntry.
type modKind int

const (
	modNone modKind = iota
	modBasicCol
	modBasicRow
	modInmemCol
	modInmemRow
	modRefDelete
	modTruncateCol
	modTruncateRow
)

// modEntry is one entry in a transaction's modification list (Session.mod),
// a discriminated struct standing in for the tagged union spec.md §3
// describes — Go has no sum type, and a struct with every field present
// but only the ones matching Kind populated is the idiomatic
// reimplementation §9 calls for.
type modEntry struct {
	Kind modKind

	// Key identifies the row/column this entry touches. For the
	// in-memory reference tree this is the same byte-string the tiered
	// cursor indexes by.
	Key []byte

	// Update is the node this transaction's modify/remove/reserve
	// pushed onto the chain (nil for modRefDelete/modTruncate* entries,
	// which reference a page/range rather than a single update).
	Update *updateNode

	// Owner lets commit/rollback find the chain this Update is linked
	// into without a back-pointer on every node.
	Owner *keyChain
}

// keyChain is the in-memory reference tree's per-key chain head, playing
// the role the physical B-tree page plays in a full engine. It exists so
// this module's tests can exercise commit/rollback/resolve end to end
// without a real storage engine underneath — see historystore.go and
// pkg/tiered for the other halves of that reference harness.
type keyChain struct {
	Key  []byte
	Head *updateNode
}
