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

// HSKey identifies one history-store record the way the physical history
// store tree keys its rows: by the owning key plus the (start_ts,
// start_txn) pair of the update that record captures.
type HSKey struct {
	Key      []byte
	StartTS  Timestamp
	StartTxn TxnID
}

// HSRecord is the value side of a history-store entry: the time window
// the captured update is valid for, plus the value itself.
type HSRecord struct {
	StopTS         Timestamp
	StopTxn        TxnID
	DurableStartTS Timestamp
	DurableStopTS  Timestamp
	UpdateType     UpdateType
	Value          []byte
}

// HistoryStore is the consumed collaborator spec.md §1 excludes as a
// physical subsystem (its on-disk layout is out of scope) but §6 still
// names the protocol of: the prepared-transaction resolver needs to
// insert a moved-aside version, search for the nearest version before a
// given bound, and close off a version's open stop bound once a prepared
// transaction that referenced it resolves.
type HistoryStore interface {
	InsertUpdate(key HSKey, rec HSRecord) error

	// SearchNearBefore returns the record with the largest (StartTS,
	// StartTxn) that is still <= bound, for the same Key. found is false
	// if no such record exists.
	SearchNearBefore(bound HSKey) (HSKey, HSRecord, bool, error)

	// MarkStop closes the open stop bound of the record at key, setting
	// it to (stopTxn, stopTS) — the "fix up the time window" step a
	// committing prepared transaction performs on the record beneath it.
	MarkStop(key HSKey, stopTxn TxnID, stopTS Timestamp) error

	Remove(key HSKey) error
}

// DataHandleSource is the consumed collaborator standing in for the
// physical B-tree/data-handle layer: the transaction core and the tiered
// cursor only ever need a stable small integer identifying which tree a
// key belongs to (used as part of the history-store key in a full
// engine), never the tree's pages or files themselves.
type DataHandleSource interface {
	BtreeID() uint32
}

// TxnLogger is the consumed write-ahead-log collaborator: the
// transaction core calls LogRecord once per committing transaction that
// produced a logrec, and otherwise never touches the log.
type TxnLogger interface {
	LogRecord(txn TxnID, commitTS Timestamp, payload []byte) error
}
