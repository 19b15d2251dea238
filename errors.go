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

import "errors"

// ErrCode classifies an error into one of the five kinds this package
// propagates differently: a caller that only checks errors.Is against the
// sentinels below still gets the right behavior, but code that must pick
// a kind (retry vs abort vs escalate) can switch on Code(err).
type ErrCode int

const (
	ErrCodeNone ErrCode = iota
	ErrCodeRollback
	ErrCodeInvalidArg
	ErrCodeNotSupported
	ErrCodePrepareConflict
	ErrCodePanic
)

var (
	// ErrRollback is returned when a transaction must be rolled back to
	// preserve a serialization guarantee (conflict, timeout, or an
	// explicit WT_ROLLBACK-equivalent from a collaborator).
	ErrRollback = errors.New("tidetxn: transaction rolled back")

	// ErrPrepareConflict is returned by a reader that finds an
	// in-progress prepared update on the path it needs to resolve.
	ErrPrepareConflict = errors.New("tidetxn: prepare conflict")

	// ErrReadOnlyTxn mirrors the teacher's read-only-txn sentinel,
	// returned when a write is attempted on a transaction opened
	// read-only.
	ErrReadOnlyTxn = errors.New("tidetxn: transaction is read-only")

	// ErrDiscardedTxn is returned when an operation is attempted on a
	// session whose transaction already ended (committed or rolled
	// back).
	ErrDiscardedTxn = errors.New("tidetxn: transaction has ended")

	// ErrEmptyKey is returned for a zero-length key, which the tiered
	// cursor and the update chain both treat as invalid input.
	ErrEmptyKey = errors.New("tidetxn: key is empty")

	// ErrNotFound is returned by a cursor search that found no matching
	// key (WT_NOTFOUND equivalent).
	ErrNotFound = errors.New("tidetxn: not found")

	// ErrDuplicateKey is returned by an insert against a key that
	// already has a visible value and the cursor was not configured to
	// overwrite.
	ErrDuplicateKey = errors.New("tidetxn: duplicate key")

	// ErrNotSupported is returned for a valid but unimplemented
	// combination (e.g. bulk-loading a non-empty tiered handle).
	ErrNotSupported = errors.New("tidetxn: operation not supported")

	// ErrTimestampOrder is returned when a caller assigns a timestamp
	// that violates the oldest <= read <= stable <= durable ordering
	// invariant. In diagnostic mode (see Registry.Diagnostic) the two
	// checks Config.Diagnostic lists panic instead.
	ErrTimestampOrder = errors.New("tidetxn: timestamp out of order")

	// ErrOperationTimedOut is returned when a transaction exceeds its
	// configured TxnConfig.OperationTimeout.
	ErrOperationTimedOut = errors.New("tidetxn: operation timed out")
)

// Code classifies err into one of the ErrCode kinds. Errors this package
// never produced are reported as ErrCodeNone.
func Code(err error) ErrCode {
	switch {
	case err == nil:
		return ErrCodeNone
	case errors.Is(err, ErrRollback), errors.Is(err, ErrOperationTimedOut):
		return ErrCodeRollback
	case errors.Is(err, ErrPrepareConflict):
		return ErrCodePrepareConflict
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrTimestampOrder), errors.Is(err, ErrReadOnlyTxn), errors.Is(err, ErrDiscardedTxn):
		return ErrCodeInvalidArg
	case errors.Is(err, ErrNotSupported):
		return ErrCodeNotSupported
	default:
		return ErrCodeNone
	}
}

// invariant panics through the active logger when cond is false. It is
// the single call site every invariant check in this module routes
// through, matching the teacher's habit of funneling unrecoverable
// conditions into logger.Panicf rather than scattering panic() calls.
func invariant(cond bool, msg string) {
	if !cond {
		getLogger().Panicf("tidetxn: invariant violated: %s", msg)
	}
}
