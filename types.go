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

import "github.com/tidetxn/tidetxn/pkg/txnid"

// TxnID and Timestamp are aliased at package scope so every file in this
// package can spell them unqualified, the same way the teacher aliases
// types.Key = string for its own dominant value type.
type (
	TxnID     = txnid.TxnID
	Timestamp = txnid.Timestamp
)

const (
	NoTxnID       = txnid.NoTxnID
	FirstTxnID    = txnid.FirstTxnID
	NoTimestamp   = txnid.NoTimestamp
	MaxTimestamp  = txnid.MaxTimestamp
)
