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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadVisibleIgnorePrepareFalseConflictsWhenOtherwiseVisible(t *testing.T) {
	older := &updateNode{Txn: 1, Value: []byte("old")}
	prepared := &updateNode{Txn: 5, PrepareState: PrepareInProgress, Value: []byte("new"), Next: older}
	chain := &keyChain{Key: []byte("k"), Head: prepared}

	reader := &Session{
		id:       100,
		cfg:      TxnConfig{IgnorePrepare: IgnorePrepareFalse},
		snapshot: &Snapshot{MinID: 0, MaxID: 200}, // txn 5 is absent from IDs, so it reads as visible
	}

	_, err := reader.ReadVisible(chain)
	assert.ErrorIs(t, err, ErrPrepareConflict)
}

func TestReadVisibleIgnorePrepareFalseSkipsWhenStillActive(t *testing.T) {
	older := &updateNode{Txn: 1, Value: []byte("old")}
	prepared := &updateNode{Txn: 5, PrepareState: PrepareInProgress, Value: []byte("new"), Next: older}
	chain := &keyChain{Key: []byte("k"), Head: prepared}

	reader := &Session{
		id:       100,
		cfg:      TxnConfig{IgnorePrepare: IgnorePrepareFalse},
		snapshot: &Snapshot{MinID: 0, MaxID: 200, IDs: []TxnID{5}}, // txn 5 still in the active set
	}

	n, err := reader.ReadVisible(chain)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, []byte("old"), n.Value, "a still-active prepared update must be skipped, exposing the version below it")
}

func TestReadVisibleIgnorePrepareTrueAlwaysSkips(t *testing.T) {
	older := &updateNode{Txn: 1, Value: []byte("old")}
	prepared := &updateNode{Txn: 5, PrepareState: PrepareInProgress, Value: []byte("new"), Next: older}
	chain := &keyChain{Key: []byte("k"), Head: prepared}

	reader := &Session{
		id:       100,
		cfg:      TxnConfig{IgnorePrepare: IgnorePrepareTrue},
		snapshot: &Snapshot{MinID: 0, MaxID: 200},
	}

	n, err := reader.ReadVisible(chain)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, []byte("old"), n.Value)
}

func TestReadVisibleIgnorePrepareForceTreatsPreparedAsResolved(t *testing.T) {
	older := &updateNode{Txn: 1, Value: []byte("old")}
	prepared := &updateNode{Txn: 5, PrepareState: PrepareInProgress, Value: []byte("new"), Next: older}
	chain := &keyChain{Key: []byte("k"), Head: prepared}

	reader := &Session{
		id:       100,
		cfg:      TxnConfig{IgnorePrepare: IgnorePrepareForce},
		snapshot: &Snapshot{MinID: 0, MaxID: 200, IDs: []TxnID{5}},
	}

	n, err := reader.ReadVisible(chain)
	require.NoError(t, err)
	require.Same(t, prepared, n, "ignore_prepare=force must treat the prepared update as if it were already resolved")
}

func TestReadVisibleAlwaysSeesItsOwnPreparedUpdate(t *testing.T) {
	ownUpdate := &updateNode{Txn: 100, PrepareState: PrepareInProgress, Value: []byte("mine")}
	chain := &keyChain{Key: []byte("k"), Head: ownUpdate}

	writer := &Session{
		id:       100,
		cfg:      TxnConfig{IgnorePrepare: IgnorePrepareFalse},
		snapshot: &Snapshot{MinID: 0, MaxID: 200},
	}

	n, err := writer.ReadVisible(chain)
	require.NoError(t, err)
	require.Same(t, ownUpdate, n)
}

func TestReadVisibleReturnsNilWhenChainEmpty(t *testing.T) {
	chain := &keyChain{Key: []byte("k")}
	reader := &Session{id: 100, snapshot: &Snapshot{MinID: 0, MaxID: 200}}

	n, err := reader.ReadVisible(chain)
	require.NoError(t, err)
	assert.Nil(t, n)
}
