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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceOldestTimestampRejectsBackwardsMove(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AdvanceOldestTimestamp(50))
	assert.ErrorIs(t, r.AdvanceOldestTimestamp(10), ErrTimestampOrder)
}

func TestAdvanceOldestTimestampRejectsPastStable(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AdvanceStableTimestamp(30))
	assert.ErrorIs(t, r.AdvanceOldestTimestamp(40), ErrTimestampOrder)
}

func TestAdvanceOldestTimestampAcceptsNonDecreasingWithinStable(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AdvanceStableTimestamp(100))
	require.NoError(t, r.AdvanceOldestTimestamp(10))
	require.NoError(t, r.AdvanceOldestTimestamp(20))

	snap := r.Timestamps()
	assert.Equal(t, Timestamp(20), snap.Oldest)
	assert.Equal(t, Timestamp(100), snap.Stable)
}

func TestAdvanceStableTimestampRejectsBackwardsMove(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AdvanceStableTimestamp(50))
	assert.ErrorIs(t, r.AdvanceStableTimestamp(20), ErrTimestampOrder)
}

func TestTimestampsReflectsCurrentPinnedFromActiveSession(t *testing.T) {
	r := newTestRegistry(t)
	s := NewSession(r, nil)
	defer s.Close()
	require.NoError(t, s.Begin(TxnConfig{HasReadTS: true, ReadTimestamp: 42}))

	snap := r.Timestamps()
	assert.Equal(t, Timestamp(42), snap.Pinned)
}

func TestWaitForReadersThroughReturnsOnceReaderCommits(t *testing.T) {
	r := newTestRegistry(t)
	s := NewSession(r, nil)
	require.NoError(t, s.Begin(TxnConfig{HasReadTS: true, ReadTimestamp: 5}))

	done := make(chan error, 1)
	go func() {
		done <- r.WaitForReadersThrough(context.Background(), 5)
	}()

	require.NoError(t, s.Commit())
	s.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForReadersThrough did not return after the reader committed")
	}
}

func TestWaitForReadersThroughRespectsContextCancellation(t *testing.T) {
	r := newTestRegistry(t)
	s := NewSession(r, nil)
	defer s.Close()
	require.NoError(t, s.Begin(TxnConfig{HasReadTS: true, ReadTimestamp: 5}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.WaitForReadersThrough(ctx, 5)
	assert.Error(t, err, "a reader that never commits must eventually time out the wait")
}
