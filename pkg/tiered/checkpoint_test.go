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

package tiered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestCheckpoint(t *testing.T, blockBytes int) *CheckpointTier {
	t.Helper()
	entries := []Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
		{Key: []byte("d"), Value: []byte("4")},
		{Key: []byte("e"), Value: []byte("5")},
	}
	ct, err := BuildCheckpointTier(entries, blockBytes, nil)
	require.NoError(t, err)
	return ct
}

func TestBuildCheckpointTierSearchFindsEveryKey(t *testing.T) {
	ct := buildTestCheckpoint(t, 8) // small threshold forces multiple blocks
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, ct.Search([]byte(k)), "key %q", k)
	}
	assert.ErrorIs(t, ct.Search([]byte("zzz")), ErrNotFound)
}

func TestBuildCheckpointTierSingleBlock(t *testing.T) {
	ct := buildTestCheckpoint(t, 4096)
	require.NoError(t, ct.Search([]byte("c")))
	assert.Equal(t, []byte("3"), ct.Value())
}

func TestCheckpointTierIteratesAscendingAcrossBlocks(t *testing.T) {
	ct := buildTestCheckpoint(t, 8)
	require.NoError(t, ct.Reset())

	var got []string
	for ct.Next() == nil {
		got = append(got, string(ct.Key()))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestCheckpointTierMutationsAreReadOnly(t *testing.T) {
	ct := buildTestCheckpoint(t, 4096)
	assert.ErrorIs(t, ct.Insert([]byte("x"), []byte("y")), ErrReadOnlyTier)
	assert.ErrorIs(t, ct.Update([]byte("x"), []byte("y")), ErrReadOnlyTier)
	assert.ErrorIs(t, ct.Remove([]byte("x")), ErrReadOnlyTier)
	assert.ErrorIs(t, ct.Reserve([]byte("x")), ErrReadOnlyTier)
}

func TestCheckpointTierEmptyInput(t *testing.T) {
	ct, err := BuildCheckpointTier(nil, 4096, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, ct.Search([]byte("anything")), ErrNotFound)
}
