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

func TestTreeCommittedWriteVisibleToLaterSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()

	writer := NewSession(r, nil)
	require.NoError(t, writer.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(writer, []byte("k"), []byte("v1")))
	require.NoError(t, writer.Commit())
	writer.Close()

	reader := NewSession(r, nil)
	defer reader.Close()
	require.NoError(t, reader.Begin(TxnConfig{}))

	v, err := tree.Get(reader, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
}

func TestTreeUncommittedWriteHiddenFromConcurrentSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()

	writer := NewSession(r, nil)
	defer writer.Close()
	require.NoError(t, writer.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(writer, []byte("k"), []byte("v1")))

	reader := NewSession(r, nil)
	defer reader.Close()
	require.NoError(t, reader.Begin(TxnConfig{}))

	_, err := tree.Get(reader, []byte("k"))
	assert.ErrorIs(t, err, ErrNotFound, "an uncommitted write must not be visible to a concurrent snapshot")
}

func TestTreeWriterSeesItsOwnUncommittedWrite(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()

	writer := NewSession(r, nil)
	defer writer.Close()
	require.NoError(t, writer.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(writer, []byte("k"), []byte("v1")))

	v, err := tree.Get(writer, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
}

func TestTreeDeleteIsVisibleAsNotFoundAfterCommit(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()

	writer := NewSession(r, nil)
	require.NoError(t, writer.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(writer, []byte("k"), []byte("v1")))
	require.NoError(t, writer.Commit())
	writer.Close()

	deleter := NewSession(r, nil)
	require.NoError(t, deleter.Begin(TxnConfig{}))
	require.NoError(t, tree.Delete(deleter, []byte("k")))
	require.NoError(t, deleter.Commit())
	deleter.Close()

	reader := NewSession(r, nil)
	defer reader.Close()
	require.NoError(t, reader.Begin(TxnConfig{}))
	_, err := tree.Get(reader, []byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTreeRollbackDiscardsWrite(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()

	writer := NewSession(r, nil)
	require.NoError(t, writer.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(writer, []byte("k"), []byte("v1")))
	require.NoError(t, writer.Rollback())
	writer.Close()

	reader := NewSession(r, nil)
	defer reader.Close()
	require.NoError(t, reader.Begin(TxnConfig{}))
	_, err := tree.Get(reader, []byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTreeRollbackRestoresPriorCommittedVersion(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()

	s1 := NewSession(r, nil)
	require.NoError(t, s1.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(s1, []byte("k"), []byte("v1")))
	require.NoError(t, s1.Commit())
	s1.Close()

	s2 := NewSession(r, nil)
	require.NoError(t, s2.Begin(TxnConfig{}))
	require.NoError(t, tree.Put(s2, []byte("k"), []byte("v2")))
	require.NoError(t, s2.Rollback())
	s2.Close()

	reader := NewSession(r, nil)
	defer reader.Close()
	require.NoError(t, reader.Begin(TxnConfig{}))
	v, err := tree.Get(reader, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
}

func TestTreeGetOnEmptyKeyRejected(t *testing.T) {
	r := newTestRegistry(t)
	tree := NewTree()
	s := NewSession(r, nil)
	defer s.Close()
	require.NoError(t, s.Begin(TxnConfig{}))

	_, err := tree.Get(s, nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
}
