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

package skiplist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	sl := New(4, 0.5)
	assert.NotNil(t, sl)
	assert.Equal(t, 4, sl.maxLevel)
	assert.Equal(t, 0.5, sl.p)
	assert.Equal(t, 1, sl.level)
	assert.Equal(t, 0, sl.Size())
}

func TestSetAndGet(t *testing.T) {
	sl := New(4, 0.5)
	sl.Set([]byte("key1"), []byte("value1"))

	v, found := sl.Get([]byte("key1"))
	assert.True(t, found)
	assert.Equal(t, []byte("value1"), v)

	sl.Set([]byte("key1"), []byte("value2"))
	v, found = sl.Get([]byte("key1"))
	assert.True(t, found)
	assert.Equal(t, []byte("value2"), v)
}

func TestGetNonExistent(t *testing.T) {
	sl := New(4, 0.5)
	v, found := sl.Get([]byte("nonexistent"))
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestDelete(t *testing.T) {
	sl := New(4, 0.5)
	sl.Set([]byte("key1"), []byte("value1"))
	sl.Set([]byte("key2"), []byte("value2"))

	assert.True(t, sl.Delete([]byte("key1")))

	_, found := sl.Get([]byte("key1"))
	assert.False(t, found)

	v, found := sl.Get([]byte("key2"))
	assert.True(t, found)
	assert.Equal(t, []byte("value2"), v)

	assert.False(t, sl.Delete([]byte("nonexistent")))
}

func TestAllReturnsAscendingOrder(t *testing.T) {
	sl := New(4, 0.5)
	sl.Set([]byte("key3"), []byte("value3"))
	sl.Set([]byte("key1"), []byte("value1"))
	sl.Set([]byte("key2"), []byte("value2"))

	all := sl.All()
	require := []string{"key1", "key2", "key3"}
	assert.Len(t, all, 3)
	for i, k := range require {
		assert.Equal(t, k, string(all[i].Key))
	}
}

func TestSizeTracksInsertAndDelete(t *testing.T) {
	sl := New(4, 0.5)
	sl.Set([]byte("k"), []byte("v"))
	assert.Equal(t, len("k")+len("v"), sl.Size())

	sl.Delete([]byte("k"))
	assert.Equal(t, 0, sl.Size())
}
