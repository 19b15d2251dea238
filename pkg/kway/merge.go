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

package kway

import (
	"bytes"
	"container/heap"
	"sort"
)

// Merge K-way merges already key-sorted lists, keeping the newest
// (highest list-index) version of each key and dropping tombstoned keys
// entirely. It is used to build a checkpoint tier's single sorted run
// from whatever input entry sets it is constructed from.
func Merge(lists ...[]Entry) []Entry {
	h := &Heap{}
	heap.Init(h)

	for i, list := range lists {
		if len(list) > 0 {
			heap.Push(h, Element{Entry: list[0], LI: i})
			lists[i] = list[1:]
		}
	}

	latest := make(map[string]Entry)

	for h.Len() > 0 {
		e := heap.Pop(h).(Element)
		latest[string(e.Key)] = e.Entry
		if len(lists[e.LI]) > 0 {
			heap.Push(h, Element{Entry: lists[e.LI][0], LI: e.LI})
			lists[e.LI] = lists[e.LI][1:]
		}
	}

	merged := make([]Entry, 0, len(latest))
	for _, entry := range latest {
		if entry.Tombstone {
			continue
		}
		merged = append(merged, entry)
	}

	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].Key, merged[j].Key) < 0
	})

	return merged
}
