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
	"sort"
	"sync"

	"github.com/tidetxn/tidetxn/pkg/codec"
)

// InMemoryHistoryStore is the reference HistoryStore this module ships so
// the prepared-transaction resolver is exercisable without a real
// on-disk history store, which spec.md places out of scope as a physical
// subsystem. Every record is marshalled through codec.TimeWindowRecord
// via thrift/frugal before it is stored, so the wire format — not just
// the Go struct — is what gets searched and compared.
type InMemoryHistoryStore struct {
	mu      sync.RWMutex
	byKey   map[string][]hsSlot
}

type hsSlot struct {
	startTS  Timestamp
	startTxn TxnID
	encoded  []byte
}

func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{byKey: make(map[string][]hsSlot)}
}

func (h *InMemoryHistoryStore) InsertUpdate(key HSKey, rec HSRecord) error {
	encoded, err := codec.TMarshal(toWireRecord(key, rec))
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	k := string(key.Key)
	slots := h.byKey[k]
	slots = append(slots, hsSlot{startTS: key.StartTS, startTxn: key.StartTxn, encoded: encoded})
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].startTS != slots[j].startTS {
			return slots[i].startTS < slots[j].startTS
		}
		return slots[i].startTxn < slots[j].startTxn
	})
	h.byKey[k] = slots
	return nil
}

// SearchNearBefore finds, among the records stored for bound.Key, the one
// with the largest (StartTS, StartTxn) not exceeding bound — the same
// near-before search __txn_resolve_prepared_op performs against the
// physical history store keyed by (btree_id, key, WT_TS_MAX, WT_TXN_MAX).
func (h *InMemoryHistoryStore) SearchNearBefore(bound HSKey) (HSKey, HSRecord, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	slots := h.byKey[string(bound.Key)]
	var best *hsSlot
	for i := range slots {
		s := &slots[i]
		if s.startTS > bound.StartTS || (s.startTS == bound.StartTS && s.startTxn > bound.StartTxn) {
			continue
		}
		if best == nil || s.startTS > best.startTS || (s.startTS == best.startTS && s.startTxn > best.startTxn) {
			best = s
		}
	}
	if best == nil {
		return HSKey{}, HSRecord{}, false, nil
	}

	var wire codec.TimeWindowRecord
	if err := codec.TUnmarshal(best.encoded, &wire); err != nil {
		return HSKey{}, HSRecord{}, false, err
	}
	key, rec := fromWireRecord(bound.Key, best.startTS, best.startTxn, &wire)
	return key, rec, true, nil
}

func (h *InMemoryHistoryStore) MarkStop(key HSKey, stopTxn TxnID, stopTS Timestamp) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	slots := h.byKey[string(key.Key)]
	for i := range slots {
		if slots[i].startTS != key.StartTS || slots[i].startTxn != key.StartTxn {
			continue
		}
		var wire codec.TimeWindowRecord
		if err := codec.TUnmarshal(slots[i].encoded, &wire); err != nil {
			return err
		}
		wire.StopTxn = int64(stopTxn)
		wire.StopTS = uint64(stopTS)
		encoded, err := codec.TMarshal(&wire)
		if err != nil {
			return err
		}
		slots[i].encoded = encoded
		return nil
	}
	return ErrNotFound
}

func (h *InMemoryHistoryStore) Remove(key HSKey) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	slots := h.byKey[string(key.Key)]
	for i := range slots {
		if slots[i].startTS == key.StartTS && slots[i].startTxn == key.StartTxn {
			h.byKey[string(key.Key)] = append(slots[:i], slots[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func toWireRecord(key HSKey, rec HSRecord) *codec.TimeWindowRecord {
	return &codec.TimeWindowRecord{
		StartTxn:       int64(key.StartTxn),
		StartTS:        uint64(key.StartTS),
		StopTxn:        int64(rec.StopTxn),
		StopTS:         uint64(rec.StopTS),
		DurableStartTS: uint64(rec.DurableStartTS),
		DurableStopTS:  uint64(rec.DurableStopTS),
		UpdateType:     int8(rec.UpdateType),
		Value:          rec.Value,
	}
}

func fromWireRecord(fullKey []byte, startTS Timestamp, startTxn TxnID, wire *codec.TimeWindowRecord) (HSKey, HSRecord) {
	key := HSKey{Key: fullKey, StartTS: startTS, StartTxn: startTxn}
	rec := HSRecord{
		StopTS:         Timestamp(wire.StopTS),
		StopTxn:        TxnID(wire.StopTxn),
		DurableStartTS: Timestamp(wire.DurableStartTS),
		DurableStopTS:  Timestamp(wire.DurableStopTS),
		UpdateType:     UpdateType(wire.UpdateType),
		Value:          wire.Value,
	}
	return key, rec
}
