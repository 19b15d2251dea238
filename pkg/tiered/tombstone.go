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

import "bytes"

// tombstoneMarker is the two-byte value a Remove writes in place of a
// key's real value, exactly __tombstone from the original tiered cursor
// ({"\x14\x14", 2}). The bytes are device-control codes unlikely to
// prefix a real application value, but encodeValue still guards the
// collision case explicitly rather than relying on luck.
var tombstoneMarker = []byte{0x14, 0x14}

// encodeValue returns the bytes actually stored for a live (non-deleted)
// value. If raw collides with the tombstone marker — equals it, or more
// generally starts with it — a single trailing 0x14 byte is appended so
// decodeValue can tell a real value beginning with the marker apart from
// an actual tombstone. This is the __curtiered_deleted_encode direction:
// append, never prepend.
func encodeValue(raw []byte) []byte {
	if len(raw) >= len(tombstoneMarker) && bytes.Equal(raw[:len(tombstoneMarker)], tombstoneMarker) {
		out := make([]byte, len(raw)+1)
		copy(out, raw)
		out[len(raw)] = tombstoneMarker[len(tombstoneMarker)-1]
		return out
	}
	return raw
}

// decodeValue reverses encodeValue: any stored value longer than the
// marker and sharing its prefix has its single trailing guard byte
// stripped, per __curtiered_deleted_decode.
func decodeValue(stored []byte) []byte {
	if len(stored) > len(tombstoneMarker) && bytes.Equal(stored[:len(tombstoneMarker)], tombstoneMarker) {
		return stored[:len(stored)-1]
	}
	return stored
}

// isTombstone reports whether stored is exactly the tombstone marker —
// the __curtiered_deleted check.
func isTombstone(stored []byte) bool {
	return bytes.Equal(stored, tombstoneMarker)
}
