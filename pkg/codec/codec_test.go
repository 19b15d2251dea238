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

package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCP(t *testing.T) {
	assert.Equal(t, 3, LCP([]byte("foobar"), []byte("foobaz")))
	assert.Equal(t, 0, LCP([]byte("abc"), []byte("xyz")))
	assert.Equal(t, 3, LCP([]byte("abc"), []byte("abc")))
	assert.Equal(t, 0, LCP([]byte(""), []byte("abc")))
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 64)

	var compressed bytes.Buffer
	require.NoError(t, Compress(bytes.NewReader(original), &compressed))
	assert.NotEmpty(t, compressed.Bytes())

	var decompressed bytes.Buffer
	require.NoError(t, Decompress(bytes.NewReader(compressed.Bytes()), &decompressed))
	assert.Equal(t, original, decompressed.Bytes())
}

func TestMagicIsStableAndContentSensitive(t *testing.T) {
	a := Magic("checkpoint-block")
	b := Magic("checkpoint-block")
	c := Magic("other-block")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTimeWindowRecordThriftRoundTrip(t *testing.T) {
	rec := &TimeWindowRecord{
		StartTxn:       42,
		StartTS:        100,
		StopTxn:        43,
		StopTS:         200,
		DurableStartTS: 101,
		DurableStopTS:  201,
		UpdateType:     2,
		Value:          []byte("hello history store"),
	}

	encoded, err := TMarshal(rec)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	var decoded TimeWindowRecord
	require.NoError(t, TUnmarshal(encoded, &decoded))

	assert.Equal(t, rec.StartTxn, decoded.StartTxn)
	assert.Equal(t, rec.StartTS, decoded.StartTS)
	assert.Equal(t, rec.StopTxn, decoded.StopTxn)
	assert.Equal(t, rec.StopTS, decoded.StopTS)
	assert.Equal(t, rec.DurableStartTS, decoded.DurableStartTS)
	assert.Equal(t, rec.DurableStopTS, decoded.DurableStopTS)
	assert.Equal(t, rec.UpdateType, decoded.UpdateType)
	assert.Equal(t, rec.Value, decoded.Value)
}

func TestTimeWindowRecordStringNeverPanicsOnNil(t *testing.T) {
	var rec *TimeWindowRecord
	assert.Equal(t, "<nil>", rec.String())
}

func TestErrorWriterLatchesFirstError(t *testing.T) {
	var buf bytes.Buffer
	w := NewErrorWriter(&buf)
	w.Write(binary.BigEndian, uint16(7))
	require.NoError(t, w.Error())

	r := NewErrorReader(bytes.NewReader(buf.Bytes()))
	var v uint16
	r.Read(binary.BigEndian, &v)
	require.NoError(t, r.Error())
	assert.Equal(t, uint16(7), v)

	// a second read past the end of the buffer latches an error, and any
	// further read becomes a silent no-op rather than panicking.
	var junk uint64
	r.Read(binary.BigEndian, &junk)
	assert.Error(t, r.Error())
	latched := r.Error()
	r.Read(binary.BigEndian, &junk)
	assert.Equal(t, latched, r.Error())
}
