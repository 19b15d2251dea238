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

// Package codec holds the byte-level helpers checkpoint tiers and the
// history store build on: longest-common-prefix key coding, s2 block
// compression, a content hash for block footers, and the thrift/frugal
// struct marshalling used for history-store records.
package codec

import (
	"crypto/sha1"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/s2"
)

// LCP returns the length of the longest common prefix of a and b, the
// same key-compression building block the teacher's SSTable data blocks
// use to avoid repeating shared key prefixes.
func LCP(a, b []byte) int {
	n := min(len(a), len(b))
	var i int
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Compress s2-compresses src into dst.
func Compress(src io.Reader, dst io.Writer) error {
	enc := s2.NewWriter(dst)
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Decompress reverses Compress.
func Decompress(src io.Reader, dst io.Writer) error {
	dec := s2.NewReader(src)
	_, err := io.Copy(dst, dec)
	return err
}

// Magic derives a block-footer magic number from input, the same
// sha1-prefix trick the teacher's SSTable footer uses to detect a
// corrupted or mismatched footer without storing a fixed constant that a
// truncated file could coincidentally match.
func Magic(input string) uint64 {
	hash := sha1.Sum([]byte(input))
	return binary.BigEndian.Uint64(hash[:8])
}
