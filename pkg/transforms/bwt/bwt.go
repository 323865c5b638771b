// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Package bwt implements the Burrows-Wheeler Transform: a reversible
// permutation of a byte string that groups similar contexts together,
// making the result far more compressible by a move-to-front/entropy stage
// downstream than the original bytes are.
package bwt

import (
	"encoding/binary"
	"sort"

	"stackpack/pkg/errs"
)

// BWT is a stateless Mutator. Inputs shorter than 4 bytes are passed
// through unchanged rather than framed, since a 4-byte primary-index header
// would dominate or exceed the payload itself.
type BWT struct{}

// New returns a ready-to-use BWT mutator.
func New() BWT { return BWT{} }

const headerLen = 4

// Drive computes the rotation matrix of in via an index sort over circular
// suffixes (rotations), then emits the primary index (the position, in the
// sorted rotation order, of the rotation that starts at offset 0) as a
// 4-byte little-endian prefix followed by the transform's last column.
//
// n must fit in 32 bits; this mirrors the source's own primary-index
// encoding, which would otherwise be unrepresentable.
func (BWT) Drive(in []byte, buf *[]byte) error {
	n := len(in)
	if n < headerLen {
		*buf = append((*buf)[:0], in...)
		return nil
	}
	if uint64(n) > 1<<32-1 {
		return errs.New(errs.KindInternalBug, "bwt: input length exceeds u32 range", nil)
	}

	rotations := make([]int, n)
	for i := range rotations {
		rotations[i] = i
	}
	sort.Slice(rotations, func(a, b int) bool {
		return lessRotation(in, rotations[a], rotations[b])
	})

	primary := -1
	for pos, start := range rotations {
		if start == 0 {
			primary = pos
			break
		}
	}
	if primary < 0 {
		// Every input has exactly one rotation starting at offset 0; this
		// would only be unreachable with a sort that dropped an index.
		return errs.New(errs.KindInternalBug, "bwt: rotation starting at 0 not found", nil)
	}

	*buf = (*buf)[:0]
	var header [headerLen]byte
	binary.LittleEndian.PutUint32(header[:], uint32(primary))
	*buf = append(*buf, header[:]...)
	for _, rot := range rotations {
		*buf = append(*buf, in[(rot+n-1)%n])
	}
	return nil
}

// lessRotation compares the circular rotations of data starting at a and b,
// used to order the rotation matrix without materializing every rotation.
func lessRotation(data []byte, a, b int) bool {
	n := len(data)
	for i := 0; i < n; i++ {
		ca := data[(a+i)%n]
		cb := data[(b+i)%n]
		if ca != cb {
			return ca < cb
		}
	}
	return false
}

// Revert parses the 4-byte primary index and last column from in, then
// reconstructs the original text by building a frequency table over the
// 256-byte alphabet, cumulative starting offsets per byte value, the
// LF-mapping, and walking it backward from the primary row.
func (BWT) Revert(in []byte, buf *[]byte) error {
	if len(in) < headerLen {
		*buf = append((*buf)[:0], in...)
		return nil
	}

	primary := int(binary.LittleEndian.Uint32(in[:headerLen]))
	payload := in[headerLen:]
	n := len(payload)

	if n == 0 {
		*buf = (*buf)[:0]
		return nil
	}
	if primary >= n {
		return errs.Malformedf("bwt: primary index %d out of range for payload length %d", primary, n)
	}

	var freq [256]int
	for _, b := range payload {
		freq[b]++
	}
	var starts [256]int
	sum := 0
	for b := 0; b < 256; b++ {
		starts[b] = sum
		sum += freq[b]
	}

	lf := make([]int, n)
	var seen [256]int
	for i, b := range payload {
		lf[i] = starts[b] + seen[b]
		seen[b]++
	}

	if cap(*buf) < n {
		*buf = make([]byte, n)
	} else {
		*buf = (*buf)[:n]
	}
	row := primary
	for i := n - 1; i >= 0; i-- {
		(*buf)[i] = payload[row]
		row = lf[row]
	}
	return nil
}
