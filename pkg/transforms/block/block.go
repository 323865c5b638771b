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

// Package block implements a block-framed general-purpose coder. It
// delegates the actual byte-shuffling to snappy, but imposes its own
// framing on top so the result is safe to feed into the rest of a
// pipeline: fixed per-block headers, a literal-storage fallback for
// incompressible blocks, and strict validation on the way back in.
package block

import (
	"encoding/binary"

	"github.com/golang/snappy"

	"stackpack/pkg/errs"
)

// Coder is a stateless Mutator.
type Coder struct{}

// New returns a ready-to-use block coder mutator.
func New() Coder { return Coder{} }

const (
	headerLen = 8 // u32_le(original_size) || u32_le(compressed_size)
	// maxBlockSize caps each block at 2^31-1 bytes so block sizes always
	// fit in a signed 32-bit count, matching the framing's documented limit.
	maxBlockSize = 1<<31 - 1
)

// Drive splits in into blocks of at most maxBlockSize bytes, compresses
// each with snappy, and frames it as {u32_le(original), u32_le(compressed),
// bytes}. A block snappy fails to shrink is stored literally instead
// (compressed_size == original_size, bytes == the original block).
func (Coder) Drive(in []byte, buf *[]byte) error {
	*buf = (*buf)[:0]

	remaining := in
	for len(remaining) > 0 {
		blockSize := len(remaining)
		if blockSize > maxBlockSize {
			blockSize = maxBlockSize
		}
		block := remaining[:blockSize]
		remaining = remaining[blockSize:]

		compressed := snappy.Encode(nil, block)
		var payload []byte
		compressedSize := len(compressed)
		if compressedSize >= blockSize {
			payload = block
			compressedSize = blockSize
		} else {
			payload = compressed
		}

		var header [headerLen]byte
		binary.LittleEndian.PutUint32(header[0:4], uint32(blockSize))
		binary.LittleEndian.PutUint32(header[4:8], uint32(compressedSize))
		*buf = append(*buf, header[:]...)
		*buf = append(*buf, payload...)
	}
	return nil
}

// Revert parses a sequence of frames written by Drive and reassembles the
// original bytes, validating every invariant the frame layout promises:
// original_size > 0, compressed_size > 0, compressed_size <= original_size,
// and (after all frames are consumed) zero bytes left over.
func (Coder) Revert(in []byte, buf *[]byte) error {
	*buf = (*buf)[:0]

	remaining := in
	for len(remaining) > 0 {
		if len(remaining) < headerLen {
			return errs.Malformedf("block: truncated frame header (%d bytes left)", len(remaining))
		}
		originalSize := binary.LittleEndian.Uint32(remaining[0:4])
		compressedSize := binary.LittleEndian.Uint32(remaining[4:8])
		remaining = remaining[headerLen:]

		if originalSize == 0 || compressedSize == 0 || compressedSize > originalSize {
			return errs.Malformedf(
				"block: invalid frame sizes original=%d compressed=%d", originalSize, compressedSize)
		}
		if uint64(compressedSize) > uint64(len(remaining)) {
			return errs.Malformedf(
				"block: truncated payload: need %d bytes, have %d", compressedSize, len(remaining))
		}

		payload := remaining[:compressedSize]
		remaining = remaining[compressedSize:]

		if compressedSize == originalSize {
			*buf = append(*buf, payload...)
			continue
		}

		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return errs.New(errs.KindMalformedInput, "block: snappy decode failed", err)
		}
		if uint32(len(decoded)) != originalSize {
			return errs.Malformedf(
				"block: decompressed size %d does not match frame's original size %d", len(decoded), originalSize)
		}
		*buf = append(*buf, decoded...)
	}
	return nil
}
