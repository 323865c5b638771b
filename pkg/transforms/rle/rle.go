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

// Package rle implements a greedy, single-chunk-per-position run-length
// encoding: at every position the encoder picks whichever of a literal run
// or a repeating pattern shrinks the input the most before emitting a
// chunk and moving on.
package rle

import "stackpack/pkg/errs"

// RLE is a stateless Mutator.
type RLE struct{}

// New returns a ready-to-use RLE mutator.
func New() RLE { return RLE{} }

const maxChunk = 255 // max pattern length L and max literal run length

// Drive scans in left to right. At each position it compares the best
// repeating pattern available there (pattern length L in [1,255], repeated
// k in [2,256] times) against a literal run, and emits whichever chunk
// maximizes raw_size/encoded_size, breaking ties toward the lower pattern
// length. Every chunk is {L, R=k-1, L pattern bytes}; a literal run is
// encoded as a "pattern" of the literal bytes themselves with R=0 (k=1).
func (RLE) Drive(in []byte, buf *[]byte) error {
	*buf = (*buf)[:0]
	n := len(in)
	i := 0
	for i < n {
		patLen, reps := bestRun(in, i)
		if reps >= 2 {
			*buf = append(*buf, byte(patLen), byte(reps-1))
			*buf = append(*buf, in[i:i+patLen]...)
			i += patLen * reps
			continue
		}

		// No beneficial repetition here: emit a literal run, extending it
		// greedily until either input ends, the run hits the 255-byte cap,
		// or a beneficial repetition starts.
		start := i
		i++
		for i < n && i-start < maxChunk {
			if _, reps := bestRun(in, i); reps >= 2 {
				break
			}
			i++
		}
		litLen := i - start
		*buf = append(*buf, byte(litLen), 0)
		*buf = append(*buf, in[start:i]...)
	}
	return nil
}

// bestRun finds, for the position starting at i, the pattern length and
// repetition count that maximizes raw_size/encoded_size among all patterns
// of length 1..255 that repeat at least twice starting at i and whose chunk
// is shorter than the bytes it covers (ratio above 1); it returns reps 0
// when no pattern qualifies. Ties (equal ratio) are broken toward the lower
// pattern length, since bestRun only replaces its current best on a
// strictly greater ratio.
func bestRun(data []byte, i int) (patLen, reps int) {
	n := len(data)
	maxLen := n - i
	if maxLen > maxChunk {
		maxLen = maxChunk
	}

	bestRatio := 1.0
	for l := 1; l <= maxLen; l++ {
		k := 1
		for k < 256 && i+l*(k+1) <= n && equalSlices(data[i:i+l], data[i+l*k:i+l*(k+1)]) {
			k++
		}
		if k < 2 {
			continue
		}
		encoded := 2 + l
		ratio := float64(l*k) / float64(encoded)
		if ratio > bestRatio {
			bestRatio = ratio
			patLen = l
			reps = k
		}
	}
	return patLen, reps
}

func equalSlices(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Revert parses a sequence of {L, R, L pattern bytes} chunks, emitting the
// pattern repeated R+1 times for each.
func (RLE) Revert(in []byte, buf *[]byte) error {
	*buf = (*buf)[:0]
	i := 0
	n := len(in)
	for i < n {
		if i+2 > n {
			return errs.Malformedf("rle: truncated chunk header at offset %d", i)
		}
		l := int(in[i])
		r := int(in[i+1])
		i += 2
		if i+l > n {
			return errs.Malformedf("rle: truncated pattern bytes at offset %d (need %d, have %d)", i, l, n-i)
		}
		pattern := in[i : i+l]
		i += l
		for rep := 0; rep <= r; rep++ {
			*buf = append(*buf, pattern...)
		}
	}
	return nil
}
