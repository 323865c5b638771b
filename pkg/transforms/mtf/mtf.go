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

// Package mtf implements the Move-to-Front transform, normally run
// immediately after a Burrows-Wheeler Transform to cluster runs of equal
// bytes into small, repeated indices that compress well downstream.
package mtf

// MTF is a stateless Mutator: each call constructs its own 256-element
// permutation and inverse table, so a single instance is safe to share and
// reuse across goroutines.
type MTF struct{}

// New returns a ready-to-use MTF mutator.
func New() MTF { return MTF{} }

// Drive encodes in, replacing buf's contents with one index byte per input
// byte. Maintains a 256-element permutation initially the identity; for
// each input byte it emits the byte's current index, then rotates the
// prefix [0..=index] right by one so the byte moves to position 0. A
// parallel inverse table (byte -> index) keeps each lookup O(1) instead of
// an O(256) linear scan per byte.
func (MTF) Drive(in []byte, buf *[]byte) error {
	*buf = (*buf)[:0]
	if len(in) == 0 {
		return nil
	}

	var table [256]byte
	var inverse [256]byte
	for i := range table {
		table[i] = byte(i)
		inverse[i] = byte(i)
	}

	for _, b := range in {
		idx := inverse[b]
		*buf = append(*buf, idx)
		rotateRight(&table, &inverse, idx)
	}
	return nil
}

// Revert decodes in, replacing buf's contents with the original bytes.
// Maintains the identity permutation; for each input index it emits the
// byte currently at that position, then performs the same rotation Drive
// would have performed for that byte.
func (MTF) Revert(in []byte, buf *[]byte) error {
	*buf = (*buf)[:0]
	if len(in) == 0 {
		return nil
	}

	var table [256]byte
	var inverse [256]byte
	for i := range table {
		table[i] = byte(i)
		inverse[i] = byte(i)
	}

	for _, idx := range in {
		b := table[idx]
		*buf = append(*buf, b)
		rotateRight(&table, &inverse, idx)
	}
	return nil
}

// rotateRight shifts table[0:idx] right by one, placing table[idx] (the
// byte just looked up) at position 0, and keeps inverse in sync with table
// so byte->index lookup stays O(1).
func rotateRight(table, inverse *[256]byte, idx byte) {
	b := table[idx]
	i := int(idx)
	for i > 0 {
		table[i] = table[i-1]
		inverse[table[i]] = byte(i)
		i--
	}
	table[0] = b
	inverse[b] = 0
}
