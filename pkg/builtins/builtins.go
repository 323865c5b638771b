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

// Package builtins seeds a registry with every mutator Stackpack ships
// built in, in the declaration order spec.md §4.2 requires ("built-ins
// first in declaration order, plugins in load order").
package builtins

import (
	"stackpack/pkg/mutator"
	"stackpack/pkg/registry"
	"stackpack/pkg/transforms/arith"
	"stackpack/pkg/transforms/block"
	"stackpack/pkg/transforms/bwt"
	"stackpack/pkg/transforms/mtf"
	"stackpack/pkg/transforms/rle"
)

// passthrough is the identity mutator: Drive and Revert both copy the
// input to the output buffer unchanged. It exists so a fresh registry has
// something trivial to resolve and list by default, mirroring how the
// Rust source always seeds its own compressor table with baseline entries.
type passthrough struct{}

func (passthrough) Drive(in []byte, buf *[]byte) error {
	*buf = append((*buf)[:0], in...)
	return nil
}

func (passthrough) Revert(in []byte, buf *[]byte) error {
	*buf = append((*buf)[:0], in...)
	return nil
}

var _ mutator.Mutator = passthrough{}

// Register appends every built-in mutator to reg and returns the first
// error encountered (a name collision would indicate reg was not empty, or
// that Register was called twice on the same registry).
func Register(reg *registry.Registry) error {
	entries := []registry.Entry{
		{
			Name:        "passthrough",
			Description: "identity transform; copies input to output unchanged",
			Mutator:     passthrough{},
		},
		{
			Name:        "bwt",
			Description: "Burrows-Wheeler Transform via rotation sort and LF-mapping inverse",
			Mutator:     bwt.New(),
		},
		{
			Name:        "mtf",
			Aliases:     []string{"move_to_front", "move_to_front_transform"},
			Description: "Move-to-Front transform",
			Mutator:     mtf.New(),
		},
		{
			Name:        "arcode",
			Description: "adaptive 256+1-symbol arithmetic coder, 48-bit precision",
			Mutator:     arith.New(),
		},
		{
			Name:        "bsc",
			Aliases:     []string{"block"},
			Description: "block-framed general-purpose coder",
			Mutator:     block.New(),
		},
		{
			Name:        "rle",
			Aliases:     []string{"run_length_encoding"},
			Description: "greedy single-chunk run-length encoding",
			Mutator:     rle.New(),
		},
	}

	for _, e := range entries {
		if err := reg.Append(e); err != nil {
			return err
		}
	}
	return nil
}

// New returns a freshly constructed registry with every built-in mutator
// already registered. Most callers that don't need to share a registry
// across multiple construction sites want this instead of calling
// registry.New and Register separately.
func New() (*registry.Registry, error) {
	reg := registry.New()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
