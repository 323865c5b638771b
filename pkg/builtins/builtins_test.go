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

package builtins

import (
	"bytes"
	"testing"

	"stackpack/pkg/pipeline/parser"
)

func TestRegisterPopulatesAllNames(t *testing.T) {
	reg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{"passthrough", "bwt", "mtf", "arcode", "bsc", "rle"} {
		if _, ok := reg.Find(name); !ok {
			t.Fatalf("expected %q registered", name)
		}
	}
	for _, alias := range []string{"move_to_front", "block", "run_length_encoding"} {
		if _, ok := reg.Find(alias); !ok {
			t.Fatalf("expected alias %q resolvable", alias)
		}
	}
}

func TestDefaultPresetRoundTrips(t *testing.T) {
	reg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err, ok := parser.ResolvePreset(reg, "default")
	if !ok || err != nil {
		t.Fatalf("ResolvePreset(default): ok=%v err=%v", ok, err)
	}

	in := []byte("mississippi")
	var compressed, decompressed []byte
	if err := p.DriveAll(in, &compressed); err != nil {
		t.Fatalf("DriveAll: %v", err)
	}
	if err := p.RevertAll(compressed, &decompressed); err != nil {
		t.Fatalf("RevertAll: %v", err)
	}
	if !bytes.Equal(decompressed, in) {
		t.Fatalf("round trip mismatch: got %q want %q", decompressed, in)
	}
}

// TestS5MississippiCompressesWithinBound is spec.md §8's concrete scenario
// S5: BWT -> MTF -> arithmetic coding compresses "mississippi" to at most
// 22 bytes and round-trips exactly.
func TestS5MississippiCompressesWithinBound(t *testing.T) {
	reg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err, ok := parser.ResolvePreset(reg, "default")
	if !ok || err != nil {
		t.Fatalf("ResolvePreset(default): ok=%v err=%v", ok, err)
	}

	in := []byte("mississippi")
	var compressed, decompressed []byte
	if err := p.DriveAll(in, &compressed); err != nil {
		t.Fatalf("DriveAll: %v", err)
	}
	if len(compressed) > 22 {
		t.Fatalf("expected compressed size <= 22 bytes, got %d", len(compressed))
	}
	if err := p.RevertAll(compressed, &decompressed); err != nil {
		t.Fatalf("RevertAll: %v", err)
	}
	if !bytes.Equal(decompressed, in) {
		t.Fatalf("round trip mismatch: got %q want %q", decompressed, in)
	}
}

func TestRegisterTwiceOnSameRegistryFails(t *testing.T) {
	reg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Register(reg); err == nil {
		t.Fatal("expected second Register call to fail on name collision")
	}
}
