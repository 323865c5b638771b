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

package mtf

import (
	"bytes"
	"testing"
)

func TestDriveAaaa(t *testing.T) {
	var buf []byte
	if err := New().Drive([]byte("aaaa"), &buf); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	want := []byte{97, 0, 0, 0}
	if !bytes.Equal(buf, want) {
		t.Fatalf("got %v want %v", buf, want)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("aaaa"),
		[]byte("banana"),
		[]byte("mississippi"),
		bytes.Repeat([]byte{0xAB}, 300),
	}
	for _, in := range cases {
		var encoded, decoded []byte
		if err := New().Drive(in, &encoded); err != nil {
			t.Fatalf("Drive(%q): %v", in, err)
		}
		if err := New().Revert(encoded, &decoded); err != nil {
			t.Fatalf("Revert(%q): %v", in, err)
		}
		if !bytes.Equal(decoded, in) && !(len(decoded) == 0 && len(in) == 0) {
			t.Fatalf("round trip mismatch for %q: got %v", in, decoded)
		}
	}
}

func TestDriveBufAlreadyPopulatedIsCleared(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	if err := New().Drive([]byte("a"), &buf); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if !bytes.Equal(buf, []byte{97}) {
		t.Fatalf("expected stale buffer contents cleared, got %v", buf)
	}
}

func TestEmptyInput(t *testing.T) {
	var buf []byte
	if err := New().Drive(nil, &buf); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if len(buf) != 0 {
		t.Fatalf("expected empty output, got %v", buf)
	}
	var decoded []byte
	if err := New().Revert(nil, &decoded); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty output, got %v", decoded)
	}
}
