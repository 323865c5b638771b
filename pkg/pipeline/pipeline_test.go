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

package pipeline

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"stackpack/pkg/errs"
	"stackpack/pkg/mutator"
)

// xorStage XORs every byte with a fixed key; it's its own inverse, useful
// for proving the stage ordering rather than any codec's own correctness.
func xorStage(key byte) mutator.Mutator {
	return mutator.Func{
		DriveFunc: func(in []byte, buf *[]byte) error {
			*buf = (*buf)[:0]
			for _, b := range in {
				*buf = append(*buf, b^key)
			}
			return nil
		},
		RevertFunc: func(in []byte, buf *[]byte) error {
			*buf = (*buf)[:0]
			for _, b := range in {
				*buf = append(*buf, b^key)
			}
			return nil
		},
	}
}

// appendTagStage appends/strips a one-byte tag, so Drive/Revert are NOT
// symmetric the way xorStage is: this proves stage order matters, not just
// that each stage is an involution.
func appendTagStage(tag byte) mutator.Mutator {
	return mutator.Func{
		DriveFunc: func(in []byte, buf *[]byte) error {
			*buf = append((*buf)[:0], in...)
			*buf = append(*buf, tag)
			return nil
		},
		RevertFunc: func(in []byte, buf *[]byte) error {
			if len(in) == 0 || in[len(in)-1] != tag {
				return errs.Malformedf("missing tag %d", tag)
			}
			*buf = append((*buf)[:0], in[:len(in)-1]...)
			return nil
		},
	}
}

func roundTrip(t *testing.T, p *Pipeline, data []byte) {
	t.Helper()
	var compressed, restored []byte
	if err := p.DriveAll(data, &compressed); err != nil {
		t.Fatalf("DriveAll: %v", err)
	}
	if err := p.RevertAll(compressed, &restored); err != nil {
		t.Fatalf("RevertAll: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Fatalf("round trip mismatch: got %v want %v", restored, data)
	}
}

func TestPipelineEmpty(t *testing.T) {
	p := New()
	roundTrip(t, p, []byte("hello world"))
}

func TestPipelineSingleStage(t *testing.T) {
	p := New().Append("xor", xorStage(0x5A))
	roundTrip(t, p, []byte("hello world"))
}

func TestPipelineOddStageCount(t *testing.T) {
	p := New().
		Append("tag-a", appendTagStage('A')).
		Append("tag-b", appendTagStage('B')).
		Append("tag-c", appendTagStage('C'))
	roundTrip(t, p, []byte("payload"))
}

func TestPipelineEvenStageCount(t *testing.T) {
	p := New().
		Append("tag-a", appendTagStage('A')).
		Append("tag-b", appendTagStage('B')).
		Append("tag-c", appendTagStage('C')).
		Append("tag-d", appendTagStage('D'))
	roundTrip(t, p, []byte("payload"))

	var compressed []byte
	if err := p.DriveAll([]byte("payload"), &compressed); err != nil {
		t.Fatalf("DriveAll: %v", err)
	}
	want := []byte("payload")
	want = append(want, 'A', 'B', 'C', 'D')
	if !bytes.Equal(compressed, want) {
		t.Fatalf("drive order mismatch: got %q want %q", compressed, want)
	}
}

func TestPipelineStageOrderMatters(t *testing.T) {
	// Driving appendTagStage("A") then appendTagStage("B") applies the
	// stages in order, so B's tag ends up outermost: "x" becomes "xAB".
	p := New().Append("tag-a", appendTagStage('A')).Append("tag-b", appendTagStage('B'))
	var compressed []byte
	if err := p.DriveAll([]byte("x"), &compressed); err != nil {
		t.Fatalf("DriveAll: %v", err)
	}
	if !bytes.Equal(compressed, []byte("xAB")) {
		t.Fatalf("got %q want %q", compressed, "xAB")
	}
}

func TestPipelineStageFailureAnnotatesIndex(t *testing.T) {
	boom := errors.New("boom")
	failing := mutator.Func{
		DriveFunc:  func(in []byte, buf *[]byte) error { return boom },
		RevertFunc: func(in []byte, buf *[]byte) error { return boom },
	}
	p := New().
		Append("ok", xorStage(1)).
		Append("fails", failing).
		Append("never-reached", xorStage(2))

	var out []byte
	err := p.DriveAll([]byte("data"), &out)
	if err == nil {
		t.Fatal("expected error")
	}
	var stageErr *errs.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *errs.StageError, got %T: %v", err, err)
	}
	if stageErr.Stage != 1 {
		t.Fatalf("expected stage index 1, got %d", stageErr.Stage)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}

func TestPipelineObserverSeesEveryStage(t *testing.T) {
	var seen []int
	p := New().
		Append("a", xorStage(1)).
		Append("b", xorStage(2)).
		Append("c", xorStage(3)).
		WithObserver(func(stageIndex int, name string, elapsed time.Duration, driving bool) {
			if !driving {
				return
			}
			seen = append(seen, stageIndex)
		})
	var out []byte
	if err := p.DriveAll([]byte("payload"), &out); err != nil {
		t.Fatalf("DriveAll: %v", err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 2 {
		t.Fatalf("observer did not see all stages in order: %v", seen)
	}
}

func TestPipelineAsMutatorNests(t *testing.T) {
	inner := New().Append("xor", xorStage(7))
	outer := New().Append("inner", inner.AsMutator()).Append("tag", appendTagStage('Z'))
	roundTrip(t, outer, []byte("nested pipelines"))
}

// TestPipelineParityForEveryStageCount exercises spec.md §8's testable
// property 6 directly: for every n in {0,1,2,3,4}, DriveAll's result lands
// in the caller-provided output buffer, not in some internal scratch slice
// the caller never sees.
func TestPipelineParityForEveryStageCount(t *testing.T) {
	for n := 0; n <= 4; n++ {
		p := New()
		for i := 0; i < n; i++ {
			p.Append(string(rune('a'+i)), xorStage(byte(i+1)))
		}
		var out []byte
		in := []byte("parity check payload")
		if err := p.DriveAll(in, &out); err != nil {
			t.Fatalf("n=%d: DriveAll: %v", n, err)
		}
		if len(out) != len(in) {
			t.Fatalf("n=%d: expected result written into caller's buffer, got len %d", n, len(out))
		}
		var back []byte
		if err := p.RevertAll(out, &back); err != nil {
			t.Fatalf("n=%d: RevertAll: %v", n, err)
		}
		if !bytes.Equal(back, in) {
			t.Fatalf("n=%d: round trip mismatch: got %q want %q", n, back, in)
		}
	}
}
