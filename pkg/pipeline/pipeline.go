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

// Package pipeline runs an ordered list of mutators as a single compound
// mutator, swapping two buffers between stages instead of allocating one
// per stage.
package pipeline

import (
	"time"

	"stackpack/pkg/errs"
	"stackpack/pkg/mutator"
)

// stage pairs a mutator with the name it was registered under, kept around
// purely for diagnostics (timing observations, error messages).
type stage struct {
	name string
	mutator.Mutator
}

// Observer receives a wall-clock timing for one executed stage. Pipelines
// never construct one themselves; see internal/telemetry/stagetiming for the
// Prometheus-backed implementation this is meant to plug in.
type Observer func(stageIndex int, name string, elapsed time.Duration, driving bool)

// Pipeline is a sequential, synchronous stage executor. A zero-value
// Pipeline (via New) drives and reverts as the identity function.
type Pipeline struct {
	stages   []stage
	observer Observer
}

// New returns an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Append adds a stage to the end of the pipeline and returns the pipeline
// so calls can be chained, e.g. pipeline.New().Append("bwt", bwt.New()).
func (p *Pipeline) Append(name string, m mutator.Mutator) *Pipeline {
	p.stages = append(p.stages, stage{name: name, Mutator: m})
	return p
}

// With is a fluent alias for Append, kept for readers who think of pipeline
// construction as builder chaining rather than ordered appending.
func (p *Pipeline) With(name string, m mutator.Mutator) *Pipeline {
	return p.Append(name, m)
}

// WithObserver installs a stage-timing observer and returns the pipeline
// for chaining. A nil observer (the default) disables observation entirely.
func (p *Pipeline) WithObserver(obs Observer) *Pipeline {
	p.observer = obs
	return p
}

// Len reports the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Names returns the stage names in execution (Drive) order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.name
	}
	return out
}

func (p *Pipeline) observe(idx int, name string, start time.Time, driving bool) {
	if p.observer == nil {
		return
	}
	p.observer(idx, name, time.Since(start), driving)
}

// DriveAll runs every stage's Drive in order, writing the final result into
// buf. With zero stages the input is copied to buf unchanged. On a stage
// failure, the run aborts immediately and the returned error is wrapped in
// an *errs.StageError carrying that stage's index.
//
// Internally, only two buffers are ever allocated/grown: buf itself and one
// scratch slice. Stages alternate between reading one and writing the
// other, and the two references are swapped after every stage rather than
// allocating a fresh buffer per stage.
func (p *Pipeline) DriveAll(data []byte, buf *[]byte) error {
	n := len(p.stages)
	switch n {
	case 0:
		*buf = append((*buf)[:0], data...)
		return nil
	case 1:
		start := time.Now()
		err := p.stages[0].Drive(data, buf)
		p.observe(0, p.stages[0].name, start, true)
		if err != nil {
			return errs.AtStage(0, err)
		}
		return nil
	}

	var intermediate []byte

	start := time.Now()
	if err := p.stages[0].Drive(data, buf); err != nil {
		p.observe(0, p.stages[0].name, start, true)
		return errs.AtStage(0, err)
	}
	p.observe(0, p.stages[0].name, start, true)

	ref1 := buf
	ref2 := &intermediate
	for i := 1; i < n; i++ {
		start := time.Now()
		err := p.stages[i].Drive(*ref1, ref2)
		p.observe(i, p.stages[i].name, start, true)
		if err != nil {
			return errs.AtStage(i, err)
		}
		ref1, ref2 = ref2, ref1
	}

	if n%2 == 0 {
		*buf, intermediate = intermediate, *buf
	}
	return nil
}

// RevertAll runs every stage's Revert in reverse order, writing the final
// result into buf. It mirrors DriveAll exactly: the first call is the last
// stage's Revert (data -> buf), then stages run backward to index 0,
// swapping the same pair of buffers.
func (p *Pipeline) RevertAll(data []byte, buf *[]byte) error {
	n := len(p.stages)
	switch n {
	case 0:
		*buf = append((*buf)[:0], data...)
		return nil
	case 1:
		start := time.Now()
		err := p.stages[0].Revert(data, buf)
		p.observe(0, p.stages[0].name, start, false)
		if err != nil {
			return errs.AtStage(0, err)
		}
		return nil
	}

	var intermediate []byte

	start := time.Now()
	if err := p.stages[n-1].Revert(data, buf); err != nil {
		p.observe(n-1, p.stages[n-1].name, start, false)
		return errs.AtStage(n-1, err)
	}
	p.observe(n-1, p.stages[n-1].name, start, false)

	ref1 := buf
	ref2 := &intermediate
	for i := n - 2; i >= 0; i-- {
		start := time.Now()
		err := p.stages[i].Revert(*ref1, ref2)
		p.observe(i, p.stages[i].name, start, false)
		if err != nil {
			return errs.AtStage(i, err)
		}
		ref1, ref2 = ref2, ref1
	}

	if n%2 == 0 {
		*buf, intermediate = intermediate, *buf
	}
	return nil
}

var _ mutator.Mutator = (*asMutator)(nil)

// asMutator adapts *Pipeline to mutator.Mutator so a pipeline can itself be
// used as a single stage inside a larger pipeline.
type asMutator struct{ p *Pipeline }

func (a *asMutator) Drive(in []byte, buf *[]byte) error  { return a.p.DriveAll(in, buf) }
func (a *asMutator) Revert(in []byte, buf *[]byte) error { return a.p.RevertAll(in, buf) }

// AsMutator returns a Mutator view of p, letting a pipeline be nested as a
// stage of another pipeline.
func (p *Pipeline) AsMutator() mutator.Mutator { return &asMutator{p: p} }
