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

// Package registry holds the process-wide ordered catalogue of named
// mutators that a pipeline description resolves against.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"stackpack/pkg/errs"
	"stackpack/pkg/mutator"
)

// Entry is one registered mutator: its canonical name, any short aliases it
// answers to, a human description, and whether it arrived via the plugin
// loader rather than a built-in constructor.
type Entry struct {
	Name        string
	Aliases     []string
	Description string
	Mutator     mutator.Mutator
	FromPlugin  bool
}

// Registry is an ordered, named collection of mutators. Mutation (Append) is
// expected only at process startup/plugin-load time; Find and Entries are
// the hot paths exercised while a pipeline description is resolved, so both
// take the same mutex rather than split the two concerns across a
// concurrent map: this catalogue is small (tens of entries) and changes
// rarely, so a single mutex covering both reads and writes is simpler than a
// lock-free structure and never sits on the Drive/Revert data path itself.
type Registry struct {
	mu      sync.Mutex
	entries []Entry
	byName  map[string]int // name or alias -> index into entries
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Append adds a new entry under its canonical name and any aliases. It
// reports an error if the name or any alias collides with an existing
// entry, mirroring the uniqueness requirement every mutator name must
// satisfy.
func (r *Registry) Append(e Entry) error {
	if e.Name == "" {
		return errs.New(errs.KindInternalBug, "registry: empty mutator name", nil)
	}
	if e.Mutator == nil {
		return errs.New(errs.KindInternalBug, "registry: nil mutator for "+e.Name, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{e.Name}, e.Aliases...)
	for _, n := range names {
		if _, exists := r.byName[n]; exists {
			return fmt.Errorf("registry: name %q already registered", n)
		}
	}

	idx := len(r.entries)
	r.entries = append(r.entries, e)
	for _, n := range names {
		r.byName[n] = idx
	}
	return nil
}

// Find resolves name (canonical or alias) to its mutator. The second return
// value is false if no entry answers to name.
func (r *Registry) Find(name string) (mutator.Mutator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.entries[idx].Mutator, true
}

// Lookup resolves name the way Find does but returns the full Entry, useful
// when a caller wants the description or plugin provenance alongside the
// mutator itself.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx], true
}

// Entries returns a snapshot of all registered entries in registration
// order, safe for the caller to range over without holding the registry's
// lock. Used by a "list available mutators" view.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Names returns the canonical names of every registered entry, sorted, for
// diagnostics and error messages that enumerate what's available.
func (r *Registry) Names() []string {
	entries := r.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

// Len reports how many entries are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
