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

// Package parser builds a pipeline.Pipeline from a textual or compact
// binary description by resolving each named stage against a registry.
package parser

import (
	"strings"

	"stackpack/pkg/errs"
	"stackpack/pkg/pipeline"
	"stackpack/pkg/registry"
)

// ParseText builds a pipeline from a human-written description of the form
// "name1 -> name2 -> name3". ASCII whitespace around "->" and around each
// name is ignored. An empty (or all-whitespace) string yields an empty,
// identity pipeline. Any name not found in reg is a fatal, non-partial
// error: no pipeline is returned and none of its stages are touched.
func ParseText(reg *registry.Registry, s string) (*pipeline.Pipeline, error) {
	p := pipeline.New()
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return p, nil
	}

	for _, tok := range strings.Split(trimmed, "->") {
		name := strings.TrimSpace(tok)
		if name == "" {
			return nil, errs.New(errs.KindUnknownName, "pipeline description: empty stage name", nil)
		}
		if err := appendByName(reg, p, name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ParseBinary builds a pipeline from the compact wire encoding
// "name1,name2,...,nameN\0": UTF-8 names separated by commas, terminated by
// a single NUL byte. A stream lacking the terminating NUL, or containing a
// byte that is neither a comma, the terminator, nor part of a valid name, is
// rejected.
func ParseBinary(reg *registry.Registry, data []byte) (*pipeline.Pipeline, error) {
	p := pipeline.New()

	start := 0
	for i, b := range data {
		switch b {
		case ',':
			name := string(data[start:i])
			if name == "" {
				return nil, errs.New(errs.KindUnknownName, "pipeline description: empty stage name", nil)
			}
			if err := appendByName(reg, p, name); err != nil {
				return nil, err
			}
			start = i + 1
		case 0:
			name := string(data[start:i])
			if name == "" {
				if start == 0 {
					// A bare terminator with nothing before it: the empty
					// pipeline, symmetric with ParseText("").
					return p, nil
				}
				return nil, errs.New(errs.KindUnknownName, "pipeline description: empty stage name", nil)
			}
			if err := appendByName(reg, p, name); err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	return nil, errs.New(errs.KindMalformedInput, "pipeline description: missing terminating NUL byte", nil)
}

func appendByName(reg *registry.Registry, p *pipeline.Pipeline, name string) error {
	m, ok := reg.Find(name)
	if !ok {
		return errs.New(errs.KindUnknownName, "pipeline description: unknown mutator "+name, nil)
	}
	p.Append(name, m)
	return nil
}

// Preset is a named pipeline constructor, resolved against reg so every
// preset stays consistent with whatever names are actually registered
// (including any plugin-sourced overrides of a built-in name).
type Preset func(reg *registry.Registry) (*pipeline.Pipeline, error)

// Presets is the small name-keyed table of pipeline constructors described
// by spec.md §4.4: "default" runs BWT -> MTF -> arithmetic coding, "bsc"
// runs the block-framed general-purpose coder alone. Preset resolution
// happens before registry lookup, i.e. a caller should check Presets before
// falling back to ParseText/ParseBinary.
var Presets = map[string]Preset{
	"default": func(reg *registry.Registry) (*pipeline.Pipeline, error) {
		return ParseText(reg, "bwt -> mtf -> arcode")
	},
	"bsc": func(reg *registry.Registry) (*pipeline.Pipeline, error) {
		return ParseText(reg, "bsc")
	},
}

// ResolvePreset builds the named preset pipeline, or reports ok=false if no
// preset answers to name.
func ResolvePreset(reg *registry.Registry, name string) (p *pipeline.Pipeline, err error, ok bool) {
	preset, found := Presets[name]
	if !found {
		return nil, nil, false
	}
	p, err = preset(reg)
	return p, err, true
}
