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

// Package main provides a thin command-line front end over the Stackpack
// compression core: wire a pipeline description or preset against the
// built-in registry, optionally load plugins, then drive or revert stdin
// into stdout. Everything this file touches — flag parsing, file/stdio
// I/O, the plugin opt-in gate itself — is deliberately outside the core's
// scope; the core only ever sees a byte slice and a *pipeline.Pipeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"stackpack/internal/pluginindex"
	"stackpack/internal/telemetry/stagetiming"
	"stackpack/pkg/builtins"
	"stackpack/pkg/pipeline"
	"stackpack/pkg/pipeline/parser"
	"stackpack/pkg/plugin"
	"stackpack/pkg/registry"
)

func main() {
	decode := flag.Bool("d", false, "decompress stdin instead of compressing it")
	pipelineDesc := flag.String("pipeline", "", `pipeline description, e.g. "bwt -> mtf -> arcode"`)
	preset := flag.String("preset", "", `named preset pipeline ("default", "bsc")`)
	loadPlugins := flag.Bool("load-plugins", false, "opt in to scanning $STACKPACK_PLUGINS_ROOT/plugins for shared-library mutators")
	pluginIndexAddr := flag.String("plugin-index-addr", "", "optional redis address (host:port) caching plugin metadata across restarts; falls back to $STACKPACK_PLUGIN_INDEX_ADDR, then to a logging stand-in when neither is set")
	list := flag.Bool("list", false, "list every registered mutator and exit")
	flag.Parse()

	stagetiming.EnableFromEnv()

	reg, err := builtins.New()
	if err != nil {
		log.Fatalf("stackpack: building registry: %v", err)
	}

	if *loadPlugins {
		root := os.Getenv("STACKPACK_PLUGINS_ROOT")
		if root == "" {
			fmt.Fprintln(os.Stderr, "[WARN] -load-plugins was passed but STACKPACK_PLUGINS_ROOT is not set; skipping plugin discovery")
		} else {
			idx := newPluginIndex(*pluginIndexAddr)
			if err := plugin.LoadWithIndex(root, reg, idx); err != nil {
				log.Fatalf("stackpack: loading plugins: %v", err)
			}
		}
	}

	if *list {
		listMutators(reg)
		return
	}

	p, err := resolvePipeline(reg, *preset, *pipelineDesc)
	if err != nil {
		log.Fatalf("stackpack: %v", err)
	}
	p.WithObserver(stagetiming.Observer())

	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("stackpack: reading stdin: %v", err)
	}

	var out []byte
	if *decode {
		err = p.RevertAll(in, &out)
	} else {
		err = p.DriveAll(in, &out)
	}
	if err != nil {
		log.Fatalf("stackpack: %v", err)
	}

	if _, err := os.Stdout.Write(out); err != nil {
		log.Fatalf("stackpack: writing stdout: %v", err)
	}
}

// pluginIndexTTL bounds how long a plugin-metadata cache entry is trusted
// before a restarted host re-derives it from the shared library itself.
const pluginIndexTTL = 24 * time.Hour

// newPluginIndex builds the metadata cache plugin.LoadWithIndex consults and
// updates. addr (from -plugin-index-addr) takes priority; otherwise
// STACKPACK_PLUGIN_INDEX_ADDR is checked. With neither set, it falls back to
// pluginindex.LoggingKV, which logs every call and always reports a miss —
// keeping the feature exercised and dependency-free when no Redis is
// configured.
func newPluginIndex(addr string) *pluginindex.Index {
	if addr == "" {
		addr = os.Getenv("STACKPACK_PLUGIN_INDEX_ADDR")
	}
	if addr == "" {
		return pluginindex.New(pluginindex.LoggingKV{}, pluginIndexTTL)
	}
	return pluginindex.New(pluginindex.NewGoRedisKV(addr), pluginIndexTTL)
}

// resolvePipeline honors an explicit preset first (spec.md §4.4: "Preset
// resolution happens before registry lookup"), then falls back to a
// human-written description, then the empty identity pipeline.
func resolvePipeline(reg *registry.Registry, preset, desc string) (*pipeline.Pipeline, error) {
	if preset != "" {
		p, err, ok := parser.ResolvePreset(reg, preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
		return p, err
	}
	return parser.ParseText(reg, desc)
}

func listMutators(reg *registry.Registry) {
	for _, e := range reg.Entries() {
		source := "built-in"
		if e.FromPlugin {
			source = "plugin"
		}
		if e.Description != "" {
			fmt.Printf("%-16s %-8s %s\n", e.Name, source, e.Description)
		} else {
			fmt.Printf("%-16s %-8s\n", e.Name, source)
		}
	}
}
