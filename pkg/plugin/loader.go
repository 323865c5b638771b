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

package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"

	"stackpack/internal/pluginindex"
	"stackpack/internal/telemetry/stagetiming"
	"stackpack/pkg/errs"
	"stackpack/pkg/registry"
)

// sharedLibExtensions lists the platform-appropriate shared library
// extensions spec.md §6 names: ".so", ".dll", ".dylib". All three are
// scanned regardless of host OS, matching the source's own WalkDir filter,
// which does the same rather than special-casing the current platform.
var sharedLibExtensions = map[string]bool{
	".so":    true,
	".dll":   true,
	".dylib": true,
}

// record is one successfully loaded and validated plugin library. The
// library handle outlives every FFIMutator that references it by index;
// records are never removed or reordered except by Unload, which clears
// the whole table at once.
type record struct {
	path   string
	handle uintptr
	api    api
}

type api struct {
	shortName   string
	description string
	hasDesc     bool
	drive       driveRevertSig
	revert      driveRevertSig
}

// table is the process-wide loaded-plugin table. A single mutex covers
// both append (during Load) and the per-call index lookups FFIMutator
// performs, matching spec.md §5's "registry and plugin table use a single
// mutex covering append and iteration. Hot paths ... take no locks" — the
// table itself isn't on the byte-at-a-time hot path, only once per stage
// invocation.
type table struct {
	mu      sync.Mutex
	records []record
}

var loaded table

// Load scans <root>/plugins for shared libraries, validates each against
// the four required exports, and registers a corresponding FFI-backed
// mutator in reg under its declared short name (and, if present, wires its
// description). A candidate missing any required export is skipped with a
// diagnostic; other candidates continue loading. Load is only meant to be
// called when the external CLI collaborator has passed an explicit opt-in
// flag — nothing here enforces that gate itself, since the core has no
// notion of CLI flags; see cmd/stackpack-demo for where the gate lives.
//
// Load is LoadWithIndex with a nil metadata cache; see LoadWithIndex for a
// caller that wants to avoid re-opening every shared library on repeated
// process starts just to know what's installed.
func Load(root string, reg *registry.Registry) error {
	return LoadWithIndex(root, reg, nil)
}

// LoadWithIndex is Load, plus an optional pluginindex.Index consulted before
// each candidate is opened (to report what was previously seen at that path)
// and updated with the freshly validated metadata afterward. A nil idx
// disables both and behaves exactly like Load; the index is never consulted
// by a mutator's Drive or Revert, only by this one-time discovery pass.
func LoadWithIndex(root string, reg *registry.Registry, idx *pluginindex.Index) error {
	dir := filepath.Join(root, "plugins")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("plugin: reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !sharedLibExtensions[ext] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := loadOne(path, reg, idx); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] plugin %s: %v\n", path, err)
			reason := "unknown"
			if k, ok := errs.GetKind(err); ok {
				reason = k.String()
			}
			stagetiming.RecordPluginRejected(reason)
			continue
		}
		stagetiming.RecordPluginLoaded()
	}
	return nil
}

func loadOne(path string, reg *registry.Registry, idx *pluginindex.Index) error {
	if idx != nil {
		if cached, ok, err := idx.Lookup(context.Background(), path); err == nil && ok {
			fmt.Fprintf(os.Stderr, "[INFO] plugin %s: previously cached as %q, re-validating\n", path, cached.ShortName)
		}
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return errs.New(errs.KindPluginRejected, "failed to load shared library", err)
	}

	a, err := resolveAPI(handle)
	if err != nil {
		return err
	}

	loaded.mu.Lock()
	recordIdx := len(loaded.records)
	loaded.records = append(loaded.records, record{path: path, handle: handle, api: a})
	loaded.mu.Unlock()

	entry := registry.Entry{
		Name:       a.shortName,
		Mutator:    &FFIMutator{index: recordIdx},
		FromPlugin: true,
	}
	if a.hasDesc {
		entry.Description = a.description
	}
	if err := reg.Append(entry); err != nil {
		return errs.New(errs.KindPluginRejected, "short_name collides with an existing registry entry", err)
	}

	if idx != nil {
		var modTime time.Time
		if info, statErr := os.Stat(path); statErr == nil {
			modTime = info.ModTime()
		}
		meta := pluginindex.Entry{ShortName: a.shortName, Description: a.description, ModTime: modTime}
		if err := idx.Remember(context.Background(), path, meta); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] plugin %s: caching metadata: %v\n", path, err)
		}
	}
	return nil
}

// resolveAPI extracts the four required exports from handle. Any missing
// export rejects the whole plugin rather than registering a partial one.
func resolveAPI(handle uintptr) (api, error) {
	shortNameAddr, err := purego.Dlsym(handle, symShortName)
	if err != nil {
		return api{}, errs.New(errs.KindPluginRejected, "missing "+symShortName, err)
	}
	descAddr, err := purego.Dlsym(handle, symDescription)
	if err != nil {
		return api{}, errs.New(errs.KindPluginRejected, "missing "+symDescription, err)
	}
	var drive driveRevertSig
	driveAddr, err := purego.Dlsym(handle, symDrive)
	if err != nil {
		return api{}, errs.New(errs.KindPluginRejected, "missing "+symDrive, err)
	}
	purego.RegisterFunc(&drive, driveAddr)

	var revert driveRevertSig
	revertAddr, err := purego.Dlsym(handle, symRevert)
	if err != nil {
		return api{}, errs.New(errs.KindPluginRejected, "missing "+symRevert, err)
	}
	purego.RegisterFunc(&revert, revertAddr)

	shortName := readString(*(*stringDescriptor)(unsafe.Pointer(shortNameAddr)))
	descDescriptor := *(*optionalStringDescriptor)(unsafe.Pointer(descAddr))

	a := api{shortName: shortName, drive: drive, revert: revert}
	if descDescriptor.Present != 0 {
		a.hasDesc = true
		a.description = readString(descDescriptor.Payload)
	}
	if a.shortName == "" {
		return api{}, errs.New(errs.KindPluginRejected, symShortName+" resolved to an empty string", nil)
	}
	return a, nil
}

func readString(d stringDescriptor) string {
	if d.Len == 0 {
		return ""
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(d.Ptr)), d.Len)
	return string(b)
}

// Unload closes every loaded library's handle and clears the plugin table.
// Per spec.md's Plugin Record lifecycle, this MUST happen only after every
// pipeline referencing an FFI mutator from this table has been released:
// indices handed out by Load become invalid the instant Unload runs, and any
// FFIMutator still holding one will fail its next Drive/Revert with an
// InternalBug error rather than silently misbehave (see FFIMutator.call).
func Unload() {
	loaded.mu.Lock()
	defer loaded.mu.Unlock()
	for _, rec := range loaded.records {
		if rec.handle == 0 {
			continue
		}
		if err := purego.Dlclose(rec.handle); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] plugin %s: closing shared library: %v\n", rec.path, err)
		}
	}
	loaded.records = nil
}

// Count reports how many plugins are currently loaded, for diagnostics.
func Count() int {
	loaded.mu.Lock()
	defer loaded.mu.Unlock()
	return len(loaded.records)
}
