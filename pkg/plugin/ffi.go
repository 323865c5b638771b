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
	"unsafe"

	"stackpack/pkg/errs"
	"stackpack/pkg/mutator"
)

// FFIMutator adapts a loaded plugin's C-linkage drive/revert pair to
// mutator.Mutator. It owns only an index into the shared plugin table
// (never the library itself), mirroring the Rust source's
// `FfiMutator { plugin_index: usize }`.
type FFIMutator struct {
	index int
}

var _ mutator.Mutator = (*FFIMutator)(nil)

func (f *FFIMutator) Drive(in []byte, buf *[]byte) error {
	return f.call(in, buf, true)
}

func (f *FFIMutator) Revert(in []byte, buf *[]byte) error {
	return f.call(in, buf, false)
}

// sliceHeader mirrors the three words backing every Go slice, used here
// purely to read/write a []byte's (data, len, cap) triple by address so it
// can be handed across the FFI boundary and reconstructed afterward. This
// is the same trick the source performs with
// `Vec::from_raw_parts`/`mem::swap`/`mem::forget`: reconstruct the owning
// view from the post-call triple on every return path, success or failure.
type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

func (f *FFIMutator) call(in []byte, buf *[]byte, driving bool) error {
	loaded.mu.Lock()
	if f.index < 0 || f.index >= len(loaded.records) {
		loaded.mu.Unlock()
		return errs.New(errs.KindInternalBug, "plugin: index out of range; Unload was called while a pipeline still held this mutator", nil)
	}
	a := loaded.records[f.index].api
	loaded.mu.Unlock()

	hdr := (*sliceHeader)(unsafe.Pointer(buf))
	bufPtr := uintptr(hdr.Data)
	bufLen := uintptr(hdr.Len)
	bufCap := uintptr(hdr.Cap)

	var inPtr uintptr
	if len(in) > 0 {
		inPtr = uintptr(unsafe.Pointer(&in[0]))
	}

	fn := a.drive
	if !driving {
		fn = a.revert
	}

	ok := fn(inPtr, uintptr(len(in)), uintptr(unsafe.Pointer(&bufPtr)), uintptr(unsafe.Pointer(&bufLen)), uintptr(unsafe.Pointer(&bufCap)))

	newHdr := sliceHeader{Data: bufPtr, Len: int(bufLen), Cap: int(bufCap)}
	*(*sliceHeader)(unsafe.Pointer(buf)) = newHdr

	if !ok {
		return errs.New(errs.KindPluginFailure, "plugin "+loaded.records[f.index].api.shortName+" returned failure", nil)
	}
	return nil
}
