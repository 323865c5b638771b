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

// Package plugin discovers shared libraries exporting Stackpack's
// C-linkage mutator ABI, validates their four required exports, and
// registers each as an FFI-backed mutator.Mutator.
//
// This is an interface document as much as a package: a plugin author who
// is not writing Go must still match every layout described here exactly,
// independent of any Go-specific representation.
package plugin

// Fixed, non-per-plugin-varying export names every plugin shared library
// must provide. These are taken verbatim from the project's own native
// source rather than derived per plugin: a plugin author compiles against
// this one ABI, they do not choose their own prefix.
const (
	symShortName   = "STACKPACK_PLUGIN_SHORT_NAME"
	symDescription = "STACKPACK_PLUGIN_DESCRIPTION"
	symDrive       = "stackpack_plugin_drive_mutation"
	symRevert      = "stackpack_plugin_revert_mutation"
)

// stringDescriptor mirrors the C layout `{ const uint8_t *ptr; size_t len; }`
// — a non-owning, non-null-terminated view of a UTF-8 byte span. ptr is
// only nil when len is 0.
type stringDescriptor struct {
	Ptr uintptr
	Len uintptr
}

// optionalStringDescriptor mirrors `STACKPACK_PLUGIN_DESCRIPTION`'s tagged
// union: a one-byte present flag (padded to the platform's pointer
// alignment) followed by the payload. A plugin with no description sets
// present to 0 and may leave payload zeroed.
type optionalStringDescriptor struct {
	Present byte
	_       [7]byte // pad to 8-byte alignment ahead of the pointer-sized payload
	Payload stringDescriptor
}

// driveRevertSig is the C function signature shared by both directions:
//
//	bool op(const u8* in_ptr, usize in_len,
//	        u8** buf_ptr, usize* buf_len, usize* buf_cap)
//
// The callee may reallocate the buffer described by (buf_ptr, buf_len,
// buf_cap), in which case it writes the new triple back through the out
// parameters before returning. It returns true on success, false on
// failure; the caller must reconstruct its owning buffer from the post-call
// triple on every path, success or failure, to avoid leaking or
// double-freeing.
type driveRevertSig func(inPtr uintptr, inLen uintptr, bufPtrPtr uintptr, bufLenPtr uintptr, bufCapPtr uintptr) bool
