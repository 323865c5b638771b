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

// Package errs defines the small error taxonomy shared across Stackpack:
// malformed-input failures from a mutator's Revert, unknown names in a
// pipeline description, and the two plugin-specific outcomes.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a Stackpack error for callers that want to branch on it
// with errors.Is rather than string-match a message.
type Kind int

const (
	// KindMalformedInput marks a Revert failure caused by bad layout or
	// invalid invariants in the data being decoded (bad primary index,
	// missing EOF marker, truncated frame, ...).
	KindMalformedInput Kind = iota
	// KindUnknownName marks a pipeline description naming a mutator that
	// is not in the registry.
	KindUnknownName
	// KindPluginRejected marks a candidate shared library that failed ABI
	// validation at load time (missing export, name collision).
	KindPluginRejected
	// KindPluginFailure marks an FFI mutator's Drive/Revert returning
	// false across the C calling convention.
	KindPluginFailure
	// KindInternalBug marks an invariant violation that should be
	// unreachable in a correct build (buffer-parity mismatch, size
	// overflow).
	KindInternalBug
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindUnknownName:
		return "unknown_name"
	case KindPluginRejected:
		return "plugin_rejected"
	case KindPluginFailure:
		return "plugin_failure"
	case KindInternalBug:
		return "internal_bug"
	default:
		return "unknown"
	}
}

// Error is a Stackpack error carrying a Kind so callers can use errors.As
// to recover it after it has been wrapped with additional context.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, errs.MalformedInput) without constructing a value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// kindMarker constructs a zero-value *Error usable only as an errors.Is
// target (its Msg/Err fields are irrelevant to the comparison in Is above).
func kindMarker(k Kind) *Error { return &Error{Kind: k} }

// Sentinel markers for errors.Is comparisons, e.g. errors.Is(err, errs.MalformedInput).
var (
	MalformedInput = kindMarker(KindMalformedInput)
	UnknownName    = kindMarker(KindUnknownName)
	PluginRejected = kindMarker(KindPluginRejected)
	PluginFailure  = kindMarker(KindPluginFailure)
	InternalBug    = kindMarker(KindInternalBug)
)

// New builds a Kind-tagged error with an optional wrapped cause.
func New(k Kind, msg string, cause error) error {
	return &Error{Kind: k, Msg: msg, Err: cause}
}

// Malformedf is a convenience constructor for the most common case.
func Malformedf(format string, args ...any) error {
	return &Error{Kind: KindMalformedInput, Msg: fmt.Sprintf(format, args...)}
}

// StageError annotates an underlying mutator failure with the index of the
// pipeline stage that produced it, per spec: "the run aborts immediately
// and surfaces that stage's error annotated with the stage index."
type StageError struct {
	Stage int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// AtStage wraps err (if non-nil) with the failing stage index. Returns nil
// if err is nil.
func AtStage(stage int, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// GetKind extracts the Kind from err if it (or something it wraps) is an
// *Error, and reports false otherwise.
func GetKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
