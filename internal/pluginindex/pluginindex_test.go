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

package pluginindex

import (
	"context"
	"testing"
	"time"
)

// fakeKV is an in-memory KV used to test Index without a real Redis.
type fakeKV struct{ data map[string]string }

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func TestRememberThenLookup(t *testing.T) {
	idx := New(newFakeKV(), time.Hour)
	ctx := context.Background()

	want := Entry{ShortName: "rot13", Description: "trivial XOR example plugin", ModTime: time.Unix(1700000000, 0).UTC()}
	if err := idx.Remember(ctx, "/plugins/rot13.so", want); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	got, ok, err := idx.Lookup(ctx, "/plugins/rot13.so")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLookupMiss(t *testing.T) {
	idx := New(newFakeKV(), time.Hour)
	_, ok, err := idx.Lookup(context.Background(), "/plugins/missing.so")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestLoggingKVAlwaysMisses(t *testing.T) {
	idx := New(LoggingKV{}, 0)
	_, ok, err := idx.Lookup(context.Background(), "/plugins/anything.so")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("LoggingKV should always report a miss")
	}
	if err := idx.Remember(context.Background(), "/plugins/anything.so", Entry{ShortName: "x"}); err != nil {
		t.Fatalf("Remember: %v", err)
	}
}
