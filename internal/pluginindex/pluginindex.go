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

// Package pluginindex is an optional, external-collaborator-facing cache
// of plugin shared-library metadata (short name, description, mtime), so a
// host process that restarts frequently doesn't have to re-open every
// shared library on the plugin path just to list what's installed. It is
// never consulted by a mutator's Drive or Revert; the plugin loader always
// remains the source of truth for what is actually usable.
package pluginindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Entry is the cached metadata for one plugin shared library.
type Entry struct {
	ShortName   string    `json:"short_name"`
	Description string    `json:"description,omitempty"`
	ModTime     time.Time `json:"mod_time"`
}

// KV is the minimal key-value surface the index needs, mirroring the
// RedisEvaler-shaped adapter seams used elsewhere: a real client and a
// logging fallback both satisfy it, so the feature stays usable
// dependency-free in tests and in builds without a configured Redis
// address.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// LoggingKV is a dependency-free stand-in that logs every call and always
// reports a cache miss, used when no Redis address is configured. Not for
// production use.
type LoggingKV struct{}

func (LoggingKV) Get(ctx context.Context, key string) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	default:
	}
	fmt.Printf("[pluginindex-demo] GET %s (miss)\n", key)
	return "", false, nil
}

func (LoggingKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[pluginindex-demo] SET %s (len=%d, ttl=%s)\n", key, len(value), ttl)
	return nil
}

// GoRedisKV wraps a real github.com/redis/go-redis/v9 client.
type GoRedisKV struct{ c *redis.Client }

// NewGoRedisKV constructs a GoRedisKV against addr, e.g. "127.0.0.1:6379".
func NewGoRedisKV(addr string) *GoRedisKV {
	return &GoRedisKV{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := g.c.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (g *GoRedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return g.c.Set(ctx, key, value, ttl).Err()
}

// Index caches plugin metadata under a key derived from its shared
// library path.
type Index struct {
	kv  KV
	ttl time.Duration
}

// New builds an Index over kv. A zero ttl disables expiry (entries persist
// until overwritten).
func New(kv KV, ttl time.Duration) *Index {
	return &Index{kv: kv, ttl: ttl}
}

func keyFor(path string) string { return "stackpack:plugin:" + path }

// Lookup returns the cached entry for path, if any.
func (idx *Index) Lookup(ctx context.Context, path string) (Entry, bool, error) {
	raw, ok, err := idx.kv.Get(ctx, keyFor(path))
	if err != nil || !ok {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, fmt.Errorf("pluginindex: decoding cached entry for %s: %w", path, err)
	}
	return e, true, nil
}

// Remember caches e under path, overwriting any prior entry.
func (idx *Index) Remember(ctx context.Context, path string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("pluginindex: encoding entry for %s: %w", path, err)
	}
	return idx.kv.Set(ctx, keyFor(path), string(raw), idx.ttl)
}
