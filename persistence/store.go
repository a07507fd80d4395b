// Copyright 2025 Kadir Pekel
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

// Package persistence is the opaque key-value store of spec.md §6
// Persistence: "agent processes (id -> state), awaitables (id ->
// awaitable). Store contracts: at-least-once retrieval, no partial
// writes, caller supplies serialization." The store never inspects
// the bytes it holds -- callers (process.Snapshot, awaitable.Snapshot)
// own the schema.
package persistence

import "context"

// Store is the opaque byte-blob contract every backend implements.
// Put is an upsert: writing an existing key replaces its value
// atomically -- a reader never observes a torn write.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	// Keys lists every key with the given prefix, for startup recovery
	// scans (spec.md supplement: list pending processes/awaitables).
	Keys(ctx context.Context, prefix string) ([]string, error)
}
