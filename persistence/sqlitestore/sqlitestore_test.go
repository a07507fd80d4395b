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

package sqlitestore

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGetUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "process:1", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := s.Get(ctx, "process:1")
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get = %q, %v, %v, want v1, true, nil", v, ok, err)
	}

	// Put again under the same key: upsert, not a duplicate row.
	if err := s.Put(ctx, "process:1", []byte("v2")); err != nil {
		t.Fatalf("Put (update): %v", err)
	}
	v, ok, err = s.Get(ctx, "process:1")
	if err != nil || !ok || string(v) != "v2" {
		t.Fatalf("Get after update = %q, %v, %v, want v2, true, nil", v, ok, err)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, ok, err := s.Get(context.Background(), "nope"); err != nil || ok {
		t.Fatalf("Get(nope) = %v, %v, want false, nil", ok, err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.Put(ctx, "k", []byte("v"))
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("Get after Delete: still present")
	}
}

func TestStoreKeysPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.Put(ctx, "process:1", []byte("a"))
	_ = s.Put(ctx, "process:2", []byte("b"))
	_ = s.Put(ctx, "awaitable:1", []byte("c"))

	keys, err := s.Keys(ctx, "process:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys(process:) = %v, want 2 entries", keys)
	}
}

func TestStoreKeysEscapesLikeMetacharacters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.Put(ctx, "proc_1:a", []byte("a"))
	_ = s.Put(ctx, "procX1:a", []byte("b"))

	keys, err := s.Keys(ctx, "proc_1:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "proc_1:a" {
		t.Fatalf("Keys(proc_1:) = %v, want only the literal underscore match", keys)
	}
}
