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

package awaitable

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowstate-ai/agentcore/persistence"
)

// Snapshot is the serializable projection of an Awaitable (spec.md §4.6
// "If the awaitable is persistent, the platform must round-trip it
// through an opaque store"). OnResponse is a closure and cannot be
// serialized; the caller reconstructs it from Kind and Payload when
// rehydrating (the toolloop package's gateAwaitable shows the pattern:
// Kind plus the original tool name is enough to rebuild it).
type Snapshot struct {
	ID         string
	ProcessID  string
	Kind       Kind
	Payload    any
	Persistent bool
}

// Snapshot captures a's serializable state.
func (a *Awaitable) Snapshot() Snapshot {
	return Snapshot{ID: a.ID, ProcessID: a.ProcessID, Kind: a.Kind, Payload: a.Payload, Persistent: a.Persistent}
}

func key(id string) string { return "awaitable:" + id }

// Save persists a's Snapshot under its ID. Only Persistent awaitables
// need this -- a non-persistent one that outlives the in-memory Store
// is simply lost, per spec.md §4.6.
func (a *Awaitable) Save(ctx context.Context, store persistence.Store) error {
	data, err := json.Marshal(a.Snapshot())
	if err != nil {
		return fmt.Errorf("awaitable: marshal snapshot: %w", err)
	}
	return store.Put(ctx, key(a.ID), data)
}

// LoadSnapshot retrieves and deserializes an Awaitable Snapshot by ID.
func LoadSnapshot(ctx context.Context, store persistence.Store, id string) (*Snapshot, bool, error) {
	data, ok, err := store.Get(ctx, key(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("awaitable: unmarshal snapshot: %w", err)
	}
	return &snap, true, nil
}

// DeleteSnapshot removes a persisted Snapshot, mirroring Store.Resolve
// dropping the in-memory entry once a response has been applied.
func DeleteSnapshot(ctx context.Context, store persistence.Store, id string) error {
	return store.Delete(ctx, key(id))
}
