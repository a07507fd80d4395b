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

package process

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowstate-ai/agentcore/persistence"
)

// Snapshot is the serializable projection of a Process a persistence.Store
// holds (spec.md §6 "agent processes (id -> state) ... caller supplies
// serialization"). It omits the blackboard and the live *action.Agent
// pointer: AgentName is enough to re-resolve the agent bundle from a
// registry.AgentRegistry on restore, and the blackboard is persisted
// (or reconstructed) separately.
type Snapshot struct {
	ID                 string
	ParentID           string
	AgentName          string
	Status             State
	CreatedAt          time.Time
	StartedAt          time.Time
	Iterations         int
	CostSpent          float64
	History            []HistoryEntry
	FailureReason      string
	PendingAwaitableID string
}

// Snapshot captures p's current serializable state.
func (p *Process) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		ID:                 p.id,
		ParentID:           p.parentID,
		AgentName:          p.agent.Name,
		Status:             p.status,
		CreatedAt:          p.createdAt,
		StartedAt:          p.startedAt,
		Iterations:         p.iterations,
		CostSpent:          p.costSpent,
		History:            append([]HistoryEntry(nil), p.history...),
		FailureReason:      p.failureReason,
		PendingAwaitableID: p.pendingAwaitableID,
	}
}

// key is the store key a process snapshot is saved under.
func key(processID string) string { return "process:" + processID }

// Save serializes p's Snapshot as JSON and upserts it into store under
// its process ID.
func (p *Process) Save(ctx context.Context, store persistence.Store) error {
	data, err := json.Marshal(p.Snapshot())
	if err != nil {
		return fmt.Errorf("process: marshal snapshot: %w", err)
	}
	return store.Put(ctx, key(p.id), data)
}

// LoadSnapshot retrieves and deserializes a process Snapshot by ID. The
// caller is responsible for re-attaching the live action.Agent (looked
// up by AgentName) and blackboard before resuming it via an Executor.
func LoadSnapshot(ctx context.Context, store persistence.Store, processID string) (*Snapshot, bool, error) {
	data, ok, err := store.Get(ctx, key(processID))
	if err != nil || !ok {
		return nil, ok, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("process: unmarshal snapshot: %w", err)
	}
	return &snap, true, nil
}
