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
	"testing"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/persistence"
	"github.com/flowstate-ai/agentcore/typeregistry"
)

func TestProcessSaveAndLoadSnapshot(t *testing.T) {
	ag := &action.Agent{Name: "researcher"}
	p := New("p1", "", ag, blackboard.New(typeregistry.New()))
	p.appendHistory(HistoryEntry{ActionName: "Search", Status: action.ActionStatus{Code: action.StatusSucceeded}})
	p.addCost(1.5)
	p.incrementIterations()

	store := persistence.NewMemStore()
	ctx := context.Background()
	if err := p.Save(ctx, store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, ok, err := LoadSnapshot(ctx, store, "p1")
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot = %v, %v, %v", snap, ok, err)
	}
	if snap.ID != "p1" || snap.AgentName != "researcher" {
		t.Fatalf("snapshot identity wrong: %+v", snap)
	}
	if snap.Iterations != 1 || snap.CostSpent != 1.5 {
		t.Fatalf("snapshot accounting wrong: %+v", snap)
	}
	if len(snap.History) != 1 || snap.History[0].ActionName != "Search" {
		t.Fatalf("snapshot history wrong: %+v", snap.History)
	}
	if snap.Status != StateReady {
		t.Fatalf("snapshot status = %v, want READY", snap.Status)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	store := persistence.NewMemStore()
	_, ok, err := LoadSnapshot(context.Background(), store, "nope")
	if err != nil || ok {
		t.Fatalf("LoadSnapshot(nope) = %v, %v, want false, nil", ok, err)
	}
}
