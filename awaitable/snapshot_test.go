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
	"testing"

	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/persistence"
)

func TestAwaitableSaveAndLoadSnapshot(t *testing.T) {
	a := New("proc-1", KindConfirmation, map[string]any{"tool": "danger"}, func(resp any, bb *blackboard.Blackboard) (Outcome, error) {
		return Updated, nil
	})
	a.Persistent = true

	store := persistence.NewMemStore()
	ctx := context.Background()
	if err := a.Save(ctx, store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, ok, err := LoadSnapshot(ctx, store, a.ID)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot = %v, %v, %v", snap, ok, err)
	}
	if snap.ID != a.ID || snap.ProcessID != "proc-1" || snap.Kind != KindConfirmation || !snap.Persistent {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}

	if err := DeleteSnapshot(ctx, store, a.ID); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	if _, ok, _ := LoadSnapshot(ctx, store, a.ID); ok {
		t.Fatalf("LoadSnapshot after delete: still present")
	}
}
