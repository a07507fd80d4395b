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

package eventbus

import "testing"

func TestPublishPreservesOrderPerListener(t *testing.T) {
	b := New()
	var got []Kind
	b.Subscribe(func(e Event) { got = append(got, e.Kind) })

	b.Emit("p1", KindProcessCreated, nil)
	b.Emit("p1", KindReadyToPlan, nil)
	b.Emit("p1", KindPlanFormulated, nil)

	want := []Kind{KindProcessCreated, KindReadyToPlan, KindPlanFormulated}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	unsub := b.Subscribe(func(e Event) { count++ })
	b.Emit("p1", KindProcessCreated, nil)
	unsub()
	b.Emit("p1", KindProcessCreated, nil)

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestEveryEventCarriesProcessIDAndTimestamp(t *testing.T) {
	b := New()
	var got Event
	b.Subscribe(func(e Event) { got = e })
	b.Emit("proc-42", KindGoalAchieved, "payload")

	if got.ProcessID != "proc-42" {
		t.Errorf("ProcessID = %q, want proc-42", got.ProcessID)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}
