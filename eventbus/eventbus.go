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

// Package eventbus is the synchronous, in-process fan-out of typed
// lifecycle events (C8). Ordering to a single listener matches
// publication order; ordering across listeners is not guaranteed
// (spec.md §4.5).
package eventbus

import (
	"sync"
	"time"
)

// Kind enumerates the published event kinds (spec.md §4.5).
type Kind string

const (
	KindProcessCreated  Kind = "process_created"
	KindReadyToPlan     Kind = "ready_to_plan"
	KindPlanFormulated  Kind = "plan_formulated"
	KindActionStart     Kind = "action_start"
	KindActionResult    Kind = "action_result"
	KindToolCallRequest  Kind = "tool_call_request"
	KindToolCallResponse Kind = "tool_call_response"
	KindLLMRequest      Kind = "llm_request"
	KindLLMResponse     Kind = "llm_response"
	KindObjectAdded     Kind = "object_added"
	KindObjectBound     Kind = "object_bound"
	KindGoalAchieved    Kind = "goal_achieved"
	KindProcessFinished Kind = "process_finished"
	KindProcessWaiting  Kind = "process_waiting"
	KindProcessPaused   Kind = "process_paused"
	KindProcessStuck    Kind = "process_stuck"
	KindEarlyTermination Kind = "early_termination"
	KindProgressUpdate  Kind = "progress_update"
)

// Event is a typed lifecycle event. Every event carries ProcessID and
// Timestamp (spec.md §4.5); Payload carries kind-specific data.
type Event struct {
	Kind      Kind
	ProcessID string
	Timestamp time.Time
	Payload   any
}

// Listener receives published events. Implementations must not block
// the publisher for long; a listener that needs to do slow work
// should hand off (e.g. to a channel or goroutine) internally.
type Listener func(Event)

// Bus is the in-process fan-out. Zero value is ready to use.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe attaches a listener. Returns an unsubscribe function.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
	idx := len(b.listeners) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.listeners) {
			b.listeners[idx] = nil
		}
	}
}

// Publish fans e out to every subscribed listener, in subscription
// order, synchronously.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		if l != nil {
			l(e)
		}
	}
}

// Emit is a convenience wrapper that stamps the timestamp and process
// ID before publishing.
func (b *Bus) Emit(processID string, kind Kind, payload any) {
	b.Publish(Event{Kind: kind, ProcessID: processID, Timestamp: time.Now(), Payload: payload})
}
