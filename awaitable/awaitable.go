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

// Package awaitable implements the HITL suspend/resume envelope (C9):
// a request for external input that suspends an agent process until a
// response arrives (spec.md §3 Awaitable, §4.6).
package awaitable

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowstate-ai/agentcore/blackboard"
)

// Kind identifies the shape of input an Awaitable is requesting.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindTypeRequest  Kind = "type_request"
	KindFormBinding  Kind = "form_binding"
)

// Outcome is the result of applying a response to an Awaitable.
type Outcome int

const (
	Unchanged Outcome = iota
	Updated
)

// Awaitable is a request for external input that suspends the owning
// process (spec.md §3).
type Awaitable struct {
	ID         string
	ProcessID  string
	Payload    any
	Kind       Kind
	Persistent bool

	// OnResponse applies a caller's response to the blackboard and
	// reports whether it changed anything.
	OnResponse func(response any, bb *blackboard.Blackboard) (Outcome, error)
}

// New creates an Awaitable with a fresh ID.
func New(processID string, kind Kind, payload any, onResponse func(any, *blackboard.Blackboard) (Outcome, error)) *Awaitable {
	return &Awaitable{
		ID:         uuid.NewString(),
		ProcessID:  processID,
		Payload:    payload,
		Kind:       kind,
		OnResponse: onResponse,
	}
}

// Store holds pending Awaitables keyed by awaitable ID, as the
// executor records them when a process transitions WAITING (spec.md
// §4.3 step 6, §4.6); ByProcess finds the one pending for a process.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*Awaitable
}

// NewStore returns an empty in-memory Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Awaitable)}
}

// ErrNotFound is returned by Resolve for an unknown awaitable ID.
var ErrNotFound = fmt.Errorf("awaitable: not found")

// Put records a pending awaitable.
func (s *Store) Put(a *Awaitable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[a.ID] = a
}

// Get retrieves a pending awaitable by ID.
func (s *Store) Get(id string) (*Awaitable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	return a, ok
}

// ByProcess returns the awaitable pending for a given process, if any.
// A process has at most one pending awaitable at a time.
func (s *Store) ByProcess(processID string) (*Awaitable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byID {
		if a.ProcessID == processID {
			return a, true
		}
	}
	return nil, false
}

// Resolve applies a response to the awaitable identified by id, removes
// it from the store (Persistent ones included: a snapshot written with
// Awaitable.Save is separate and is left as is -- see DeleteSnapshot),
// and returns the outcome.
func (s *Store) Resolve(id string, response any, bb *blackboard.Blackboard) (Outcome, error) {
	s.mu.Lock()
	a, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	s.mu.Unlock()

	if !ok {
		return Unchanged, ErrNotFound
	}
	return a.OnResponse(response, bb)
}
