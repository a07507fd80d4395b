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

// Package blackboard implements the typed, append-oriented shared
// memory (C2) that actions consume from and publish into.
//
// A Blackboard preserves insertion order. A later bind with the same
// name does not overwrite prior entries for history purposes -- both
// remain in the object list, but name lookup resolves to the most
// recent (spec.md §3, §4.1; see also §9 Open Questions, which keeps
// this "both kept, latest wins on lookup" behaviour).
package blackboard

import (
	"sync"

	"github.com/google/uuid"

	"github.com/flowstate-ai/agentcore/typeregistry"
)

// Entry is one object ever added to the blackboard: either an
// anonymous object or a named bind. Hidden entries are excluded from
// Objects() snapshots but remain retrievable by ID.
type Entry struct {
	ID     string
	Name   string // "" for an anonymous object
	Value  any
	Hidden bool
}

// Blackboard is the ordered, typed store of values and boolean
// conditions for one agent process.
type Blackboard struct {
	mu         sync.RWMutex
	types      *typeregistry.Registry
	entries    []*Entry
	names      map[string]*Entry // name -> most recent entry with that name
	conditions map[string]bool
}

// New creates an empty Blackboard backed by the given type registry,
// which is consulted by Last(T) for assignability.
func New(types *typeregistry.Registry) *Blackboard {
	return &Blackboard{
		types:      types,
		names:      make(map[string]*Entry),
		conditions: make(map[string]bool),
	}
}

// Bind appends v as an anonymous object *and* updates the name map to
// point at it. Both the old and new entries remain in Objects().
func (b *Blackboard) Bind(name string, v any) *Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &Entry{ID: uuid.NewString(), Name: name, Value: v}
	b.entries = append(b.entries, e)
	b.names[name] = e
	return e
}

// AddObject appends v as an anonymous object.
func (b *Blackboard) AddObject(v any) *Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &Entry{ID: uuid.NewString(), Value: v}
	b.entries = append(b.entries, e)
	return e
}

// Get returns the value most recently bound to name, or nil, false if
// no bind with that name exists.
func (b *Blackboard) Get(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.names[name]
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Last returns the most recently inserted object assignable to
// typeName, scanning Objects() in reverse, or nil if none matches.
func (b *Blackboard) Last(typeName string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if e.Hidden {
			continue
		}
		if b.assignable(typeName, e.Value) {
			return e.Value
		}
	}
	return nil
}

func (b *Blackboard) assignable(typeName string, v any) bool {
	if b.types == nil {
		return false
	}
	vt := b.types.TypeOfValue(v)
	if vt == "" {
		return false
	}
	return b.types.IsAssignableFrom(typeName, vt)
}

// HasValueOfType reports whether any non-hidden object is assignable
// to typeName. It is the source of the "has value of type T" world
// state proposition (spec.md §3 World State).
func (b *Blackboard) HasValueOfType(typeName string) bool {
	return b.Last(typeName) != nil
}

// Objects returns a snapshot of non-hidden entries in insertion order.
// Readers never observe partial writes: the snapshot is a copy taken
// under the read lock.
func (b *Blackboard) Objects() []*Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out
}

// AllEntries returns every entry ever added, including hidden ones,
// for history/debugging purposes.
func (b *Blackboard) AllEntries() []*Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Hide marks an entry invisible to planning (Objects/Last) without
// deleting it; it remains retrievable via AllEntries or ByID.
func (b *Blackboard) Hide(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.ID == id {
			e.Hidden = true
			return true
		}
	}
	return false
}

// ByID retrieves an entry by its ID regardless of hidden state.
func (b *Blackboard) ByID(id string) (*Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// SetCondition sets a named boolean condition. Idempotent.
func (b *Blackboard) SetCondition(name string, value bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conditions[name] = value
}

// GetCondition returns a named condition's value, defaulting to false
// if never set.
func (b *Blackboard) GetCondition(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conditions[name]
}

// Conditions returns a snapshot copy of all conditions.
func (b *Blackboard) Conditions() map[string]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]bool, len(b.conditions))
	for k, v := range b.conditions {
		out[k] = v
	}
	return out
}

// Spawn returns a child Blackboard seeded with a snapshot of this
// blackboard's current entries and conditions. Writes to the child are
// isolated: they never propagate back to the parent.
func (b *Blackboard) Spawn() *Blackboard {
	b.mu.RLock()
	defer b.mu.RUnlock()

	child := &Blackboard{
		types:      b.types,
		names:      make(map[string]*Entry, len(b.names)),
		conditions: make(map[string]bool, len(b.conditions)),
	}
	for _, e := range b.entries {
		cp := *e
		child.entries = append(child.entries, &cp)
		if e.Name != "" {
			child.names[e.Name] = &cp
		}
	}
	for k, v := range b.conditions {
		child.conditions[k] = v
	}
	return child
}

// Clear removes all entries and conditions.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.names = make(map[string]*Entry)
	b.conditions = make(map[string]bool)
}
