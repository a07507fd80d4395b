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

// Package typeregistry provides the structural description of domain
// types (C1): name, parents, properties, creation policy. The
// blackboard consults it to decide assignability (and with it the
// world state's "has:<Type>" propositions); DomainType.JSONSchema
// describes a type as a JSON Schema document.
package typeregistry

import (
	"fmt"
	"reflect"
	"sync"
)

// PropertyKind describes the shape of a property's value.
type PropertyKind string

const (
	PropertyScalar     PropertyKind = "scalar"
	PropertyEntity     PropertyKind = "entity"
	PropertyCollection PropertyKind = "collection"
)

// Property describes one field of a DomainType.
type Property struct {
	Name string
	Kind PropertyKind
	// Of names the target DomainType for Entity/Collection properties.
	Of string
}

// DomainType is a named handle for a value class. Two variants exist:
// Reflected types are backed by a Go reflect.Type; Dynamic types are
// schema-only descriptors with no backing Go type (e.g. values that
// only ever travel as map[string]any on the blackboard).
type DomainType struct {
	Name              string
	OwnLabel          string
	Description       string
	Parents           []string
	Properties        []Property
	CreationPermitted bool

	reflected reflect.Type // nil for dynamic types
}

// IsDynamic reports whether the type has no backing Go type.
func (t *DomainType) IsDynamic() bool { return t.reflected == nil }

// ReflectedType returns the backing Go type, or nil for dynamic types.
func (t *DomainType) ReflectedType() reflect.Type { return t.reflected }

// Registry is the structural description of the domain: a name-keyed
// map of DomainType, with assignability resolved via parent chains.
//
// Ownership follows §9: descriptors are owned by their declaring
// agent and the registry holds them by name, never as a bidirectional
// object graph.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*DomainType
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]*DomainType)}
}

// ErrCyclicParents is returned by Register when a type's parent chain
// would become cyclic.
var ErrCyclicParents = fmt.Errorf("typeregistry: cyclic parent chain")

// Register adds (or replaces) a DomainType. It is rejected if
// registering it would introduce a cycle in the parent chain.
func (r *Registry) Register(t *DomainType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.types[t.Name]
	r.types[t.Name] = t
	if r.hasCycleLocked(t.Name, map[string]bool{}) {
		// roll back
		if prev != nil {
			r.types[t.Name] = prev
		} else {
			delete(r.types, t.Name)
		}
		return fmt.Errorf("%w: %s", ErrCyclicParents, t.Name)
	}
	return nil
}

func (r *Registry) hasCycleLocked(name string, seen map[string]bool) bool {
	if seen[name] {
		return true
	}
	seen[name] = true
	t, ok := r.types[name]
	if !ok {
		return false
	}
	for _, p := range t.Parents {
		if r.hasCycleLocked(p, seen) {
			return true
		}
	}
	return false
}

// RegisterReflected registers a type backed by a Go value's reflect.Type.
func (r *Registry) RegisterReflected(name string, sample any, parents ...string) (*DomainType, error) {
	t := &DomainType{
		Name:              name,
		OwnLabel:          name,
		Parents:           parents,
		CreationPermitted: true,
		reflected:         reflect.TypeOf(sample),
	}
	if err := r.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the DomainType by name.
func (r *Registry) Get(name string) (*DomainType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// All returns every registered type.
func (r *Registry) All() []*DomainType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DomainType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	return out
}

// IsAssignableFrom reports whether a value of type `from` may be used
// wherever `to` is required: `from` equals `to`, or `to` is reachable
// by walking `from`'s parent chain.
func (r *Registry) IsAssignableFrom(to, from string) bool {
	if to == from {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assignableLocked(to, from, map[string]bool{})
}

func (r *Registry) assignableLocked(to, from string, seen map[string]bool) bool {
	if seen[from] {
		return false
	}
	seen[from] = true
	if to == from {
		return true
	}
	t, ok := r.types[from]
	if !ok {
		return false
	}
	for _, p := range t.Parents {
		if r.assignableLocked(to, p, seen) {
			return true
		}
	}
	return false
}

// TypeOfValue resolves the DomainType name that best describes a Go
// value by matching its reflect.Type against registered reflected
// types. Returns "" if no registered type matches.
func (r *Registry) TypeOfValue(v any) string {
	if v == nil {
		return ""
	}
	rt := reflect.TypeOf(v)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.types {
		if t.reflected != nil && t.reflected == rt {
			return t.Name
		}
	}
	return ""
}
