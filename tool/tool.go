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

// Package tool defines the tool interface the tool loop (C7) drives:
// a named, schema-described capability an LLM can invoke mid-turn
// (spec.md §4.4). The interface hierarchy is modeled on
// pkg/tool (base Tool + CallableTool), trimmed to this platform's
// synchronous execution model -- streaming tools and long-running jobs
// are features this platform does not name and are left unbuilt.
package tool

import (
	"context"
)

// Tool is the base capability surface: identity the LLM sees in its
// function-calling schema.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
}

// Callable extends Tool with synchronous execution. This is the only
// execution mode the tool loop drives (spec.md §4.4 step 4b).
type Callable interface {
	Tool
	Call(ctx context.Context, args map[string]any) (Result, error)
}

// Result is what a tool invocation produces. The tool loop converts it
// to history text per spec.md §4.4 step 4c: Text's Content is used
// as-is; a non-empty Err is rendered "Error: <message>".
type Result struct {
	Content  string
	Err      string
	Metadata map[string]any
}

// IsError reports whether the result represents a failed invocation.
func (r Result) IsError() bool { return r.Err != "" }

// Text builds a successful Result.
func Text(content string) Result { return Result{Content: content} }

// Error builds a failed Result from a message (not yet "Error: "
// prefixed -- the tool loop applies that prefix per spec.md §4.4 4c).
func Error(message string) Result { return Result{Err: message} }

// Matryoshka is implemented by a tool that expands the available tool
// set on invocation (progressive disclosure, spec.md §4.4). InnerTools
// returns the tools to add; RemoveOnInvoke reports whether the outer
// tool itself should be removed once expanded.
type Matryoshka interface {
	Tool
	InnerTools(args map[string]any) []Tool
	RemoveOnInvoke() bool
}

// Registry is a read-mostly, process-wide tool catalogue (spec.md §5
// Shared resources): built once, looked up without locking during a
// process's steady state.
type Registry struct {
	byName map[string]Tool
	order  []string
}

// NewRegistry builds a Registry from an initial tool set.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.put(t)
	}
	return r
}

func (r *Registry) put(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.byName[t.Name()] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// All returns the registered tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// With returns a new Registry with additions applied and removals
// dropped, deduplicated by name (spec.md §4.4 progressive disclosure:
// "Deduplication is by tool name"). The receiver is left unmodified --
// each tool-loop iteration works from its own snapshot.
func (r *Registry) With(additions []Tool, removals []string) *Registry {
	next := &Registry{byName: make(map[string]Tool, len(r.byName)+len(additions))}
	removed := make(map[string]bool, len(removals))
	for _, name := range removals {
		removed[name] = true
	}
	for _, name := range r.order {
		if removed[name] {
			continue
		}
		next.put(r.byName[name])
	}
	for _, t := range additions {
		next.put(t)
	}
	return next
}

// ErrToolNotFound is raised when the tool loop looks up a tool call's
// name and finds nothing registered (spec.md §4.4 step 4a, §7
// ToolNotFound): the loop aborts rather than silently skipping.
type ErrToolNotFound struct{ Name string }

func (e *ErrToolNotFound) Error() string {
	return "tool: not found: " + e.Name
}
