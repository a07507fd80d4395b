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
	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/eventbus"
)

// ProcessContext is the action.Context an Action's Execute receives: a
// thin adapter over the process's Blackboard that also emits the
// object-added/object-bound events of spec.md §4.5.
type ProcessContext struct {
	processID string
	bb        *blackboard.Blackboard
	bus       *eventbus.Bus
}

// NewProcessContext builds a ProcessContext bound to processID's
// blackboard. bus may be nil (events are then simply not emitted).
func NewProcessContext(processID string, bb *blackboard.Blackboard, bus *eventbus.Bus) *ProcessContext {
	return &ProcessContext{processID: processID, bb: bb, bus: bus}
}

func (c *ProcessContext) Get(name string) (any, bool) {
	return c.bb.Get(name)
}

func (c *ProcessContext) Bind(name string, v any) {
	c.bb.Bind(name, v)
	if c.bus != nil {
		c.bus.Emit(c.processID, eventbus.KindObjectBound, map[string]any{"name": name, "value": v})
	}
}

func (c *ProcessContext) AddObject(v any) {
	c.bb.AddObject(v)
	if c.bus != nil {
		c.bus.Emit(c.processID, eventbus.KindObjectAdded, map[string]any{"value": v})
	}
}

func (c *ProcessContext) SetCondition(name string, value bool) {
	c.bb.SetCondition(name, value)
}

func (c *ProcessContext) GetCondition(name string) bool {
	return c.bb.GetCondition(name)
}

var _ action.Context = (*ProcessContext)(nil)
