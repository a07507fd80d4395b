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

// Package worldstate derives the planner's world state (C3): a map
// proposition -> bool drawn from the blackboard plus evaluated
// conditions, "action has run" markers, and custom predicates
// registered by the agent (spec.md §3 World State).
package worldstate

import (
	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/typeregistry"
)

// CustomPredicate is an agent-registered proposition computed directly
// from the blackboard, for propositions that don't reduce to "has
// value of type T" or a named Condition.
type CustomPredicate struct {
	Proposition string
	Evaluate    func(b *blackboard.Blackboard) bool
}

// Projector derives world state from a blackboard plus an agent's
// declared conditions and types.
type Projector struct {
	types      *typeregistry.Registry
	conditions []*action.Condition
	customs    []CustomPredicate
}

// New builds a Projector over the given type registry, agent-declared
// conditions, and any custom predicates.
func New(types *typeregistry.Registry, conditions []*action.Condition, customs ...CustomPredicate) *Projector {
	return &Projector{types: types, conditions: conditions, customs: customs}
}

// Project computes the world state for b: one "has:<Type>" proposition
// per registered type that the blackboard currently satisfies, one
// "cond:<name>" proposition per declared condition (computed if the
// condition has an Evaluate function, otherwise read from the
// blackboard's boolean condition store), one "ran:<action>" proposition
// per action name supplied, and the custom predicates.
func (p *Projector) Project(b *blackboard.Blackboard, actionNames []string) map[string]bool {
	world := make(map[string]bool)

	if p.types != nil {
		for _, t := range p.types.All() {
			world[action.HasValueProposition(t.Name)] = b.HasValueOfType(t.Name)
		}
	}

	for _, c := range p.conditions {
		prop := action.ConditionProposition(c.Name)
		if c.Evaluate != nil {
			world[prop] = c.Evaluate(world)
		} else {
			world[prop] = b.GetCondition(c.Name)
		}
	}

	for _, name := range actionNames {
		world["ran:"+name] = b.GetCondition("ran:" + name)
	}

	for _, cp := range p.customs {
		world[cp.Proposition] = cp.Evaluate(b)
	}

	return world
}
