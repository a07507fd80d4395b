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

package planner

import "github.com/flowstate-ai/agentcore/action"

// Utility is the greedy planner: at each cycle, pick the selectable
// action with maximal net value (value - cost) at the current world
// state, ties broken lexicographically by name. No lookahead; it
// emits a single-step plan per planning cycle (spec.md §4.2b).
type Utility struct{}

// NewUtility returns a Utility planner.
func NewUtility() *Utility { return &Utility{} }

func (p *Utility) Plan(world map[string]bool, actions []*action.Action, goals []*action.Goal) (*Plan, error) {
	if g := achievedGoal(world, goals); g != nil {
		return &Plan{Actions: nil, Goal: g}, nil
	}

	var best *action.Action
	var bestValue float64
	for _, a := range sortedActions(actions) {
		if !a.Selectable(world) {
			continue
		}
		nv := a.NetValue(world)
		if best == nil || nv > bestValue {
			best = a
			bestValue = nv
		}
	}

	if best == nil {
		return nil, nil
	}

	// The single-step plan targets the nearest achievable goal once
	// this action's effects are applied, if any; otherwise it carries
	// no specific goal (progress step).
	var goal *action.Goal
	if g := achievedGoal(best.Apply(world), goals); g != nil {
		goal = g
	}

	return &Plan{Actions: []*action.Action{best}, Goal: goal}, nil
}
