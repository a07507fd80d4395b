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

// Package planner implements C5: given a world state, produce the
// next action to run or a terminal verdict, under one of three
// disciplines (spec.md §4.2): GOAP (A*), Utility (greedy net-value),
// or Supervisor (LLM-driven, delegated to an injected Select function).
package planner

import (
	"sort"

	"github.com/flowstate-ai/agentcore/action"
)

// Type selects the planning discipline (spec.md §6 Configuration).
type Type string

const (
	TypeGOAP       Type = "GOAP"
	TypeUtility    Type = "UTILITY"
	TypeSupervisor Type = "SUPERVISOR"
)

// Plan is an ordered sequence of actions intended to reach a goal.
type Plan struct {
	Actions []*action.Action
	Goal    *action.Goal
}

// Planner computes, from a world state and an agent's declared actions
// and goals, either a Plan or nil if no goal is reachable.
type Planner interface {
	Plan(world map[string]bool, actions []*action.Action, goals []*action.Goal) (*Plan, error)
}

// sortedActions returns actions sorted lexicographically by name, for
// deterministic tie-breaking (spec.md §4.2, §9 Open Questions).
func sortedActions(actions []*action.Action) []*action.Action {
	out := make([]*action.Action, len(actions))
	copy(out, actions)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// sortedGoals returns goals sorted lexicographically by name.
func sortedGoals(goals []*action.Goal) []*action.Goal {
	out := make([]*action.Goal, len(goals))
	copy(out, goals)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// firstAchievedGoal returns the first (lexicographically) goal whose
// Pre already holds in world, or nil.
func firstAchievedGoal(world map[string]bool, goals []*action.Goal) *action.Goal {
	for _, g := range sortedGoals(goals) {
		if g.Achieved(world) {
			return g
		}
	}
	return nil
}
