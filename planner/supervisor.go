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

// SupervisorActionName is a reserved name for a synthetic supervisor
// action. Supervisor.Plan does not use it: its one-step plan holds the
// action Select chose, not a wrapping action.
const SupervisorActionName = "__supervisor__"

// Select runs one LLM-driven decision: given the current world state,
// the declared actions (exposed to the model as tool schemas) and
// goals (described to the model), it returns the single action to run
// next, or nil if the model judges the goal satisfied or unreachable.
//
// Supervisor is planner-engine-agnostic on purpose: Select is
// injected, which keeps planner free of a dependency on the LLM
// transport. Package llmselect provides a Select that issues one
// llm.SPI call per decision, without a toolloop.Loop; cmd/agentcore
// wires it in when it builds a Supervisor.
type Select func(world map[string]bool, actions []*action.Action, goals []*action.Goal) (*action.Action, error)

// Supervisor delegates action selection to an LLM through one Select
// call per planning step. No tool loop runs and goals are not offered
// as a terminal tool; Plan returns the chosen action itself as a
// one-step plan.
type Supervisor struct {
	Select Select
}

// NewSupervisor returns a Supervisor planner backed by sel.
func NewSupervisor(sel Select) *Supervisor {
	return &Supervisor{Select: sel}
}

func (p *Supervisor) Plan(world map[string]bool, actions []*action.Action, goals []*action.Goal) (*Plan, error) {
	if g := achievedGoal(world, goals); g != nil {
		return &Plan{Actions: nil, Goal: g}, nil
	}

	chosen, err := p.Select(world, actions, goals)
	if err != nil {
		return nil, err
	}
	if chosen == nil {
		return nil, nil
	}
	if !chosen.Selectable(world) {
		// invariant (i): never emit an action whose pre is unsatisfied.
		return nil, nil
	}

	var goal *action.Goal
	if g := achievedGoal(chosen.Apply(world), goals); g != nil {
		goal = g
	}

	return &Plan{Actions: []*action.Action{chosen}, Goal: goal}, nil
}
