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

import (
	"container/heap"

	"github.com/flowstate-ai/agentcore/action"
)

// DefaultNodeBudget bounds GOAP search expansions (spec.md §4.2).
const DefaultNodeBudget = 10000

// GOAP is an A* planner over world states: edges are actions whose Pre
// holds in the source state, the successor applies the action's
// effective Post. The heuristic is the count of unsatisfied goal
// propositions across the nearest achievable goal; edge cost is
// action.Cost - action.Value, floored so path costs never go negative.
type GOAP struct {
	NodeBudget int
}

// NewGOAP returns a GOAP planner with the default node budget.
func NewGOAP() *GOAP {
	return &GOAP{NodeBudget: DefaultNodeBudget}
}

type goapNode struct {
	world  map[string]bool
	ran    []string // names of actions applied so far, in order, for no-rerun tracking
	plan   []*action.Action
	gCost  float64
	fScore float64
	index  int
}

type goapQueue []*goapNode

func (q goapQueue) Len() int { return len(q) }
func (q goapQueue) Less(i, j int) bool {
	if q[i].fScore != q[j].fScore {
		return q[i].fScore < q[j].fScore
	}
	// deterministic tie-break: shorter plan, then lexicographic by the
	// last action's name.
	if len(q[i].plan) != len(q[j].plan) {
		return len(q[i].plan) < len(q[j].plan)
	}
	return lastName(q[i].plan) < lastName(q[j].plan)
}
func lastName(plan []*action.Action) string {
	if len(plan) == 0 {
		return ""
	}
	return plan[len(plan)-1].Name
}
func (q goapQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *goapQueue) Push(x any) {
	n := x.(*goapNode)
	n.index = len(*q)
	*q = append(*q, n)
}
func (q *goapQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// heuristic counts unsatisfied propositions of the nearest (by name)
// achievable goal, i.e. the goal minimizing the unsatisfied count.
func heuristic(world map[string]bool, goals []*action.Goal) float64 {
	best := -1
	for _, g := range sortedGoals(goals) {
		unsatisfied := 0
		for _, p := range g.Pre {
			if !p.Holds(world) {
				unsatisfied++
			}
		}
		if best == -1 || unsatisfied < best {
			best = unsatisfied
		}
	}
	if best == -1 {
		return 0
	}
	return float64(best)
}

func achievedGoal(world map[string]bool, goals []*action.Goal) *action.Goal {
	return firstAchievedGoal(world, goals)
}

// edgeCost floors action.Cost - action.Value at zero so cumulative
// path costs never go negative (spec.md §4.2).
func edgeCost(a *action.Action, world map[string]bool) float64 {
	c := 0.0
	if a.Cost != nil {
		c = a.Cost(world)
	}
	v := 0.0
	if a.Value != nil {
		v = a.Value(world)
	}
	net := c - v
	if net < 0 {
		return 0
	}
	return net
}

// Plan runs A* search to find the cheapest sequence of actions
// reaching any goal whose Pre is satisfied. Returns nil, nil if no
// goal is reachable within the node budget.
func (p *GOAP) Plan(world map[string]bool, actions []*action.Action, goals []*action.Goal) (*Plan, error) {
	budget := p.NodeBudget
	if budget <= 0 {
		budget = DefaultNodeBudget
	}

	if g := achievedGoal(world, goals); g != nil {
		return &Plan{Actions: nil, Goal: g}, nil
	}

	ordered := sortedActions(actions)

	start := &goapNode{world: world, fScore: heuristic(world, goals)}
	open := &goapQueue{start}
	heap.Init(open)

	expansions := 0
	for open.Len() > 0 {
		if expansions >= budget {
			return nil, nil
		}
		expansions++

		current := heap.Pop(open).(*goapNode)

		if g := achievedGoal(current.world, goals); g != nil {
			return &Plan{Actions: current.plan, Goal: g}, nil
		}

		for _, a := range ordered {
			if !a.Selectable(current.world) {
				continue
			}
			// invariant (ii): never select a non-rerunnable action
			// already applied along this path.
			if !a.CanRerun && containsName(current.ran, a.Name) {
				continue
			}

			nextWorld := a.Apply(current.world)
			gCost := current.gCost + edgeCost(a, current.world)
			h := heuristic(nextWorld, goals)

			nextPlan := make([]*action.Action, len(current.plan)+1)
			copy(nextPlan, current.plan)
			nextPlan[len(current.plan)] = a

			nextRan := make([]string, len(current.ran)+1)
			copy(nextRan, current.ran)
			nextRan[len(current.ran)] = a.Name

			heap.Push(open, &goapNode{
				world:  nextWorld,
				ran:    nextRan,
				plan:   nextPlan,
				gCost:  gCost,
				fScore: gCost + h,
			})
		}
	}

	return nil, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
