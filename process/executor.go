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
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/awaitable"
	"github.com/flowstate-ai/agentcore/ctrlflow"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/planner"
	"github.com/flowstate-ai/agentcore/worldstate"
)

// EarlyTerminationPolicy bounds a process's run, independent of the
// planner's own goal-seeking (spec.md §4.3 "Early termination
// policies"). A zero field means that dimension is unbounded.
type EarlyTerminationPolicy struct {
	MaxWallClock  time.Duration
	MaxCost       float64
	MaxIterations int
}

// exceeded reports the first dimension p has exceeded, if any.
func (pol EarlyTerminationPolicy) exceeded(p *Process) (reason string, exceeded bool) {
	if pol.MaxWallClock > 0 && p.RunningTime() > pol.MaxWallClock {
		return "wall_clock_exceeded", true
	}
	if pol.MaxCost > 0 && p.CostSpent() > pol.MaxCost {
		return "cost_exceeded", true
	}
	if pol.MaxIterations > 0 && p.Iterations() >= pol.MaxIterations {
		return "iteration_count_exceeded", true
	}
	return "", false
}

// Executor drives processes one tick at a time, per spec.md §4.3. It
// holds no per-process state of its own -- everything mutable lives on
// the Process -- so one Executor safely drives many processes
// concurrently (spec.md §5 Shared resources).
type Executor struct {
	Planner    planner.Planner
	Bus        *eventbus.Bus
	Awaitables *awaitable.Store
	Projector  *worldstate.Projector
	Policies   EarlyTerminationPolicy
}

// NewExecutor builds an Executor from its collaborators.
func NewExecutor(pl planner.Planner, bus *eventbus.Bus, awaitables *awaitable.Store, projector *worldstate.Projector, policies EarlyTerminationPolicy) *Executor {
	return &Executor{Planner: pl, Bus: bus, Awaitables: awaitables, Projector: projector, Policies: policies}
}

// Run drives p tick by tick until it reaches a terminal state (COMPLETED,
// FAILED, KILLED), or suspends (WAITING, PAUSED), at which point Run
// returns nil -- the caller is expected to call Run again once the
// process is resumed (the awaitable answered, or Process.Resume called).
func (e *Executor) Run(ctx context.Context, p *Process) error {
	for {
		if err := ctx.Err(); err != nil {
			p.Kill("context canceled")
			return err
		}

		switch p.Status() {
		case StateReady:
			p.mu.Lock()
			p.status = StateRunning
			p.startedAt = time.Now()
			p.mu.Unlock()
			e.Bus.Emit(p.id, eventbus.KindProcessCreated, nil)
		case StateRunning:
			// falls through to the tick below
		default:
			// WAITING, PAUSED, or a terminal state: nothing more to
			// drive until external input changes it.
			return nil
		}

		if reason, exceeded := e.Policies.exceeded(p); exceeded {
			e.Bus.Emit(p.id, eventbus.KindEarlyTermination, reason)
			p.fail("early termination: " + reason)
			e.Bus.Emit(p.id, eventbus.KindProcessFinished, p.Status())
			return nil
		}

		if terminal := e.tick(ctx, p); terminal {
			e.Bus.Emit(p.id, eventbus.KindProcessFinished, p.Status())
			return nil
		}
		if p.Status() == StateWaiting {
			e.Bus.Emit(p.id, eventbus.KindProcessFinished, p.Status())
			return nil
		}
	}
}

// tick executes spec.md §4.3 steps 1-9 once. It returns true if p
// landed in a terminal state this tick.
func (e *Executor) tick(ctx context.Context, p *Process) bool {
	names := actionNames(p.agent)
	world := e.Projector.Project(p.bb, names)
	e.Bus.Emit(p.id, eventbus.KindReadyToPlan, world)

	plan, err := e.Planner.Plan(world, p.agent.Actions, p.agent.Goals)
	if err != nil {
		p.fail(fmt.Sprintf("planner error: %v", err))
		return true
	}
	if plan == nil {
		p.stuck("planner found no applicable plan")
		return true
	}
	if len(plan.Actions) == 0 {
		// A plan with no actions and a goal set means the goal already
		// holds in the current world state (planner.Plan's
		// already-achieved short circuit) -- not a stuck process.
		if plan.Goal != nil {
			e.Bus.Emit(p.id, eventbus.KindGoalAchieved, plan.Goal.Name)
			p.mu.Lock()
			p.status = StateCompleted
			p.mu.Unlock()
			return true
		}
		p.stuck("planner found no applicable plan")
		return true
	}

	act := plan.Actions[0]

	// Step 3: the world may have moved under us (an awaitable
	// resolved, a concurrent event landed) between projection and
	// selection; if the chosen action's precondition no longer holds,
	// discard the plan and replan next tick rather than run it anyway.
	if !act.PreconditionsHold(world) {
		return false
	}

	e.Bus.Emit(p.id, eventbus.KindPlanFormulated, map[string]any{"action": act.Name, "goal": goalName(plan.Goal)})
	e.Bus.Emit(p.id, eventbus.KindActionStart, act.Name)

	cost := 0.0
	if act.Cost != nil {
		cost = act.Cost(world)
	}

	status, err := e.executeWithQoS(ctx, p, act)
	if err != nil {
		return e.handleActionError(p, act, err)
	}

	e.Bus.Emit(p.id, eventbus.KindActionResult, map[string]any{"action": act.Name, "status": status})
	p.appendHistory(HistoryEntry{ActionName: act.Name, Status: status, Timestamp: time.Now()})
	p.addCost(cost)
	p.incrementIterations()

	if status.Code == action.StatusFailed {
		p.fail(status.Message)
		return true
	}

	// Persist the action's post-conditions onto the real blackboard as
	// conditions named by their proposition. Of these, worldstate.Project
	// reads back the implicit "ran:<name>" proposition of a non-rerunnable
	// action (spec.md §4.2 invariant ii), so the planner never re-selects
	// it; "has:<Type>" and "cond:<name>" propositions are projected from
	// the values and bare-named conditions the action itself writes
	// through its ProcessContext, not from these entries.
	pctx := NewProcessContext(p.id, p.bb, e.Bus)
	for _, eff := range act.EffectivePost() {
		pctx.SetCondition(eff.Proposition, eff.Value)
	}

	// Step 9: re-project world state after the blackboard mutation,
	// then run goal detection (spec.md §4.3 "Goal detection occurs
	// after step 8").
	newWorld := e.Projector.Project(p.bb, names)
	if g := firstAchievedGoal(newWorld, p.agent.Goals); g != nil {
		e.Bus.Emit(p.id, eventbus.KindGoalAchieved, g.Name)
		p.mu.Lock()
		p.status = StateCompleted
		p.mu.Unlock()
		return true
	}

	return false
}

// handleActionError dispatches the three ctrlflow signals plus the
// ordinary-error fallback (spec.md §4.3 steps 6-7, §7 Propagation).
// Returns true if p landed in a terminal state.
func (e *Executor) handleActionError(p *Process, act *action.Action, err error) bool {
	var awaitErr *ctrlflow.AwaitableResponseException
	if errors.As(err, &awaitErr) {
		e.Awaitables.Put(awaitErr.Awaitable)
		p.wait(awaitErr.Awaitable.ID)
		e.Bus.Emit(p.id, eventbus.KindProcessWaiting, awaitErr.Awaitable.ID)
		return false
	}

	var replan *ctrlflow.ReplanRequested
	if errors.As(err, &replan) {
		if replan.Updater != nil {
			replan.Updater(p.bb)
		}
		// Discard any remaining plan (there is none held beyond the
		// single selected action) and loop to step 1 next tick.
		return false
	}

	var killed *ctrlflow.ProcessKilled
	if errors.As(err, &killed) {
		p.Kill(killed.Reason)
		return true
	}

	p.fail(fmt.Sprintf("action %s: %v", act.Name, err))
	e.Bus.Emit(p.id, eventbus.KindActionResult, map[string]any{"action": act.Name, "error": err.Error()})
	return true
}

// executeWithQoS runs act.Execute under the QoS retry envelope (spec.md
// §4.3 step 5): retriable-classified errors are retried up to
// MaxAttempts with the configured backoff; ctrlflow signals and
// non-retriable errors propagate immediately without retry.
func (e *Executor) executeWithQoS(ctx context.Context, p *Process, act *action.Action) (action.ActionStatus, error) {
	pctx := NewProcessContext(p.id, p.bb, e.Bus)

	maxAttempts := act.QoS.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return action.ActionStatus{}, &ctrlflow.ProcessKilled{Reason: "context canceled"}
		}

		status, err := act.Execute(pctx)
		if err == nil {
			return status, nil
		}
		if isControlFlow(err) {
			return action.ActionStatus{}, err
		}

		lastErr = err
		if attempt == maxAttempts || !act.QoS.Retriable(action.Classify(err)) {
			break
		}

		select {
		case <-time.After(act.QoS.Backoff()):
		case <-ctx.Done():
			return action.ActionStatus{}, &ctrlflow.ProcessKilled{Reason: "context canceled"}
		}
	}

	return action.ActionStatus{Code: action.StatusFailed, Message: lastErr.Error()}, lastErr
}

// isControlFlow reports whether err is one of the ctrlflow signals,
// which must never be absorbed by the QoS retry loop (spec.md §7
// Propagation).
func isControlFlow(err error) bool {
	var a *ctrlflow.AwaitableResponseException
	var r *ctrlflow.ReplanRequested
	var k *ctrlflow.ProcessKilled
	return errors.As(err, &a) || errors.As(err, &r) || errors.As(err, &k)
}

func actionNames(ag *action.Agent) []string {
	out := make([]string, len(ag.Actions))
	for i, a := range ag.Actions {
		out[i] = a.Name
	}
	return out
}

func goalName(g *action.Goal) string {
	if g == nil {
		return ""
	}
	return g.Name
}

// firstAchievedGoal returns the lexicographically first goal whose Pre
// holds in world and whose OutputType (if any) is present on the
// blackboard, per the "has:<Type>" proposition worldstate.Project
// derives (spec.md §4.3 "Goal detection").
func firstAchievedGoal(world map[string]bool, goals []*action.Goal) *action.Goal {
	sorted := make([]*action.Goal, len(goals))
	copy(sorted, goals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, g := range sorted {
		if !g.Achieved(world) {
			continue
		}
		if g.OutputType == "" || world[action.HasValueProposition(g.OutputType)] {
			return g
		}
	}
	return nil
}
