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
	"fmt"
	"testing"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/awaitable"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/ctrlflow"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/planner"
	"github.com/flowstate-ai/agentcore/typeregistry"
	"github.com/flowstate-ai/agentcore/worldstate"
)

func newExecutor(pl planner.Planner, policies EarlyTerminationPolicy) (*Executor, *typeregistry.Registry) {
	types := typeregistry.New()
	proj := worldstate.New(types, nil)
	return NewExecutor(pl, eventbus.New(), awaitable.NewStore(), proj, policies), types
}

// TestExecutorRunsToCompletion is spec.md §8 scenario 1 driven through
// the executor rather than the planner directly: A produces X, B
// consumes X to produce Y, and the goal wants Y.
func TestExecutorRunsToCompletion(t *testing.T) {
	ex, types := newExecutor(planner.NewGOAP(), EarlyTerminationPolicy{})
	if _, err := types.RegisterReflected("Y", "sample"); err != nil {
		t.Fatalf("RegisterReflected() error: %v", err)
	}
	if _, err := types.RegisterReflected("X", 0); err != nil {
		t.Fatalf("RegisterReflected() error: %v", err)
	}

	a := &action.Action{
		Name: "A",
		Post: []action.Effect{{Proposition: "has:X", Value: true}},
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			ctx.AddObject(1)
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	b := &action.Action{
		Name: "B",
		Pre:  []action.Predicate{{Proposition: "has:X"}},
		Post: []action.Effect{{Proposition: "has:Y", Value: true}},
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			ctx.AddObject("the-y-value")
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	goal := &action.Goal{Name: "GetY", OutputType: "Y", Pre: []action.Predicate{{Proposition: "has:Y"}}}

	ag := &action.Agent{Name: "test", Actions: []*action.Action{a, b}, Goals: []*action.Goal{goal}}
	p := New("p1", "", ag, blackboard.New(types))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateCompleted {
		t.Fatalf("Status() = %s, want COMPLETED", p.Status())
	}
	if len(p.History()) != 2 {
		t.Fatalf("History() has %d entries, want 2", len(p.History()))
	}
}

// TestExecutorStuckWithNoReachableGoal mirrors spec.md §8 scenario 2:
// no plan reaches the goal, so the process lands in STUCK.
func TestExecutorStuckWithNoReachableGoal(t *testing.T) {
	ex, _ := newExecutor(planner.NewGOAP(), EarlyTerminationPolicy{})

	ax := &action.Action{Name: "MakeX", Post: []action.Effect{{Proposition: "has:X", Value: true}}}
	goal := &action.Goal{Name: "GetZ", Pre: []action.Predicate{{Proposition: "has:Z"}}}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{ax}, Goals: []*action.Goal{goal}}
	p := New("p2", "", ag, blackboard.New(nil))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateStuck {
		t.Fatalf("Status() = %s, want STUCK", p.Status())
	}
}

// TestExecutorSuspendsOnAwaitableAndResumes drives step 6 of spec.md
// §4.3: an action raises AwaitableResponseException, the process
// parks in WAITING, and resuming re-drives it to completion.
func TestExecutorSuspendsOnAwaitableAndResumes(t *testing.T) {
	ex, _ := newExecutor(planner.NewGOAP(), EarlyTerminationPolicy{})

	asked := false
	confirm := &action.Action{
		Name: "Confirm",
		Post: []action.Effect{{Proposition: "cond:confirmed", Value: true}},
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			if !asked {
				asked = true
				aw := awaitable.New("p3", awaitable.KindConfirmation, "are you sure?", func(resp any, bb *blackboard.Blackboard) (awaitable.Outcome, error) {
					bb.SetCondition("confirmed", true)
					return awaitable.Updated, nil
				})
				return action.ActionStatus{}, &ctrlflow.AwaitableResponseException{Awaitable: aw}
			}
			ctx.SetCondition("confirmed", true)
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	goal := &action.Goal{Name: "Confirmed", Pre: []action.Predicate{{Proposition: "cond:confirmed"}}}
	cond := &action.Condition{Name: "confirmed"}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{confirm}, Goals: []*action.Goal{goal}, Conditions: []*action.Condition{cond}}

	types := typeregistry.New()
	proj := worldstate.New(types, []*action.Condition{cond})
	ex.Projector = proj

	p := New("p3", "", ag, blackboard.New(types))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateWaiting {
		t.Fatalf("Status() = %s, want WAITING", p.Status())
	}

	awID := p.pendingAwaitable()
	if _, err := ex.Awaitables.Resolve(awID, "yes", p.bb); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if err := p.Wake(); err != nil {
		t.Fatalf("Wake() error: %v", err)
	}

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if p.Status() != StateCompleted {
		t.Fatalf("Status() after resume = %s, want COMPLETED", p.Status())
	}
}

// TestExecutorReplanAppliesUpdaterAndLoops is step 7 of spec.md §4.3:
// ReplanRequested applies its updater to the blackboard, discards the
// plan, and the executor loops back to planning rather than failing.
func TestExecutorReplanAppliesUpdaterAndLoops(t *testing.T) {
	ex, types := newExecutor(planner.NewGOAP(), EarlyTerminationPolicy{})

	attempts := 0
	flaky := &action.Action{
		Name: "Flaky",
		Post: []action.Effect{{Proposition: "cond:done", Value: true}},
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			attempts++
			if attempts == 1 {
				return action.ActionStatus{}, &ctrlflow.ReplanRequested{
					Reason: "needs a retry marker first",
					Updater: func(bb *blackboard.Blackboard) {
						bb.SetCondition("primed", true)
					},
				}
			}
			ctx.SetCondition("done", true)
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	goal := &action.Goal{Name: "Done", Pre: []action.Predicate{{Proposition: "cond:done"}}}
	doneCond := &action.Condition{Name: "done"}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{flaky}, Goals: []*action.Goal{goal}, Conditions: []*action.Condition{doneCond}}

	ex.Projector = worldstate.New(types, []*action.Condition{doneCond})
	p := New("p4", "", ag, blackboard.New(types))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateCompleted {
		t.Fatalf("Status() = %s, want COMPLETED", p.Status())
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (one replan, one success)", attempts)
	}
	if !p.bb.GetCondition("primed") {
		t.Fatal("replan updater never ran against the blackboard")
	}
}

// TestExecutorQoSRetriesTransientErrors covers step 5: a transient,
// retriable error is retried up to MaxAttempts before the action's
// status is taken as final.
func TestExecutorQoSRetriesTransientErrors(t *testing.T) {
	ex, types := newExecutor(planner.NewGOAP(), EarlyTerminationPolicy{})

	calls := 0
	flaky := &action.Action{
		Name: "Flaky",
		Post: []action.Effect{{Proposition: "cond:done", Value: true}},
		QoS: action.QoS{
			MaxAttempts:   3,
			BackoffMillis: 1,
			RetryOn:       map[action.ErrorKind]bool{action.ErrorKindTransient: true},
		},
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			calls++
			if calls < 3 {
				return action.ActionStatus{}, &action.ClassifiedError{Kind: action.ErrorKindTransient, Err: fmt.Errorf("flaky upstream")}
			}
			ctx.SetCondition("done", true)
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	goal := &action.Goal{Name: "Done", Pre: []action.Predicate{{Proposition: "cond:done"}}}
	doneCond := &action.Condition{Name: "done"}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{flaky}, Goals: []*action.Goal{goal}, Conditions: []*action.Condition{doneCond}}

	ex.Projector = worldstate.New(types, []*action.Condition{doneCond})
	p := New("p5", "", ag, blackboard.New(types))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateCompleted {
		t.Fatalf("Status() = %s, want COMPLETED", p.Status())
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

// TestExecutorFailsOnNonRetriableError covers the non-retriable branch
// of step 5: a validation error with no matching RetryOn entry fails the
// process on the first attempt.
func TestExecutorFailsOnNonRetriableError(t *testing.T) {
	ex, _ := newExecutor(planner.NewUtility(), EarlyTerminationPolicy{})

	calls := 0
	bad := &action.Action{
		Name: "Bad",
		QoS:  action.QoS{MaxAttempts: 5, RetryOn: map[action.ErrorKind]bool{action.ErrorKindTransient: true}},
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			calls++
			return action.ActionStatus{}, &action.ClassifiedError{Kind: action.ErrorKindValidation, Err: fmt.Errorf("bad input")}
		},
	}
	goal := &action.Goal{Name: "Unreachable", Pre: []action.Predicate{{Proposition: "cond:never"}}}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{bad}, Goals: []*action.Goal{goal}}
	p := New("p6", "", ag, blackboard.New(nil))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateFailed {
		t.Fatalf("Status() = %s, want FAILED", p.Status())
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (non-retriable error must not be retried)", calls)
	}
}

// TestExecutorEarlyTerminationByIterationCount covers the policy check
// before step 1 (spec.md §4.3 "Early termination policies").
func TestExecutorEarlyTerminationByIterationCount(t *testing.T) {
	ex, _ := newExecutor(planner.NewUtility(), EarlyTerminationPolicy{MaxIterations: 1})

	churn := &action.Action{
		Name:     "Churn",
		CanRerun: true,
		Value:    func(world map[string]bool) float64 { return 1 },
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	goal := &action.Goal{Name: "Never", Pre: []action.Predicate{{Proposition: "cond:never"}}}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{churn}, Goals: []*action.Goal{goal}}
	p := New("p7", "", ag, blackboard.New(nil))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateFailed {
		t.Fatalf("Status() = %s, want FAILED (early termination)", p.Status())
	}
	if p.FailureReason() == "" {
		t.Fatal("expected a recorded early-termination reason")
	}
}

// TestExecutorNeverReRunsNonRerunnableAction covers spec.md §4.2
// invariant (ii) against the live execution path, not just a single
// Plan() call: a non-rerunnable action whose Pre keeps holding after it
// runs must still be selected (and executed) exactly once, because the
// executor persists its implicit "ran:<name>" effect onto the real
// blackboard between ticks.
func TestExecutorNeverReRunsNonRerunnableAction(t *testing.T) {
	ex, _ := newExecutor(planner.NewUtility(), EarlyTerminationPolicy{MaxIterations: 5})

	calls := 0
	once := &action.Action{
		Name:     "Once",
		CanRerun: false,
		Execute: func(ctx action.Context) (action.ActionStatus, error) {
			calls++
			return action.ActionStatus{Code: action.StatusSucceeded}, nil
		},
	}
	goal := &action.Goal{Name: "Unreachable", Pre: []action.Predicate{{Proposition: "cond:never"}}}
	ag := &action.Agent{Name: "test", Actions: []*action.Action{once}, Goals: []*action.Goal{goal}}
	p := New("p9", "", ag, blackboard.New(nil))

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StateStuck {
		t.Fatalf("Status() = %s, want STUCK once Once is no longer selectable", p.Status())
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1: a non-rerunnable action must not be re-selected across ticks", calls)
	}
	if !p.bb.GetCondition("ran:Once") {
		t.Fatal("executor never persisted the implicit ran:Once effect onto the blackboard")
	}
}

// TestExecutorRunIsNoopOnPausedProcess ensures an externally paused
// process is left untouched by Run rather than ticked.
func TestExecutorRunIsNoopOnPausedProcess(t *testing.T) {
	ex, _ := newExecutor(planner.NewGOAP(), EarlyTerminationPolicy{})
	ag := &action.Agent{Name: "test"}
	p := New("p8", "", ag, blackboard.New(nil))
	p.setStatus(StateRunning)
	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}

	if err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if p.Status() != StatePaused {
		t.Fatalf("Status() = %s, want PAUSED unchanged", p.Status())
	}
}
