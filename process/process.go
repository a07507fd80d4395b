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

// Package process implements the Agent Process Executor (C6): the
// state machine and per-tick algorithm of spec.md §4.3, grounded on
// the pkg/task (state/history bookkeeping) and pkg/runner
// (the driving loop and its deferred-cleanup shape).
package process

import (
	"fmt"
	"sync"
	"time"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/blackboard"
)

// State is one node of the spec.md §4.3 state machine.
type State string

const (
	StateReady     State = "READY"
	StateRunning   State = "RUNNING"
	StateWaiting   State = "WAITING"
	StatePaused    State = "PAUSED"
	StateStuck     State = "STUCK"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateKilled    State = "KILLED"
)

// IsTerminal reports whether s has no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateKilled:
		return true
	default:
		return false
	}
}

// HistoryEntry records one completed tick's outcome, in the order the
// executor produced them (spec.md §4.3 step 8 "executor appends to
// history").
type HistoryEntry struct {
	ActionName string
	Status     action.ActionStatus
	Err        string
	Timestamp  time.Time
}

// Process is one running instance of an Agent over a Blackboard
// (spec.md §3 Agent Process): mutable state the executor drives one
// tick at a time.
type Process struct {
	mu sync.RWMutex

	id       string
	parentID string
	agent    *action.Agent
	bb       *blackboard.Blackboard

	status        State
	createdAt     time.Time
	startedAt     time.Time
	iterations    int
	costSpent     float64
	history       []HistoryEntry
	failureReason string

	pendingAwaitableID string
}

// New creates a process over agent and bb in state READY. parentID is
// "" for a root process (spec.md §3 Agent Process "optional parent
// process id", used by sub-agent delegation).
func New(id, parentID string, ag *action.Agent, bb *blackboard.Blackboard) *Process {
	return &Process{
		id:        id,
		parentID:  parentID,
		agent:     ag,
		bb:        bb,
		status:    StateReady,
		createdAt: time.Now(),
	}
}

func (p *Process) ID() string             { return p.id }
func (p *Process) ParentID() string        { return p.parentID }
func (p *Process) Agent() *action.Agent    { return p.agent }
func (p *Process) Blackboard() *blackboard.Blackboard { return p.bb }

// Status returns the current state.
func (p *Process) Status() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Process) setStatus(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

// RunningTime is wall-clock elapsed since the first RUNNING transition,
// zero if the process has never run.
func (p *Process) RunningTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.startedAt.IsZero() {
		return 0
	}
	return time.Since(p.startedAt)
}

// Iterations returns the number of ticks executed so far.
func (p *Process) Iterations() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.iterations
}

// CostSpent returns the accumulated cost of executed actions.
func (p *Process) CostSpent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.costSpent
}

// History returns a snapshot copy of the executed-tick history.
func (p *Process) History() []HistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]HistoryEntry, len(p.history))
	copy(out, p.history)
	return out
}

// FailureReason returns the reason recorded when the process entered
// FAILED, STUCK or KILLED, or "" otherwise.
func (p *Process) FailureReason() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failureReason
}

func (p *Process) appendHistory(e HistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, e)
}

func (p *Process) addCost(c float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.costSpent += c
}

func (p *Process) incrementIterations() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iterations++
}

func (p *Process) fail(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StateFailed
	p.failureReason = reason
}

func (p *Process) stuck(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StateStuck
	p.failureReason = reason
}

// Pause transitions a RUNNING or WAITING process to PAUSED (external
// control, spec.md §4.3 diagram). Refuses on a terminal process.
func (p *Process) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.IsTerminal() {
		return fmt.Errorf("process %s: cannot pause a terminal process (%s)", p.id, p.status)
	}
	p.status = StatePaused
	return nil
}

// Resume transitions a PAUSED process back to RUNNING.
func (p *Process) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatePaused {
		return fmt.Errorf("process %s: cannot resume from state %s", p.id, p.status)
	}
	p.status = StateRunning
	return nil
}

// Kill transitions any non-terminal process to KILLED (spec.md §5,
// ctrlflow.ProcessKilled). Idempotent once already terminal.
func (p *Process) Kill(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.IsTerminal() {
		return
	}
	p.status = StateKilled
	p.failureReason = reason
}

// pendingAwaitable returns the awaitable ID stored at the last WAITING
// transition, or "".
func (p *Process) pendingAwaitable() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pendingAwaitableID
}

func (p *Process) wait(awaitableID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StateWaiting
	p.pendingAwaitableID = awaitableID
}

// Wake transitions a WAITING process back to RUNNING after its
// awaitable resolves (spec.md §4.6 "resumes by transitioning
// WAITING->RUNNING").
func (p *Process) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StateWaiting {
		return fmt.Errorf("process %s: cannot wake from state %s", p.id, p.status)
	}
	p.status = StateRunning
	p.pendingAwaitableID = ""
	return nil
}
