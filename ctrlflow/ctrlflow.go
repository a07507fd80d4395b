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

// Package ctrlflow declares the control-flow signals of spec.md §4.4
// and §7: ReplanRequested, AwaitableResponse, and ProcessKilled. These
// are distinct from ordinary errors -- they are not caught by blanket
// error handlers (the QoS envelope) and must propagate to the
// executor (spec.md §7 Propagation). They are still Go errors (so they
// compose with errors.As/Is) but callers must check for them with
// errors.As *before* generic error handling.
package ctrlflow

import (
	"fmt"

	"github.com/flowstate-ai/agentcore/awaitable"
	"github.com/flowstate-ai/agentcore/blackboard"
)

// ReplanRequested signals that an action/tool wants the executor to
// apply a blackboard update, discard any remaining plan, and replan
// (spec.md §4.3 step 7).
type ReplanRequested struct {
	Reason  string
	Updater func(*blackboard.Blackboard)
}

func (r *ReplanRequested) Error() string {
	return fmt.Sprintf("replan requested: %s", r.Reason)
}

// AwaitableResponseException signals that execution must suspend
// pending external input (spec.md §4.3 step 6, §4.6).
type AwaitableResponseException struct {
	Awaitable *awaitable.Awaitable
}

func (a *AwaitableResponseException) Error() string {
	return fmt.Sprintf("awaiting external input: %s", a.Awaitable.ID)
}

// ProcessKilled signals cooperative external termination, checked at
// tick boundaries and before LLM/tool calls (spec.md §5).
type ProcessKilled struct {
	Reason string
}

func (p *ProcessKilled) Error() string {
	if p.Reason == "" {
		return "process killed"
	}
	return fmt.Sprintf("process killed: %s", p.Reason)
}
