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

package toolloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/ctrlflow"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/llm"
	"github.com/flowstate-ai/agentcore/tool"
)

// ParallelConfig switches a Loop from the sequential tool dispatch of
// spec.md §4.4 step 4 to the "Parallel mode" fan-out described in the
// same section: a model turn's tool calls run concurrently, bounded by
// MaxConcurrency, each subject to PerToolTimeout, the whole batch
// subject to BatchTimeout. Zero values mean "unbounded"/"no timeout".
type ParallelConfig struct {
	Enabled        bool
	MaxConcurrency int
	PerToolTimeout time.Duration
	BatchTimeout   time.Duration
}

// parallelOutcome holds one tool call's result, recorded by declared
// index so the batch can be assembled in call order regardless of
// which goroutine finished first.
type parallelOutcome struct {
	content    string
	t          tool.Tool
	inner      []tool.Tool
	removeName string
}

// runParallel executes spec.md §4.4's parallel mode: every call in
// calls runs concurrently (bounded by Parallel.MaxConcurrency); the
// first ReplanRequested/AwaitableResponseException/ProcessKilled
// observed wins and is returned to the caller once the whole batch has
// finished -- every other tool's call still runs to completion and its
// result is still appended to history, but only the first control-flow
// signal drives the executor's next step. Results are appended to
// history in declared order, not completion order.
func (l *Loop) runParallel(ctx context.Context, bb *blackboard.Blackboard, calls []llm.ToolCall, history []llm.Message, registry *tool.Registry) ([]llm.Message, *tool.Registry, error) {
	batchCtx := ctx
	if l.Parallel.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, l.Parallel.BatchTimeout)
		defer cancel()
	}

	results := make([]parallelOutcome, len(calls))

	var mu sync.Mutex
	var firstControlErr error

	g, gctx := errgroup.WithContext(batchCtx)
	if l.Parallel.MaxConcurrency > 0 {
		g.SetLimit(l.Parallel.MaxConcurrency)
	}

	for i, tc := range calls {
		i, tc := i, tc
		g.Go(func() error {
			callCtx := gctx
			if l.Parallel.PerToolTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, l.Parallel.PerToolTimeout)
				defer cancel()
			}

			content, t, inner, removeName, err := l.invokeOne(callCtx, bb, tc, registry)
			if err != nil && isAbortive(err) {
				mu.Lock()
				if firstControlErr == nil {
					firstControlErr = err
				}
				mu.Unlock()
				content = "suspended: " + err.Error()
			} else if err != nil {
				content = "Error: " + err.Error()
			}

			results[i] = parallelOutcome{content: content, t: t, inner: inner, removeName: removeName}
			return nil
		})
	}
	// g.Go never returns a non-nil error (failures are captured via
	// firstControlErr instead), so every call runs to completion even
	// though gctx is shared -- Wait's error is always nil here.
	_ = g.Wait()

	for i, tc := range calls {
		r := results[i]
		history = append(history, llm.Message{Role: "tool", Content: r.content, ToolCallID: tc.ID, Name: tc.Name})
		if r.t != nil {
			var removals []string
			if r.removeName != "" {
				removals = []string{r.removeName}
			}
			registry = registry.With(r.inner, removals)
		}
	}

	return history, registry, firstControlErr
}

// isAbortive reports whether err should win the batch's "first signal
// wins" race rather than become ordinary "Error: ..." tool output: the
// three ctrlflow signals, plus ErrToolNotFound, which runSequential
// also propagates as a real error rather than inline tool content.
func isAbortive(err error) bool {
	if isControlFlow(err) {
		return true
	}
	var notFound *tool.ErrToolNotFound
	return errors.As(err, &notFound)
}

// invokeOne is invoke's body minus registry mutation: in parallel mode
// each call must not race on a shared *tool.Registry, so the
// Matryoshka expansion it would trigger is reported back to the caller
// and applied sequentially once the whole batch completes.
func (l *Loop) invokeOne(ctx context.Context, bb *blackboard.Blackboard, tc llm.ToolCall, registry *tool.Registry) (content string, t tool.Tool, inner []tool.Tool, removeName string, err error) {
	t, ok := registry.Get(tc.Name)
	if !ok {
		return "", nil, nil, "", &tool.ErrToolNotFound{Name: tc.Name}
	}
	callable, ok := t.(tool.Callable)
	if !ok {
		return "", nil, nil, "", &tool.ErrToolNotFound{Name: tc.Name}
	}
	if err := validateArguments(tc.Name, t.Schema(), tc.Arguments); err != nil {
		return "Error: " + err.Error(), nil, nil, "", nil
	}

	args := tc.Arguments
	if gate, ok := callable.(tool.AwaitableGate); ok {
		args = mergeResolvedValue(bb, args, gate)
		if !alreadyConfirmed(bb, tc.Name, gate) && gate.NeedsConfirmation(args) {
			return "", t, nil, "", &ctrlflow.AwaitableResponseException{Awaitable: gateAwaitable(l.ProcessID, tc, gate)}
		}
	}

	l.emit(eventbus.KindToolCallRequest, map[string]any{"tool": tc.Name, "args": args})
	result, callErr := callable.Call(ctx, args)
	if callErr != nil {
		return "", t, nil, "", callErr
	}
	l.emit(eventbus.KindToolCallResponse, map[string]any{"tool": tc.Name, "is_error": result.IsError()})

	if result.IsError() {
		return "", t, nil, "", errors.New(result.Err)
	}

	if m, ok := t.(tool.Matryoshka); ok {
		if m.RemoveOnInvoke() {
			removeName = m.Name()
		}
		inner = m.InnerTools(tc.Arguments)
	}

	return result.Content, t, inner, removeName, nil
}
