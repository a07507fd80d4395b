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

// Package toolloop implements the Tool Loop (C7): the sequential and
// parallel LLM tool-calling drivers of spec.md §4.4, grounded on
// pkg/agent/llmagent's Flow (outer MaxIterations loop, inner
// one-step LLM-call-then-tool-execution, HITL approval short-circuit).
package toolloop

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/ctrlflow"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/llm"
	"github.com/flowstate-ai/agentcore/tool"
)

// DefaultMaxIterations is the spec.md §4.4 step 6 default cap.
const DefaultMaxIterations = 20

// OutputParser converts the final assistant text into the caller's
// desired return shape (spec.md §4.4 step 3).
type OutputParser func(text string) (any, error)

// Result is what Run/RunParallel produce once the loop stops calling
// tools (or gives up).
type Result struct {
	Output   any
	Messages []llm.Message
	Usage    llm.Usage
}

// ErrMaxIterationsExceeded is spec.md §4.4 step 6.
type ErrMaxIterationsExceeded struct{ MaxIterations int }

func (e *ErrMaxIterationsExceeded) Error() string {
	return fmt.Sprintf("toolloop: exceeded max iterations (%d)", e.MaxIterations)
}

// Loop drives one LLM tool-calling session. The zero value is not
// usable; construct with New.
type Loop struct {
	LLM           llm.SPI
	Bus           *eventbus.Bus
	ProcessID     string
	MaxIterations int
	Parallel      ParallelConfig

	// Model names the encoding estimatedTokens uses; empty falls back
	// to cl100k_base (llm.CountTokens).
	Model string
}

// New builds a sequential-mode Loop. Set Parallel.Enabled on the
// returned Loop to switch to fan-out mode for each LLM response.
func New(spi llm.SPI, bus *eventbus.Bus, processID string) *Loop {
	return &Loop{LLM: spi, Bus: bus, ProcessID: processID, MaxIterations: DefaultMaxIterations}
}

// Run drives the loop: call LLM, accumulate usage, and either parse the
// final text or dispatch tool calls, until the model stops calling
// tools or MaxIterations is hit (spec.md §4.4 steps 1-6).
func (l *Loop) Run(ctx context.Context, bb *blackboard.Blackboard, messages []llm.Message, registry *tool.Registry, parse OutputParser) (Result, error) {
	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	history := append([]llm.Message(nil), messages...)
	var usage llm.Usage

	for iteration := 0; iteration < maxIter; iteration++ {
		if ctx.Err() != nil {
			return Result{Messages: history, Usage: usage}, ctx.Err()
		}

		l.emit(eventbus.KindLLMRequest, map[string]any{
			"iteration":        iteration,
			"messages":         len(history),
			"estimated_tokens": estimatedTokens(l.Model, history),
		})
		resp, err := l.LLM.Call(ctx, history, definitionsOf(registry))
		if err != nil {
			return Result{Messages: history, Usage: usage}, fmt.Errorf("toolloop: llm call: %w", err)
		}
		l.emit(eventbus.KindLLMResponse, map[string]any{"iteration": iteration, "tool_calls": len(resp.Message.ToolCalls)})

		usage = usage.Add(resp.Usage)
		history = append(history, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			out, err := parse(resp.TextContent)
			return Result{Output: out, Messages: history, Usage: usage}, err
		}

		var err2 error
		if l.Parallel.Enabled {
			history, registry, err2 = l.runParallel(ctx, bb, resp.Message.ToolCalls, history, registry)
		} else {
			history, registry, err2 = l.runSequential(ctx, bb, resp.Message.ToolCalls, history, registry)
		}
		if err2 != nil {
			return Result{Messages: history, Usage: usage}, err2
		}
	}

	return Result{Messages: history, Usage: usage}, &ErrMaxIterationsExceeded{MaxIterations: maxIter}
}

// runSequential executes spec.md §4.4 step 4 in declared order, one
// tool call at a time.
func (l *Loop) runSequential(ctx context.Context, bb *blackboard.Blackboard, calls []llm.ToolCall, history []llm.Message, registry *tool.Registry) ([]llm.Message, *tool.Registry, error) {
	for _, tc := range calls {
		content, nextRegistry, err := l.invoke(ctx, bb, tc, registry)
		if err != nil {
			return history, registry, err
		}
		registry = nextRegistry
		history = append(history, llm.Message{Role: "tool", Content: content, ToolCallID: tc.ID, Name: tc.Name})
	}
	return history, registry, nil
}

// invoke looks up and calls one tool, applying the awaitable-gate check
// (spec.md §4.4 "Scoped awaitable tools") and progressive disclosure
// (spec.md §4.4 "Matryoshka") on success. Returns the history-ready
// content string (step 4c) and the registry as it should read for the
// next tool call.
func (l *Loop) invoke(ctx context.Context, bb *blackboard.Blackboard, tc llm.ToolCall, registry *tool.Registry) (string, *tool.Registry, error) {
	t, ok := registry.Get(tc.Name)
	if !ok {
		return "", registry, &tool.ErrToolNotFound{Name: tc.Name}
	}
	callable, ok := t.(tool.Callable)
	if !ok {
		return "", registry, &tool.ErrToolNotFound{Name: tc.Name}
	}
	if err := validateArguments(tc.Name, t.Schema(), tc.Arguments); err != nil {
		return "Error: " + err.Error(), registry, nil
	}

	args := tc.Arguments
	if gate, ok := callable.(tool.AwaitableGate); ok {
		args = mergeResolvedValue(bb, args, gate)
		if !alreadyConfirmed(bb, tc.Name, gate) && gate.NeedsConfirmation(args) {
			return "", registry, &ctrlflow.AwaitableResponseException{Awaitable: gateAwaitable(l.ProcessID, tc, gate)}
		}
	}

	l.emit(eventbus.KindToolCallRequest, map[string]any{"tool": tc.Name, "args": args})
	result, err := callable.Call(ctx, args)
	if err != nil {
		if isControlFlow(err) {
			return "", registry, err
		}
		return "Error: " + err.Error(), registry, nil
	}
	l.emit(eventbus.KindToolCallResponse, map[string]any{"tool": tc.Name, "is_error": result.IsError()})

	if result.IsError() {
		return "Error: " + result.Err, registry, nil
	}

	if m, ok := t.(tool.Matryoshka); ok {
		var removals []string
		if m.RemoveOnInvoke() {
			removals = []string{m.Name()}
		}
		registry = registry.With(m.InnerTools(tc.Arguments), removals)
	}

	return result.Content, registry, nil
}

func (l *Loop) emit(kind eventbus.Kind, payload any) {
	if l.Bus == nil {
		return
	}
	l.Bus.Emit(l.ProcessID, kind, payload)
}

func isControlFlow(err error) bool {
	var a *ctrlflow.AwaitableResponseException
	var r *ctrlflow.ReplanRequested
	var k *ctrlflow.ProcessKilled
	return errors.As(err, &a) || errors.As(err, &r) || errors.As(err, &k)
}

// estimatedTokens sums a rough per-message token count across history,
// for request-size observability only -- not the billing figure
// llm.Usage reports back from the provider after the call completes.
func estimatedTokens(model string, history []llm.Message) int {
	total := 0
	for _, m := range history {
		total += llm.CountTokens(model, m.Content)
	}
	return total
}

func definitionsOf(registry *tool.Registry) []llm.ToolDefinition {
	all := registry.All()
	out := make([]llm.ToolDefinition, len(all))
	for i, t := range all {
		out[i] = llm.ToolDefinition{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()}
	}
	return out
}
