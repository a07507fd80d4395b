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
	"testing"

	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/ctrlflow"
	"github.com/flowstate-ai/agentcore/llm"
	"github.com/flowstate-ai/agentcore/tool"
	"github.com/flowstate-ai/agentcore/typeregistry"
)

func newTestBlackboard() *blackboard.Blackboard {
	return blackboard.New(typeregistry.New())
}

// scriptedSPI replays a fixed sequence of Responses, one per Call, so
// a test can script an exact conversation without a real model.
type scriptedSPI struct {
	responses []llm.Response
	calls     int
}

func (s *scriptedSPI) Call(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	if s.calls >= len(s.responses) {
		return llm.Response{}, errors.New("scriptedSPI: no more responses")
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

func (s *scriptedSPI) Transform(ctx context.Context, messages []llm.Message, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	return llm.Response{}, errors.New("scriptedSPI: Transform not scripted")
}

func (s *scriptedSPI) StreamText(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (<-chan string, <-chan llm.Response, error) {
	return nil, nil, errors.New("scriptedSPI: StreamText not scripted")
}

var _ llm.SPI = (*scriptedSPI)(nil)

// echoTool returns its "value" argument, or a fixed string if absent.
type echoTool struct {
	name  string
	calls int
}

func (e *echoTool) Name() string            { return e.name }
func (e *echoTool) Description() string     { return "echoes its value argument" }
func (e *echoTool) Schema() map[string]any   { return map[string]any{} }
func (e *echoTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	e.calls++
	if v, ok := args["value"]; ok {
		return tool.Text(v.(string)), nil
	}
	return tool.Text("ok:" + e.name), nil
}

var _ tool.Callable = (*echoTool)(nil)

func finalResponse(text string) llm.Response {
	return llm.Response{Message: llm.Message{Role: "assistant", Content: text}, TextContent: text}
}

func toolCallResponse(id, name string, args map[string]any) llm.Response {
	return llm.Response{Message: llm.Message{
		Role:      "assistant",
		ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}},
	}}
}

func identityParse(text string) (any, error) { return text, nil }

func TestLoopRunSequentialHappyPath(t *testing.T) {
	spi := &scriptedSPI{responses: []llm.Response{
		toolCallResponse("1", "echo", map[string]any{"value": "hi"}),
		finalResponse("done"),
	}}
	et := &echoTool{name: "echo"}
	reg := tool.NewRegistry(et)

	l := New(spi, nil, "p1")
	res, err := l.Run(context.Background(), newTestBlackboard(), nil, reg, identityParse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != "done" {
		t.Fatalf("output = %v, want done", res.Output)
	}
	if et.calls != 1 {
		t.Fatalf("echo tool called %d times, want 1", et.calls)
	}
	// history: system(none) + assistant(tool call) + tool result + assistant(final)
	if len(res.Messages) != 3 {
		t.Fatalf("history length = %d, want 3", len(res.Messages))
	}
	if res.Messages[1].Content != "hi" || res.Messages[1].ToolCallID != "1" {
		t.Fatalf("tool result message wrong: %+v", res.Messages[1])
	}
}

func TestLoopToolNotFoundAborts(t *testing.T) {
	spi := &scriptedSPI{responses: []llm.Response{
		toolCallResponse("1", "missing", nil),
	}}
	reg := tool.NewRegistry()

	l := New(spi, nil, "p1")
	_, err := l.Run(context.Background(), newTestBlackboard(), nil, reg, identityParse)
	var notFound *tool.ErrToolNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ErrToolNotFound", err)
	}
}

func TestLoopMaxIterationsExceeded(t *testing.T) {
	resp := toolCallResponse("1", "echo", map[string]any{"value": "x"})
	spi := &scriptedSPI{responses: []llm.Response{resp, resp, resp}}
	reg := tool.NewRegistry(&echoTool{name: "echo"})

	l := New(spi, nil, "p1")
	l.MaxIterations = 3
	_, err := l.Run(context.Background(), newTestBlackboard(), nil, reg, identityParse)
	var exceeded *ErrMaxIterationsExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("err = %v, want ErrMaxIterationsExceeded", err)
	}
}

func TestLoopConfirmingGateSuspendsThenResumes(t *testing.T) {
	inner := &echoTool{name: "danger"}
	gated := &tool.Confirming{Callable: inner}
	reg := tool.NewRegistry(gated)
	bb := newTestBlackboard()

	l := New(&scriptedSPI{responses: []llm.Response{toolCallResponse("1", "danger", nil)}}, nil, "p1")

	_, err := l.Run(context.Background(), bb, nil, reg, identityParse)
	var awaitErr *ctrlflow.AwaitableResponseException
	if !errors.As(err, &awaitErr) {
		t.Fatalf("err = %v, want AwaitableResponseException", err)
	}
	if inner.calls != 0 {
		t.Fatalf("wrapped tool called before confirmation")
	}

	// Resolve the awaitable the way awaitable.Store.Resolve would:
	// invoke OnResponse directly against the blackboard.
	if _, err := awaitErr.Awaitable.OnResponse(true, bb); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	if !bb.GetCondition("confirmed:danger") {
		t.Fatalf("confirmed:danger condition not set after resolution")
	}

	l2 := New(&scriptedSPI{responses: []llm.Response{
		toolCallResponse("1", "danger", nil),
		finalResponse("done"),
	}}, nil, "p1")
	res, err := l2.Run(context.Background(), bb, nil, reg, identityParse)
	if err != nil {
		t.Fatalf("unexpected error on resume: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("wrapped tool called %d times after resume, want 1", inner.calls)
	}
	if res.Output != "done" {
		t.Fatalf("output = %v, want done", res.Output)
	}
}

func TestLoopTypedValueRequestMergesResolvedValue(t *testing.T) {
	inner := &echoTool{name: "ask"}
	gated := &tool.TypedValueRequest{Callable: inner, ValueKey: "value"}
	reg := tool.NewRegistry(gated)
	bb := newTestBlackboard()

	l := New(&scriptedSPI{responses: []llm.Response{toolCallResponse("1", "ask", nil)}}, nil, "p1")
	_, err := l.Run(context.Background(), bb, nil, reg, identityParse)
	var awaitErr *ctrlflow.AwaitableResponseException
	if !errors.As(err, &awaitErr) {
		t.Fatalf("err = %v, want AwaitableResponseException", err)
	}

	if _, err := awaitErr.Awaitable.OnResponse("42", bb); err != nil {
		t.Fatalf("OnResponse: %v", err)
	}
	if v, ok := bb.Get("value"); !ok || v != "42" {
		t.Fatalf("blackboard value = %v, %v, want 42, true", v, ok)
	}

	l2 := New(&scriptedSPI{responses: []llm.Response{
		toolCallResponse("1", "ask", nil),
		finalResponse("done"),
	}}, nil, "p1")
	res, err := l2.Run(context.Background(), bb, nil, reg, identityParse)
	if err != nil {
		t.Fatalf("unexpected error on resume: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("wrapped tool called %d times after resume, want 1", inner.calls)
	}
	if res.Messages[1].Content != "42" {
		t.Fatalf("tool result = %q, want merged value 42", res.Messages[1].Content)
	}
}

// expandingTool is a Matryoshka tool: invoking it discloses a new inner
// tool and, per RemoveOnInvoke, removes itself.
type expandingTool struct {
	name  string
	inner tool.Tool
}

func (e *expandingTool) Name() string           { return e.name }
func (e *expandingTool) Description() string    { return "expands into " + e.inner.Name() }
func (e *expandingTool) Schema() map[string]any  { return map[string]any{} }
func (e *expandingTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	return tool.Text("expanded"), nil
}
func (e *expandingTool) InnerTools(args map[string]any) []tool.Tool { return []tool.Tool{e.inner} }
func (e *expandingTool) RemoveOnInvoke() bool                       { return true }

var (
	_ tool.Callable   = (*expandingTool)(nil)
	_ tool.Matryoshka = (*expandingTool)(nil)
)

func TestLoopMatryoshkaProgressiveDisclosure(t *testing.T) {
	innerTool := &echoTool{name: "specific"}
	outer := &expandingTool{name: "broad", inner: innerTool}
	reg := tool.NewRegistry(outer)

	spi := &scriptedSPI{responses: []llm.Response{
		toolCallResponse("1", "broad", nil),
		toolCallResponse("2", "specific", map[string]any{"value": "found it"}),
		finalResponse("done"),
	}}

	l := New(spi, nil, "p1")
	res, err := l.Run(context.Background(), newTestBlackboard(), nil, reg, identityParse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerTool.calls != 1 {
		t.Fatalf("inner tool called %d times, want 1", innerTool.calls)
	}
	if res.Output != "done" {
		t.Fatalf("output = %v, want done", res.Output)
	}
}

func TestLoopParallelPreservesDeclaredOrder(t *testing.T) {
	a := &echoTool{name: "a"}
	b := &echoTool{name: "b"}
	reg := tool.NewRegistry(a, b)

	spi := &scriptedSPI{responses: []llm.Response{
		{Message: llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{
			{ID: "1", Name: "a", Arguments: map[string]any{"value": "first"}},
			{ID: "2", Name: "b", Arguments: map[string]any{"value": "second"}},
		}}},
		finalResponse("done"),
	}}

	l := New(spi, nil, "p1")
	l.Parallel = ParallelConfig{Enabled: true}
	res, err := l.Run(context.Background(), newTestBlackboard(), nil, reg, identityParse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Messages[1].Content != "first" || res.Messages[1].ToolCallID != "1" {
		t.Fatalf("message[1] = %+v, want content=first id=1", res.Messages[1])
	}
	if res.Messages[2].Content != "second" || res.Messages[2].ToolCallID != "2" {
		t.Fatalf("message[2] = %+v, want content=second id=2", res.Messages[2])
	}
}

// replanningTool always asks the executor to replan.
type replanningTool struct{ name string }

func (r *replanningTool) Name() string          { return r.name }
func (r *replanningTool) Description() string   { return "always requests a replan" }
func (r *replanningTool) Schema() map[string]any { return map[string]any{} }
func (r *replanningTool) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{}, &ctrlflow.ReplanRequested{Reason: "stale plan"}
}

var _ tool.Callable = (*replanningTool)(nil)

func TestLoopParallelFirstReplanWins(t *testing.T) {
	a := &replanningTool{name: "a"}
	b := &echoTool{name: "b"}
	reg := tool.NewRegistry(a, b)

	spi := &scriptedSPI{responses: []llm.Response{
		{Message: llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{
			{ID: "1", Name: "a"},
			{ID: "2", Name: "b", Arguments: map[string]any{"value": "still ran"}},
		}}},
	}}

	l := New(spi, nil, "p1")
	l.Parallel = ParallelConfig{Enabled: true}
	res, err := l.Run(context.Background(), newTestBlackboard(), nil, reg, identityParse)

	var replan *ctrlflow.ReplanRequested
	if !errors.As(err, &replan) {
		t.Fatalf("err = %v, want ReplanRequested", err)
	}
	if b.calls != 1 {
		t.Fatalf("tool b calls = %d, want 1 (must still run to completion)", b.calls)
	}
	if res.Messages[2].Content != "still ran" {
		t.Fatalf("message[2] = %+v, want content=still ran", res.Messages[2])
	}
}
