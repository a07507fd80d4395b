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

// Package llmselect builds the planner.Select function a Supervisor
// planner needs (spec.md §4.2c): one LLM call per planning step,
// actions exposed as tool schemas, the model's tool choice mapped
// back to the *action.Action the executor should run next.
//
// It deliberately calls llm.SPI.Call directly rather than driving a
// full toolloop.Loop: the tool loop's job is to execute a tool and
// feed its result back into the conversation, but here the executor
// -- not this package -- is the one that actually runs the chosen
// action. Routing selection through toolloop.Loop would execute the
// action twice.
package llmselect

import (
	"context"
	"fmt"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/llm"
	"github.com/flowstate-ai/agentcore/planner"
)

// Option configures New.
type Option struct {
	SPI       llm.SPI
	Bus       *eventbus.Bus
	ProcessID string
}

// ErrUnknownChoice is raised when the model names a tool that does not
// match any declared action.
type ErrUnknownChoice struct{ Name string }

func (e *ErrUnknownChoice) Error() string {
	return fmt.Sprintf("llmselect: model chose unknown action %q", e.Name)
}

// New builds a planner.Select bound to ctx and opt. The returned
// function issues one SPI.Call per invocation: the system message
// summarizes the world state's true propositions and the declared
// goals, and every action selectable in that world state is offered
// as a tool. A reply with no tool calls is read as "no action to
// take" (mirrors toolloop.Run's own stop condition); a reply naming
// an action is mapped back by name.
func New(ctx context.Context, opt Option) planner.Select {
	return func(world map[string]bool, actions []*action.Action, goals []*action.Goal) (*action.Action, error) {
		selectable := make([]*action.Action, 0, len(actions))
		defs := make([]llm.ToolDefinition, 0, len(actions))
		for _, a := range actions {
			if !a.Selectable(world) {
				continue
			}
			selectable = append(selectable, a)
			defs = append(defs, llm.ToolDefinition{
				Name:        a.Name,
				Description: a.Description,
				Parameters:  schemaOf(a),
			})
		}
		if len(defs) == 0 {
			return nil, nil
		}

		messages := []llm.Message{
			{Role: "system", Content: systemPrompt(world, goals)},
			{Role: "user", Content: "Choose the single best next action, or stop if nothing more should run."},
		}

		if opt.Bus != nil {
			opt.Bus.Emit(opt.ProcessID, eventbus.KindLLMRequest, map[string]any{"candidates": len(defs)})
		}
		resp, err := opt.SPI.Call(ctx, messages, defs)
		if err != nil {
			return nil, fmt.Errorf("llmselect: call: %w", err)
		}
		if opt.Bus != nil {
			opt.Bus.Emit(opt.ProcessID, eventbus.KindLLMResponse, map[string]any{"tool_calls": len(resp.Message.ToolCalls)})
		}

		if len(resp.Message.ToolCalls) == 0 {
			return nil, nil
		}
		choice := resp.Message.ToolCalls[0]
		for _, a := range selectable {
			if a.Name == choice.Name {
				return a, nil
			}
		}
		return nil, &ErrUnknownChoice{Name: choice.Name}
	}
}

// schemaOf turns an action's declared inputs into a JSON-schema
// object, one string property per binding (name, falling back to
// type when the binding is positional).
func schemaOf(a *action.Action) map[string]any {
	props := make(map[string]any, len(a.Inputs))
	for _, in := range a.Inputs {
		key := in.Name
		if key == "" {
			key = in.Type
		}
		props[key] = map[string]any{"type": "string", "description": in.Type}
	}
	return map[string]any{"type": "object", "properties": props}
}

// systemPrompt renders the world state's true propositions and the
// agent's goals into a textual brief for the model.
func systemPrompt(world map[string]bool, goals []*action.Goal) string {
	s := "World state:\n"
	for k, v := range world {
		if v {
			s += "- " + k + "\n"
		}
	}
	s += "Goals:\n"
	for _, g := range goals {
		s += fmt.Sprintf("- %s (value %.2f): %s\n", g.Name, g.Value, g.Description)
	}
	return s
}
