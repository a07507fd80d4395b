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
	"github.com/flowstate-ai/agentcore/awaitable"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/llm"
	"github.com/flowstate-ai/agentcore/tool"
)

// mergeResolvedValue reads a TypedValueRequest's answer off the
// blackboard, if present, and merges it into args under ValueKey --
// the re-invocation half of spec.md §4.6 ("the value is placed on the
// blackboard and the tool is re-invoked"). Non-TypedValueRequest gates
// pass args through unchanged.
func mergeResolvedValue(bb *blackboard.Blackboard, args map[string]any, gate tool.AwaitableGate) map[string]any {
	tv, ok := gate.(*tool.TypedValueRequest)
	if !ok {
		return args
	}
	v, present := bb.Get(tv.ValueKey)
	if !present {
		return args
	}
	merged := make(map[string]any, len(args)+1)
	for k, val := range args {
		merged[k] = val
	}
	merged[tv.ValueKey] = v
	return merged
}

// alreadyConfirmed reports whether a Confirming gate's tool call was
// already answered (the "confirmed:<tool>" condition set by
// gateAwaitable's OnResponse). Non-Confirming gates are never
// considered pre-confirmed -- TypedValueRequest re-derives its answer
// from mergeResolvedValue instead.
func alreadyConfirmed(bb *blackboard.Blackboard, toolName string, gate tool.AwaitableGate) bool {
	if _, ok := gate.(*tool.Confirming); !ok {
		return false
	}
	return bb.GetCondition("confirmed:" + toolName)
}

// gateAwaitable builds the Awaitable a gated tool call raises (spec.md
// §4.4 "Scoped awaitable tools"): on resolution, a TypedValueRequest's
// answer is bound onto the blackboard under its ValueKey so the
// decorator's next NeedsConfirmation check sees it; a Confirming
// answer is recorded as a "confirmed:<tool>" condition.
func gateAwaitable(processID string, tc llm.ToolCall, gate tool.AwaitableGate) *awaitable.Awaitable {
	if tv, ok := gate.(*tool.TypedValueRequest); ok {
		return awaitable.New(processID, awaitable.KindTypeRequest,
			map[string]any{"tool": tc.Name, "args": tc.Arguments, "valueKey": tv.ValueKey},
			func(response any, bb *blackboard.Blackboard) (awaitable.Outcome, error) {
				bb.Bind(tv.ValueKey, response)
				return awaitable.Updated, nil
			},
		)
	}

	return awaitable.New(processID, awaitable.KindConfirmation,
		map[string]any{"tool": tc.Name, "args": tc.Arguments},
		func(response any, bb *blackboard.Blackboard) (awaitable.Outcome, error) {
			confirmed, _ := response.(bool)
			bb.SetCondition("confirmed:"+tc.Name, confirmed)
			if confirmed {
				return awaitable.Updated, nil
			}
			return awaitable.Unchanged, nil
		},
	)
}
