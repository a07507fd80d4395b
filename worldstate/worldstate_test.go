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

package worldstate

import (
	"testing"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/typeregistry"
)

type widget struct{ Name string }

func TestProjectReflectsBlackboardAndConditions(t *testing.T) {
	types := typeregistry.New()
	if _, err := types.RegisterReflected("Widget", widget{}); err != nil {
		t.Fatalf("RegisterReflected: %v", err)
	}
	conditions := []*action.Condition{{Name: "approved"}}
	p := New(types, conditions)

	b := blackboard.New(types)
	world := p.Project(b, nil)
	if world[action.HasValueProposition("Widget")] {
		t.Error("expected has:Widget false on empty blackboard")
	}
	if world[action.ConditionProposition("approved")] {
		t.Error("expected cond:approved false by default")
	}

	b.AddObject(widget{Name: "gizmo"})
	b.SetCondition("approved", true)
	world = p.Project(b, []string{"DoThing"})

	if !world[action.HasValueProposition("Widget")] {
		t.Error("expected has:Widget true after AddObject")
	}
	if !world[action.ConditionProposition("approved")] {
		t.Error("expected cond:approved true after SetCondition")
	}
	if world["ran:DoThing"] {
		t.Error("expected ran:DoThing false before any run")
	}
}

func TestProjectComputedCondition(t *testing.T) {
	types := typeregistry.New()
	conditions := []*action.Condition{{
		Name:     "always_true",
		Evaluate: func(world map[string]bool) bool { return true },
	}}
	p := New(types, conditions)
	b := blackboard.New(types)
	world := p.Project(b, nil)
	if !world[action.ConditionProposition("always_true")] {
		t.Error("computed condition should evaluate to true")
	}
}
