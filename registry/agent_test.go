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

package registry

import (
	"testing"

	"github.com/flowstate-ai/agentcore/action"
)

func TestAgentRegistryRegisterValidatesFirst(t *testing.T) {
	reg := NewAgentRegistry()

	valid := &action.Agent{Name: "researcher"}
	if err := reg.Register(valid); err != nil {
		t.Fatalf("Register(valid): %v", err)
	}
	if got, ok := reg.Get("researcher"); !ok || got != valid {
		t.Fatalf("Get(researcher) = %v, %v", got, ok)
	}

	invalid := &action.Agent{
		Name: "broken",
		Goals: []*action.Goal{{
			Name: "g",
			Pre:  []action.Predicate{{Proposition: "cond:undeclared"}},
		}},
	}
	if err := reg.Register(invalid); err == nil {
		t.Fatalf("Register(invalid): want error for undeclared condition reference, got nil")
	}
	if _, ok := reg.Get("broken"); ok {
		t.Fatalf("Get(broken): invalid agent should never have been registered")
	}
}

func TestAgentRegistryRejectsDuplicateName(t *testing.T) {
	reg := NewAgentRegistry()
	if err := reg.Register(&action.Agent{Name: "dup"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register(&action.Agent{Name: "dup"}); err == nil {
		t.Fatalf("second Register(dup): want error, got nil")
	}
}
