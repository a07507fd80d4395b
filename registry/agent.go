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
	"fmt"

	"github.com/flowstate-ai/agentcore/action"
)

// AgentRegistry resolves Agent bundles by name (spec.md §9, "Agent
// registry / discovery"): the platform-wide name -> descriptor map
// agents are looked up through rather than held as direct pointers
// between one another.
type AgentRegistry struct {
	*BaseRegistry[*action.Agent]
}

// NewAgentRegistry returns an empty AgentRegistry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{BaseRegistry: NewBaseRegistry[*action.Agent]()}
}

// Register validates ag (spec.md §3 Agent invariants: every action's
// referenced conditions must be declared, every goal's Pre likewise)
// before adding it under ag.Name, so a malformed agent never enters
// the registry for some other agent to resolve.
func (r *AgentRegistry) Register(ag *action.Agent) error {
	if err := ag.Validate(); err != nil {
		return fmt.Errorf("registry: agent %q failed validation: %w", ag.Name, err)
	}
	return r.BaseRegistry.Register(ag.Name, ag)
}
