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

	"github.com/flowstate-ai/agentcore/tool"
)

// ToolGroupRegistry resolves tool.Group descriptors by name, and by
// the role an action declares in its ToolGroups set (spec.md §6
// "Resolution of a required group by role returns either the resolved
// group or a failure message").
type ToolGroupRegistry struct {
	*BaseRegistry[*tool.Group]
}

// NewToolGroupRegistry returns an empty ToolGroupRegistry.
func NewToolGroupRegistry() *ToolGroupRegistry {
	return &ToolGroupRegistry{BaseRegistry: NewBaseRegistry[*tool.Group]()}
}

// Register adds g under g.Name.
func (r *ToolGroupRegistry) Register(g *tool.Group) error {
	return r.BaseRegistry.Register(g.Name, g)
}

// ResolveByRole returns the first registered group whose Role matches,
// or a failure message naming the unmet role (spec.md §6).
func (r *ToolGroupRegistry) ResolveByRole(role string) (*tool.Group, error) {
	for _, g := range r.List() {
		if g.Role == role {
			return g, nil
		}
	}
	return nil, fmt.Errorf("registry: no tool group registered for role %q", role)
}
