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

	"github.com/flowstate-ai/agentcore/tool"
)

func TestToolGroupRegistryResolveByRole(t *testing.T) {
	reg := NewToolGroupRegistry()
	web := &tool.Group{
		Role:        "web-research",
		Name:        "web-tools",
		Provider:    "internal",
		Version:     "1.0.0",
		Permissions: map[tool.Permission]bool{tool.PermissionInternetAccess: true},
	}
	if err := reg.Register(web); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := reg.ResolveByRole("web-research")
	if err != nil {
		t.Fatalf("ResolveByRole(web-research): %v", err)
	}
	if got != web {
		t.Fatalf("ResolveByRole(web-research) = %v, want the registered group", got)
	}
	if !got.HasPermission(tool.PermissionInternetAccess) {
		t.Fatalf("resolved group missing INTERNET_ACCESS permission")
	}

	if _, err := reg.ResolveByRole("no-such-role"); err == nil {
		t.Fatalf("ResolveByRole(no-such-role): want failure message, got nil error")
	}
}
