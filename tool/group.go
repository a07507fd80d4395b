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

package tool

// Permission is one of the capability grants a tool group may carry
// (spec.md §6 "a group has metadata ... permissions: Set<{HOST_ACCESS,
// INTERNET_ACCESS}>").
type Permission string

const (
	PermissionHostAccess     Permission = "HOST_ACCESS"
	PermissionInternetAccess Permission = "INTERNET_ACCESS"
)

// Group is a named, versioned bundle of tools offered by a provider
// under a role, gating access the way the pkg/auth gates
// endpoints by claimed Role (spec.md §6 "Tools may be grouped").
type Group struct {
	Role        string
	Name        string
	Provider    string
	Version     string
	Permissions map[Permission]bool
	Tools       []Tool
}

// HasPermission reports whether g was granted perm.
func (g *Group) HasPermission(perm Permission) bool {
	return g.Permissions[perm]
}
