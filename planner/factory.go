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

package planner

import "fmt"

// New builds a Planner for the given Type. Supervisor requires a
// non-nil Select function.
func New(t Type, sel Select) (Planner, error) {
	switch t {
	case TypeGOAP:
		return NewGOAP(), nil
	case TypeUtility:
		return NewUtility(), nil
	case TypeSupervisor:
		if sel == nil {
			return nil, fmt.Errorf("planner: supervisor planner requires a Select function")
		}
		return NewSupervisor(sel), nil
	default:
		return nil, fmt.Errorf("planner: unknown planner type %q", t)
	}
}
