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

package action

import "fmt"

// Agent is the immutable bundle spec.md §3 describes: a named set of
// actions, goals, and conditions plus free-form provider metadata.
type Agent struct {
	Name        string
	Provider    string
	Version     string
	Description string
	Actions     []*Action
	Goals       []*Goal
	Conditions  []*Condition
	Opaque      map[string]any
}

// Validate checks the invariants of spec.md §3 Agent: every action's
// referenced conditions must be declared, and every goal's Pre must
// reference declared conditions.
func (a *Agent) Validate() error {
	declared := make(map[string]bool, len(a.Conditions))
	for _, c := range a.Conditions {
		declared[c.Name] = true
	}

	checkPreds := func(owner string, preds []Predicate) error {
		for _, p := range preds {
			name, ok := conditionNameOf(p.Proposition)
			if !ok {
				continue // structural/has-value/ran propositions need no declaration
			}
			if !declared[name] {
				return fmt.Errorf("action/agent validate: %s references undeclared condition %q", owner, name)
			}
		}
		return nil
	}

	for _, act := range a.Actions {
		if err := checkPreds(fmt.Sprintf("action %q", act.Name), act.Pre); err != nil {
			return err
		}
	}
	for _, g := range a.Goals {
		if err := checkPreds(fmt.Sprintf("goal %q", g.Name), g.Pre); err != nil {
			return err
		}
	}
	return nil
}

const conditionPropPrefix = "cond:"

func conditionNameOf(proposition string) (string, bool) {
	if len(proposition) <= len(conditionPropPrefix) || proposition[:len(conditionPropPrefix)] != conditionPropPrefix {
		return "", false
	}
	return proposition[len(conditionPropPrefix):], true
}

// ActionByName looks up a declared action by name.
func (a *Agent) ActionByName(name string) (*Action, bool) {
	for _, act := range a.Actions {
		if act.Name == name {
			return act, true
		}
	}
	return nil, false
}
