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

	"gopkg.in/yaml.v3"

	"github.com/flowstate-ai/agentcore/action"
)

// Document is the YAML-decodable shape of an Agent bundle
// (SPEC_FULL.md §3 domain stack: "gopkg.in/yaml.v3 ... agent bundle
// definitions (Agent loaded from YAML)"), modeled on
// pkg/config.AgentConfig field/tag style. Unlike that document, which
// also configures LLM/tool/instruction wiring that this
// platform leaves to its builder callers, Document only carries the
// declarative parts of spec.md §3 Agent that have no Go-function
// payload: goals and conditions. Actions -- which carry an Execute
// func -- are supplied by the caller (typically built in code or by a
// higher-level loader that maps a tool/action name to a registered Go
// implementation) and merged in by Build.
type Document struct {
	Name        string           `yaml:"name"`
	Provider    string           `yaml:"provider,omitempty"`
	Version     string           `yaml:"version,omitempty"`
	Description string           `yaml:"description,omitempty"`
	Goals       []GoalDocument   `yaml:"goals,omitempty"`
	Conditions  []string         `yaml:"conditions,omitempty"`
	Opaque      map[string]any   `yaml:"opaque,omitempty"`
}

// PredicateDocument is one entry of a goal's pre-condition list.
type PredicateDocument struct {
	Proposition string `yaml:"proposition"`
	Negate      bool   `yaml:"negate,omitempty"`
}

// GoalDocument is the YAML shape of an action.Goal.
type GoalDocument struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	OutputType  string              `yaml:"output_type,omitempty"`
	Pre         []PredicateDocument `yaml:"pre,omitempty"`
	Value       float64             `yaml:"value,omitempty"`
}

// DecodeDocument parses a YAML agent bundle document.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registry: decode agent document: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("registry: agent document missing name")
	}
	return &doc, nil
}

// Build combines the document's declarative goals/conditions with
// caller-supplied actions (which carry the Execute closures YAML
// cannot express) into a validated *action.Agent.
func (d *Document) Build(actions []*action.Action) (*action.Agent, error) {
	ag := &action.Agent{
		Name:        d.Name,
		Provider:    d.Provider,
		Version:     d.Version,
		Description: d.Description,
		Actions:     actions,
		Opaque:      d.Opaque,
	}
	for _, name := range d.Conditions {
		ag.Conditions = append(ag.Conditions, &action.Condition{Name: name})
	}
	for _, g := range d.Goals {
		goal := &action.Goal{
			Name:        g.Name,
			Description: g.Description,
			OutputType:  g.OutputType,
			Value:       g.Value,
		}
		for _, p := range g.Pre {
			goal.Pre = append(goal.Pre, action.Predicate{Proposition: p.Proposition, Negate: p.Negate})
		}
		ag.Goals = append(ag.Goals, goal)
	}
	if err := ag.Validate(); err != nil {
		return nil, err
	}
	return ag, nil
}
