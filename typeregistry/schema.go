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

package typeregistry

import "github.com/invopop/jsonschema"

// JSONSchema emits a JSON Schema document describing a DomainType, for
// use as an LLM tool-call input/output schema. Reflected types delegate
// to invopop/jsonschema's reflection; dynamic types are assembled from
// their declared Properties.
func (t *DomainType) JSONSchema() *jsonschema.Schema {
	if t.reflected != nil {
		r := &jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		return r.ReflectFromType(t.reflected)
	}

	s := &jsonschema.Schema{
		Type:        "object",
		Title:       t.OwnLabel,
		Description: t.Description,
		Properties:  jsonschema.NewProperties(),
	}
	for _, p := range t.Properties {
		prop := &jsonschema.Schema{}
		switch p.Kind {
		case PropertyScalar:
			prop.Type = "string"
		case PropertyEntity:
			prop.Type = "object"
			prop.Description = "entity of type " + p.Of
		case PropertyCollection:
			prop.Type = "array"
			prop.Items = &jsonschema.Schema{Type: "object", Description: "entity of type " + p.Of}
		}
		s.Properties.Set(p.Name, prop)
	}
	return s
}
