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

package toolloop

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validateArguments checks a tool call's arguments against the tool's
// own schema before invoke ever reaches the tool's Call method. An
// LLM's tool-call JSON is generated, not type-checked, so a malformed
// call (wrong type, missing required field) should surface as a tool
// error the model can react to rather than a panic inside Call.
func validateArguments(toolName string, schema map[string]any, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	compiled, err := compileSchema(toolName, schema)
	if err != nil {
		// A schema the tool itself can't compile is the tool's bug, not
		// the model's; don't block the call on it.
		return nil
	}
	if err := compiled.Validate(args); err != nil {
		return fmt.Errorf("arguments for %q: %w", toolName, err)
	}
	return nil
}

func compileSchema(toolName string, schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	url := "mem://" + toolName
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}
