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

package openai

import "fmt"

// Config holds the settings needed to reach an OpenAI-compatible chat
// completions endpoint. A nil *float32 Temperature leaves the API
// default in place, matching the go-openai SDK's zero-value handling.
type Config struct {
	APIKey      string
	BaseURL     string // empty uses the SDK default (api.openai.com)
	Model       string
	Temperature *float32
	MaxTokens   int
	MaxRetries  int // transport-level retries; QoS retries happen above this, in the process executor
	TimeoutSecs int
}

// Validate reports whether c is usable to construct a Client.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("openai: APIKey is required")
	}
	if c.Model == "" {
		return fmt.Errorf("openai: Model is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("openai: MaxRetries cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}
