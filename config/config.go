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

// Package config loads the recognized options of spec.md §6
// Configuration -- planner type, verbosity, early-termination
// thresholds, tool-loop iteration/parallelism limits, QoS defaults,
// LLM provider selection, persistence DSN, event sinks -- modeled
// directly on pkg/config: layered koanf loading, a
// mapstructure/yaml-tagged document, and a fsnotify-driven watch.
package config

import (
	"fmt"
	"time"
)

// Verbosity controls how much of a process's internals are surfaced,
// per spec.md §6.
type Verbosity struct {
	ShowPrompts     bool `yaml:"show_prompts"`
	ShowLLMResponse bool `yaml:"show_llm_responses"`
	ShowLongPlans   bool `yaml:"show_long_plans"`
	Debug           bool `yaml:"debug"`
}

// EarlyTermination bounds a process's run (spec.md §4.3). A zero or
// absent field means that dimension is unbounded.
type EarlyTermination struct {
	MaxActions   int           `yaml:"max_actions"`
	MaxWallClock time.Duration `yaml:"max_wall_clock"`
	MaxCost      float64       `yaml:"max_cost"`
}

// ParallelToolLoop configures the fan-out mode of spec.md §4.4.
type ParallelToolLoop struct {
	Enabled        bool          `yaml:"enabled"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	PerToolTimeout time.Duration `yaml:"per_tool_timeout"`
	BatchTimeout   time.Duration `yaml:"batch_timeout"`
}

// ToolLoop configures the inner LLM-turn driver of spec.md §4.4.
type ToolLoop struct {
	MaxIterations int              `yaml:"max_iterations"`
	Parallel      ParallelToolLoop `yaml:"parallel"`
}

// QoSDefaults holds configured retry-envelope values (spec.md §4.3
// step 5). They are decoded from the document only: no package in
// this module applies them to an action's QoS, so an action that
// leaves MaxAttempts at zero runs exactly once.
type QoSDefaults struct {
	MaxAttempts   int   `yaml:"max_attempts"`
	BackoffMillis int64 `yaml:"backoff_millis"`
}

// LLMProvider selects and credentials one LLM SPI adapter (llm/openai,
// llm/gemini).
type LLMProvider struct {
	Name        string  `yaml:"name"` // "openai" | "gemini"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Persistence selects the opaque store backend (spec.md §6
// Persistence).
type Persistence struct {
	Driver string `yaml:"driver"` // "memory" | "sqlite"
	DSN    string `yaml:"dsn,omitempty"`
}

// EventSinks enables the optional eventbus listeners.
type EventSinks struct {
	Metrics bool `yaml:"metrics"`
	Tracing bool `yaml:"tracing"`
}

// JWTAuth gates the HTTP surface behind bearer-token validation
// against an external provider's JWKS endpoint. An empty JWKSURL
// leaves the server unauthenticated -- the zero-configuration default
// for local use and for the CLI's run/validate commands.
type JWTAuth struct {
	JWKSURL  string `yaml:"jwks_url,omitempty"`
	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`
}

// RateLimit caps process-creation requests per remote identifier over
// a fixed window. Limit <= 0 disables it.
type RateLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// HTTP configures the optional server-side middleware the HTTP
// surface layers over its routes.
type HTTP struct {
	Auth      JWTAuth   `yaml:"auth"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Config is the top-level recognized document of spec.md §6
// Configuration, decoded from YAML via koanf/mapstructure.
type Config struct {
	PlannerType      string           `yaml:"planner_type"` // "goap" | "utility" | "supervisor"
	Verbosity        Verbosity        `yaml:"verbosity"`
	EarlyTermination EarlyTermination `yaml:"early_termination"`
	ToolLoop         ToolLoop         `yaml:"tool_loop"`
	QoSDefaults      QoSDefaults      `yaml:"qos_defaults"`
	LLM              LLMProvider      `yaml:"llm"`
	Persistence      Persistence      `yaml:"persistence"`
	Events           EventSinks       `yaml:"events"`
	HTTP             HTTP             `yaml:"http"`
	LogLevel         string           `yaml:"log_level"`
}

// Default returns the zero-configuration baseline: GOAP planning, no
// early termination, 20-iteration sequential tool loop, a single
// attempt (no retry) per action, an in-memory store, info logging.
func Default() *Config {
	return &Config{
		PlannerType: "goap",
		ToolLoop: ToolLoop{
			MaxIterations: 20,
			Parallel: ParallelToolLoop{
				MaxConcurrency: 4,
				PerToolTimeout: 30 * time.Second,
				BatchTimeout:   2 * time.Minute,
			},
		},
		QoSDefaults: QoSDefaults{MaxAttempts: 1, BackoffMillis: 0},
		Persistence: Persistence{Driver: "memory"},
		LogLevel:    "info",
	}
}

// Validate rejects a document that names an unknown planner, a
// non-positive iteration cap, or an unknown persistence driver --
// structural checks the koanf strict-decode step can't express.
func (c *Config) Validate() error {
	switch c.PlannerType {
	case "goap", "utility", "supervisor":
	default:
		return fmt.Errorf("config: unknown planner_type %q", c.PlannerType)
	}
	if c.ToolLoop.MaxIterations <= 0 {
		return fmt.Errorf("config: tool_loop.max_iterations must be positive")
	}
	switch c.Persistence.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown persistence.driver %q", c.Persistence.Driver)
	}
	if c.LLM.Name != "" {
		switch c.LLM.Name {
		case "openai", "gemini":
		default:
			return fmt.Errorf("config: unknown llm.name %q", c.LLM.Name)
		}
	}
	return nil
}
