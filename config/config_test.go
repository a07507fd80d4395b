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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_UnknownPlannerType(t *testing.T) {
	cfg := Default()
	cfg.PlannerType = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown planner type")
	}
}

func TestValidate_NonPositiveMaxIterations(t *testing.T) {
	cfg := Default()
	cfg.ToolLoop.MaxIterations = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a non-positive max_iterations")
	}
}

func TestValidate_UnknownPersistenceDriver(t *testing.T) {
	cfg := Default()
	cfg.Persistence.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown persistence driver")
	}
}

func TestValidate_UnknownLLMProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Name = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown llm provider")
	}
}

func TestLoader_Load_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
planner_type: utility
tool_loop:
  max_iterations: 5
llm:
  name: openai
  model: gpt-4o
persistence:
  driver: sqlite
  dsn: "agentcore.db"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlannerType != "utility" {
		t.Errorf("expected planner_type utility, got %q", cfg.PlannerType)
	}
	if cfg.ToolLoop.MaxIterations != 5 {
		t.Errorf("expected max_iterations 5, got %d", cfg.ToolLoop.MaxIterations)
	}
	// Fields absent from the file should retain Default()'s values.
	if cfg.ToolLoop.Parallel.MaxConcurrency != 4 {
		t.Errorf("expected default parallel max_concurrency 4, got %d", cfg.ToolLoop.Parallel.MaxConcurrency)
	}
	if cfg.Persistence.DSN != "agentcore.db" {
		t.Errorf("expected dsn agentcore.db, got %q", cfg.Persistence.DSN)
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}

func TestLoader_Load_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("planner_type: bogus\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation to reject an unknown planner_type")
	}
}

func TestLoader_Watch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("planner_type: goap\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := NewLoader(path, true)
	defer loader.Stop()

	reloaded := make(chan *Config, 1)
	loader.OnChange(func(cfg *Config) { reloaded <- cfg })

	if _, err := loader.Load(); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	if err := os.WriteFile(path, []byte("planner_type: utility\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.PlannerType != "utility" {
			t.Errorf("expected reloaded planner_type utility, got %q", cfg.PlannerType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestLoadDotEnv_DoesNotOverwriteExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AGENTCORE_TEST_VAR=from_file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("AGENTCORE_TEST_VAR", "from_environment")
	LoadDotEnv(path)

	if got := os.Getenv("AGENTCORE_TEST_VAR"); got != "from_environment" {
		t.Errorf("expected existing env var to survive LoadDotEnv, got %q", got)
	}
}
