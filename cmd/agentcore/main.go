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

// Command agentcore is the CLI front end for the platform: run one
// agent bundle to completion, serve the HTTP surface over many, or
// validate a configuration document.
//
// Usage:
//
//	agentcore serve --config config.yaml --agent-dir ./agents
//	agentcore run --agent ./agents/triage.yaml --config config.yaml
//	agentcore validate --config config.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/flowstate-ai/agentcore/action"
	"github.com/flowstate-ai/agentcore/awaitable"
	"github.com/flowstate-ai/agentcore/blackboard"
	"github.com/flowstate-ai/agentcore/config"
	"github.com/flowstate-ai/agentcore/eventbus"
	"github.com/flowstate-ai/agentcore/llm"
	"github.com/flowstate-ai/agentcore/llm/gemini"
	"github.com/flowstate-ai/agentcore/llm/openai"
	"github.com/flowstate-ai/agentcore/planner"
	"github.com/flowstate-ai/agentcore/planner/llmselect"
	"github.com/flowstate-ai/agentcore/process"
	"github.com/flowstate-ai/agentcore/registry"
	"github.com/flowstate-ai/agentcore/server"
	"github.com/flowstate-ai/agentcore/typeregistry"
	"github.com/flowstate-ai/agentcore/worldstate"
)

// CLI is the top-level kong command set.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Run one agent bundle to completion."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP surface over a directory of agent bundles."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration document."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd prints the build version, read from the module's own
// build info when available.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentcore version %s\n", version)
	return nil
}

// ValidateCmd loads --config (and, when given, an agent document) and
// reports the first validation error without starting anything.
type ValidateCmd struct {
	Agent string `help:"Path to an agent bundle YAML document to validate alongside the config." type:"path"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	if _, err := loadConfig(cli.Config); err != nil {
		return err
	}
	fmt.Println("config: ok")

	if c.Agent != "" {
		doc, err := loadAgentDocument(c.Agent)
		if err != nil {
			return err
		}
		if _, err := doc.Build(nil); err != nil {
			return fmt.Errorf("agent document invalid: %w", err)
		}
		fmt.Printf("agent %q: ok\n", doc.Name)
	}
	return nil
}

// RunCmd drives a single agent process to completion or suspension and
// prints its history.
//
// The --agent document carries only goals and conditions (spec.md §3):
// YAML cannot express an Action's Execute closure, so a bundle loaded
// this way has no actions of its own. It is only useful paired with a
// Supervisor planner, whose actions are exposed to the model as tool
// schemas built from a Go-side action set this command does not
// provide -- the CLI's reach stops at the declarative half of an Agent.
// Embedding callers that need custom actions build *action.Agent in
// Go and drive it through package process directly.
type RunCmd struct {
	Agent string `required:"" help:"Path to an agent bundle YAML document." type:"path"`
}

func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	doc, err := loadAgentDocument(c.Agent)
	if err != nil {
		return err
	}
	ag, err := doc.Build(nil)
	if err != nil {
		return fmt.Errorf("agent document invalid: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	bus := eventbus.New()
	unsubscribe := bus.Subscribe(func(e eventbus.Event) {
		slog.Debug("event", "kind", e.Kind, "process", e.ProcessID)
	})
	defer unsubscribe()

	_, shutdownSinks, err := wireEventSinks(cfg.Events, bus)
	if err != nil {
		return err
	}
	defer shutdownSinks(context.Background())

	exec, err := buildExecutor(ctx, cfg, bus, awaitable.NewStore(), []*action.Agent{ag})
	if err != nil {
		return err
	}

	types := typeregistry.New()
	bb := blackboard.New(types)
	p := process.New("run", "", ag, bb)

	if err := exec.Run(ctx, p); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Printf("process %s: %s\n", p.ID(), p.Status())
	for _, h := range p.History() {
		fmt.Printf("  %s: %v\n", h.ActionName, h.Status.Code)
	}
	if reason := p.FailureReason(); reason != "" {
		fmt.Printf("  reason: %s\n", reason)
	}
	return nil
}

// ServeCmd starts the HTTP surface over every agent bundle found under
// --agent-dir.
type ServeCmd struct {
	AgentDir string `name:"agent-dir" help:"Directory of agent bundle YAML documents (*.yaml, *.yml)." type:"path"`
	Addr     string `help:"Listen address." default:":8080"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	agents := registry.NewAgentRegistry()
	var loaded []*action.Agent
	if c.AgentDir != "" {
		paths, err := agentDocumentPaths(c.AgentDir)
		if err != nil {
			return err
		}
		for _, path := range paths {
			doc, err := loadAgentDocument(path)
			if err != nil {
				return err
			}
			ag, err := doc.Build(nil)
			if err != nil {
				return fmt.Errorf("agent document %s invalid: %w", path, err)
			}
			if err := agents.Register(ag); err != nil {
				return err
			}
			loaded = append(loaded, ag)
			slog.Info("serve: loaded agent", "name", ag.Name, "path", path)
		}
	}

	bus := eventbus.New()
	types := typeregistry.New()
	awaitables := awaitable.NewStore()

	metricsHandler, shutdownSinks, err := wireEventSinks(cfg.Events, bus)
	if err != nil {
		return err
	}
	defer shutdownSinks(context.Background())

	exec, err := buildExecutor(ctx, cfg, bus, awaitables, loaded)
	if err != nil {
		return err
	}

	srv := server.New(agents, types, bus, awaitables, exec)
	if cfg.HTTP.RateLimit.Limit > 0 {
		srv.RateLimit = server.NewRateLimiter(cfg.HTTP.RateLimit.Limit, cfg.HTTP.RateLimit.Window)
	}
	if cfg.HTTP.Auth.JWKSURL != "" {
		auth, err := server.NewTokenValidator(ctx, cfg.HTTP.Auth.JWKSURL, cfg.HTTP.Auth.Issuer, cfg.HTTP.Auth.Audience)
		if err != nil {
			return err
		}
		srv.Auth = auth
	}

	mux := http.NewServeMux()
	mux.Handle("/", srv.Router())
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	httpServer := &http.Server{Addr: c.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("serve: listening", "addr", c.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// buildExecutor assembles one process.Executor from cfg, wiring a
// Supervisor planner's LLM adapter when cfg selects it. The
// Projector's condition set is the union of every loaded agent's
// declared conditions -- this command drives every agent through one
// shared Executor, so its world-state projection must recognize all of
// them.
func buildExecutor(ctx context.Context, cfg *config.Config, bus *eventbus.Bus, awaitables *awaitable.Store, agents []*action.Agent) (*process.Executor, error) {
	var conditions []*action.Condition
	seen := map[string]bool{}
	for _, ag := range agents {
		for _, c := range ag.Conditions {
			if !seen[c.Name] {
				seen[c.Name] = true
				conditions = append(conditions, c)
			}
		}
	}

	projector := worldstate.New(typeregistry.New(), conditions)

	pt := server.PlannerTypeFromConfig(cfg.PlannerType)
	var sel planner.Select
	if pt == planner.TypeSupervisor {
		spi, err := buildSPI(cfg.LLM)
		if err != nil {
			return nil, err
		}
		sel = llmselect.New(ctx, llmselect.Option{SPI: spi, Bus: bus, ProcessID: "supervisor"})
	}
	pl, err := planner.New(pt, sel)
	if err != nil {
		return nil, err
	}

	policy := process.EarlyTerminationPolicy{
		MaxWallClock:  cfg.EarlyTermination.MaxWallClock,
		MaxCost:       cfg.EarlyTermination.MaxCost,
		MaxIterations: cfg.EarlyTermination.MaxActions,
	}
	return process.NewExecutor(pl, bus, awaitables, projector, policy), nil
}

// wireEventSinks subscribes the optional observability listeners
// cfg.Events enables (spec.md §6 Ambient Stack). It returns the
// /metrics handler (nil if metrics are off) and a shutdown func for
// the trace provider, always safe to defer.
func wireEventSinks(cfg config.EventSinks, bus *eventbus.Bus) (http.Handler, func(context.Context) error, error) {
	shutdown := func(context.Context) error { return nil }
	var metricsHandler http.Handler

	if cfg.Metrics {
		sink, err := eventbus.NewMetricSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, nil, fmt.Errorf("agentcore: metric sink: %w", err)
		}
		bus.Subscribe(sink.Listen)
		metricsHandler = promhttp.Handler()
	}

	if cfg.Tracing {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		sink := eventbus.NewTraceSink(tp.Tracer("agentcore"))
		bus.Subscribe(sink.Listen)
		shutdown = tp.Shutdown
	}

	return metricsHandler, shutdown, nil
}

func buildSPI(cfg config.LLMProvider) (llm.SPI, error) {
	switch cfg.Name {
	case "gemini":
		return gemini.New(gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model, Temperature: cfg.Temperature})
	case "openai", "":
		var temp *float32
		if cfg.Temperature != 0 {
			t := float32(cfg.Temperature)
			temp = &t
		}
		return openai.New(&openai.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Temperature: temp})
	default:
		return nil, fmt.Errorf("agentcore: unknown llm provider %q", cfg.Name)
	}
}

func loadConfig(path string) (*config.Config, error) {
	config.LoadDotEnv("")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadAgentDocument(path string) (*registry.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentcore: read %s: %w", path, err)
	}
	return registry.DecodeDocument(data)
}

func agentDocumentPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("agentcore: read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()
	return ctx, cancel
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentcore"),
		kong.Description("Agent execution platform CLI"),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cli.LogLevel)); err == nil {
		slog.SetLogLoggerLevel(level)
	}

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
