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

// Package mcptoolset discovers tools from an MCP (Model Context
// Protocol) server over stdio and exposes them as tool.Tool values the
// tool loop can call, modeled on pkg/tool/mcptoolset.
// Only the stdio transport is carried over -- this platform has no
// equivalent of the SSE/streamable-http session handling to
// drive, so that half is left unwired (see DESIGN.md).
package mcptoolset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowstate-ai/agentcore/tool"
)

// Config configures a stdio MCP connection.
type Config struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	Filter  []string // if non-empty, only these tool names are exposed
}

// Toolset connects lazily to an MCP server on first Tools() call.
type Toolset struct {
	cfg       Config
	filterSet map[string]bool

	mu        sync.Mutex
	client    *client.Client
	connected bool
	tools     []tool.Tool
}

// New validates cfg and returns an unconnected Toolset.
func New(cfg Config) (*Toolset, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcptoolset: command is required")
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	return &Toolset{cfg: cfg, filterSet: filterSet}, nil
}

// Name returns the toolset's configured name.
func (t *Toolset) Name() string { return t.cfg.Name }

// Tools returns the discovered tools, connecting on first call.
func (t *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		if err := t.connect(ctx); err != nil {
			return nil, fmt.Errorf("mcptoolset: connect: %w", err)
		}
	}
	return t.tools, nil
}

func (t *Toolset) connect(ctx context.Context) error {
	mcpClient, err := client.NewStdioMCPClient(t.cfg.Command, envSlice(t.cfg.Env), t.cfg.Args...)
	if err != nil {
		return fmt.Errorf("new stdio client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentcore", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	tools := make([]tool.Tool, 0, len(listResp.Tools))
	for _, mt := range listResp.Tools {
		if t.filterSet != nil && !t.filterSet[mt.Name] {
			continue
		}
		tools = append(tools, &wrapper{
			client: mcpClient,
			name:   mt.Name,
			desc:   mt.Description,
			schema: convertSchema(mt.InputSchema),
		})
	}

	t.client = mcpClient
	t.tools = tools
	t.connected = true

	slog.Info("connected to MCP server", "name", t.cfg.Name, "command", t.cfg.Command, "tools", len(tools))
	return nil
}

// Close tears down the underlying MCP connection.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client, t.connected, t.tools = nil, false, nil
	return err
}

// wrapper adapts a single MCP tool to tool.Callable.
type wrapper struct {
	client *client.Client
	name   string
	desc   string
	schema map[string]any
}

func (w *wrapper) Name() string              { return w.name }
func (w *wrapper) Description() string       { return w.desc }
func (w *wrapper) Schema() map[string]any    { return w.schema }

func (w *wrapper) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	resp, err := w.client.CallTool(ctx, req)
	if err != nil {
		return tool.Result{}, fmt.Errorf("mcp call %s: %w", w.name, err)
	}

	var texts []string
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	joined := joinTexts(texts)

	if resp.IsError {
		return tool.Error(joined), nil
	}
	return tool.Text(joined), nil
}

func joinTexts(texts []string) string {
	switch len(texts) {
	case 0:
		return ""
	case 1:
		return texts[0]
	default:
		out := texts[0]
		for _, t := range texts[1:] {
			out += "\n" + t
		}
		return out
	}
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

var _ tool.Callable = (*wrapper)(nil)
