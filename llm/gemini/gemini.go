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

// Package gemini adapts google.golang.org/genai to llm.SPI, grounded on
// the pkg/model/gemini provider.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/flowstate-ai/agentcore/llm"
)

// Config configures the Gemini client.
type Config struct {
	APIKey      string
	Model       string // default "gemini-2.0-flash"
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        float64
}

// Client implements llm.SPI for Gemini models.
type Client struct {
	client *genai.Client
	name   string
	config Config
}

// New constructs a Client, defaulting Model when unset.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: client init: %w", err)
	}

	return &Client{client: client, name: cfg.Model, config: cfg}, nil
}

func (c *Client) Call(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	contents, sysInstr := c.buildContents(messages)
	config := c.buildConfig(sysInstr, tools, nil)

	resp, err := c.client.Models.GenerateContent(ctx, c.name, contents, config)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini: generate: %w", err)
	}
	return c.toResponse(resp)
}

func (c *Client) Transform(ctx context.Context, messages []llm.Message, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	contents, sysInstr := c.buildContents(messages)
	config := c.buildConfig(sysInstr, nil, cfg.Schema)

	resp, err := c.client.Models.GenerateContent(ctx, c.name, contents, config)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini: structured generate: %w", err)
	}
	return c.toResponse(resp)
}

func (c *Client) StreamText(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (<-chan string, <-chan llm.Response, error) {
	contents, sysInstr := c.buildContents(messages)
	config := c.buildConfig(sysInstr, tools, nil)

	chunks := make(chan string)
	final := make(chan llm.Response, 1)

	go func() {
		defer close(chunks)
		defer close(final)

		var text string
		var lastResp *genai.GenerateContentResponse
		var toolCalls []llm.ToolCall

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.name, contents, config) {
			if err != nil {
				return
			}
			lastResp = resp
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" && !part.Thought {
					text += part.Text
					select {
					case chunks <- part.Text:
					case <-ctx.Done():
						return
					}
				}
				if part.FunctionCall != nil {
					toolCalls = append(toolCalls, llm.ToolCall{
						ID:        part.FunctionCall.ID,
						Name:      part.FunctionCall.Name,
						Arguments: part.FunctionCall.Args,
					})
				}
			}
		}

		usage := llm.Usage{}
		if lastResp != nil && lastResp.UsageMetadata != nil {
			usage = llm.Usage{
				PromptTokens:     int(lastResp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(lastResp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(lastResp.UsageMetadata.TotalTokenCount),
			}
		}

		final <- llm.Response{
			Message:     llm.Message{Role: "assistant", Content: text, ToolCalls: toolCalls},
			TextContent: text,
			Usage:       usage,
		}
	}()

	return chunks, final, nil
}

func (c *Client) buildContents(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var sysInstr *genai.Content

	for _, m := range messages {
		if m.Role == "system" {
			sysInstr = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}, Role: "user"}
			continue
		}

		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}

		var parts []*genai.Part
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Arguments}})
		}
		if m.Role == "tool" {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			}})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Parts: parts, Role: role})
	}

	return contents, sysInstr
}

func (c *Client) buildConfig(sysInstr *genai.Content, tools []llm.ToolDefinition, schema map[string]any) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{SystemInstruction: sysInstr}

	if c.config.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(c.config.Temperature))
	}
	if c.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.config.MaxTokens)
	}
	if c.config.TopP > 0 {
		config.TopP = genai.Ptr(float32(c.config.TopP))
	}
	if c.config.TopK > 0 {
		config.TopK = genai.Ptr(float32(c.config.TopK))
	}

	if len(tools) > 0 {
		var decls []*genai.FunctionDeclaration
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	if schema != nil {
		config.ResponseSchema = toGenaiSchema(schema)
		config.ResponseMIMEType = "application/json"
	}

	return config
}

func (c *Client) toResponse(resp *genai.GenerateContentResponse) (llm.Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.Response{}, fmt.Errorf("gemini: empty response")
	}

	var text string
	var toolCalls []llm.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			text += part.Text
		}
		if part.FunctionCall != nil {
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		}
	}

	usage := llm.Usage{}
	if resp.UsageMetadata != nil {
		usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return llm.Response{
		Message:     llm.Message{Role: "assistant", Content: text, ToolCalls: toolCalls},
		TextContent: text,
		Usage:       usage,
	}, nil
}

// toGenaiSchema converts a JSON-schema map (as produced by
// typeregistry.DomainType.JSONSchema, flattened to map[string]any) into
// a genai.Schema, mirroring the recursive converter.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	return s
}

var _ llm.SPI = (*Client)(nil)
