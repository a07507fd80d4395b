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

// Package openai adapts github.com/sashabaranov/go-openai to llm.SPI.
// It is modeled on pkg/llms provider pattern (retry loop,
// config validation) but speaks the Chat Completions API through the
// SDK rather than hand-rolling the wire format, per the Responses-API
// raw client some deployments maintain -- that style is mirrored instead
// by Pocket-Omega's internal/llm/openai/client.go, which also wraps the
// SDK.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/flowstate-ai/agentcore/llm"
)

// Client implements llm.SPI against an OpenAI-compatible endpoint.
type Client struct {
	sdk    *sdk.Client
	config *Config
	log    *slog.Logger
}

// New constructs a Client. A non-nil error means cfg failed validation.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("openai: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sdkConfig := sdk.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	sdkConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		sdk:    sdk.NewClientWithConfig(sdkConfig),
		config: cfg,
		log:    slog.Default().With("component", "llm.openai", "model", cfg.Model),
	}, nil
}

func (c *Client) Call(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	req := c.buildRequest(messages, tools)

	resp, err := c.withRetries(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	return c.toResponse(resp)
}

func (c *Client) Transform(ctx context.Context, messages []llm.Message, cfg llm.StructuredOutputConfig) (llm.Response, error) {
	req := c.buildRequest(messages, nil)
	if cfg.Schema != nil {
		req.ResponseFormat = &sdk.ChatCompletionResponseFormat{
			Type: sdk.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &sdk.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: jsonSchemaDefinition(cfg.Schema),
				Strict: true,
			},
		}
	}

	resp, err := c.withRetries(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	return c.toResponse(resp)
}

func (c *Client) StreamText(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (<-chan string, <-chan llm.Response, error) {
	req := c.buildRequest(messages, tools)
	req.Stream = true

	stream, err := c.sdk.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("openai: stream create: %w", err)
	}

	chunks := make(chan string)
	final := make(chan llm.Response, 1)

	go func() {
		defer stream.Close()
		defer close(chunks)
		defer close(final)

		var text, reasoningArgs string
		var usage sdk.Usage
		var toolCalls []sdk.ToolCall

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				c.log.Warn("stream interrupted", "error", err, "chars_so_far", len(text))
				break
			}
			if resp.Usage != nil {
				usage = *resp.Usage
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				text += delta.Content
				select {
				case chunks <- delta.Content:
				case <-ctx.Done():
					return
				}
			}
			toolCalls = mergeToolCallDeltas(toolCalls, delta.ToolCalls)
		}
		_ = reasoningArgs

		msg := llm.Message{Role: "assistant", Content: text, ToolCalls: convertToolCallsFromSDK(toolCalls)}
		final <- llm.Response{
			Message:     msg,
			TextContent: text,
			Usage: llm.Usage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			},
		}
	}()

	return chunks, final, nil
}

func (c *Client) buildRequest(messages []llm.Message, tools []llm.ToolDefinition) sdk.ChatCompletionRequest {
	req := sdk.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: convertMessages(messages),
	}
	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if len(tools) > 0 {
		req.Tools = convertTools(tools)
	}
	return req
}

// withRetries runs the transport-level retry loop pkg/llms providers
// apply to transient HTTP failures. It is distinct
// from the QoS retry envelope (action.QoS), which governs whole action
// executions rather than one HTTP call.
func (c *Client) withRetries(ctx context.Context, req sdk.ChatCompletionRequest) (sdk.ChatCompletionResponse, error) {
	var resp sdk.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.sdk.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			return resp, nil
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			c.log.Warn("retrying LLM call", "attempt", attempt+1, "max", c.config.MaxRetries, "wait", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return sdk.ChatCompletionResponse{}, ctx.Err()
			}
		}
	}
	return sdk.ChatCompletionResponse{}, fmt.Errorf("openai: call failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) toResponse(resp sdk.ChatCompletionResponse) (llm.Response, error) {
	if len(resp.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai: no choices returned")
	}
	choice := resp.Choices[0].Message

	msg := llm.Message{
		Role:    sdk.ChatMessageRoleAssistant,
		Content: choice.Content,
	}
	if len(choice.ToolCalls) > 0 {
		msg.ToolCalls = convertToolCallsFromSDK(choice.ToolCalls)
	}

	return llm.Response{
		Message:     msg,
		TextContent: choice.Content,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func convertMessages(messages []llm.Message) []sdk.ChatCompletionMessage {
	out := make([]sdk.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = sdk.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		if len(m.ToolCalls) > 0 {
			out[i].ToolCalls = convertToolCallsToSDK(m.ToolCalls)
		}
	}
	return out
}

func convertTools(tools []llm.ToolDefinition) []sdk.Tool {
	out := make([]sdk.Tool, len(tools))
	for i, t := range tools {
		out[i] = sdk.Tool{
			Type: sdk.ToolTypeFunction,
			Function: &sdk.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

func convertToolCallsToSDK(calls []llm.ToolCall) []sdk.ToolCall {
	out := make([]sdk.ToolCall, len(calls))
	for i, tc := range calls {
		args := tc.RawArgs
		if args == "" {
			if b, err := json.Marshal(tc.Arguments); err == nil {
				args = string(b)
			}
		}
		out[i] = sdk.ToolCall{
			ID:   tc.ID,
			Type: sdk.ToolTypeFunction,
			Function: sdk.FunctionCall{
				Name:      tc.Name,
				Arguments: args,
			},
		}
	}
	return out
}

func convertToolCallsFromSDK(calls []sdk.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i, tc := range calls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		out[i] = llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
			RawArgs:   tc.Function.Arguments,
		}
	}
	return out
}

// mergeToolCallDeltas accumulates streamed tool-call argument fragments
// by index, the same bookkeeping the Responses API streaming
// state machine performs for function_call_arguments.delta events.
func mergeToolCallDeltas(acc []sdk.ToolCall, deltas []sdk.ToolCall) []sdk.ToolCall {
	for _, d := range deltas {
		idx := d.Index
		if idx == nil {
			continue
		}
		for len(acc) <= *idx {
			acc = append(acc, sdk.ToolCall{Type: sdk.ToolTypeFunction})
		}
		if d.ID != "" {
			acc[*idx].ID = d.ID
		}
		if d.Function.Name != "" {
			acc[*idx].Function.Name = d.Function.Name
		}
		acc[*idx].Function.Arguments += d.Function.Arguments
	}
	return acc
}

func jsonSchemaDefinition(schema map[string]any) json.Marshaler {
	return jsonRawSchema(schema)
}

type jsonRawSchema map[string]any

func (s jsonRawSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

var _ llm.SPI = (*Client)(nil)
