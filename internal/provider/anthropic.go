package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/lectic-ai/lectic/internal/tool"
)

// AnthropicConfig wires a plain anthropic-sdk-go client into Provider.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
}

type anthropicMessages interface {
	New(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) (*anthropicsdk.Message, error)
}

type anthropicProvider struct {
	msgs       anthropicMessages
	maxRetries int
}

// NewAnthropic constructs an Anthropic-backed Provider.
func NewAnthropic(cfg AnthropicConfig) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := anthropicsdk.NewClient(opts...)
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &anthropicProvider{msgs: &client.Messages, maxRetries: retries}, nil
}

func (p *anthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	var resp *Response
	err = p.doWithRetry(ctx, func(ctx context.Context) error {
		msg, err := p.msgs.New(ctx, params)
		if err != nil {
			return err
		}
		resp = convertResponse(msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}
	return resp, nil
}

func (p *anthropicProvider) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	attempts := 0
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(err) || attempts >= p.maxRetries {
			return err
		}
		attempts++
		backoff := time.Duration(attempts*attempts) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode != http.StatusUnauthorized
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

func buildParams(req Request) (anthropicsdk.MessageNewParams, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    messages,
		Temperature: param.NewOpt(req.Temperature),
	}

	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}

	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return anthropicsdk.MessageNewParams{}, err
		}
		params.Tools = tools
		// Tool use permitted, never forced.
		params.ToolChoice = anthropicsdk.ToolChoiceUnionParam{
			OfAuto: &anthropicsdk.ToolChoiceAutoParam{},
		}
	}

	return params, nil
}

func convertMessages(messages []Message) ([]anthropicsdk.MessageParam, error) {
	out := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		content := make([]anthropicsdk.ContentBlockParamUnion, 0, len(msg.Blocks))
		for _, block := range msg.Blocks {
			switch block.Type {
			case BlockText:
				text := block.Text
				if strings.TrimSpace(text) == "" {
					text = "."
				}
				content = append(content, anthropicsdk.NewTextBlock(text))
			case BlockToolUse:
				content = append(content, anthropicsdk.NewToolUseBlock(block.ID, block.Input, block.Name))
			case BlockToolResult:
				content = append(content, anthropicsdk.NewToolResultBlock(block.ToolUseID, block.Content, false))
			default:
				return nil, fmt.Errorf("unknown content block type %q", block.Type)
			}
		}
		if len(content) == 0 {
			content = append(content, anthropicsdk.NewTextBlock("."))
		}

		role := anthropicsdk.MessageParamRoleUser
		if msg.Role == RoleAssistant {
			role = anthropicsdk.MessageParamRoleAssistant
		}
		out = append(out, anthropicsdk.MessageParam{Role: role, Content: content})
	}
	return out, nil
}

func convertTools(defs []tool.Definition) ([]anthropicsdk.ToolUnionParam, error) {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}

		schema, err := encodeSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", name, err)
		}

		t := anthropicsdk.ToolParam{
			Name:        name,
			InputSchema: schema,
		}
		if strings.TrimSpace(def.Description) != "" {
			t.Description = anthropicsdk.String(def.Description)
		}
		out = append(out, anthropicsdk.ToolUnionParam{OfTool: &t})
	}
	return out, nil
}

func encodeSchema(raw map[string]any) (anthropicsdk.ToolInputSchemaParam, error) {
	if len(raw) == 0 {
		return anthropicsdk.ToolInputSchemaParam{Type: "object"}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	var schema anthropicsdk.ToolInputSchemaParam
	if err := json.Unmarshal(data, &schema); err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema, nil
}

func convertResponse(msg *anthropicsdk.Message) *Response {
	blocks := make([]Block, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				blocks = append(blocks, TextBlock(block.Text))
			}
		case "tool_use":
			id := strings.TrimSpace(block.ID)
			name := strings.TrimSpace(block.Name)
			if id == "" || name == "" {
				continue
			}
			blocks = append(blocks, ToolUseBlock(id, name, decodeJSON(block.Input)))
		}
	}
	return &Response{Blocks: blocks, StopReason: string(msg.StopReason)}
}

func decodeJSON(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
