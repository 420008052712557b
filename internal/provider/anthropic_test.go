package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lectic-ai/lectic/internal/tool"
)

type fakeMessages struct {
	params    []anthropicsdk.MessageNewParams
	responses []*anthropicsdk.Message
	errs      []error
}

func (f *fakeMessages) New(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) (*anthropicsdk.Message, error) {
	i := len(f.params)
	f.params = append(f.params, params)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &anthropicsdk.Message{}, nil
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	if _, err := NewAnthropic(AnthropicConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test"}); err != nil {
		t.Fatalf("NewAnthropic error: %v", err)
	}
}

func TestGenerateBuildsParams(t *testing.T) {
	msgs := &fakeMessages{responses: []*anthropicsdk.Message{{StopReason: "end_turn"}}}
	p := &anthropicProvider{msgs: msgs, maxRetries: 1}

	defs := []tool.Definition{{
		Name:        "search_course_content",
		Description: "search stuff",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}}

	_, err := p.Generate(context.Background(), Request{
		Model:     "test-model",
		MaxTokens: 800,
		System:    "be helpful",
		Messages:  []Message{UserText("hello")},
		Tools:     defs,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if len(msgs.params) != 1 {
		t.Fatalf("calls=%d, want 1", len(msgs.params))
	}
	got := msgs.params[0]
	if got.Model != "test-model" || got.MaxTokens != 800 {
		t.Fatalf("unexpected params: model=%s maxTokens=%d", got.Model, got.MaxTokens)
	}
	if len(got.System) != 1 || got.System[0].Text != "be helpful" {
		t.Fatalf("system not forwarded: %+v", got.System)
	}
	if len(got.Tools) != 1 || got.Tools[0].OfTool == nil {
		t.Fatalf("tools not forwarded: %+v", got.Tools)
	}
	if got.Tools[0].OfTool.Name != "search_course_content" {
		t.Fatalf("tool name=%q", got.Tools[0].OfTool.Name)
	}
	if got.ToolChoice.OfAuto == nil {
		t.Fatal("tool choice must be auto when tools are present")
	}
}

func TestGenerateOmitsToolChoiceWithoutTools(t *testing.T) {
	msgs := &fakeMessages{responses: []*anthropicsdk.Message{{StopReason: "end_turn"}}}
	p := &anthropicProvider{msgs: msgs, maxRetries: 1}

	_, err := p.Generate(context.Background(), Request{
		Model:     "test-model",
		MaxTokens: 800,
		Messages:  []Message{UserText("hello")},
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if msgs.params[0].ToolChoice.OfAuto != nil {
		t.Fatal("tool choice must be unset without tools")
	}
	if msgs.params[0].Tools != nil {
		t.Fatal("tools must be unset")
	}
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	msgs := &fakeMessages{
		errs:      []error{errors.New("transient"), nil},
		responses: []*anthropicsdk.Message{nil, {StopReason: "end_turn"}},
	}
	p := &anthropicProvider{msgs: msgs, maxRetries: 2}

	resp, err := p.Generate(context.Background(), Request{
		Model:     "test-model",
		MaxTokens: 800,
		Messages:  []Message{UserText("hello")},
	})
	if err != nil {
		t.Fatalf("Generate error after retry: %v", err)
	}
	if resp.StopReason != "end_turn" {
		t.Fatalf("stop reason=%q", resp.StopReason)
	}
	if len(msgs.params) != 2 {
		t.Fatalf("calls=%d, want 2", len(msgs.params))
	}
}

func TestGenerateCancelledContextNotRetried(t *testing.T) {
	msgs := &fakeMessages{errs: []error{context.Canceled}}
	p := &anthropicProvider{msgs: msgs, maxRetries: 3}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{
		Model:     "test-model",
		MaxTokens: 800,
		Messages:  []Message{UserText("hello")},
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(msgs.params) != 1 {
		t.Fatalf("calls=%d, want no retries after cancellation", len(msgs.params))
	}
}

func TestConvertMessagesPadsEmptyText(t *testing.T) {
	out, err := convertMessages([]Message{
		{Role: RoleAssistant, Blocks: []Block{TextBlock("")}},
		{Role: RoleUser, Blocks: nil},
	})
	if err != nil {
		t.Fatalf("convertMessages error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("messages=%d, want 2", len(out))
	}
	if out[0].Role != anthropicsdk.MessageParamRoleAssistant {
		t.Fatalf("role=%v", out[0].Role)
	}
	for i, msg := range out {
		if len(msg.Content) == 0 {
			t.Fatalf("message %d has no content blocks", i)
		}
	}
}

func TestConvertMessagesRejectsUnknownBlock(t *testing.T) {
	_, err := convertMessages([]Message{
		{Role: RoleUser, Blocks: []Block{{Type: "mystery"}}},
	})
	if err == nil {
		t.Fatal("expected error for unknown block type")
	}
}

func TestConvertResponseToolUse(t *testing.T) {
	msg := &anthropicsdk.Message{
		StopReason: StopReasonToolUse,
		Content: []anthropicsdk.ContentBlockUnion{
			{Type: "text", Text: "thinking"},
			{Type: "tool_use", ID: "tu_1", Name: "search_course_content", Input: json.RawMessage(`{"query":"basics"}`)},
		},
	}

	resp := convertResponse(msg)
	if resp.StopReason != StopReasonToolUse {
		t.Fatalf("stop reason=%q", resp.StopReason)
	}
	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("tool uses=%d, want 1", len(uses))
	}
	if uses[0].ID != "tu_1" || uses[0].Name != "search_course_content" {
		t.Fatalf("unexpected tool use: %+v", uses[0])
	}
	if uses[0].Input["query"] != "basics" {
		t.Fatalf("input=%v", uses[0].Input)
	}
	if resp.Text() != "thinking" {
		t.Fatalf("text=%q", resp.Text())
	}
}

func TestDecodeJSONDegradation(t *testing.T) {
	if got := decodeJSON(nil); got != nil {
		t.Fatalf("nil input should decode to nil, got %v", got)
	}
	got := decodeJSON(json.RawMessage(`{broken`))
	if got["raw"] != "{broken" {
		t.Fatalf("malformed input should be preserved raw: %v", got)
	}
}
