package provider

import (
	"context"
	"strings"

	"github.com/lectic-ai/lectic/internal/tool"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// StopReasonToolUse is the stop reason signalling the model wants tools run.
const StopReasonToolUse = "tool_use"

// Block is one tagged content element of a conversation message. Exactly
// one variant's fields are populated, selected by Type; consumers switch
// exhaustively instead of probing fields.
type Block struct {
	Type BlockType

	// BlockText
	Text string

	// BlockToolUse
	ID    string
	Name  string
	Input map[string]any

	// BlockToolResult
	ToolUseID string
	Content   string
}

func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

func ToolUseBlock(id, name string, input map[string]any) Block {
	return Block{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

func ToolResultBlock(toolUseID, content string) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, Content: content}
}

// Message is one conversation turn: an ordered block sequence under a role.
type Message struct {
	Role   Role
	Blocks []Block
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Blocks: []Block{TextBlock(text)}}
}

// Request is a single completion call.
type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int
	System      string
	Messages    []Message
	Tools       []tool.Definition
}

// Response is the provider's reply: the assistant content blocks plus the
// reported stop reason.
type Response struct {
	Blocks     []Block
	StopReason string
}

// Text concatenates all text blocks in order.
func (r *Response) Text() string {
	var sb strings.Builder
	for _, block := range r.Blocks {
		if block.Type == BlockText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool-invocation blocks in emitted order.
func (r *Response) ToolUses() []Block {
	uses := make([]Block, 0)
	for _, block := range r.Blocks {
		if block.Type == BlockToolUse {
			uses = append(uses, block)
		}
	}
	return uses
}

// Provider is a stateless completion service, optionally instructed to
// invoke tools. Transport failures are returned as errors and are fatal for
// the request.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
