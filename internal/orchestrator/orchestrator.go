package orchestrator

import (
	"context"
	"fmt"

	"github.com/lectic-ai/lectic/internal/config"
	"github.com/lectic-ai/lectic/internal/provider"
	"github.com/lectic-ai/lectic/internal/tool"
)

const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with tools for searching course content and retrieving course outlines.

Tool usage:
- Use search_course_content for questions about specific course content or detailed materials
- Use get_course_outline for questions about a course's structure, lesson list, or links
- You can make multiple tool calls across rounds to gather comprehensive information
- For comparisons or multi-part questions, search each component separately
- Always search before answering questions about course content
- If a search yields no results, state that clearly

Responses:
- General knowledge questions: answer from existing knowledge without searching
- Course-specific questions: search first, then answer
- No meta-commentary: give direct answers without describing your search process
- Be comprehensive, clear, and educational; include examples when they help`

const fallbackAnswer = "I apologize, but I couldn't generate a proper response."

const finalizeInstruction = "Please provide your final answer based on the information gathered."

// Orchestrator drives the bounded conversation loop between a
// text-generation provider and a tool registry.
type Orchestrator struct {
	provider    provider.Provider
	model       string
	temperature float64
	maxTokens   int
	maxRounds   int
}

func New(p provider.Provider, cfg config.AgentConfig) *Orchestrator {
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = config.DefaultMaxToolRounds
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}
	return &Orchestrator{
		provider:    p,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		maxRounds:   maxRounds,
	}
}

// Answer resolves a query to final answer text. history, when non-empty, is
// prior conversation appended to the system instruction. Without tool
// definitions and a registry it is a single provider call; with both it
// runs the sequential tool protocol. Provider failures are fatal for the
// request; individual tool failures are converted to tool output and never
// abort the loop.
func (o *Orchestrator) Answer(ctx context.Context, query, history string, defs []tool.Definition, registry *tool.Registry) (string, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []provider.Message{provider.UserText(query)}

	if len(defs) == 0 || registry == nil {
		resp, err := o.generate(ctx, messages, system, nil)
		if err != nil {
			return "", err
		}
		return textOrFallback(resp), nil
	}

	return o.runToolLoop(ctx, messages, system, defs, registry)
}

func (o *Orchestrator) runToolLoop(ctx context.Context, messages []provider.Message, system string, defs []tool.Definition, registry *tool.Registry) (string, error) {
	for round := 1; round <= o.maxRounds; round++ {
		resp, err := o.generate(ctx, messages, system, defs)
		if err != nil {
			return "", err
		}

		messages = append(messages, provider.Message{Role: provider.RoleAssistant, Blocks: resp.Blocks})

		if resp.StopReason == provider.StopReasonToolUse {
			results := executeToolUses(ctx, resp, registry)
			if len(results) > 0 {
				messages = append(messages, provider.Message{Role: provider.RoleUser, Blocks: results})
				continue
			}
		}

		return textOrFallback(resp), nil
	}

	// Round budget exhausted while the model still wants tools: one forced
	// finalization call with tools withheld.
	messages = append(messages, provider.UserText(finalizeInstruction))
	resp, err := o.generate(ctx, messages, system, nil)
	if err != nil {
		return "", err
	}
	return textOrFallback(resp), nil
}

// executeToolUses runs every tool-invocation block in emitted order and
// collects one outcome per invocation. A failing invocation becomes a
// readable failure outcome so later invocations still run.
func executeToolUses(ctx context.Context, resp *provider.Response, registry *tool.Registry) []provider.Block {
	uses := resp.ToolUses()
	results := make([]provider.Block, 0, len(uses))
	for _, use := range uses {
		output, err := registry.Execute(ctx, use.Name, use.Input)
		if err != nil {
			output = fmt.Sprintf("Tool execution failed: %v", err)
		}
		results = append(results, provider.ToolResultBlock(use.ID, output))
	}
	return results
}

func (o *Orchestrator) generate(ctx context.Context, messages []provider.Message, system string, defs []tool.Definition) (*provider.Response, error) {
	return o.provider.Generate(ctx, provider.Request{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		System:      system,
		Messages:    messages,
		Tools:       defs,
	})
}

func textOrFallback(resp *provider.Response) string {
	if text := resp.Text(); text != "" {
		return text
	}
	return fallbackAnswer
}
