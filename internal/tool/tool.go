package tool

import (
	"context"
	"sync/atomic"
)

// Tool is a named capability the model may invoke. Implementations
// validate their own arguments and always respond with model-readable text.
type Tool interface {
	// Definition returns the machine-readable descriptor sent to the model.
	Definition() Definition

	// Execute runs the tool with the raw argument map from the model.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Definition describes a tool to the text-generation provider.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Citation is a user-facing attribution record for retrieved content.
// URL is empty when no link could be resolved.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// CitationRecorder is implemented by tools that track citations for the
// content they surface. Executions accumulate citations until Reset; each
// in-flight request is expected to own its tool instances.
type CitationRecorder interface {
	Citations() []Citation
	ResetCitations()
}

// citationClock orders citation updates across tools so a registry can tell
// which tool produced citations most recently.
var citationClock atomic.Int64

func nextCitationTick() int64 {
	return citationClock.Add(1)
}

// citationTracker is the shared citation bookkeeping embedded by tools that
// surface sources. Citations accumulate per invocation, in arrival order,
// until ResetCitations starts a fresh request window.
type citationTracker struct {
	citations []Citation
	tick      int64
}

func (c *citationTracker) record(batch []Citation) {
	if len(batch) == 0 {
		return
	}
	c.citations = append(c.citations, batch...)
	c.tick = nextCitationTick()
}

func (c *citationTracker) Citations() []Citation {
	if len(c.citations) == 0 {
		return nil
	}
	out := make([]Citation, len(c.citations))
	copy(out, c.citations)
	return out
}

func (c *citationTracker) ResetCitations() {
	c.citations = nil
	c.tick = 0
}

func (c *citationTracker) lastCitationTick() int64 {
	return c.tick
}
