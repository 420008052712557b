package tool

import (
	"context"
	"fmt"
)

// Registry maps tool names to implementations and aggregates citation
// state across them. It performs no locking: callers are expected to use
// one registry per in-flight request.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register stores a tool under its definition name. The last registration
// for a name wins; registering a tool without a name is an error.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register tool: tool is nil")
	}
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("register tool: definition has no name")
	}
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	return nil
}

// Definitions returns all descriptors in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches to the named tool. An unknown name is reported as
// tool output text, not an error, so the model can react to it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, exists := r.tools[name]
	if !exists {
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}
	return t.Execute(ctx, args)
}

// LastCitations returns the citations of whichever tool most recently
// produced a non-empty set.
func (r *Registry) LastCitations() []Citation {
	var latest []Citation
	var latestTick int64
	for _, name := range r.order {
		rec, ok := r.tools[name].(CitationRecorder)
		if !ok {
			continue
		}
		citations := rec.Citations()
		if len(citations) == 0 {
			continue
		}
		tick := int64(0)
		if tracked, ok := rec.(interface{ lastCitationTick() int64 }); ok {
			tick = tracked.lastCitationTick()
		}
		if latest == nil || tick >= latestTick {
			latest = citations
			latestTick = tick
		}
	}
	return latest
}

// ResetCitations clears citation state on every registered tool.
func (r *Registry) ResetCitations() {
	for _, name := range r.order {
		if rec, ok := r.tools[name].(CitationRecorder); ok {
			rec.ResetCitations()
		}
	}
}
