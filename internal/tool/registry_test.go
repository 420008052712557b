package tool

import (
	"context"
	"testing"
)

type stubTool struct {
	citationTracker
	name   string
	output string
	calls  int
}

func (s *stubTool) Definition() Definition {
	return Definition{Name: s.name, InputSchema: map[string]any{"type": "object"}}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	s.calls++
	return s.output, nil
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Fatal("expected error for nil tool")
	}
	if err := r.Register(&stubTool{}); err == nil {
		t.Fatal("expected error for unnamed tool")
	}
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Register(&stubTool{name: name}); err != nil {
			t.Fatalf("Register error: %v", err)
		}
	}

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions=%d, want 3", len(defs))
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if defs[i].Name != want {
			t.Fatalf("defs[%d]=%q, want %q", i, defs[i].Name, want)
		}
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := &stubTool{name: "alpha", output: "first"}
	second := &stubTool{name: "alpha", output: "second"}
	if err := r.Register(first); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(second); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	out, err := r.Execute(context.Background(), "alpha", nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != "second" {
		t.Fatalf("output=%q, want replacement tool output", out)
	}
	if len(r.Definitions()) != 1 {
		t.Fatal("re-registration must not duplicate the definition")
	}
}

func TestRegistryUnknownToolOutput(t *testing.T) {
	r := NewRegistry()

	out, err := r.Execute(context.Background(), "bogus", nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != "Tool 'bogus' not found" {
		t.Fatalf("output=%q, want literal not-found text", out)
	}
}

func TestRegistryLastCitations(t *testing.T) {
	r := NewRegistry()
	a := &stubTool{name: "alpha"}
	b := &stubTool{name: "beta"}
	if err := r.Register(a); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(b); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if r.LastCitations() != nil {
		t.Fatal("no executions yet, want nil citations")
	}

	a.record([]Citation{{Title: "from alpha"}})
	b.record([]Citation{{Title: "from beta"}})

	got := r.LastCitations()
	if len(got) != 1 || got[0].Title != "from beta" {
		t.Fatalf("LastCitations=%+v, want most recent recorder", got)
	}

	r.ResetCitations()
	if r.LastCitations() != nil {
		t.Fatal("citations should be cleared on every tool")
	}
	if a.Citations() != nil || b.Citations() != nil {
		t.Fatal("reset must reach each registered tool")
	}
}
