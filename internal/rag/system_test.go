package rag

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lectic-ai/lectic/internal/config"
	"github.com/lectic-ai/lectic/internal/index"
	"github.com/lectic-ai/lectic/internal/provider"
)

type flatEmbedder struct{}

func (flatEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f flatEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// searchingProvider requests one content search, then answers.
type searchingProvider struct {
	calls int
}

func (p *searchingProvider) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	p.calls++
	if p.calls == 1 {
		return &provider.Response{
			Blocks: []provider.Block{
				provider.ToolUseBlock("tu_1", "search_course_content", map[string]any{"query": "basics"}),
			},
			StopReason: provider.StopReasonToolUse,
		}, nil
	}
	return &provider.Response{
		Blocks:     []provider.Block{provider.TextBlock("grounded answer")},
		StopReason: "end_turn",
	}, nil
}

func newTestSystem(t *testing.T, p provider.Provider) *System {
	t.Helper()

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"), flatEmbedder{}, 5)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	one := 1
	if err := store.AddCourse(index.Course{
		Title:   "Intro to ML",
		Lessons: []index.Lesson{{Number: 1, Title: "Basics", Link: "https://example.com/ml/1"}},
	}); err != nil {
		t.Fatalf("AddCourse error: %v", err)
	}
	if err := store.AddChunks(context.Background(), []index.Chunk{
		{CourseTitle: "Intro to ML", LessonNumber: &one, Content: "The basics of machine learning."},
	}); err != nil {
		t.Fatalf("AddChunks error: %v", err)
	}

	return New(config.DefaultConfig(), p, store)
}

func TestQueryRunsSearchToolAndReportsCitations(t *testing.T) {
	p := &searchingProvider{}
	system := newTestSystem(t, p)

	id := system.Sessions().Create()
	answer, citations, err := system.Query(context.Background(), "What are the basics?", id)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if answer != "grounded answer" {
		t.Fatalf("answer=%q", answer)
	}
	if p.calls != 2 {
		t.Fatalf("provider calls=%d, want 2", p.calls)
	}

	if len(citations) != 1 {
		t.Fatalf("citations=%d, want 1", len(citations))
	}
	if citations[0].Title != "Intro to ML - Lesson 1" || citations[0].URL != "https://example.com/ml/1" {
		t.Fatalf("unexpected citation: %+v", citations[0])
	}

	history := system.Sessions().History(id)
	if !strings.Contains(history, "User: What are the basics?") ||
		!strings.Contains(history, "Assistant: grounded answer") {
		t.Fatalf("exchange not recorded: %q", history)
	}
}

func TestQueryCitationsDoNotLeakAcrossRequests(t *testing.T) {
	// searchingProvider only searches on its very first call, so the
	// second exchange answers directly.
	p := &searchingProvider{}
	system := newTestSystem(t, p)

	id := system.Sessions().Create()
	if _, citations, err := system.Query(context.Background(), "first", id); err != nil {
		t.Fatalf("Query error: %v", err)
	} else if len(citations) != 1 {
		t.Fatalf("first request citations=%d, want 1", len(citations))
	}

	_, citations, err := system.Query(context.Background(), "second", id)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(citations) != 0 {
		t.Fatalf("second request citations=%+v, want none", citations)
	}
}
