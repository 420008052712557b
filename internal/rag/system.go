package rag

import (
	"context"
	"fmt"

	"github.com/lectic-ai/lectic/internal/config"
	"github.com/lectic-ai/lectic/internal/index"
	"github.com/lectic-ai/lectic/internal/orchestrator"
	"github.com/lectic-ai/lectic/internal/provider"
	"github.com/lectic-ai/lectic/internal/session"
	"github.com/lectic-ai/lectic/internal/tool"
)

// System wires the orchestrator, the course index tools, and session
// history into one query surface.
type System struct {
	orch     *orchestrator.Orchestrator
	store    *index.Store
	sessions *session.Manager
}

func New(cfg *config.Config, p provider.Provider, store *index.Store) *System {
	return &System{
		orch:     orchestrator.New(p, cfg.Agent),
		store:    store,
		sessions: session.NewManager(cfg.Session.MaxHistory),
	}
}

func (s *System) Sessions() *session.Manager {
	return s.sessions
}

// Query answers one question. Tool and registry instances are created per
// call so citation state never leaks across concurrent requests.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []tool.Citation, error) {
	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewSearchTool(s.store)); err != nil {
		return "", nil, fmt.Errorf("register search tool: %w", err)
	}
	if err := registry.Register(tool.NewOutlineTool(s.store)); err != nil {
		return "", nil, fmt.Errorf("register outline tool: %w", err)
	}

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)
	history := s.sessions.History(sessionID)

	answer, err := s.orch.Answer(ctx, prompt, history, registry.Definitions(), registry)
	if err != nil {
		return "", nil, err
	}

	citations := registry.LastCitations()
	registry.ResetCitations()

	s.sessions.Append(sessionID, query, answer)
	return answer, citations, nil
}

// Analytics reports catalog statistics for the courses endpoint.
func (s *System) Analytics() (int, []string, error) {
	count, err := s.store.CourseCount()
	if err != nil {
		return 0, nil, err
	}
	titles, err := s.store.CourseTitles()
	if err != nil {
		return 0, nil, err
	}
	return count, titles, nil
}
