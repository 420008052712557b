package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one completed query/answer pair.
type Exchange struct {
	Query  string
	Answer string
}

// Manager keeps bounded per-session conversation history in memory. The
// query core is history-agnostic; this is the transport-side collaborator
// that owns it.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string][]Exchange
	maxExchange int
}

func NewManager(maxExchanges int) *Manager {
	if maxExchanges <= 0 {
		maxExchanges = 2
	}
	return &Manager{
		sessions:    make(map[string][]Exchange),
		maxExchange: maxExchanges,
	}
}

// Create allocates a new empty session and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// Append records a completed exchange, trimming the oldest entries beyond
// the configured bound.
func (m *Manager) Append(id, query, answer string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[id], Exchange{Query: query, Answer: answer})
	if len(history) > m.maxExchange {
		history = history[len(history)-m.maxExchange:]
	}
	m.sessions[id] = history
}

// History renders a session's exchanges as the text the orchestrator
// appends to its system instruction. Empty when the session is unknown.
func (m *Manager) History(id string) string {
	if id == "" {
		return ""
	}
	m.mu.Lock()
	history := m.sessions[id]
	m.mu.Unlock()

	lines := make([]string, 0, len(history)*2)
	for _, ex := range history {
		lines = append(lines, fmt.Sprintf("User: %s", ex.Query))
		lines = append(lines, fmt.Sprintf("Assistant: %s", ex.Answer))
	}
	return strings.Join(lines, "\n")
}

// Delete removes a session and its history.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
