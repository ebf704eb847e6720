package agent

import (
	"sync"

	"docqa/types"
)

// Memory is a sliding window over one conversation. Only the most
// recent turns are kept so prompts stay bounded as the session grows.
type Memory struct {
	mu     sync.Mutex
	window int
	turns  []types.ConversationTurn
}

func NewMemory(window int) *Memory {
	if window <= 0 {
		window = 6
	}
	return &Memory{window: window}
}

func (m *Memory) Append(turn types.ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	if len(m.turns) > m.window {
		m.turns = m.turns[len(m.turns)-m.window:]
	}
}

// Turns returns a copy of the retained window, oldest first.
func (m *Memory) Turns() []types.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

// LastAssistant returns the most recent assistant reply still inside
// the window.
func (m *Memory) LastAssistant() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].Role == types.RoleAssistant {
			return m.turns[i].Content, true
		}
	}
	return "", false
}

// Sessions hands out per-session conversation memory. Sessions are
// keyed by user and session id together so one user cannot read
// another's window.
type Sessions struct {
	mu     sync.Mutex
	window int
	byKey  map[string]*Memory
}

func NewSessions(window int) *Sessions {
	return &Sessions{window: window, byKey: make(map[string]*Memory)}
}

func (s *Sessions) Get(userID, sessionID string) *Memory {
	key := userID + "\x00" + sessionID
	s.mu.Lock()
	defer s.mu.Unlock()
	mem, ok := s.byKey[key]
	if !ok {
		mem = NewMemory(s.window)
		s.byKey[key] = mem
	}
	return mem
}
