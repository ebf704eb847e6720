package agent

import (
	"fmt"
	"testing"

	"docqa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWindowTrimsOldTurns(t *testing.T) {
	mem := NewMemory(4)
	for i := 0; i < 5; i++ {
		mem.Append(types.ConversationTurn{Role: types.RoleUser, Content: fmt.Sprintf("q%d", i)})
		mem.Append(types.ConversationTurn{Role: types.RoleAssistant, Content: fmt.Sprintf("a%d", i)})
	}

	turns := mem.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, "q3", turns[0].Content)
	assert.Equal(t, "a4", turns[3].Content)
}

func TestMemoryLastAssistant(t *testing.T) {
	mem := NewMemory(6)
	_, ok := mem.LastAssistant()
	assert.False(t, ok)

	mem.Append(types.ConversationTurn{Role: types.RoleUser, Content: "question"})
	mem.Append(types.ConversationTurn{Role: types.RoleAssistant, Content: "answer"})
	mem.Append(types.ConversationTurn{Role: types.RoleUser, Content: "followup"})

	last, ok := mem.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "answer", last)
}

func TestSessionsAreIsolated(t *testing.T) {
	sessions := NewSessions(6)

	aliceMem := sessions.Get("alice", "s1")
	aliceMem.Append(types.ConversationTurn{Role: types.RoleAssistant, Content: "alice answer"})

	// Same session id, different user: fresh memory.
	bobMem := sessions.Get("bob", "s1")
	_, ok := bobMem.LastAssistant()
	assert.False(t, ok)

	// Same user and session: same memory.
	again := sessions.Get("alice", "s1")
	last, ok := again.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "alice answer", last)

	// Same user, different session: fresh memory.
	other := sessions.Get("alice", "s2")
	_, ok = other.LastAssistant()
	assert.False(t, ok)
}
