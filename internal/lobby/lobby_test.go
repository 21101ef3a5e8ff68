// internal/lobby/lobby_test.go
package lobby

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizloop/quizloop/internal/game"
)

// newTestConnection builds a connection with a generous buffer so broadcasts
// never drop during tests.
func newTestConnection(userID uuid.UUID, isHost bool) *LobbyConnection {
	return &LobbyConnection{
		UserID:  userID,
		OutChan: make(chan map[string]interface{}, 64),
		IsHost:  isHost,
	}
}

// joinUsers invites and connects n users; the first is the host. No database
// is connected in tests, so usernames fall back to placeholders.
func joinUsers(t *testing.T, lob *Lobby, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		lob.Mu.Lock()
		lob.InviteUserUnsafe(id)
		lob.Mu.Unlock()
		require.NoError(t, lob.AddConnection(id, newTestConnection(id, i == 0)))
		ids = append(ids, id)
	}
	return ids
}

func drainMessages(conn *LobbyConnection) []map[string]interface{} {
	var msgs []map[string]interface{}
	for {
		select {
		case m := <-conn.OutChan:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestAddConnectionRequiresInviteForPrivateLobby(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())

	stranger := uuid.New()
	err := lob.AddConnection(stranger, newTestConnection(stranger, false))
	assert.Error(t, err)
}

func TestAddConnectionSeedsDistinctDefaultColors(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	ids := joinUsers(t, lob, 3)

	lob.Mu.Lock()
	defer lob.Mu.Unlock()
	seen := map[string]bool{}
	for _, id := range ids {
		prof, ok := lob.Profiles[id]
		require.True(t, ok)
		assert.False(t, seen[prof.Color], "color %q assigned twice", prof.Color)
		seen[prof.Color] = true
		assert.Equal(t, "pawn", prof.Icon)
	}
}

func TestSetProfileRejectsTakenColor(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	ids := joinUsers(t, lob, 2)

	lob.Mu.Lock()
	defer lob.Mu.Unlock()

	require.NoError(t, lob.SetProfileUnsafe(ids[0], "teal", ""))
	err := lob.SetProfileUnsafe(ids[1], "teal", "")
	assert.Error(t, err)

	// Icon-only updates never collide.
	require.NoError(t, lob.SetProfileUnsafe(ids[1], "", "crown"))
	assert.Equal(t, "crown", lob.Profiles[ids[1]].Icon)
}

func TestAreAllReadyNeedsTwoUsers(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	ids := joinUsers(t, lob, 1)

	lob.Mu.Lock()
	defer lob.Mu.Unlock()
	lob.ReadyStates[ids[0]] = true
	assert.False(t, lob.AreAllReadyUnsafe())
}

func TestMarkReadySignalsAutoStartWhenAllReady(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	ids := joinUsers(t, lob, 2)

	lob.Mu.Lock()
	defer lob.Mu.Unlock()

	assert.False(t, lob.MarkUserReadyUnsafe(ids[0]), "first ready should not trigger start")
	assert.True(t, lob.MarkUserReadyUnsafe(ids[1]), "last ready should trigger start")

	// Re-readying is a no-op.
	assert.False(t, lob.MarkUserReadyUnsafe(ids[1]))
}

func TestUnreadyCancelsCountdown(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	ids := joinUsers(t, lob, 2)

	lob.Mu.Lock()
	lob.MarkUserReadyUnsafe(ids[0])
	lob.MarkUserReadyUnsafe(ids[1])
	started := lob.StartCountdownUnsafe(60, func(l *Lobby) {
		t.Error("countdown callback should not fire")
	})
	require.True(t, started)
	require.NotNil(t, lob.CountdownTimer)

	lob.MarkUserUnreadyUnsafe(ids[0])
	assert.Nil(t, lob.CountdownTimer)
	lob.Mu.Unlock()
}

func TestStartCountdownRefusesDuplicates(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	joinUsers(t, lob, 2)

	lob.Mu.Lock()
	defer lob.Mu.Unlock()

	require.True(t, lob.StartCountdownUnsafe(60, func(l *Lobby) {}))
	assert.False(t, lob.StartCountdownUnsafe(60, func(l *Lobby) {}), "second countdown must be refused")

	lob.CancelCountdownUnsafe()
	assert.Nil(t, lob.CountdownTimer)
}

func TestCountdownFiresCallback(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	joinUsers(t, lob, 2)

	fired := make(chan uuid.UUID, 1)
	lob.Mu.Lock()
	started := lob.StartCountdownUnsafe(0, func(l *Lobby) {
		fired <- l.ID
	})
	lob.Mu.Unlock()
	require.True(t, started)

	select {
	case id := <-fired:
		assert.Equal(t, lob.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("countdown callback never fired")
	}

	lob.Mu.Lock()
	assert.Nil(t, lob.CountdownTimer)
	lob.Mu.Unlock()
}

func TestRemoveLastUserTriggersOnEmpty(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())

	emptied := make(chan uuid.UUID, 1)
	lob.OnEmpty = func(id uuid.UUID) { emptied <- id }

	ids := joinUsers(t, lob, 2)
	lob.RemoveUser(ids[0])

	select {
	case <-emptied:
		t.Fatal("OnEmpty fired while a user remained")
	default:
	}

	lob.RemoveUser(ids[1])
	select {
	case id := <-emptied:
		assert.Equal(t, lob.ID, id)
	case <-time.After(time.Second):
		t.Fatal("OnEmpty never fired")
	}
}

func TestUpdateRulesValidatesAndBroadcasts(t *testing.T) {
	lob := NewLobbyWithDefaults(uuid.New())
	ids := joinUsers(t, lob, 2)

	lob.Mu.Lock()
	conn := lob.Connections[ids[0]]
	drainMessages(conn)

	require.NoError(t, lob.UpdateRulesUnsafe(map[string]interface{}{
		"mode":      string(game.ModeQuestionBased),
		"turnLimit": float64(15),
	}))
	assert.Equal(t, game.ModeQuestionBased, lob.Rules.Mode)
	assert.Equal(t, 15, lob.Rules.TurnLimit)

	msgs := drainMessages(conn)
	found := false
	for _, m := range msgs {
		if m["type"] == "lobby_rules_updated" {
			found = true
		}
	}
	assert.True(t, found, "rules update should be broadcast")

	// A rejected update leaves the rules untouched.
	err := lob.UpdateRulesUnsafe(map[string]interface{}{"turnLimit": float64(7)})
	assert.Error(t, err)
	assert.Equal(t, 15, lob.Rules.TurnLimit)
	lob.Mu.Unlock()
}
