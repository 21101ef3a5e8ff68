// internal/lobby/lobby.go
package lobby

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizloop/quizloop/internal/database"
	"github.com/quizloop/quizloop/internal/game"
)

// Lobby is an ephemeral grouping of users before and between games: chat,
// rule negotiation, pawn profile selection and ready states.
type Lobby struct {
	ID         uuid.UUID `json:"id"`
	HostUserID uuid.UUID `json:"hostUserID"`
	Type       string    `json:"type"` // "private" or "public"

	// Users maps userID -> joined (true) or merely invited (false).
	Users map[uuid.UUID]bool `json:"-"`

	// Connections holds the live WebSocket presences for joined users.
	Connections map[uuid.UUID]*LobbyConnection `json:"-"`
	// ReadyStates maps userID -> "is ready".
	ReadyStates map[uuid.UUID]bool `json:"-"`
	// Profiles holds each user's pawn color/icon choice.
	Profiles map[uuid.UUID]PlayerProfile `json:"-"`

	GameInstanceCreated bool      `json:"-"`
	GameID              uuid.UUID `json:"gameId,omitempty"`
	InGame              bool      `json:"inGame"`

	CountdownTimer *time.Timer `json:"-"`

	// Rules is the game configuration the lobby has negotiated; it is handed
	// to the engine verbatim at game start.
	Rules game.GameConfig `json:"rules"`

	// AutoStart begins a countdown once everybody is ready.
	AutoStart bool `json:"autoStart"`

	// OnEmpty is called after the last user leaves, typically wired to the
	// store's DeleteLobby.
	OnEmpty func(lobbyID uuid.UUID) `json:"-"`

	Mu sync.Mutex
}

// PlayerProfile is a user's chosen pawn appearance.
type PlayerProfile struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// LobbyConnection is a single user's presence in the lobby.
type LobbyConnection struct {
	UserID   uuid.UUID
	Username string
	Cancel   func()
	OutChan  chan map[string]interface{}
	IsHost   bool
}

// Write pushes a message onto the user's OutChan without blocking; a full or
// closed channel drops the message with a log line.
func (conn *LobbyConnection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("Lobby: OutChan for user %s closed or full, dropped %q.", conn.UserID, msgType)
	}
}

// WriteError sends an error object to this user.
func (conn *LobbyConnection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// NewLobbyWithDefaults creates a private lobby with the default game rules.
func NewLobbyWithDefaults(hostID uuid.UUID) *Lobby {
	lobbyID, _ := uuid.NewRandom()
	return &Lobby{
		ID:          lobbyID,
		HostUserID:  hostID,
		Type:        "private",
		Users:       make(map[uuid.UUID]bool),
		Connections: make(map[uuid.UUID]*LobbyConnection),
		ReadyStates: make(map[uuid.UUID]bool),
		Profiles:    make(map[uuid.UUID]PlayerProfile),
		Rules:       game.DefaultConfig(),
		AutoStart:   true,
	}
}

// InviteUserUnsafe marks a user as invited. Assumes lock held.
func (lobby *Lobby) InviteUserUnsafe(userID uuid.UUID) {
	if _, exists := lobby.Users[userID]; exists {
		log.Printf("Lobby %s: user %s already present or invited.", lobby.ID, userID)
		return
	}
	lobby.Users[userID] = false
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":      "lobby_invite",
		"invitedID": userID.String(),
	})
}

// AddConnection registers a live connection for a user, fetching their
// username and seeding a default profile. Acquires the lock.
func (lobby *Lobby) AddConnection(userID uuid.UUID, conn *LobbyConnection) error {
	lobby.Mu.Lock()

	joined, exists := lobby.Users[userID]
	if !exists {
		if lobby.Type != "private" {
			lobby.Users[userID] = true
		} else {
			lobby.Mu.Unlock()
			return fmt.Errorf("user %s not invited to private lobby %s", userID, lobby.ID)
		}
	} else if joined {
		// Rejoin: retire the previous connection's pump.
		if oldConn, ok := lobby.Connections[userID]; ok && oldConn != conn {
			close(oldConn.OutChan)
			if oldConn.Cancel != nil {
				oldConn.Cancel()
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	user, err := database.GetUserByID(ctx, userID)
	cancel()
	if err != nil {
		log.Printf("Lobby %s: failed to fetch user %s: %v, using placeholder name.", lobby.ID, userID, err)
		conn.Username = fmt.Sprintf("Player_%s", userID.String()[:4])
	} else {
		conn.Username = user.Username
	}

	lobby.Connections[userID] = conn
	lobby.ReadyStates[userID] = false
	lobby.Users[userID] = true
	if _, ok := lobby.Profiles[userID]; !ok {
		lobby.Profiles[userID] = defaultProfile(len(lobby.Profiles))
	}

	log.Printf("Lobby %s: user %s (%s) connected.", lobby.ID, userID, conn.Username)

	statePayload := lobby.statePayloadUnsafe(userID)
	joinPayload := lobby.joinPayloadUnsafe(userID)
	lobby.Mu.Unlock()

	// Private state first, join broadcast second, both off the lock.
	go func() {
		conn.Write(statePayload)
		lobby.BroadcastAll(joinPayload)
	}()
	return nil
}

// lobbyPalette is the pool of default pawn colors assigned in join order.
var lobbyPalette = []string{"red", "blue", "green", "yellow", "purple", "orange", "teal", "pink"}

func defaultProfile(n int) PlayerProfile {
	return PlayerProfile{
		Color: lobbyPalette[n%len(lobbyPalette)],
		Icon:  "pawn",
	}
}

// SetProfileUnsafe applies a color/icon choice, rejecting a color another
// user already holds. Assumes lock held.
func (lobby *Lobby) SetProfileUnsafe(userID uuid.UUID, color, icon string) error {
	if color != "" {
		for uid, prof := range lobby.Profiles {
			if uid != userID && prof.Color == color {
				return fmt.Errorf("color %q already taken", color)
			}
		}
	}
	prof := lobby.Profiles[userID]
	if color != "" {
		prof.Color = color
	}
	if icon != "" {
		prof.Icon = icon
	}
	lobby.Profiles[userID] = prof
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":    "profile_update",
		"user_id": userID.String(),
		"color":   prof.Color,
		"icon":    prof.Icon,
	})
	return nil
}

// RemoveUser drops a user's presence, cancels any countdown and fires the
// OnEmpty callback if they were the last one. Acquires the lock.
func (lobby *Lobby) RemoveUser(userID uuid.UUID) {
	lobby.Mu.Lock()

	conn, connExists := lobby.Connections[userID]
	if !connExists {
		delete(lobby.Users, userID)
		lobby.Mu.Unlock()
		return
	}

	log.Printf("Lobby %s: removing user %s.", lobby.ID, userID)

	// Retire the pump off the lock; Write may be mid-send.
	go func(ch chan map[string]interface{}, cancelFunc func()) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Lobby %s: recovered closing OutChan for %s: %v", lobby.ID, userID, r)
			}
		}()
		close(ch)
		if cancelFunc != nil {
			cancelFunc()
		}
	}(conn.OutChan, conn.Cancel)

	delete(lobby.Users, userID)
	delete(lobby.Connections, userID)
	delete(lobby.ReadyStates, userID)
	delete(lobby.Profiles, userID)

	leavePayload := lobby.leavePayloadUnsafe(userID, conn.Username)
	isEmpty := len(lobby.Connections) == 0
	onEmptyCallback := lobby.OnEmpty
	lobby.CancelCountdownUnsafe()

	lobby.Mu.Unlock()

	lobby.BroadcastAll(leavePayload)

	if isEmpty && onEmptyCallback != nil {
		log.Printf("Lobby %s is empty, triggering OnEmpty.", lobby.ID)
		onEmptyCallback(lobby.ID)
	}
}

// StartCountdownUnsafe begins the pre-game countdown. Assumes lock held.
// Returns false if a countdown is already running, a game is in progress or
// fewer than two users are connected.
func (lobby *Lobby) StartCountdownUnsafe(seconds int, callback func(*Lobby)) bool {
	if lobby.InGame || lobby.CountdownTimer != nil {
		return false
	}
	if len(lobby.Connections) < 2 {
		return false
	}

	log.Printf("Lobby %s: starting %d second countdown.", lobby.ID, seconds)
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":    "lobby_countdown_start",
		"seconds": seconds,
	})

	var timer *time.Timer
	timer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		lobby.Mu.Lock()
		if lobby.CountdownTimer != timer {
			// A newer countdown superseded this one.
			lobby.Mu.Unlock()
			return
		}
		lobby.CountdownTimer = nil
		lobby.Mu.Unlock()
		callback(lobby)
	})
	lobby.CountdownTimer = timer
	return true
}

// CancelCountdownUnsafe stops a running countdown, if any. Assumes lock held.
func (lobby *Lobby) CancelCountdownUnsafe() {
	if lobby.CountdownTimer == nil {
		return
	}
	if lobby.CountdownTimer.Stop() {
		lobby.BroadcastAllUnsafe(map[string]interface{}{
			"type": "lobby_countdown_cancel",
		})
	}
	lobby.CountdownTimer = nil
}

// MarkUserReadyUnsafe flips a user to ready and reports whether an
// auto-start countdown should begin. Assumes lock held.
func (lobby *Lobby) MarkUserReadyUnsafe(userID uuid.UUID) bool {
	conn, ok := lobby.Connections[userID]
	if !ok {
		return false
	}
	if lobby.ReadyStates[userID] {
		return false
	}
	lobby.ReadyStates[userID] = true
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "ready_update",
		"user_id":  userID.String(),
		"username": conn.Username,
		"is_ready": true,
	})
	return lobby.AreAllReadyUnsafe() && lobby.AutoStart && !lobby.InGame
}

// MarkUserUnreadyUnsafe flips a user to not-ready and cancels any running
// countdown. Assumes lock held.
func (lobby *Lobby) MarkUserUnreadyUnsafe(userID uuid.UUID) {
	conn, ok := lobby.Connections[userID]
	if !ok {
		return
	}
	if !lobby.ReadyStates[userID] {
		return
	}
	lobby.ReadyStates[userID] = false
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "ready_update",
		"user_id":  userID.String(),
		"username": conn.Username,
		"is_ready": false,
	})
	lobby.CancelCountdownUnsafe()
}

// AreAllReadyUnsafe reports whether every connected user is ready; fewer
// than two users never counts as ready. Assumes lock held.
func (lobby *Lobby) AreAllReadyUnsafe() bool {
	if len(lobby.Connections) < 2 {
		return false
	}
	for userID := range lobby.Connections {
		if !lobby.ReadyStates[userID] {
			return false
		}
	}
	return true
}

// BroadcastAllUnsafe sends msg to every connected user. Writes are
// non-blocking so holding the lock is safe. Assumes lock held.
func (lobby *Lobby) BroadcastAllUnsafe(msg map[string]interface{}) {
	for _, conn := range lobby.Connections {
		conn.Write(msg)
	}
}

// BroadcastAll sends msg to every connected user. Acquires the lock.
func (lobby *Lobby) BroadcastAll(msg map[string]interface{}) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	lobby.BroadcastAllUnsafe(msg)
}

// BroadcastChatUnsafe relays a chat line from the sender. Assumes lock held.
func (lobby *Lobby) BroadcastChatUnsafe(senderConn *LobbyConnection, msg string) {
	username := senderConn.Username
	if username == "" {
		username = "Unknown"
	}
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "chat",
		"user_id":  senderConn.UserID.String(),
		"username": username,
		"msg":      msg,
		"ts":       time.Now().Unix(),
	})
}

// UpdateRulesUnsafe applies a partial rules update and broadcasts the result
// when anything actually changed. Assumes lock held.
func (lobby *Lobby) UpdateRulesUnsafe(rules map[string]interface{}) error {
	before := lobby.Rules
	if err := lobby.Rules.Update(rules); err != nil {
		return err
	}
	if lobby.Rules != before {
		lobby.BroadcastAllUnsafe(map[string]interface{}{
			"type":  "lobby_rules_updated",
			"rules": lobby.Rules,
		})
	}
	return nil
}

// statusPayloadUnsafe lists every connected user with their ready state and
// profile. Assumes lock held.
func (lobby *Lobby) statusPayloadUnsafe() map[string]interface{} {
	users := []map[string]interface{}{}
	for userID, conn := range lobby.Connections {
		prof := lobby.Profiles[userID]
		users = append(users, map[string]interface{}{
			"id":       userID.String(),
			"username": conn.Username,
			"is_host":  conn.IsHost,
			"is_ready": lobby.ReadyStates[userID],
			"color":    prof.Color,
			"icon":     prof.Icon,
		})
	}
	return map[string]interface{}{"users": users}
}

func (lobby *Lobby) joinPayloadUnsafe(userID uuid.UUID) map[string]interface{} {
	username := "Unknown"
	isHost := false
	if conn, ok := lobby.Connections[userID]; ok {
		username = conn.Username
		isHost = conn.IsHost
	}
	return map[string]interface{}{
		"type":         "lobby_update",
		"user_join":    userID.String(),
		"username":     username,
		"is_host":      isHost,
		"lobby_status": lobby.statusPayloadUnsafe(),
	}
}

func (lobby *Lobby) leavePayloadUnsafe(userID uuid.UUID, username string) map[string]interface{} {
	return map[string]interface{}{
		"type":         "lobby_update",
		"user_left":    userID.String(),
		"username":     username,
		"lobby_status": lobby.statusPayloadUnsafe(),
	}
}

// statePayloadUnsafe builds the full private state message sent to a user on
// connect. Assumes lock held.
func (lobby *Lobby) statePayloadUnsafe(userID uuid.UUID) map[string]interface{} {
	isHost := false
	if conn, ok := lobby.Connections[userID]; ok {
		isHost = conn.IsHost
	}
	gameIDStr := ""
	if lobby.GameID != uuid.Nil {
		gameIDStr = lobby.GameID.String()
	}
	return map[string]interface{}{
		"type":         "lobby_state",
		"lobby_id":     lobby.ID.String(),
		"host_id":      lobby.HostUserID.String(),
		"your_id":      userID.String(),
		"your_is_host": isHost,
		"lobby_type":   lobby.Type,
		"in_game":      lobby.InGame,
		"game_id":      gameIDStr,
		"rules":        lobby.Rules,
		"auto_start":   lobby.AutoStart,
		"lobby_status": lobby.statusPayloadUnsafe(),
	}
}

// SendLobbyStateUnsafe sends the full state to one user. Assumes lock held.
func (lobby *Lobby) SendLobbyStateUnsafe(userID uuid.UUID) {
	conn, ok := lobby.Connections[userID]
	if !ok {
		return
	}
	conn.Write(lobby.statePayloadUnsafe(userID))
}
