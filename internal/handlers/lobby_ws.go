// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizloop/quizloop/internal/lobby"
	"github.com/quizloop/quizloop/internal/middleware"
)

// LobbyWSHandler runs the ephemeral in-memory lobby WS flow: join, ready,
// chat, rules, profile selection and game start.
func LobbyWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/lobby/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "missing lobby_id", http.StatusBadRequest)
			return
		}
		lobbyUUID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "invalid lobby_id", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		userUUID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("Authentication failed for lobby %s: %v", lobbyUUID, err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}

		lob, exists := gs.LobbyStore.GetLobby(lobbyUUID)
		if !exists {
			c.Close(InvalidLobbyIDError, "lobby does not exist")
			return
		}

		lob.Mu.Lock()
		_, isInvitedOrPresent := lob.Users[userUUID]
		lobbyType := lob.Type
		lob.Mu.Unlock()

		if lobbyType == "private" && !isInvitedOrPresent && lob.HostUserID != userUUID {
			c.Close(websocket.StatusPolicyViolation, "user not invited to private lobby")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &lobby.LobbyConnection{
			UserID:  userUUID,
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, 10),
			IsHost:  lob.HostUserID == userUUID,
		}

		// The host joins their own private lobby without an invite.
		if lob.HostUserID == userUUID {
			lob.Mu.Lock()
			if _, ok := lob.Users[userUUID]; !ok {
				lob.Users[userUUID] = true
			}
			lob.Mu.Unlock()
		}

		if err := lob.AddConnection(userUUID, conn); err != nil {
			logger.Warnf("failed AddConnection: %v", err)
			c.Close(websocket.StatusPolicyViolation, fmt.Sprintf("AddConnection error: %v", err))
			cancel()
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		logger.Infof("User %v connected to lobby %v", userUUID, lobbyUUID)

		go lobbyWritePump(ctx, c, conn, logger)
		lobbyReadPump(ctx, c, gs, lob, conn, logger)

		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
		lob.RemoveUser(userUUID)
	}
}

// lobbyReadPump handles incoming lobby messages. Each message is handled
// under the lobby lock; countdown starts and game creation run after
// release.
func lobbyReadPump(ctx context.Context, c *websocket.Conn, gs *GameServer, lob *lobby.Lobby, conn *lobby.LobbyConnection, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus != websocket.StatusNormalClosure && closeStatus != websocket.StatusGoingAway &&
				!strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("Lobby %s: read error for user %v: %v", lob.ID, conn.UserID, err)
			}
			return
		}

		if typ != websocket.MessageText {
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("Lobby %s: invalid json from user %v: %v", lob.ID, conn.UserID, err)
			conn.WriteError("Invalid JSON format")
			continue
		}

		var startCountdown, startGame, leave bool

		lob.Mu.Lock()
		currentConn, stillConnected := lob.Connections[conn.UserID]
		if !stillConnected || currentConn != conn {
			lob.Mu.Unlock()
			continue
		}
		handleLobbyMessage(packet, lob, conn, logger, &startCountdown, &startGame, &leave)
		lob.Mu.Unlock()

		if leave {
			lob.RemoveUser(conn.UserID)
			return
		}
		if startCountdown {
			lob.Mu.Lock()
			lob.StartCountdownUnsafe(10, func(l *lobby.Lobby) {
				startGameFromLobby(gs, l, logger)
			})
			lob.Mu.Unlock()
		}
		if startGame {
			startGameFromLobby(gs, lob, logger)
		}
	}
}

// handleLobbyMessage interprets one lobby packet. Assumes lock held; signals
// post-lock work through the out parameters.
func handleLobbyMessage(packet map[string]interface{}, lob *lobby.Lobby, senderConn *lobby.LobbyConnection, logger *logrus.Logger, startCountdown, startGame, leave *bool) {
	action, _ := packet["type"].(string)

	switch action {
	case "ready":
		if lob.MarkUserReadyUnsafe(senderConn.UserID) {
			*startCountdown = true
		}

	case "unready":
		lob.MarkUserUnreadyUnsafe(senderConn.UserID)

	case "invite":
		userIDStr, _ := packet["userID"].(string)
		userToAdd, err := uuid.Parse(userIDStr)
		if err != nil {
			senderConn.WriteError("Invalid userID format for invite")
			return
		}
		lob.InviteUserUnsafe(userToAdd)

	case "set_profile":
		color, _ := packet["color"].(string)
		icon, _ := packet["icon"].(string)
		if err := lob.SetProfileUnsafe(senderConn.UserID, color, icon); err != nil {
			senderConn.WriteError(err.Error())
		}

	case "leave_lobby":
		*leave = true

	case "chat":
		msg, _ := packet["msg"].(string)
		if msg != "" {
			lob.BroadcastChatUnsafe(senderConn, msg)
		}

	case "update_rules":
		if !senderConn.IsHost {
			senderConn.WriteError("Only the host can update rules")
			return
		}
		rulesData, ok := packet["rules"].(map[string]interface{})
		if !ok {
			senderConn.WriteError("Invalid payload for update_rules")
			return
		}
		if err := lob.UpdateRulesUnsafe(rulesData); err != nil {
			logger.Warnf("Lobby %s: rules update failed: %v", lob.ID, err)
			senderConn.WriteError(fmt.Sprintf("Failed to apply rule updates: %v", err))
		}

	case "start_game":
		if !senderConn.IsHost {
			senderConn.WriteError("Only the host can force start")
			return
		}
		if lob.InGame {
			senderConn.WriteError("Game already in progress")
			return
		}
		if !lob.AreAllReadyUnsafe() {
			senderConn.WriteError("Not all users are ready")
			return
		}
		lob.CancelCountdownUnsafe()
		*startGame = true

	case "request_state":
		lob.SendLobbyStateUnsafe(senderConn.UserID)

	default:
		logger.Warnf("Lobby %s: unknown action %q from user %v", lob.ID, action, senderConn.UserID)
		senderConn.WriteError(fmt.Sprintf("Unknown action type: %s", action))
	}
}

// startGameFromLobby snapshots the lobby's seats, rules and profiles, builds
// the engine and flips the lobby into in-game state. Retires a leftover
// finished game first.
func startGameFromLobby(gs *GameServer, lob *lobby.Lobby, logger *logrus.Logger) {
	lob.Mu.Lock()
	if lob.InGame {
		lob.Mu.Unlock()
		return
	}
	lobbyID := lob.ID
	rules := lob.Rules
	oldGameID := lob.GameID
	seats := make([]*lobby.LobbyConnection, 0, len(lob.Connections))
	for _, conn := range lob.Connections {
		seats = append(seats, conn)
	}
	profiles := make(map[uuid.UUID]lobby.PlayerProfile, len(lob.Profiles))
	for uid, prof := range lob.Profiles {
		profiles[uid] = prof
	}
	lob.Mu.Unlock()

	if oldGameID != uuid.Nil {
		gs.GameStore.DeleteGame(oldGameID)
	}

	g := gs.CreateGameInstance(context.Background(), lobbyID, rules, seats, profiles)
	if g == nil {
		logger.Errorf("Lobby %s: failed to create game instance.", lobbyID)
		return
	}
	logger.Infof("Lobby %s: game instance %s created.", lobbyID, g.ID)

	lob.Mu.Lock()
	if lob.InGame {
		// A concurrent start won the race; retire the duplicate.
		lob.Mu.Unlock()
		gs.GameStore.DeleteGame(g.ID)
		return
	}
	lob.InGame = true
	lob.GameID = g.ID
	lob.BroadcastAllUnsafe(map[string]interface{}{
		"type":    "game_start",
		"game_id": g.ID.String(),
	})
	lob.Mu.Unlock()
}

// lobbyWritePump drains the connection's OutChan onto the socket and sends
// periodic pings.
func lobbyWritePump(ctx context.Context, c *websocket.Conn, conn *lobby.LobbyConnection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Lobby: failed to marshal outgoing msg for user %v: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Lobby: write failed for user %v: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Lobby: ping failed for user %v, assuming disconnect.", conn.UserID)
				return
			}
		}
	}
}
