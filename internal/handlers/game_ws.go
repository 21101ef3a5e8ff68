// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quizloop/quizloop/internal/database"
	"github.com/quizloop/quizloop/internal/game"
	"github.com/quizloop/quizloop/internal/middleware"
	"github.com/quizloop/quizloop/internal/models"
)

// GameMessage is the envelope for incoming game-phase WebSocket messages.
type GameMessage struct {
	Type string `json:"type"`

	// Option is the selected answer index for "answer" messages.
	Option *int `json:"option,omitempty"`

	// PlayerIndex and Delta parameterize the developer-mode "force_move".
	PlayerIndex *int `json:"playerIndex,omitempty"`
	Delta       *int `json:"delta,omitempty"`
}

// GameWSHandler upgrades the connection for a specific game instance,
// authenticates the user, verifies seat membership and runs the read loop.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must use the 'game' subprotocol")
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("Authentication failed for game %s: %v", gameID, err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}

		g.Mu.Lock()
		isPlayerInGame := false
		for _, p := range g.Players {
			if p.ID == userID {
				isPlayerInGame = true
				break
			}
		}
		if g.BroadcastFn == nil {
			g.BroadcastFn = createBroadcastFunc(g, logger)
		}
		if g.BroadcastToPlayerFn == nil {
			g.BroadcastToPlayerFn = createBroadcastToPlayerFunc(g, logger)
		}
		g.Mu.Unlock()

		if !isPlayerInGame {
			logger.Warnf("User %s is not a player in game %s.", userID, gameID)
			c.Close(websocket.StatusPolicyViolation, "You are not a player in this game.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		logger.Infof("User %s connected to game %s", userID, gameID)

		// Elevated commands are gated on account flags resolved at connect time.
		isAdmin := false
		if database.DB != nil {
			if u, uerr := database.GetUserByID(r.Context(), userID); uerr == nil {
				isAdmin = u.IsAdmin
			}
		}
		isHost := false
		if lob, exists := gs.LobbyStore.GetLobby(g.LobbyID); exists {
			isHost = lob.HostUserID == userID
		}

		g.HandleReconnect(userID, &models.Player{ID: userID, Conn: c, Connected: true})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readGameMessages(ctx, c, g, userID, isAdmin, isHost, logger)

		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
		g.HandleDisconnect(userID)
	}
}

// createBroadcastFunc builds the engine's BroadcastFn. The engine invokes it
// with its lock already held, so player state is read in place and the
// actual network writes happen on a separate goroutine.
func createBroadcastFunc(g *game.QuizGame, logger *logrus.Logger) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		conns := make([]*websocket.Conn, 0, len(g.Players))
		for _, p := range g.Players {
			if p.Connected && p.Conn != nil {
				conns = append(conns, p.Conn)
			}
		}
		if len(conns) == 0 {
			return
		}
		data := game.ConvertEventToBytes(ev)
		go func(conns []*websocket.Conn, data []byte, gameID uuid.UUID) {
			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("Broadcast write failed in game %s: %v", gameID, err)
				}
			}
		}(conns, data, g.ID)
	}
}

// createBroadcastToPlayerFunc builds the engine's BroadcastToPlayerFn with
// the same locking contract as createBroadcastFunc.
func createBroadcastToPlayerFunc(g *game.QuizGame, logger *logrus.Logger) func(targetPlayerID uuid.UUID, ev game.GameEvent) {
	return func(targetPlayerID uuid.UUID, ev game.GameEvent) {
		var targetConn *websocket.Conn
		for _, pl := range g.Players {
			if pl.ID == targetPlayerID {
				if pl.Connected && pl.Conn != nil {
					targetConn = pl.Conn
				}
				break
			}
		}
		if targetConn == nil {
			return
		}
		data := game.ConvertEventToBytes(ev)
		go func(conn *websocket.Conn, data []byte, playerID, gameID uuid.UUID) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Private write to player %s failed in game %s: %v", playerID, gameID, err)
			}
		}(targetConn, data, targetPlayerID, g.ID)
	}
}

// readGameMessages reads client messages and routes them to engine commands.
// Every engine command locks internally and treats invalid input as a silent
// no-op, so routing needs no lock of its own.
func readGameMessages(ctx context.Context, c *websocket.Conn, g *game.QuizGame, userID uuid.UUID, isAdmin, isHost bool, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for user %s in game %s.", userID, g.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for user %s in game %s.", userID, g.ID)
			} else {
				logger.Warnf("Read error for user %s in game %s: %v (status %d)", userID, g.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from user %s in game %s: %v", userID, g.ID, err)
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}

		logger.Debugf("Action %q from user %s in game %s.", msg.Type, userID, g.ID)

		switch msg.Type {
		case "roll":
			g.RollDice(userID)

		case "answer":
			if msg.Option == nil {
				sendWsError(ctx, c, "answer requires an option index")
				continue
			}
			g.AnswerQuestion(userID, *msg.Option)

		case "ack_question":
			g.AcknowledgeQuestion(userID)

		case "ack_effect":
			g.AcknowledgeTileEffect(userID)

		case "force_move":
			if !isAdmin {
				sendWsError(ctx, c, "force_move requires admin")
				continue
			}
			if msg.PlayerIndex == nil || msg.Delta == nil {
				sendWsError(ctx, c, "force_move requires playerIndex and delta")
				continue
			}
			g.ForceMove(*msg.PlayerIndex, *msg.Delta)

		case "end_now":
			if !isHost && !isAdmin {
				sendWsError(ctx, c, "end_now requires the host")
				continue
			}
			g.EndGameNow()

		case "restart":
			if !isHost && !isAdmin {
				sendWsError(ctx, c, "restart requires the host")
				continue
			}
			g.Restart()

		case "sync":
			snap := g.Snapshot()
			sendWsMessage(ctx, c, game.GameEvent{Type: game.EventSyncState, State: &snap})

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown action %q from user %s in game %s.", msg.Type, userID, g.ID)
			sendWsError(ctx, c, fmt.Sprintf("Unknown action type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// sendWsMessage marshals a message and writes it with a timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (status %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
