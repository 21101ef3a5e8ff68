// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quizloop/quizloop/internal/auth"
	"github.com/quizloop/quizloop/internal/lobby"
)

var validLobbyTypes = map[string]bool{
	"private": true,
	"public":  true,
}

// CreateLobbyHandler creates an in-memory lobby. The OnEmpty callback removes
// both the lobby and any game it spawned once the last user leaves.
func CreateLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		token := extractCookieToken(cookie, "auth_token")

		userIDStr, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id format in token", http.StatusBadRequest)
			return
		}

		lob := lobby.NewLobbyWithDefaults(userID)

		if err := json.NewDecoder(r.Body).Decode(lob); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}
		if lob.Type != "" && !validLobbyTypes[lob.Type] {
			http.Error(w, "invalid lobby type", http.StatusBadRequest)
			return
		}

		lob.OnEmpty = func(lobbyID uuid.UUID) {
			if g := gs.GameStore.GetGameByLobbyID(lobbyID); g != nil {
				gs.GameStore.DeleteGame(g.ID)
			}
			gs.LobbyStore.DeleteLobby(lobbyID)
		}

		gs.LobbyStore.AddLobby(lob)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lob)
	}
}

// ListLobbiesHandler returns the in-memory lobby set.
func ListLobbiesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		token := extractCookieToken(cookie, "auth_token")
		if _, err := auth.AuthenticateJWT(token); err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		lobbies := gs.LobbyStore.GetLobbies()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lobbies)
	}
}
