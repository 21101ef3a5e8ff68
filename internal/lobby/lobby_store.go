// internal/lobby/lobby_store.go
package lobby

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// LobbyStore is the in-memory registry of active lobbies.
type LobbyStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
}

// NewLobbyStore returns an empty store.
func NewLobbyStore() *LobbyStore {
	return &LobbyStore{
		lobbies: make(map[uuid.UUID]*Lobby),
	}
}

// AddLobby registers a lobby. Wire the lobby's OnEmpty callback to
// DeleteLobby before adding so abandoned lobbies clean themselves up.
func (s *LobbyStore) AddLobby(lobby *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[lobby.ID]; exists {
		log.Printf("LobbyStore: lobby %s already exists, not overwriting.", lobby.ID)
		return
	}
	s.lobbies[lobby.ID] = lobby
}

// DeleteLobby removes a lobby by id.
func (s *LobbyStore) DeleteLobby(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, id)
}

// GetLobby returns the lobby with the given id, if present.
func (s *LobbyStore) GetLobby(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// GetLobbies returns a copy of the active lobby map, safe to iterate while
// the store keeps mutating.
func (s *LobbyStore) GetLobbies() map[uuid.UUID]*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobbiesCopy := make(map[uuid.UUID]*Lobby, len(s.lobbies))
	for k, v := range s.lobbies {
		lobbiesCopy[k] = v
	}
	return lobbiesCopy
}
