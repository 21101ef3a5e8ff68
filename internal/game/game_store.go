package game

import (
	"sync"

	"github.com/google/uuid"
)

type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*QuizGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*QuizGame),
	}
}

func (s *GameStore) AddGame(g *QuizGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

func (s *GameStore) GetGame(id uuid.UUID) (*QuizGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

// DeleteGame disposes the engine before dropping it so outstanding ticks
// become no-ops.
func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	g, exists := s.games[id]
	delete(s.games, id)
	s.mu.Unlock()
	if exists {
		g.Dispose()
	}
}

// GetGameByLobbyID returns the game spawned from a lobby, or nil.
func (s *GameStore) GetGameByLobbyID(lobbyID uuid.UUID) *QuizGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.LobbyID == lobbyID {
			return g
		}
	}
	return nil
}
