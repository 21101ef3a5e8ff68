// internal/handlers/game_server.go
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quizloop/quizloop/internal/database"
	"github.com/quizloop/quizloop/internal/game"
	"github.com/quizloop/quizloop/internal/lobby"
	"github.com/quizloop/quizloop/internal/models"
)

// GameServer owns the in-memory stores and creates game instances from
// lobbies.
type GameServer struct {
	LobbyStore *lobby.LobbyStore
	GameStore  *game.GameStore
}

func NewGameServer() *GameServer {
	return &GameServer{
		LobbyStore: lobby.NewLobbyStore(),
		GameStore:  game.NewGameStore(),
	}
}

// CreateGameInstance builds an engine for the given lobby seats, loads the
// question bank and starts the game. Called without the lobby lock held; all
// needed lobby state is passed in by value.
func (gs *GameServer) CreateGameInstance(ctx context.Context, lobbyID uuid.UUID, cfg game.GameConfig, seats []*lobby.LobbyConnection, profiles map[uuid.UUID]lobby.PlayerProfile) *game.QuizGame {
	if len(seats) < 2 {
		log.Printf("Lobby %s: cannot start game with %d player(s).", lobbyID, len(seats))
		return nil
	}

	questions := gs.loadQuestionBank(ctx)
	g := game.NewQuizGame(cfg, questions)
	g.LobbyID = lobbyID

	for _, conn := range seats {
		prof := profiles[conn.UserID]
		g.AddPlayer(&models.Player{
			ID:        conn.UserID,
			Name:      conn.Username,
			Color:     prof.Color,
			Icon:      prof.Icon,
			Connected: true,
		})
	}

	g.OnGameEnd = func(endedLobbyID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int) {
		gs.handleGameEnd(g, endedLobbyID, winner, scores)
	}

	gs.GameStore.AddGame(g)
	g.Start()
	return g
}

// loadQuestionBank pulls questions from Postgres, falling back to the
// built-in set when the database is unavailable or empty.
func (gs *GameServer) loadQuestionBank(ctx context.Context) []*models.Question {
	if database.DB == nil {
		log.Printf("Question bank: no database connection, using built-in questions.")
		return game.DefaultQuestions()
	}
	questions, err := database.LoadQuestions(ctx)
	if err != nil {
		log.Printf("Question bank: load failed (%v), using built-in questions.", err)
		return game.DefaultQuestions()
	}
	if len(questions) == 0 {
		log.Printf("Question bank: empty table, using built-in questions.")
		return game.DefaultQuestions()
	}
	return questions
}

// handleGameEnd persists the result, resets the lobby and broadcasts the
// final standings. Runs off the engine's timeline.
func (gs *GameServer) handleGameEnd(g *game.QuizGame, lobbyID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int) {
	if database.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		g.Mu.Lock()
		players := append([]*models.Player(nil), g.Players...)
		g.Mu.Unlock()
		if err := database.RecordGameResults(ctx, g.ID, lobbyID, players, scores, winner); err != nil {
			log.Printf("Game %s: failed to persist results: %v", g.ID, err)
		}
		cancel()
	}

	// Keep the instance in the store: players may restart it in place. It is
	// disposed when the lobby starts a new game or empties out.
	lobInstance, exists := gs.LobbyStore.GetLobby(lobbyID)
	if !exists {
		gs.GameStore.DeleteGame(g.ID)
		return
	}

	lobInstance.Mu.Lock()
	// GameID stays pointing at the finished instance so the next game start
	// can retire it from the store.
	lobInstance.InGame = false
	for uid := range lobInstance.Connections {
		lobInstance.ReadyStates[uid] = false
	}
	resultMsg := map[string]interface{}{
		"type":   "game_results",
		"winner": winner.String(),
		"scores": map[string]int{},
	}
	for pid, sc := range scores {
		resultMsg["scores"].(map[string]int)[pid.String()] = sc
	}
	lobInstance.BroadcastAllUnsafe(resultMsg)
	lobInstance.Mu.Unlock()
}
