// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
)

// PlayerView is one player's public state inside a snapshot.
type PlayerView struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Color             string    `json:"color,omitempty"`
	Icon              string    `json:"icon,omitempty"`
	Position          int       `json:"position"`
	Score             int       `json:"score"`
	BankruptCount     int       `json:"bankruptCount"`
	BonusCorrectCount int       `json:"bonusCorrectCount"`
	Connected         bool      `json:"connected"`
	IsCurrentTurn     bool      `json:"isCurrentTurn"`
}

// QuestionView is the pending question as shown to clients. The correct
// index is withheld until the question has been answered.
type QuestionView struct {
	PlayerID     uuid.UUID `json:"playerId"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	Difficulty   string    `json:"difficulty"`
	IsBonus      bool      `json:"isBonus"`
	SuddenDeath  bool      `json:"suddenDeath"`
	Answered     bool      `json:"answered"`
	AnswerIndex  int       `json:"answerIndex,omitempty"`
	Correct      bool      `json:"correct,omitempty"`
	CorrectIndex *int      `json:"correctIndex,omitempty"` // revealed after answering
}

// EffectView is the pending tile-effect panel as shown to clients.
type EffectView struct {
	TileIndex   int       `json:"tileIndex"`
	PlayerID    uuid.UUID `json:"playerId"`
	Kind        string    `json:"kind"`
	Amount      int       `json:"amount,omitempty"`
	TargetID    uuid.UUID `json:"targetId,omitempty"`
	Message     string    `json:"message"`
	RequiresAck bool      `json:"requiresAck"`
}

// OrderView exposes starting-order progress for the animated reveal.
type OrderView struct {
	Rolls           map[string]int `json:"rolls"`
	RollingPlayerID uuid.UUID      `json:"rollingPlayerId,omitempty"`
}

// SuddenDeathView exposes the elimination duel's sub-state.
type SuddenDeathView struct {
	Active     bool        `json:"active"`
	Round      int         `json:"round"`
	Contenders []uuid.UUID `json:"contenders"`
	AskingID   uuid.UUID   `json:"askingId,omitempty"`
}

// GameSnapshot is the authoritative read-only state published to the
// presentation layer after every engine callback.
type GameSnapshot struct {
	GameID             uuid.UUID        `json:"gameId"`
	Phase              Phase            `json:"phase"`
	Mode               Mode             `json:"mode"`
	TurnLimit          int              `json:"turnLimit,omitempty"`
	CurrentPlayerID    uuid.UUID        `json:"currentPlayerId"`
	DiceValue          int              `json:"diceValue"`
	CanRollDice        bool             `json:"canRollDice"`
	HighlightedTile    int              `json:"highlightedTile"`
	Turn               int              `json:"turn"`
	Round              int              `json:"round"`
	QuestionsRemaining int              `json:"questionsRemaining"`
	Players            []PlayerView     `json:"players"`
	PendingQuestion    *QuestionView    `json:"pendingQuestion,omitempty"`
	PendingEffect      *EffectView      `json:"pendingEffect,omitempty"`
	Order              *OrderView       `json:"order,omitempty"`
	SuddenDeath        *SuddenDeathView `json:"suddenDeath,omitempty"`
	GameOver           bool             `json:"gameOver"`
	WinnerID           uuid.UUID        `json:"winnerId,omitempty"`
}

// Snapshot returns a copy of the current engine state.
func (g *QuizGame) Snapshot() GameSnapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotUnsafe()
}

// snapshotUnsafe builds the snapshot. Assumes lock held.
func (g *QuizGame) snapshotUnsafe() GameSnapshot {
	snap := GameSnapshot{
		GameID:             g.ID,
		Phase:              g.Phase,
		Mode:               g.Config.Mode,
		DiceValue:          g.DiceValue,
		CanRollDice:        g.CanRollDice,
		Turn:               g.turnsTaken,
		Round:              g.Round,
		QuestionsRemaining: g.Pool.Remaining(),
		GameOver:           g.GameOver,
		WinnerID:           g.WinnerID,
	}
	if g.Config.Mode == ModeTurnBased {
		snap.TurnLimit = g.Config.TurnLimit
	}
	if len(g.Players) > 0 && g.CurrentPlayerIndex < len(g.Players) {
		cur := g.Players[g.CurrentPlayerIndex]
		snap.CurrentPlayerID = cur.ID
		snap.HighlightedTile = cur.Position
	}
	for i, p := range g.Players {
		snap.Players = append(snap.Players, PlayerView{
			ID:                p.ID,
			Name:              p.Name,
			Color:             p.Color,
			Icon:              p.Icon,
			Position:          p.Position,
			Score:             p.Score,
			BankruptCount:     p.BankruptCount,
			BonusCorrectCount: p.BonusCorrectCount,
			Connected:         p.Connected,
			IsCurrentTurn:     i == g.CurrentPlayerIndex && g.Phase != PhaseStartingOrder,
		})
	}
	if pq := g.PendingQuestion; pq != nil {
		qv := &QuestionView{
			PlayerID:    pq.PlayerID,
			Text:        pq.Question.Text,
			Options:     pq.Question.Options,
			Difficulty:  string(pq.Question.Difficulty),
			IsBonus:     pq.IsBonus,
			SuddenDeath: pq.SuddenDeath,
			Answered:    pq.Answered,
		}
		if pq.Answered {
			qv.AnswerIndex = pq.AnswerIndex
			qv.Correct = pq.Correct
			ci := pq.Question.CorrectIndex
			qv.CorrectIndex = &ci
		}
		snap.PendingQuestion = qv
	}
	if pe := g.PendingEffect; pe != nil {
		snap.PendingEffect = &EffectView{
			TileIndex:   pe.TileIndex,
			PlayerID:    pe.PlayerID,
			Kind:        string(pe.Kind),
			Amount:      pe.Amount,
			TargetID:    pe.TargetID,
			Message:     pe.Message,
			RequiresAck: pe.RequiresAck,
		}
	}
	if g.Phase == PhaseStartingOrder && g.order != nil {
		ov := &OrderView{Rolls: make(map[string]int, len(g.order.Rolls))}
		for id, v := range g.order.Rolls {
			ov.Rolls[id.String()] = v
		}
		if g.order.rollingIdx >= 0 && g.order.rollingIdx < len(g.Players) {
			ov.RollingPlayerID = g.Players[g.order.rollingIdx].ID
		}
		snap.Order = ov
	}
	if g.sudden != nil {
		sv := &SuddenDeathView{
			Active:     true,
			Round:      g.sudden.Round,
			Contenders: append([]uuid.UUID(nil), g.sudden.Contenders...),
		}
		if g.PendingQuestion != nil && g.PendingQuestion.SuddenDeath {
			sv.AskingID = g.PendingQuestion.PlayerID
		}
		snap.SuddenDeath = sv
	}
	return snap
}
