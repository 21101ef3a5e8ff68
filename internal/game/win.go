// internal/game/win.go
package game

import (
	"log"

	"github.com/google/uuid"
)

// evaluateWinner runs the end-of-game ranking: highest score first, then
// highest bonus-correct count among the score-tied, then sudden death. When
// skipSuddenDeath is set (manual end-now), a surviving tie is resolved by
// taking the first bonus leader in seat order. Assumes lock held.
func (g *QuizGame) evaluateWinner(skipSuddenDeath bool) {
	if len(g.Players) == 0 {
		return
	}

	topScore := g.Players[0].Score
	for _, p := range g.Players[1:] {
		if p.Score > topScore {
			topScore = p.Score
		}
	}
	var scoreTied []*playerRef
	for i, p := range g.Players {
		if p.Score == topScore {
			scoreTied = append(scoreTied, &playerRef{idx: i, id: p.ID})
		}
	}
	if len(scoreTied) == 1 {
		g.declareWinner(scoreTied[0].id)
		return
	}

	topBonus := -1
	for _, r := range scoreTied {
		if b := g.Players[r.idx].BonusCorrectCount; b > topBonus {
			topBonus = b
		}
	}
	var bonusTied []uuid.UUID
	for _, r := range scoreTied {
		if g.Players[r.idx].BonusCorrectCount == topBonus {
			bonusTied = append(bonusTied, r.id)
		}
	}
	if len(bonusTied) == 1 {
		g.declareWinner(bonusTied[0])
		return
	}

	if skipSuddenDeath {
		log.Printf("Game %s: %d players still tied after bonus comparison; taking first bonus leader (end-now shortcut).", g.ID, len(bonusTied))
		g.declareWinner(bonusTied[0])
		return
	}
	g.startSuddenDeath(bonusTied)
}

type playerRef struct {
	idx int
	id  uuid.UUID
}

// declareWinner finalizes the game: stops all timers, records the result,
// broadcasts the end event and invokes the OnGameEnd hook. Assumes lock held.
func (g *QuizGame) declareWinner(winnerID uuid.UUID) {
	if g.GameOver {
		return
	}
	g.GameOver = true
	g.WinnerID = winnerID
	g.Phase = PhaseEnded
	g.CanRollDice = false
	g.PendingQuestion = nil
	g.PendingEffect = nil
	g.sudden = nil
	g.clearGuards()

	scores := make(map[uuid.UUID]int, len(g.Players))
	for _, p := range g.Players {
		scores[p.ID] = p.Score
	}
	log.Printf("Game %s: winner is %s.", g.ID, winnerID)
	g.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{
		"winner": winnerID,
		"scores": scores,
	})
	g.fireEvent(GameEvent{
		Type: EventGameEnd,
		User: &EventUser{ID: winnerID},
		Payload: map[string]interface{}{
			"winner": winnerID.String(),
			"scores": stringScores(scores),
		},
	})
	g.broadcastSyncUnsafe()

	if g.OnGameEnd != nil {
		// Run the hook off the engine's timeline; it may re-enter the store.
		go g.OnGameEnd(g.LobbyID, winnerID, scores)
	}
}

func stringScores(scores map[uuid.UUID]int) map[string]int {
	out := make(map[string]int, len(scores))
	for id, s := range scores {
		out[id.String()] = s
	}
	return out
}
