// internal/game/sudden_death.go
package game

import (
	"log"

	"github.com/google/uuid"
	"github.com/quizloop/quizloop/internal/models"
)

// suddenDeathState is the elimination-duel sub-machine. One shared question
// is drawn per round and posed sequentially to every contender; after the
// last answer the round resolves. The contender count is non-increasing
// across rounds, so the duel always terminates with exactly one winner.
type suddenDeathState struct {
	Round      int
	Contenders []uuid.UUID
	Index      int // next contender to be quizzed
	Question   *models.Question
	Correct    map[uuid.UUID]bool
}

// startSuddenDeath enters the duel with the given contender set. Assumes
// lock held.
func (g *QuizGame) startSuddenDeath(contenders []uuid.UUID) {
	g.Phase = PhaseSuddenDeath
	g.CanRollDice = false
	g.sudden = &suddenDeathState{
		Round:      0,
		Contenders: contenders,
	}
	g.logAction(uuid.Nil, "sudden_death_start", map[string]interface{}{
		"contenders": len(contenders),
	})
	g.beginSuddenRound()
}

// beginSuddenRound draws the round's shared question (hardest available,
// recycling so the duel can never stall) and quizzes the first contender.
// Assumes lock held.
func (g *QuizGame) beginSuddenRound() {
	g.sudden.Round++
	g.sudden.Index = 0
	g.sudden.Correct = make(map[uuid.UUID]bool, len(g.sudden.Contenders))
	q := g.Pool.DrawPreferHard()
	if q == nil {
		// An empty master list; fall back to the first contender to keep the
		// terminal guarantee.
		log.Printf("Game %s: sudden death has no questions at all, declaring first contender.", g.ID)
		g.declareWinner(g.sudden.Contenders[0])
		return
	}
	g.sudden.Question = q
	g.fireEvent(GameEvent{
		Type: EventSuddenDeath,
		Payload: map[string]interface{}{
			"round":      g.sudden.Round,
			"contenders": len(g.sudden.Contenders),
		},
	})
	g.poseSuddenQuestion()
}

// poseSuddenQuestion re-poses the round's shared question to the next
// contender. Assumes lock held.
func (g *QuizGame) poseSuddenQuestion() {
	pid := g.sudden.Contenders[g.sudden.Index]
	g.PendingEffect = nil
	g.PendingQuestion = &PendingQuestion{
		Question:    g.sudden.Question,
		PlayerID:    pid,
		SuddenDeath: true,
	}
	g.fireEvent(GameEvent{
		Type: EventQuestionPosed,
		User: &EventUser{ID: pid},
		Payload: map[string]interface{}{
			"suddenDeath": true,
			"round":       g.sudden.Round,
		},
	})
	g.broadcastSyncUnsafe()
}

// recordSuddenDeathAnswer stores one contender's graded result and either
// quizzes the next contender or resolves the round. Assumes lock held.
func (g *QuizGame) recordSuddenDeathAnswer(playerID uuid.UUID, correct bool) {
	if g.sudden == nil {
		log.Printf("Game %s: sudden death answer with no active duel.", g.ID)
		return
	}
	g.sudden.Correct[playerID] = correct
	g.fireEvent(GameEvent{
		Type:    EventQuestionResult,
		User:    &EventUser{ID: playerID},
		Payload: map[string]interface{}{"correct": correct, "suddenDeath": true},
	})
	g.PendingQuestion = nil
	g.sudden.Index++
	if g.sudden.Index < len(g.sudden.Contenders) {
		g.poseSuddenQuestion()
		return
	}
	g.finishSuddenRound()
}

// finishSuddenRound applies the elimination protocol: exactly one correct
// answer wins outright; zero correct repeats the same contender set with a
// fresh question; two or more correct narrows the set to the correct
// contenders. Assumes lock held.
func (g *QuizGame) finishSuddenRound() {
	var winners []uuid.UUID
	for _, pid := range g.sudden.Contenders {
		if g.sudden.Correct[pid] {
			winners = append(winners, pid)
		}
	}
	switch len(winners) {
	case 1:
		g.declareWinner(winners[0])
	case 0:
		g.beginSuddenRound()
	default:
		g.sudden.Contenders = winners
		g.beginSuddenRound()
	}
}
