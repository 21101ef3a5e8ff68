package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizloop/quizloop/internal/models"
)

// answerSudden submits a correct or wrong answer for whoever currently holds
// the duel question and returns their id.
func answerSudden(t *testing.T, g *QuizGame, correct bool) uuid.UUID {
	t.Helper()
	g.Mu.Lock()
	pq := g.PendingQuestion
	require.NotNil(t, pq, "no duel question pending")
	require.True(t, pq.SuddenDeath)
	pid := pq.PlayerID
	idx := pq.Question.CorrectIndex
	if !correct {
		idx = (idx + 1) % 4
	}
	g.Mu.Unlock()
	g.AnswerQuestion(pid, idx)
	return pid
}

// tieAndRank forces an all-way tie and runs the end-of-game ranking.
func tieAndRank(g *QuizGame) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, p := range g.Players {
		p.Score = 400
		p.BonusCorrectCount = 1
	}
	g.evaluateWinner(false)
}

func TestSuddenDeathRepeatsRoundWhenNobodyIsCorrect(t *testing.T) {
	// One question in the pool; the duel recycles it across rounds.
	pool := []*models.Question{testQuestion(models.DifficultyHard, false)}
	g, _, _ := setupTestGame(t, 2, testConfig(), pool)

	tieAndRank(g)

	s := g.Snapshot()
	require.Equal(t, PhaseSuddenDeath, s.Phase)
	require.NotNil(t, s.SuddenDeath)
	assert.Equal(t, 1, s.SuddenDeath.Round)
	assert.Len(t, s.SuddenDeath.Contenders, 2)

	// Round 1: both wrong. Same contender set, next round, fresh question.
	answerSudden(t, g, false)
	answerSudden(t, g, false)

	s = g.Snapshot()
	require.False(t, s.GameOver)
	require.NotNil(t, s.SuddenDeath)
	assert.Equal(t, 2, s.SuddenDeath.Round)
	assert.Len(t, s.SuddenDeath.Contenders, 2)
	require.NotNil(t, s.PendingQuestion, "round 2 must pose a recycled question")

	// Round 2: first correct, second wrong. Exactly one correct wins.
	winner := answerSudden(t, g, true)
	answerSudden(t, g, false)

	s = g.Snapshot()
	require.True(t, s.GameOver)
	assert.Equal(t, PhaseEnded, s.Phase)
	assert.Equal(t, winner, s.WinnerID)
	assert.Nil(t, s.SuddenDeath)
}

func TestSuddenDeathNarrowsToCorrectContenders(t *testing.T) {
	g, _, _ := setupTestGame(t, 3, testConfig(), nil)

	tieAndRank(g)

	require.Equal(t, PhaseSuddenDeath, g.Snapshot().Phase)

	// Round 1: two correct out of three narrows the set to those two.
	a := answerSudden(t, g, true)
	b := answerSudden(t, g, true)
	answerSudden(t, g, false)

	s := g.Snapshot()
	require.False(t, s.GameOver)
	require.NotNil(t, s.SuddenDeath)
	assert.Equal(t, 2, s.SuddenDeath.Round)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, s.SuddenDeath.Contenders)

	// Round 2: only one of the survivors is correct.
	answerSudden(t, g, false)
	winner := answerSudden(t, g, true)

	s = g.Snapshot()
	require.True(t, s.GameOver)
	assert.Equal(t, winner, s.WinnerID)
}

func TestSuddenDeathQuestionIsSharedWithinRound(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)

	tieAndRank(g)

	g.Mu.Lock()
	firstQ := g.PendingQuestion.Question.ID
	g.Mu.Unlock()

	answerSudden(t, g, false)

	g.Mu.Lock()
	secondQ := g.PendingQuestion.Question.ID
	g.Mu.Unlock()
	assert.Equal(t, firstQ, secondQ, "every contender sees the round's shared question")
}

func TestSuddenDeathSequentialTurnOwnership(t *testing.T) {
	g, _, _ := setupTestGame(t, 3, testConfig(), nil)

	tieAndRank(g)

	g.Mu.Lock()
	first := g.PendingQuestion.PlayerID
	second := g.sudden.Contenders[1]
	g.Mu.Unlock()

	// An out-of-order answer from a later contender is a silent no-op.
	g.AnswerQuestion(second, 0)
	g.Mu.Lock()
	assert.Equal(t, first, g.PendingQuestion.PlayerID)
	assert.False(t, g.PendingQuestion.Answered)
	g.Mu.Unlock()
}

func TestSuddenDeathEmptyMasterFallsBackToFirstContender(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), []*models.Question{})

	g.Mu.Lock()
	first := g.Players[0].ID
	g.Mu.Unlock()
	tieAndRank(g)

	s := g.Snapshot()
	require.True(t, s.GameOver)
	assert.Equal(t, first, s.WinnerID)
}
