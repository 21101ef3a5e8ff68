package game

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizloop/quizloop/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu        sync.Mutex
	allEvents []GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{}
}

// broadcastFn is called with the engine lock held, so it must only record.
func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) countType(t GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// testConfig shrinks all the animation timers so tests run fast.
func testConfig() GameConfig {
	cfg := DefaultConfig()
	cfg.DiceTicks = 1
	cfg.DiceTickMs = 1
	cfg.MoveTickMs = 1
	cfg.OrderTickMs = 1
	cfg.StartDwell = 1
	cfg.WatchdogMs = 30
	return cfg
}

// setupTestGame builds a started game with n players and waits for
// starting-order resolution.
func setupTestGame(t *testing.T, n int, cfg GameConfig, questions []*models.Question) (*QuizGame, []*models.Player, *mockBroadcaster) {
	t.Helper()
	if questions == nil {
		questions = DefaultQuestions()
	}
	g := NewQuizGame(cfg, questions)
	g.rng = rand.New(rand.NewSource(42))
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn

	players := make([]*models.Player, n)
	for i := 0; i < n; i++ {
		players[i] = &models.Player{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("P%d", i+1),
			Connected: true,
		}
		g.AddPlayer(players[i])
	}
	g.Start()
	waitPhase(t, g, PhaseAwaitRoll)
	return g, players, mb
}

func waitPhase(t *testing.T, g *QuizGame, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return g.Snapshot().Phase == want
	}, 2*time.Second, time.Millisecond, "engine never reached phase %s", want)
}

func currentPlayer(g *QuizGame) *models.Player {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.Players[g.CurrentPlayerIndex]
}

// forceLand parks the current player one tile before the target and force-
// moves a single step onto it, feeding the normal tile-effect path.
func forceLand(t *testing.T, g *QuizGame, tileIndex int) *models.Player {
	t.Helper()
	g.Mu.Lock()
	idx := g.CurrentPlayerIndex
	p := g.Players[idx]
	p.Position = (tileIndex - 1 + BoardSize) % BoardSize
	g.Mu.Unlock()
	g.ForceMove(idx, 1)
	return p
}

func TestStartingOrderProducesDistinctDescendingOrder(t *testing.T) {
	g, _, _ := setupTestGame(t, 4, testConfig(), nil)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	seen := make(map[int]bool)
	prev := 7
	for _, p := range g.Players {
		v := g.order.Rolls[p.ID]
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 6)
		assert.False(t, seen[v], "roll value %d duplicated", v)
		seen[v] = true
		assert.LessOrEqual(t, v, prev, "players must be ordered by descending roll")
		prev = v
	}
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.True(t, g.CanRollDice)
}

func TestStartingOrderRerollsOnlyTiedPlayers(t *testing.T) {
	g, players, _ := setupTestGame(t, 4, testConfig(), nil)

	// Replay a pass with a crafted tie and verify only the tied seats queue
	// for a re-roll while the distinct values are retained.
	g.Mu.Lock()
	g.Phase = PhaseStartingOrder
	g.order = &orderState{Rolls: map[uuid.UUID]int{
		players[0].ID: 6,
		players[1].ID: 3,
		players[2].ID: 3,
		players[3].ID: 1,
	}, rollingIdx: -1}
	g.resolveOrderPass()
	pending := append([]int(nil), g.order.pending...)
	keptHigh := g.order.Rolls[players[0].ID]
	g.Mu.Unlock()

	assert.Len(t, pending, 2, "only the two tied players re-roll")
	assert.Equal(t, 6, keptHigh, "non-tied rolls are retained")

	waitPhase(t, g, PhaseAwaitRoll)
}

func TestRollDiceDisablesImmediately(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, testConfig(), nil)
	p := currentPlayer(g)

	g.RollDice(p.ID)
	// A second submission while the animation runs is a silent no-op.
	g.RollDice(p.ID)

	require.Eventually(t, func() bool {
		return mb.countType(EventDiceResult) >= 1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, 1, mb.countType(EventDiceResult), "double-submission must not roll twice")
}

func TestRollMovesStepwiseAndResolvesOnce(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, testConfig(), nil)
	p := currentPlayer(g)
	start := p.Position

	g.RollDice(p.ID)

	require.Eventually(t, func() bool {
		s := g.Snapshot()
		return s.Phase == PhaseQuestion || s.Phase == PhaseTileEffect || s.Phase == PhaseAwaitRoll
	}, 2*time.Second, time.Millisecond)

	g.Mu.Lock()
	dice := g.DiceValue
	pos := p.Position
	g.Mu.Unlock()
	assert.Equal(t, (start+dice)%BoardSize, pos)
	assert.Equal(t, dice, mb.countType(EventPlayerMoved), "one move event per single-tile step")
}

func TestBankruptcyOverrideZeroesScoreAndSkipsQuestions(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := currentPlayer(g)
	g.Mu.Lock()
	p.Score = 700
	g.Mu.Unlock()

	forceLand(t, g, 20) // the bankruptcy cell

	s := g.Snapshot()
	require.NotNil(t, s.PendingEffect)
	assert.Equal(t, string(EffectBankrupt), s.PendingEffect.Kind)
	assert.Nil(t, s.PendingQuestion, "bankruptcy never opens a question panel")
	g.Mu.Lock()
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, 1, p.BankruptCount)
	g.Mu.Unlock()
}

func TestBankruptcyTitleIsAuthoritativeOverType(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := currentPlayer(g)

	// A misclassified tile: question type, bankruptcy title.
	g.Mu.Lock()
	g.Board.Tiles[5] = BoardTile{Index: 5, Title: "Bankruptcy", Type: TileQuestion,
		Effect: Effect{Kind: EffectQuestion}}
	p.Score = 300
	g.Mu.Unlock()

	forceLand(t, g, 5)

	s := g.Snapshot()
	require.NotNil(t, s.PendingEffect)
	assert.Equal(t, string(EffectBankrupt), s.PendingEffect.Kind)
	assert.Nil(t, s.PendingQuestion)
	g.Mu.Lock()
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, 1, p.BankruptCount)
	g.Mu.Unlock()
}

func TestPenaltyClampsScoreAtZero(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := currentPlayer(g)
	g.Mu.Lock()
	p.Score = 0
	g.Mu.Unlock()

	forceLand(t, g, 4) // "Pay ★50"

	g.Mu.Lock()
	assert.Equal(t, 0, p.Score, "score is clamped at zero, never negative")
	g.Mu.Unlock()
}

func TestLandingResolvesExactlyOnce(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := currentPlayer(g)
	g.Mu.Lock()
	p.Score = 100
	g.Mu.Unlock()

	forceLand(t, g, 4) // "Pay ★50"

	// Re-invoking the resolver for the same landing while the effect guard is
	// set must be a no-op.
	g.Mu.Lock()
	g.resolveLanding()
	score := p.Score
	g.Mu.Unlock()
	assert.Equal(t, 50, score, "penalty applied exactly once")
}

func TestQuestionFlowAwardsAndAdvances(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := forceLand(t, g, 1) // plain question tile

	s := g.Snapshot()
	require.Equal(t, PhaseQuestion, s.Phase)
	require.NotNil(t, s.PendingQuestion)
	assert.Nil(t, s.PendingQuestion.CorrectIndex, "correct index withheld before answering")

	g.Mu.Lock()
	correct := g.PendingQuestion.Question.CorrectIndex
	g.Mu.Unlock()

	g.AnswerQuestion(p.ID, correct)
	g.Mu.Lock()
	assert.Equal(t, g.Config.RegularReward, p.Score)
	assert.Equal(t, 0, p.BonusCorrectCount, "regular questions do not count as bonus")
	g.Mu.Unlock()

	g.AcknowledgeQuestion(p.ID)
	s = g.Snapshot()
	assert.Equal(t, PhaseAwaitRoll, s.Phase)
	assert.NotEqual(t, p.ID, s.CurrentPlayerID, "turn rotates after acknowledgement")
}

func TestBonusQuestionIncrementsBonusCounter(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := forceLand(t, g, 2) // "Bonus Question"

	s := g.Snapshot()
	require.NotNil(t, s.PendingQuestion)
	require.True(t, s.PendingQuestion.IsBonus)

	g.Mu.Lock()
	correct := g.PendingQuestion.Question.CorrectIndex
	g.Mu.Unlock()
	g.AnswerQuestion(p.ID, correct)

	g.Mu.Lock()
	assert.Equal(t, g.Config.BonusReward, p.Score)
	assert.Equal(t, 1, p.BonusCorrectCount)
	g.Mu.Unlock()
}

func TestTakeFromTransfersClampedAmount(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, testConfig(), nil)
	mover := currentPlayer(g)
	var other *models.Player
	for _, pl := range players {
		if pl.ID != mover.ID {
			other = pl
		}
	}
	g.Mu.Lock()
	other.Score = 40
	g.Mu.Unlock()

	forceLand(t, g, 6) // "Take ★60 from the player opposite"

	g.Mu.Lock()
	assert.Equal(t, 40, mover.Score, "transfer is min(60, target score)")
	assert.Equal(t, 0, other.Score)
	g.Mu.Unlock()
}

func TestGiveAllSplitsEvenlyRemainderAbsorbed(t *testing.T) {
	g, players, _ := setupTestGame(t, 3, testConfig(), nil)
	mover := currentPlayer(g)
	g.Mu.Lock()
	mover.Score = 65
	g.Mu.Unlock()

	forceLand(t, g, 24) // "Give ★60 to everyone else"

	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, pl := range players {
		if pl.ID == mover.ID {
			assert.Equal(t, 5, pl.Score, "payer keeps score minus the even shares")
		} else {
			assert.Equal(t, 30, pl.Score)
		}
	}
}

func TestWatchdogReleasesUnacknowledgedEffect(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	forceLand(t, g, 4) // penalty, requires acknowledgement

	require.Equal(t, PhaseTileEffect, g.Snapshot().Phase)

	// Nobody acknowledges; the watchdog must unwedge the turn.
	waitPhase(t, g, PhaseAwaitRoll)
	g.Mu.Lock()
	assert.False(t, g.effectInProgress)
	assert.False(t, g.planningNextMove)
	g.Mu.Unlock()
}

func TestWatchdogPreservesUnansweredQuestion(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	forceLand(t, g, 1) // question tile

	time.Sleep(time.Duration(testConfig().WatchdogMs*4) * time.Millisecond)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	require.NotNil(t, g.PendingQuestion, "question panel must survive the watchdog")
	assert.False(t, g.effectInProgress, "flags are force-cleared")
	assert.False(t, g.planningNextMove)
}

func TestQuestionModeFallbackThenGameEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeQuestionBased
	pool := []*models.Question{
		testQuestion(models.DifficultyEasy, false),
		testQuestion(models.DifficultyEasy, false),
		testQuestion(models.DifficultyEasy, false),
	}
	g, _, _ := setupTestGame(t, 2, cfg, pool)

	// Burn the 3-item pool.
	for i := 0; i < 3; i++ {
		p := forceLand(t, g, 1)
		s := g.Snapshot()
		require.NotNil(t, s.PendingQuestion, "draw %d should find a question", i+1)
		g.AnswerQuestion(p.ID, 0)
		g.AcknowledgeQuestion(p.ID)
		waitPhase(t, g, PhaseAwaitRoll)
	}

	// The 4th landing yields the no-question fallback, acknowledgement
	// required, and the game ends at the following turn boundary.
	p := forceLand(t, g, 1)
	s := g.Snapshot()
	require.NotNil(t, s.PendingEffect)
	assert.True(t, s.PendingEffect.RequiresAck)
	assert.Nil(t, s.PendingQuestion)

	g.AcknowledgeTileEffect(p.ID)
	s = g.Snapshot()
	assert.True(t, s.GameOver)
}

func TestTurnBasedModeEndsAfterFinalRound(t *testing.T) {
	cfg := testConfig()
	cfg.TurnLimit = 5
	g, _, _ := setupTestGame(t, 2, cfg, nil)

	// A head start keeps the final ranking out of sudden death.
	g.Mu.Lock()
	g.Players[0].Score = 100
	leader := g.Players[0].ID
	g.Mu.Unlock()

	// Walk 10 turns (5 full rounds) through the start tile, which ends the
	// turn without acknowledgement.
	for i := 0; i < 10; i++ {
		s := g.Snapshot()
		require.False(t, s.GameOver, "game ended early at turn %d", i)
		g.Mu.Lock()
		idx := g.CurrentPlayerIndex
		g.Players[idx].Position = BoardSize - 1
		g.Mu.Unlock()
		g.ForceMove(idx, 1) // lands on Start
		waitTurnBoundary(t, g, i+1)
	}

	s := g.Snapshot()
	assert.True(t, s.GameOver)
	assert.Equal(t, leader, s.WinnerID)
}

func waitTurnBoundary(t *testing.T, g *QuizGame, turns int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := g.Snapshot()
		return s.Turn >= turns
	}, 2*time.Second, time.Millisecond)
}

func TestEndGameNowSkipsSuddenDeath(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	g.Mu.Lock()
	for _, p := range g.Players {
		p.Score = 500
		p.BonusCorrectCount = 2
	}
	first := g.Players[0].ID
	g.Mu.Unlock()

	g.EndGameNow()

	s := g.Snapshot()
	require.True(t, s.GameOver)
	assert.Nil(t, s.SuddenDeath)
	assert.Equal(t, first, s.WinnerID, "end-now takes the first bonus leader")
}

func TestRestartResetsStateAndReplaysOrder(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, testConfig(), nil)
	p := forceLand(t, g, 4)
	g.Mu.Lock()
	p.Score = 300
	g.Mu.Unlock()

	g.Restart()
	waitPhase(t, g, PhaseAwaitRoll)

	s := g.Snapshot()
	assert.False(t, s.GameOver)
	assert.Equal(t, 0, s.Turn)
	for _, pv := range s.Players {
		assert.Equal(t, 0, pv.Score)
		assert.Equal(t, 0, pv.Position)
		assert.Equal(t, 0, pv.BankruptCount)
		assert.Equal(t, 0, pv.BonusCorrectCount)
	}
}

func TestAnswerFromWrongPlayerIsNoOp(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, testConfig(), nil)
	p := forceLand(t, g, 1)

	var other *models.Player
	for _, pl := range players {
		if pl.ID != p.ID {
			other = pl
		}
	}
	g.Mu.Lock()
	correct := g.PendingQuestion.Question.CorrectIndex
	g.Mu.Unlock()

	g.AnswerQuestion(other.ID, correct)

	s := g.Snapshot()
	require.NotNil(t, s.PendingQuestion)
	assert.False(t, s.PendingQuestion.Answered, "only the quizzed player may answer")
}
