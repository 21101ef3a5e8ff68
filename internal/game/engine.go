// internal/game/engine.go
package game

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizloop/quizloop/internal/cache"
	"github.com/quizloop/quizloop/internal/models"
)

// OnGameEndFunc is invoked once at game end so the caller can broadcast
// results to the lobby, persist them, etc.
type OnGameEndFunc func(lobbyID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int)

// Phase is the current state of the turn state machine.
type Phase string

const (
	PhaseLobby         Phase = "lobby"          // constructed, not yet started
	PhaseStartingOrder Phase = "starting_order" // rolling for turn order
	PhaseAwaitRoll     Phase = "await_roll"     // current player may roll
	PhaseRolling       Phase = "rolling"        // dice animation running
	PhaseMoving        Phase = "moving"         // pawn stepping tile by tile
	PhaseQuestion      Phase = "question"       // question panel pending
	PhaseTileEffect    Phase = "tile_effect"    // effect panel pending ack
	PhaseSuddenDeath   Phase = "sudden_death"   // elimination duel running
	PhaseEnded         Phase = "ended"
)

// PendingQuestion is the single open question panel, if any. At most one of
// PendingQuestion/PendingEffect is non-nil at any time.
type PendingQuestion struct {
	Question    *models.Question
	PlayerID    uuid.UUID
	IsBonus     bool
	SuddenDeath bool

	Answered    bool
	AnswerIndex int
	Correct     bool
}

// PendingEffect is the single open tile-effect panel, if any.
type PendingEffect struct {
	TileIndex   int
	PlayerID    uuid.UUID
	Kind        EffectKind
	Amount      int
	TargetID    uuid.UUID // uuid.Nil when the effect has no target
	Message     string
	RequiresAck bool
}

// QuizGame holds the entire state for one game instance in memory. All state
// is guarded by Mu; timer callbacks re-acquire it and check the epoch so a
// restarted or disposed engine silently drops stale ticks. Execution is
// effectively single-threaded: every mutation happens under the lock and a
// full snapshot is published after each callback completes.
type QuizGame struct {
	ID      uuid.UUID
	LobbyID uuid.UUID

	Config  GameConfig
	Board   *Board
	Pool    *QuestionPool
	Players []*models.Player

	Phase              Phase
	CurrentPlayerIndex int
	DiceValue          int
	CanRollDice        bool
	Round              int // completed full player rounds
	turnsTaken         int

	PendingQuestion *PendingQuestion
	PendingEffect   *PendingEffect

	// questionsExhausted is set when a regular draw comes up empty in
	// question-based mode; the game ends at the following turn boundary, so
	// the landing that hit the empty pool still shows its fallback panel.
	questionsExhausted bool

	// Guard/watchdog state; see guard.go.
	effectInProgress bool
	planningNextMove bool
	watchdog         *time.Timer

	order  *orderState
	sudden *suddenDeathState

	GameOver bool
	WinnerID uuid.UUID

	// epoch invalidates outstanding timer callbacks on restart/dispose.
	epoch       int
	disposed    bool
	actionIndex int
	rng         *rand.Rand

	Mu sync.Mutex

	// BroadcastFn sends an event to all players. Called with Mu held; the
	// registered function must not re-acquire the lock.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to one player. Same locking contract.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)

	OnGameEnd OnGameEndFunc
}

// NewQuizGame builds an unstarted game with the standard board and the given
// question set.
func NewQuizGame(cfg GameConfig, questions []*models.Question) *QuizGame {
	id, _ := uuid.NewRandom()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := &QuizGame{
		ID:     id,
		Config: cfg,
		Board:  NewStandardBoard(),
		Phase:  PhaseLobby,
		rng:    rng,
	}
	g.Pool = NewQuestionPool(questions, cfg.Mode == ModeTurnBased, rng)
	return g
}

// AddPlayer registers a player before the game starts, or refreshes the
// connection of an existing player.
func (g *QuizGame) AddPlayer(p *models.Player) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for i, pl := range g.Players {
		if pl.ID == p.ID {
			g.Players[i].Conn = p.Conn
			g.Players[i].Connected = true
			log.Printf("Game %s: player %s reconnected.", g.ID, p.ID)
			return
		}
	}
	if g.Phase != PhaseLobby {
		log.Printf("Game %s: cannot add player %s after start.", g.ID, p.ID)
		return
	}
	g.Players = append(g.Players, p)
	g.logAction(p.ID, "player_add", nil)
}

// Start kicks off starting-order determination. No-op unless in the lobby
// phase with at least two players.
func (g *QuizGame) Start() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.Phase != PhaseLobby || len(g.Players) < 2 {
		log.Printf("Game %s: Start rejected (phase=%s, players=%d).", g.ID, g.Phase, len(g.Players))
		return
	}
	g.logAction(uuid.Nil, "game_start", map[string]interface{}{
		"mode":    string(g.Config.Mode),
		"players": len(g.Players),
	})
	g.beginStartingOrder()
}

// after schedules fn on the engine's cooperative timeline. fn runs with the
// lock held and is dropped if the engine was disposed or restarted since it
// was scheduled. A snapshot is published after fn completes.
func (g *QuizGame) after(d time.Duration, fn func()) {
	epoch := g.epoch
	time.AfterFunc(d, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.disposed || g.epoch != epoch {
			return
		}
		fn()
		g.broadcastSyncUnsafe()
	})
}

// ms converts a config millisecond knob to a duration.
func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// RollDice begins the dice animation for the current player. Valid only in
// the waiting-for-dice state with rolling enabled; anything else is a silent
// no-op. Rolling is disabled immediately to prevent double-submission.
func (g *QuizGame) RollDice(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.GameOver || g.Phase != PhaseAwaitRoll || !g.CanRollDice {
		log.Printf("Game %s: RollDice rejected (phase=%s, canRoll=%v).", g.ID, g.Phase, g.CanRollDice)
		return
	}
	if g.Players[g.CurrentPlayerIndex].ID != playerID {
		log.Printf("Game %s: RollDice from non-current player %s.", g.ID, playerID)
		return
	}
	g.CanRollDice = false
	g.Phase = PhaseRolling
	final := g.rng.Intn(6) + 1
	g.logAction(playerID, "roll_dice", map[string]interface{}{"value": final})
	g.runDiceTick(final, g.Config.DiceTicks)
	g.broadcastSyncUnsafe()
}

// runDiceTick shows one transient face per tick, then settles on the final
// value drawn at sequence start and begins movement. Assumes lock is held.
func (g *QuizGame) runDiceTick(final, remaining int) {
	if remaining <= 0 {
		g.DiceValue = final
		g.fireEvent(GameEvent{
			Type:    EventDiceResult,
			User:    &EventUser{ID: g.Players[g.CurrentPlayerIndex].ID},
			Payload: map[string]interface{}{"value": final},
		})
		g.Phase = PhaseMoving
		g.runMoveTick(final)
		return
	}
	g.DiceValue = g.rng.Intn(6) + 1
	g.fireEvent(GameEvent{
		Type:    EventDiceTick,
		Payload: map[string]interface{}{"face": g.DiceValue},
	})
	g.after(ms(g.Config.DiceTickMs), func() {
		if g.Phase != PhaseRolling {
			return
		}
		g.runDiceTick(final, remaining-1)
	})
}

// runMoveTick advances the pawn one tile per tick so observers can animate a
// slide, wrapping mod 40, then resolves the landing tile exactly once.
// Assumes lock is held.
func (g *QuizGame) runMoveTick(stepsLeft int) {
	if stepsLeft <= 0 {
		g.resolveLanding()
		return
	}
	p := g.Players[g.CurrentPlayerIndex]
	p.Position = (p.Position + 1) % BoardSize
	g.fireEvent(GameEvent{
		Type:    EventPlayerMoved,
		User:    &EventUser{ID: p.ID},
		Payload: map[string]interface{}{"position": p.Position},
	})
	g.after(ms(g.Config.MoveTickMs), func() {
		if g.Phase != PhaseMoving {
			return
		}
		g.runMoveTick(stepsLeft - 1)
	})
}

// resolveLanding dispatches the tile effect for the current player's
// position. The effect-in-progress guard makes re-invocation for the same
// landing a no-op. Assumes lock is held.
func (g *QuizGame) resolveLanding() {
	if g.effectInProgress {
		log.Printf("Game %s: landing dispatch suppressed, effect already in progress.", g.ID)
		return
	}
	g.effectInProgress = true
	p := g.Players[g.CurrentPlayerIndex]
	tile := g.Board.Tiles[p.Position]
	g.logAction(p.ID, "tile_landing", map[string]interface{}{
		"tile": tile.Index, "type": string(tile.Type),
	})
	g.resolveTileEffect(p, tile)
}

// ForceMove is the developer-mode entry point: it moves a player by delta
// tiles without dice and feeds the same tile-effect path. Valid only while
// waiting for a roll.
func (g *QuizGame) ForceMove(playerIndex, delta int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.GameOver || g.Phase != PhaseAwaitRoll || g.effectInProgress {
		log.Printf("Game %s: ForceMove rejected (phase=%s).", g.ID, g.Phase)
		return
	}
	if playerIndex < 0 || playerIndex >= len(g.Players) {
		log.Printf("Game %s: ForceMove player index %d out of range.", g.ID, playerIndex)
		return
	}
	g.CurrentPlayerIndex = playerIndex
	g.CanRollDice = false
	p := g.Players[playerIndex]
	p.Position = ((p.Position+delta)%BoardSize + BoardSize) % BoardSize
	g.fireEvent(GameEvent{
		Type:    EventPlayerMoved,
		User:    &EventUser{ID: p.ID},
		Payload: map[string]interface{}{"position": p.Position, "forced": true},
	})
	g.logAction(p.ID, "force_move", map[string]interface{}{"delta": delta, "position": p.Position})
	g.resolveLanding()
	g.broadcastSyncUnsafe()
}

// AnswerQuestion grades the pending question for the answering player.
// Valid only while a question is pending and unanswered.
func (g *QuizGame) AnswerQuestion(playerID uuid.UUID, optionIndex int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	pq := g.PendingQuestion
	if g.GameOver || pq == nil || pq.Answered {
		log.Printf("Game %s: AnswerQuestion rejected, no open question.", g.ID)
		return
	}
	if optionIndex < 0 || optionIndex > 3 {
		log.Printf("Game %s: AnswerQuestion index %d out of range.", g.ID, optionIndex)
		return
	}
	if pq.PlayerID != playerID {
		log.Printf("Game %s: AnswerQuestion from wrong player %s.", g.ID, playerID)
		return
	}

	pq.Answered = true
	pq.AnswerIndex = optionIndex
	pq.Correct = optionIndex == pq.Question.CorrectIndex
	g.logAction(playerID, "answer_question", map[string]interface{}{
		"option": optionIndex, "correct": pq.Correct, "suddenDeath": pq.SuddenDeath,
	})

	if pq.SuddenDeath {
		g.recordSuddenDeathAnswer(playerID, pq.Correct)
		g.broadcastSyncUnsafe()
		return
	}

	if pq.Correct {
		p := g.playerByID(playerID)
		if p != nil {
			if pq.IsBonus {
				p.Score += g.Config.BonusReward
				p.BonusCorrectCount++
			} else {
				p.Score += g.Config.RegularReward
			}
		}
	}
	g.fireEvent(GameEvent{
		Type: EventQuestionResult,
		User: &EventUser{ID: playerID},
		Payload: map[string]interface{}{
			"correct":      pq.Correct,
			"correctIndex": pq.Question.CorrectIndex,
			"isBonus":      pq.IsBonus,
		},
	})
	// The graded panel stays up until acknowledged; re-arm the watchdog so a
	// lost acknowledgement cannot wedge the turn.
	g.armWatchdog()
	g.broadcastSyncUnsafe()
}

// AcknowledgeQuestion dismisses a graded question panel and advances the
// turn. Answering first is required; dismissing an unanswered question would
// let a player skip it.
func (g *QuizGame) AcknowledgeQuestion(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	pq := g.PendingQuestion
	if g.GameOver || pq == nil || !pq.Answered || pq.SuddenDeath {
		log.Printf("Game %s: AcknowledgeQuestion rejected.", g.ID)
		return
	}
	if pq.PlayerID != playerID {
		log.Printf("Game %s: AcknowledgeQuestion from wrong player %s.", g.ID, playerID)
		return
	}
	g.PendingQuestion = nil
	g.endTurn()
	g.broadcastSyncUnsafe()
}

// AcknowledgeTileEffect dismisses the pending effect panel and advances the
// turn.
func (g *QuizGame) AcknowledgeTileEffect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	pe := g.PendingEffect
	if g.GameOver || pe == nil {
		log.Printf("Game %s: AcknowledgeTileEffect rejected, no open effect.", g.ID)
		return
	}
	if pe.PlayerID != playerID {
		log.Printf("Game %s: AcknowledgeTileEffect from wrong player %s.", g.ID, playerID)
		return
	}
	g.PendingEffect = nil
	g.endTurn()
	g.broadcastSyncUnsafe()
}

// endTurn checks the end-of-game condition for the active mode and, if the
// game is not ending, rotates the current player and re-enables rolling.
// Every exit path through here clears the guard flags and the watchdog.
// Assumes lock is held.
func (g *QuizGame) endTurn() {
	if g.GameOver {
		return
	}
	g.PendingQuestion = nil
	g.PendingEffect = nil
	g.clearGuards()

	g.turnsTaken++
	if g.turnsTaken%len(g.Players) == 0 {
		g.Round++
	}

	switch g.Config.Mode {
	case ModeTurnBased:
		if g.Round >= g.Config.TurnLimit {
			g.evaluateWinner(false)
			return
		}
	case ModeQuestionBased:
		if g.questionsExhausted {
			g.evaluateWinner(false)
			return
		}
	}

	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
	g.DiceValue = 0
	g.Phase = PhaseAwaitRoll
	g.CanRollDice = true
	g.fireEvent(GameEvent{
		Type:    EventTurnStart,
		User:    &EventUser{ID: g.Players[g.CurrentPlayerIndex].ID},
		Payload: map[string]interface{}{"turn": g.turnsTaken, "round": g.Round},
	})
}

// EndGameNow forces immediate ranking using current scores, skipping sudden
// death. A remaining tie goes to the first bonus leader in seat order.
func (g *QuizGame) EndGameNow() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.GameOver {
		return
	}
	log.Printf("Game %s: EndGameNow requested, ranking with current scores.", g.ID)
	g.PendingQuestion = nil
	g.PendingEffect = nil
	g.clearGuards()
	g.evaluateWinner(true)
	g.broadcastSyncUnsafe()
}

// Restart resets all player state and replays starting-order determination.
// Outstanding timer callbacks are invalidated by bumping the epoch.
func (g *QuizGame) Restart() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.disposed || len(g.Players) < 2 {
		return
	}
	g.epoch++
	g.clearGuards()
	g.PendingQuestion = nil
	g.PendingEffect = nil
	g.GameOver = false
	g.WinnerID = uuid.Nil
	g.DiceValue = 0
	g.CanRollDice = false
	g.Round = 0
	g.turnsTaken = 0
	g.questionsExhausted = false
	g.sudden = nil
	g.CurrentPlayerIndex = 0
	for _, p := range g.Players {
		p.Position = 0
		p.Score = 0
		p.BankruptCount = 0
		p.BonusCorrectCount = 0
	}
	g.Pool.Reset()
	g.fireEvent(GameEvent{Type: EventGameRestart})
	g.logAction(uuid.Nil, "game_restart", nil)
	g.beginStartingOrder()
	g.broadcastSyncUnsafe()
}

// Dispose permanently stops the engine; all pending ticks become no-ops.
func (g *QuizGame) Dispose() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.disposed = true
	g.epoch++
	g.clearGuards()
}

// HandleDisconnect marks a player disconnected. Their seat and score are
// kept; a disconnected player's pending panels are released by the watchdog.
func (g *QuizGame) HandleDisconnect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	p := g.playerByID(playerID)
	if p == nil || !p.Connected {
		return
	}
	p.Connected = false
	p.Conn = nil
	g.logAction(playerID, "player_disconnect", nil)
	g.broadcastSyncUnsafe()
}

// HandleReconnect swaps in a fresh connection and pushes a private snapshot.
func (g *QuizGame) HandleReconnect(playerID uuid.UUID, p *models.Player) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	existing := g.playerByID(playerID)
	if existing == nil {
		log.Printf("Game %s: reconnect for unknown player %s.", g.ID, playerID)
		return
	}
	existing.Conn = p.Conn
	existing.Connected = true
	g.logAction(playerID, "player_reconnect", nil)
	snap := g.snapshotUnsafe()
	g.fireEventToPlayer(playerID, GameEvent{Type: EventSyncState, State: &snap})
}

// playerByID returns the player with the given id, or nil. Assumes lock held.
func (g *QuizGame) playerByID(id uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// fireEvent broadcasts an event to all connected players. Assumes lock held.
func (g *QuizGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event to one player. Assumes lock held.
func (g *QuizGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// broadcastSyncUnsafe publishes the authoritative snapshot. Assumes lock held.
func (g *QuizGame) broadcastSyncUnsafe() {
	snap := g.snapshotUnsafe()
	g.fireEvent(GameEvent{Type: EventSyncState, State: &snap})
}

// logAction pushes an action record onto the historian queue. Mirrors the
// in-lock mutation order: the index increments synchronously, the Redis push
// happens off the engine's timeline.
func (g *QuizGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Printf("Game %s: failed to publish action %d: %v", g.ID, rec.ActionIndex, err)
		}
	}(record)
}
