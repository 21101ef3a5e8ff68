// internal/game/guard.go
package game

import (
	"log"
	"time"
)

// The guard is two reentrancy flags plus one owned, cancelable watchdog
// timer. effectInProgress is set for the whole life of a tile effect (panel
// raised through acknowledgement); planningNextMove is set while a
// turn-advance is outstanding. Any command arriving while a flag forbids it
// is a silent no-op. The watchdog is the only recovery mechanism: if the
// expected acknowledgement never arrives it force-clears both flags so the
// engine cannot wedge indefinitely.

// enterPlanning sets the planning flag and arms the watchdog. Assumes lock
// held.
func (g *QuizGame) enterPlanning() {
	g.planningNextMove = true
	g.armWatchdog()
}

// armWatchdog (re)starts the single watchdog timer. Assumes lock held.
func (g *QuizGame) armWatchdog() {
	g.stopWatchdog()
	epoch := g.epoch
	g.watchdog = time.AfterFunc(ms(g.Config.WatchdogMs), func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.disposed || g.epoch != epoch {
			return
		}
		g.watchdogFired()
		g.broadcastSyncUnsafe()
	})
}

// stopWatchdog cancels the timer if armed. Assumes lock held.
func (g *QuizGame) stopWatchdog() {
	if g.watchdog != nil {
		g.watchdog.Stop()
		g.watchdog = nil
	}
}

// clearGuards is called on every legitimate exit path (panel close, end-turn,
// game end, restart) so a stray watchdog never fires later.
func (g *QuizGame) clearGuards() {
	g.effectInProgress = false
	g.planningNextMove = false
	g.stopWatchdog()
}

// watchdogFired force-releases the locks after an acknowledgement never
// arrived. An unanswered question panel is preserved so the player can still
// answer; any other panel is dismissed and the turn advances. Assumes lock
// held.
func (g *QuizGame) watchdogFired() {
	log.Printf("Game %s: watchdog fired, releasing guard flags.", g.ID)
	g.watchdog = nil
	g.effectInProgress = false
	g.planningNextMove = false
	g.fireEvent(GameEvent{Type: EventWatchdog})

	if g.PendingQuestion != nil {
		if !g.PendingQuestion.Answered {
			return
		}
		// A graded panel nobody dismissed: close it and move on.
		g.PendingQuestion = nil
		g.endTurn()
		return
	}
	if g.PendingEffect != nil {
		g.PendingEffect = nil
		g.endTurn()
	}
}
