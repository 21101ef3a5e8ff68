// internal/game/starting_order.go
package game

import (
	"sort"

	"github.com/google/uuid"
)

// orderState tracks starting-order determination: an incrementally-populated
// roll map plus the player currently rolling, suitable for an animated
// reveal on the client.
type orderState struct {
	Rolls      map[uuid.UUID]int
	pending    []int // seat indexes still to roll this pass
	rollingIdx int   // seat currently rolling, -1 when idle
}

// beginStartingOrder starts (or restarts) order determination for all
// players. Assumes lock held.
func (g *QuizGame) beginStartingOrder() {
	g.Phase = PhaseStartingOrder
	g.CanRollDice = false
	g.order = &orderState{
		Rolls:      make(map[uuid.UUID]int, len(g.Players)),
		rollingIdx: -1,
	}
	for i := range g.Players {
		g.order.pending = append(g.order.pending, i)
	}
	g.scheduleOrderRoll()
	g.broadcastSyncUnsafe()
}

// scheduleOrderRoll reveals the next pending roll after a short tick, or
// resolves the pass when none remain. Assumes lock held.
func (g *QuizGame) scheduleOrderRoll() {
	if len(g.order.pending) == 0 {
		g.resolveOrderPass()
		return
	}
	g.order.rollingIdx = g.order.pending[0]
	g.after(ms(g.Config.OrderTickMs), func() {
		if g.Phase != PhaseStartingOrder || len(g.order.pending) == 0 {
			return
		}
		idx := g.order.pending[0]
		g.order.pending = g.order.pending[1:]
		v := g.rng.Intn(6) + 1
		p := g.Players[idx]
		g.order.Rolls[p.ID] = v
		g.fireEvent(GameEvent{
			Type:    EventOrderRoll,
			User:    &EventUser{ID: p.ID},
			Payload: map[string]interface{}{"value": v},
		})
		g.scheduleOrderRoll()
	})
}

// resolveOrderPass checks the completed pass for duplicate values. Only the
// tied players re-roll; everyone else keeps their value. Once all values are
// distinct the final order is descending roll value. Assumes lock held.
func (g *QuizGame) resolveOrderPass() {
	byValue := make(map[int][]int)
	for i, p := range g.Players {
		v := g.order.Rolls[p.ID]
		byValue[v] = append(byValue[v], i)
	}
	var tied []int
	for _, idxs := range byValue {
		if len(idxs) > 1 {
			tied = append(tied, idxs...)
		}
	}
	if len(tied) > 0 {
		sort.Ints(tied)
		g.order.pending = tied
		g.fireEvent(GameEvent{
			Type:    EventOrderReroll,
			Payload: map[string]interface{}{"count": len(tied)},
		})
		g.scheduleOrderRoll()
		return
	}

	sort.SliceStable(g.Players, func(i, j int) bool {
		return g.order.Rolls[g.Players[i].ID] > g.order.Rolls[g.Players[j].ID]
	})
	g.order.rollingIdx = -1
	g.CurrentPlayerIndex = 0
	g.Phase = PhaseAwaitRoll
	g.CanRollDice = true
	g.fireEvent(GameEvent{
		Type: EventOrderResolved,
		User: &EventUser{ID: g.Players[0].ID},
	})
	g.logAction(uuid.Nil, "order_resolved", map[string]interface{}{
		"first": g.Players[0].ID,
	})
}
