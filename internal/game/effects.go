// internal/game/effects.go
package game

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/quizloop/quizloop/internal/models"
)

// resolveTileEffect dispatches the landing effect for one tile. Called
// exactly once per landing under the effect-in-progress guard; every mutating
// branch updates scores before reporting the effect message. Assumes lock
// held and g.effectInProgress already set.
func (g *QuizGame) resolveTileEffect(p *models.Player, tile BoardTile) {
	// Bankruptcy is checked first and unconditionally: the literal title is
	// authoritative even if the tile type was misclassified, and no later
	// branch (including a question draw) may run once it matches.
	if tile.Type == TileBankrupt || TitleDenotesBankruptcy(tile.Title) {
		p.Score = 0
		p.BankruptCount++
		g.logAction(p.ID, "bankrupt", map[string]interface{}{"tile": tile.Index})
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectBankrupt,
			Message:     fmt.Sprintf("%s went bankrupt and lost everything", p.Name),
			RequiresAck: true,
		})
		return
	}

	switch tile.Type {
	case TileStart:
		// No effect and no acknowledgement; the turn ends on its own after a
		// short dwell.
		g.after(ms(g.Config.StartDwell), func() {
			g.endTurn()
		})

	case TilePenalty:
		amount := tile.Effect.Amount
		p.Score = clampScore(p.Score - amount)
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectPenalty,
			Amount:      amount,
			Message:     fmt.Sprintf("%s pays %d", p.Name, amount),
			RequiresAck: true,
		})

	case TileBonus:
		if tile.Effect.Kind == EffectTakeFrom {
			g.resolveTakeFrom(p, tile)
			return
		}
		q := g.Pool.DrawBonus()
		if q == nil {
			g.raiseEffect(PendingEffect{
				TileIndex:   tile.Index,
				PlayerID:    p.ID,
				Kind:        EffectInfo,
				Message:     "No bonus questions left",
				RequiresAck: true,
			})
			return
		}
		g.poseQuestion(q, p.ID, true)

	case TileQuestion:
		q := g.Pool.DrawRegular()
		if q == nil {
			if g.Config.Mode == ModeQuestionBased {
				g.questionsExhausted = true
			}
			g.raiseEffect(PendingEffect{
				TileIndex:   tile.Index,
				PlayerID:    p.ID,
				Kind:        EffectInfo,
				Message:     "No questions available",
				RequiresAck: true,
			})
			return
		}
		g.poseQuestion(q, p.ID, false)

	case TileSpecial:
		g.resolveSpecial(p, tile)

	default:
		log.Printf("Game %s: unknown tile type %q at %d, treating as no-op.", g.ID, tile.Type, tile.Index)
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectInfo,
			Message:     tile.Title,
			RequiresAck: true,
		})
	}
}

// resolveTakeFrom transfers min(N, target.score) from the directional target
// to the mover. Assumes lock held.
func (g *QuizGame) resolveTakeFrom(p *models.Player, tile BoardTile) {
	target := g.resolveTarget(g.CurrentPlayerIndex, tile.Effect.Target)
	if target == nil || target.ID == p.ID {
		// No usable target: degrade to a no-op message.
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectInfo,
			Message:     tile.Title,
			RequiresAck: true,
		})
		return
	}
	amount := tile.Effect.Amount
	if target.Score < amount {
		amount = target.Score
	}
	target.Score -= amount
	p.Score += amount
	g.raiseEffect(PendingEffect{
		TileIndex:   tile.Index,
		PlayerID:    p.ID,
		Kind:        EffectTakeFrom,
		Amount:      amount,
		TargetID:    target.ID,
		Message:     fmt.Sprintf("%s takes %d from %s", p.Name, amount, target.Name),
		RequiresAck: true,
	})
}

// resolveSpecial handles the three title-driven special sub-cases. Assumes
// lock held.
func (g *QuizGame) resolveSpecial(p *models.Player, tile BoardTile) {
	switch tile.Effect.Kind {
	case EffectGiveTo:
		target := g.resolveTarget(g.CurrentPlayerIndex, tile.Effect.Target)
		if target == nil || target.ID == p.ID {
			g.raiseEffect(PendingEffect{
				TileIndex: tile.Index, PlayerID: p.ID, Kind: EffectInfo,
				Message: tile.Title, RequiresAck: true,
			})
			return
		}
		amount := tile.Effect.Amount
		if p.Score < amount {
			amount = p.Score
		}
		p.Score -= amount
		target.Score += amount
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectGiveTo,
			Amount:      amount,
			TargetID:    target.ID,
			Message:     fmt.Sprintf("%s gives %d to %s", p.Name, amount, target.Name),
			RequiresAck: true,
		})

	case EffectGiveAll:
		others := len(g.Players) - 1
		if others <= 0 {
			g.raiseEffect(PendingEffect{
				TileIndex: tile.Index, PlayerID: p.ID, Kind: EffectInfo,
				Message: tile.Title, RequiresAck: true,
			})
			return
		}
		total := tile.Effect.Amount
		if p.Score < total {
			total = p.Score
		}
		// Even split; the remainder stays with the payer.
		share := total / others
		for i, other := range g.Players {
			if i == g.CurrentPlayerIndex {
				continue
			}
			other.Score += share
		}
		p.Score -= share * others
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectGiveAll,
			Amount:      share,
			Message:     fmt.Sprintf("%s gives %d to everyone else", p.Name, share),
			RequiresAck: true,
		})

	default:
		g.raiseEffect(PendingEffect{
			TileIndex:   tile.Index,
			PlayerID:    p.ID,
			Kind:        EffectInfo,
			Message:     tile.Title,
			RequiresAck: true,
		})
	}
}

// resolveTarget maps a directional rule onto a concrete player relative to
// the mover's seat. Returns nil when the rule names nobody.
func (g *QuizGame) resolveTarget(moverIndex int, rule TargetRule) *models.Player {
	n := len(g.Players)
	if n < 2 {
		return nil
	}
	switch rule {
	case TargetOpposite:
		return g.Players[(moverIndex+n/2)%n]
	case TargetRight:
		return g.Players[(moverIndex+1)%n]
	case TargetLeft:
		return g.Players[(moverIndex-1+n)%n]
	}
	return nil
}

// raiseEffect publishes the single pending tile-effect panel and starts the
// acknowledgement wait. The question slot is cleared first so at most one
// pending payload ever exists. Assumes lock held.
func (g *QuizGame) raiseEffect(pe PendingEffect) {
	g.PendingQuestion = nil
	g.PendingEffect = &pe
	g.Phase = PhaseTileEffect
	g.fireEvent(GameEvent{
		Type: EventTileEffect,
		User: &EventUser{ID: pe.PlayerID},
		Payload: map[string]interface{}{
			"tile":    pe.TileIndex,
			"kind":    string(pe.Kind),
			"amount":  pe.Amount,
			"message": pe.Message,
		},
	})
	g.enterPlanning()
	g.broadcastSyncUnsafe()
}

// poseQuestion publishes the single pending question panel; the resolver
// suspends here without ending the turn. Assumes lock held.
func (g *QuizGame) poseQuestion(q *models.Question, playerID uuid.UUID, isBonus bool) {
	g.PendingEffect = nil
	g.PendingQuestion = &PendingQuestion{
		Question: q,
		PlayerID: playerID,
		IsBonus:  isBonus,
	}
	g.Phase = PhaseQuestion
	g.fireEvent(GameEvent{
		Type: EventQuestionPosed,
		User: &EventUser{ID: playerID},
		Payload: map[string]interface{}{
			"isBonus":    isBonus,
			"difficulty": string(q.Difficulty),
		},
	})
	g.enterPlanning()
	g.broadcastSyncUnsafe()
}

// clampScore floors a score at zero; scores are never negative.
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	return s
}
