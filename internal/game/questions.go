// internal/game/questions.go
package game

import (
	"math/rand"

	"github.com/quizloop/quizloop/internal/models"
)

// QuestionPool manages the three collections from which tile questions are
// drawn: the immutable master list, the currently-available pool, and the
// used list. A draw removes an item from available and appends it to used.
//
// Recycling (shuffling used back into available when available empties) is
// enabled for turn-based games so they never stall for lack of questions; in
// question-based games exhaustion is the end-of-game trigger instead.
type QuestionPool struct {
	master    []*models.Question
	available []*models.Question
	used      []*models.Question
	recycle   bool
	rng       *rand.Rand
}

// NewQuestionPool seeds a pool from the master list. The master slice is
// copied; callers may not mutate questions after construction.
func NewQuestionPool(master []*models.Question, recycle bool, rng *rand.Rand) *QuestionPool {
	p := &QuestionPool{
		master:  make([]*models.Question, len(master)),
		recycle: recycle,
		rng:     rng,
	}
	copy(p.master, master)
	p.Reset()
	return p
}

// Reset restores the pool to its initial full state.
func (p *QuestionPool) Reset() {
	p.available = make([]*models.Question, len(p.master))
	copy(p.available, p.master)
	p.used = p.used[:0]
	p.rng.Shuffle(len(p.available), func(i, j int) {
		p.available[i], p.available[j] = p.available[j], p.available[i]
	})
}

// Remaining reports how many questions are left in the available pool.
func (p *QuestionPool) Remaining() int { return len(p.available) }

// Used reports how many questions have been drawn and not recycled.
func (p *QuestionPool) Used() int { return len(p.used) }

// Exhausted is true once the available pool is empty and no recycling is
// configured. In question-based mode this ends the game.
func (p *QuestionPool) Exhausted() bool {
	return len(p.available) == 0 && !p.recycle
}

// recycleUsed merges the used list back into available and reshuffles.
func (p *QuestionPool) recycleUsed() {
	if len(p.used) == 0 {
		return
	}
	p.available = append(p.available, p.used...)
	p.used = p.used[:0]
	p.rng.Shuffle(len(p.available), func(i, j int) {
		p.available[i], p.available[j] = p.available[j], p.available[i]
	})
}

// take removes the item at index i from available and appends it to used.
func (p *QuestionPool) take(i int) *models.Question {
	q := p.available[i]
	p.available = append(p.available[:i], p.available[i+1:]...)
	p.used = append(p.used, q)
	return q
}

// drawMatching picks a random item satisfying pred, or nil if none matches.
func (p *QuestionPool) drawMatching(pred func(*models.Question) bool) *models.Question {
	var idxs []int
	for i, q := range p.available {
		if pred(q) {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return nil
	}
	return p.take(idxs[p.rng.Intn(len(idxs))])
}

// DrawRegular draws a non-bonus question, preferring easy/medium items and
// falling back progressively to any non-bonus, then any remaining item.
// Returns nil only when the pool is empty and cannot recycle.
func (p *QuestionPool) DrawRegular() *models.Question {
	if len(p.available) == 0 && p.recycle {
		p.recycleUsed()
	}
	if q := p.drawMatching(func(q *models.Question) bool {
		return !q.IsBonus && q.Difficulty != models.DifficultyHard
	}); q != nil {
		return q
	}
	if q := p.drawMatching(func(q *models.Question) bool { return !q.IsBonus }); q != nil {
		return q
	}
	return p.drawMatching(func(*models.Question) bool { return true })
}

// DrawBonus draws from the bonus sub-pool, hardest difficulty first. Returns
// nil when no bonus items remain; the tile then degrades to its no-question
// fallback message.
func (p *QuestionPool) DrawBonus() *models.Question {
	if len(p.available) == 0 && p.recycle {
		p.recycleUsed()
	}
	for _, d := range []models.Difficulty{models.DifficultyHard, models.DifficultyMedium} {
		if q := p.drawMatching(func(q *models.Question) bool {
			return q.IsBonus && q.Difficulty == d
		}); q != nil {
			return q
		}
	}
	return p.drawMatching(func(q *models.Question) bool { return q.IsBonus })
}

// DrawPreferHard draws any question preferring hardest difficulty, recycling
// unconditionally when empty. Sudden death uses this so an elimination round
// can never stall on an exhausted pool.
func (p *QuestionPool) DrawPreferHard() *models.Question {
	if len(p.available) == 0 {
		p.recycleUsed()
	}
	for _, d := range []models.Difficulty{models.DifficultyHard, models.DifficultyMedium, models.DifficultyEasy} {
		if q := p.drawMatching(func(q *models.Question) bool { return q.Difficulty == d }); q != nil {
			return q
		}
	}
	return p.drawMatching(func(*models.Question) bool { return true })
}
