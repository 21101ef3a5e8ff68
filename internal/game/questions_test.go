package game

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizloop/quizloop/internal/models"
)

func testQuestion(d models.Difficulty, bonus bool) *models.Question {
	return &models.Question{
		ID:           uuid.New(),
		Text:         "t",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 0,
		Difficulty:   d,
		IsBonus:      bonus,
	}
}

func TestDrawRegularPrefersEasyMedium(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	hard := testQuestion(models.DifficultyHard, false)
	easy := testQuestion(models.DifficultyEasy, false)
	bonus := testQuestion(models.DifficultyMedium, true)
	p := NewQuestionPool([]*models.Question{hard, easy, bonus}, false, rng)

	q := p.DrawRegular()
	require.NotNil(t, q)
	assert.Equal(t, easy.ID, q.ID, "easy non-bonus drawn before hard or bonus")

	// Only hard non-bonus and the bonus item remain; next draw falls back to
	// any non-bonus.
	q = p.DrawRegular()
	require.NotNil(t, q)
	assert.Equal(t, hard.ID, q.ID)

	// Last resort is any remaining item, even a bonus one.
	q = p.DrawRegular()
	require.NotNil(t, q)
	assert.Equal(t, bonus.ID, q.ID)

	assert.Nil(t, p.DrawRegular())
	assert.True(t, p.Exhausted())
}

func TestDrawBonusPrefersHardest(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bMed := testQuestion(models.DifficultyMedium, true)
	bHard := testQuestion(models.DifficultyHard, true)
	reg := testQuestion(models.DifficultyEasy, false)
	p := NewQuestionPool([]*models.Question{bMed, bHard, reg}, false, rng)

	q := p.DrawBonus()
	require.NotNil(t, q)
	assert.Equal(t, bHard.ID, q.ID)

	q = p.DrawBonus()
	require.NotNil(t, q)
	assert.Equal(t, bMed.ID, q.ID)

	// No bonus items remain: the tile degrades to its fallback message.
	assert.Nil(t, p.DrawBonus())
	assert.Equal(t, 1, p.Remaining())
}

func TestDrawNeverRepeatsWithoutRecycle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var master []*models.Question
	for i := 0; i < 10; i++ {
		master = append(master, testQuestion(models.DifficultyEasy, false))
	}
	p := NewQuestionPool(master, false, rng)

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 10; i++ {
		q := p.DrawRegular()
		require.NotNil(t, q)
		assert.False(t, seen[q.ID], "question %s drawn twice", q.ID)
		seen[q.ID] = true
	}
	assert.Nil(t, p.DrawRegular())
}

func TestRecyclingRefillsPool(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	master := []*models.Question{
		testQuestion(models.DifficultyEasy, false),
		testQuestion(models.DifficultyEasy, false),
	}
	p := NewQuestionPool(master, true, rng)

	require.NotNil(t, p.DrawRegular())
	require.NotNil(t, p.DrawRegular())
	assert.Equal(t, 0, p.Remaining())
	assert.False(t, p.Exhausted(), "recycling pools never report exhaustion")

	// The used list is shuffled back in so the game never stalls.
	q := p.DrawRegular()
	require.NotNil(t, q)
	assert.Equal(t, 1, p.Remaining())
}

func TestDrawPreferHardRecyclesUnconditionally(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	master := []*models.Question{
		testQuestion(models.DifficultyEasy, false),
		testQuestion(models.DifficultyHard, false),
	}
	// Non-recycling pool, as in question-based mode.
	p := NewQuestionPool(master, false, rng)

	q := p.DrawPreferHard()
	require.NotNil(t, q)
	assert.Equal(t, models.DifficultyHard, q.Difficulty)
	require.NotNil(t, p.DrawPreferHard())

	// Pool is empty, but sudden death must still get a question.
	q = p.DrawPreferHard()
	require.NotNil(t, q)
}
