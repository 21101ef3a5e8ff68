package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStarAmount(t *testing.T) {
	assert.Equal(t, 50, ParseStarAmount("Pay ★50"))
	assert.Equal(t, 60, ParseStarAmount("Take ★60 from the player opposite"))
	assert.Equal(t, 100, ParseStarAmount("★100"))
	assert.Equal(t, 25, ParseStarAmount("Pay ★ 25")) // whitespace tolerated

	// Malformed amounts default to zero instead of failing.
	assert.Equal(t, 0, ParseStarAmount("no star here"))
	assert.Equal(t, 0, ParseStarAmount("Pay ★"))
	assert.Equal(t, 0, ParseStarAmount("Pay ★abc"))
}

func TestTitleDenotesBankruptcy(t *testing.T) {
	assert.True(t, TitleDenotesBankruptcy("Bankruptcy"))
	assert.True(t, TitleDenotesBankruptcy("Total BANKRUPT"))
	assert.False(t, TitleDenotesBankruptcy("Pay ★50"))
}

func TestDeriveEffect(t *testing.T) {
	// Bankruptcy title outranks any tile type.
	e := DeriveEffect(TileQuestion, "Bankruptcy")
	assert.Equal(t, EffectBankrupt, e.Kind)

	e = DeriveEffect(TilePenalty, "Pay ★75")
	assert.Equal(t, EffectPenalty, e.Kind)
	assert.Equal(t, 75, e.Amount)

	e = DeriveEffect(TileBonus, "Take ★60 from the player opposite")
	assert.Equal(t, EffectTakeFrom, e.Kind)
	assert.Equal(t, 60, e.Amount)
	assert.Equal(t, TargetOpposite, e.Target)

	// No directional keyword means a plain bonus question.
	e = DeriveEffect(TileBonus, "Bonus Question")
	assert.Equal(t, EffectBonusQuestion, e.Kind)

	e = DeriveEffect(TileSpecial, "Give ★60 to everyone else")
	assert.Equal(t, EffectGiveAll, e.Kind)
	assert.Equal(t, 60, e.Amount)

	e = DeriveEffect(TileSpecial, "Give ★40 to the player on your left")
	assert.Equal(t, EffectGiveTo, e.Kind)
	assert.Equal(t, TargetLeft, e.Target)

	e = DeriveEffect(TileSpecial, "Rest stop")
	assert.Equal(t, EffectInfo, e.Kind)
}

func TestNewStandardBoard(t *testing.T) {
	b := NewStandardBoard()

	require.Len(t, b.Tiles, BoardSize)
	assert.Equal(t, TileStart, b.Tiles[0].Type)

	bankrupt := 0
	for i, tile := range b.Tiles {
		assert.Equal(t, i, tile.Index)
		if tile.Type == TileBankrupt {
			bankrupt++
		}
	}
	assert.Equal(t, 1, bankrupt, "exactly one bankruptcy cell")
	assert.Equal(t, EffectBankrupt, b.Tiles[20].Effect.Kind)
}
