// internal/game/board.go
package game

import (
	"strconv"
	"strings"
	"unicode"
)

// BoardSize is the number of tiles on the loop. Positions always wrap mod 40.
const BoardSize = 40

// TileType classifies a board tile. The bankruptcy tile title is authoritative
// even when the type says otherwise; see resolveTileEffect.
type TileType string

const (
	TileStart    TileType = "start"
	TileQuestion TileType = "question"
	TileBonus    TileType = "bonus"
	TilePenalty  TileType = "penalty"
	TileBankrupt TileType = "bankrupt"
	TileSpecial  TileType = "special"
)

// TargetRule says which other player a transfer effect points at, relative to
// the mover's seat index.
type TargetRule string

const (
	TargetNone     TargetRule = ""
	TargetOpposite TargetRule = "opposite"
	TargetRight    TargetRule = "right"
	TargetLeft     TargetRule = "left"
	TargetEveryone TargetRule = "everyone"
)

// EffectKind is the resolved behavior of landing on a tile.
type EffectKind string

const (
	EffectNone          EffectKind = "none"
	EffectQuestion      EffectKind = "question"
	EffectBonusQuestion EffectKind = "bonus_question"
	EffectPenalty       EffectKind = "penalty"
	EffectTakeFrom      EffectKind = "take_from"
	EffectGiveTo        EffectKind = "give_to"
	EffectGiveAll       EffectKind = "give_all"
	EffectBankrupt      EffectKind = "bankrupt"
	EffectInfo          EffectKind = "info"
)

// Effect carries the structured parameters of a tile, attached at board
// construction so the display title is purely cosmetic at play time.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
	Target TargetRule `json:"target,omitempty"`
}

// BoardTile is one cell of the 40-tile loop. Tiles never mutate after
// construction.
type BoardTile struct {
	Index  int      `json:"index"`
	Title  string   `json:"title"`
	Type   TileType `json:"type"`
	Effect Effect   `json:"effect"`
}

// Board is the static tile layout.
type Board struct {
	Tiles [BoardSize]BoardTile
}

// TitleDenotesBankruptcy reports whether a tile title textually marks the
// bankruptcy cell. This check outranks the tile type so a misclassified
// bankruptcy tile still bankrupts.
func TitleDenotesBankruptcy(title string) bool {
	return strings.Contains(strings.ToLower(title), "bankrupt")
}

// ParseStarAmount extracts the number following the star glyph in a tile
// title, e.g. "Pay ★50" => 50. A missing or malformed amount parses to 0,
// which degrades the effect to a no-op message rather than failing.
func ParseStarAmount(title string) int {
	i := strings.IndexRune(title, '★')
	if i < 0 {
		return 0
	}
	rest := title[i+len("★"):]
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}

// parseTarget finds a directional keyword in a title. No keyword means no
// target and the effect degrades to a self-only award or no-op.
func parseTarget(title string) TargetRule {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "everyone"):
		return TargetEveryone
	case strings.Contains(lower, "opposite"):
		return TargetOpposite
	case strings.Contains(lower, "right"):
		return TargetRight
	case strings.Contains(lower, "left"):
		return TargetLeft
	}
	return TargetNone
}

// DeriveEffect builds the structured effect for a tile from its type and
// display title. This is the single place the legacy title encoding is
// interpreted; everything downstream reads the Effect struct.
func DeriveEffect(tileType TileType, title string) Effect {
	if tileType == TileBankrupt || TitleDenotesBankruptcy(title) {
		return Effect{Kind: EffectBankrupt}
	}

	lower := strings.ToLower(title)
	amount := ParseStarAmount(title)
	target := parseTarget(title)

	switch tileType {
	case TileStart:
		return Effect{Kind: EffectNone}
	case TileQuestion:
		return Effect{Kind: EffectQuestion}
	case TilePenalty:
		return Effect{Kind: EffectPenalty, Amount: amount}
	case TileBonus:
		// A star amount plus a directional keyword means "take N from the
		// player in that direction"; otherwise the tile poses a bonus question.
		if strings.Contains(lower, "take") && target != TargetNone && target != TargetEveryone {
			return Effect{Kind: EffectTakeFrom, Amount: amount, Target: target}
		}
		return Effect{Kind: EffectBonusQuestion}
	case TileSpecial:
		if strings.Contains(lower, "give") {
			if target == TargetEveryone {
				return Effect{Kind: EffectGiveAll, Amount: amount}
			}
			if target != TargetNone {
				return Effect{Kind: EffectGiveTo, Amount: amount, Target: target}
			}
		}
		return Effect{Kind: EffectInfo}
	}
	return Effect{Kind: EffectInfo}
}

// NewTile constructs one tile, deriving its structured effect from the title.
func NewTile(index int, title string, tileType TileType) BoardTile {
	return BoardTile{
		Index:  index,
		Title:  title,
		Type:   tileType,
		Effect: DeriveEffect(tileType, title),
	}
}

// tileDef is a title/type pair used by the standard layout table.
type tileDef struct {
	title string
	typ   TileType
}

// standardLayout is the default 40-tile loop. Roughly half the loop is plain
// question tiles; the rest alternates bonuses, penalties, specials and the
// single bankruptcy cell at index 20.
var standardLayout = [BoardSize]tileDef{
	{"Start", TileStart},
	{"Question", TileQuestion},
	{"Bonus Question", TileBonus},
	{"Question", TileQuestion},
	{"Pay ★50", TilePenalty},
	{"Question", TileQuestion},
	{"Take ★60 from the player opposite", TileBonus},
	{"Question", TileQuestion},
	{"Give ★40 to the player on your left", TileSpecial},
	{"Question", TileQuestion},
	{"Pay ★100", TilePenalty},
	{"Question", TileQuestion},
	{"Bonus Question", TileBonus},
	{"Question", TileQuestion},
	{"Scenic viewpoint", TileSpecial},
	{"Question", TileQuestion},
	{"Take ★40 from the player on your right", TileBonus},
	{"Question", TileQuestion},
	{"Pay ★75", TilePenalty},
	{"Question", TileQuestion},
	{"Bankruptcy", TileBankrupt},
	{"Question", TileQuestion},
	{"Bonus Question", TileBonus},
	{"Question", TileQuestion},
	{"Give ★60 to everyone else", TileSpecial},
	{"Question", TileQuestion},
	{"Pay ★50", TilePenalty},
	{"Question", TileQuestion},
	{"Take ★50 from the player on your left", TileBonus},
	{"Question", TileQuestion},
	{"Rest stop", TileSpecial},
	{"Question", TileQuestion},
	{"Pay ★150", TilePenalty},
	{"Question", TileQuestion},
	{"Bonus Question", TileBonus},
	{"Question", TileQuestion},
	{"Give ★50 to the player opposite", TileSpecial},
	{"Question", TileQuestion},
	{"Pay ★25", TilePenalty},
	{"Question", TileQuestion},
}

// NewStandardBoard builds the default board from the layout table.
func NewStandardBoard() *Board {
	b := &Board{}
	for i, def := range standardLayout {
		b.Tiles[i] = NewTile(i, def.title, def.typ)
	}
	return b
}
