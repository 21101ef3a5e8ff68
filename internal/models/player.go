package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is one pawn on the board. The cosmetic fields (Name, Color, Icon)
// come from the lobby and are opaque to the engine; the engine only mutates
// Position, Score and the two counters.
type Player struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Icon  string    `json:"icon"`

	Position          int `json:"position"`
	Score             int `json:"score"`
	BankruptCount     int `json:"bankruptCount"`
	BonusCorrectCount int `json:"bonusCorrectCount"`

	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`

	User *User `json:"-"`
}
