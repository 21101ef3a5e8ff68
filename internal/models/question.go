package models

import "github.com/google/uuid"

// Difficulty buckets for trivia questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single multiple-choice trivia item. Options always has
// exactly 4 entries and order is significant; CorrectIndex is 0-3.
// Questions are immutable once defined; the pool tracks drawn/used copies.
type Question struct {
	ID           uuid.UUID  `json:"id"`
	Text         string     `json:"text"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correctIndex"`
	Difficulty   Difficulty `json:"difficulty"`
	IsBonus      bool       `json:"isBonus"`
}
