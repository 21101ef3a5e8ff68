// internal/database/question.go
package database

import (
	"context"
	"fmt"

	"github.com/quizloop/quizloop/internal/models"
)

// LoadQuestions pulls the full question bank. Options are stored as a text
// array; rows with a malformed option set are skipped rather than failing
// the whole load.
func LoadQuestions(ctx context.Context) ([]*models.Question, error) {
	q := `
	SELECT id, text, options, correct_index, difficulty, is_bonus
	FROM questions
	ORDER BY id
	`
	rows, err := DB.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []*models.Question
	for rows.Next() {
		var item models.Question
		var difficulty string
		if err := rows.Scan(&item.ID, &item.Text, &item.Options, &item.CorrectIndex, &difficulty, &item.IsBonus); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		item.Difficulty = models.Difficulty(difficulty)
		if len(item.Options) != 4 || item.CorrectIndex < 0 || item.CorrectIndex > 3 {
			continue
		}
		out = append(out, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question rows: %w", err)
	}
	return out, nil
}
