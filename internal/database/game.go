// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quizloop/quizloop/internal/models"
)

// RecordGameResults persists the final outcome of a finished game: the game
// row is upserted to completed and one result row is written per player.
func RecordGameResults(ctx context.Context, gameID, lobbyID uuid.UUID, players []*models.Player, finalScores map[uuid.UUID]int, winnerID uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, lobby_id, status)
			VALUES ($1, $2, 'completed')
			ON CONFLICT (id) DO UPDATE SET status = 'completed'
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID, lobbyID); e != nil {
			return e
		}

		for _, pl := range players {
			q := `
				INSERT INTO game_results (game_id, player_id, score, did_win, bankrupt_count, bonus_correct_count)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET score=$3, did_win=$4, bankrupt_count=$5, bonus_correct_count=$6
			`
			if _, e := tx.Exec(ctx, q, gameID, pl.ID, finalScores[pl.ID], pl.ID == winnerID,
				pl.BankruptCount, pl.BonusCorrectCount); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// InsertGameAction appends one historian record to the game_actions table.
// The payload is stored as jsonb.
func InsertGameAction(ctx context.Context, gameID uuid.UUID, actionIndex int, actorID uuid.UUID, actionType string, payload map[string]interface{}, timestampMs int64) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal action payload: %w", err)
	}
	q := `
	INSERT INTO game_actions (game_id, action_index, actor_user_id, action_type, action_payload, created_at)
	VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
	ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = DB.Exec(ctx, q, gameID, actionIndex, actorID, actionType, data, timestampMs)
	if err != nil {
		return fmt.Errorf("insert game action: %w", err)
	}
	return nil
}

// InsertGameActionsBatch writes a batch of historian records in one round
// trip using pgx's batch API.
func InsertGameActionsBatch(ctx context.Context, records []GameActionRow) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	q := `
	INSERT INTO game_actions (game_id, action_index, actor_user_id, action_type, action_payload, created_at)
	VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
	ON CONFLICT (game_id, action_index) DO NOTHING
	`
	for _, r := range records {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("marshal action payload (index %d): %w", r.ActionIndex, err)
		}
		batch.Queue(q, r.GameID, r.ActionIndex, r.ActorID, r.ActionType, data, r.TimestampMs)
	}
	br := DB.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert game actions: %w", err)
		}
	}
	return nil
}

// GameActionRow is one historian record bound for the game_actions table.
type GameActionRow struct {
	GameID      uuid.UUID
	ActionIndex int
	ActorID     uuid.UUID
	ActionType  string
	Payload     map[string]interface{}
	TimestampMs int64
}
