package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizloop/quizloop/internal/cache"
)

func TestToActionRowsPreservesFields(t *testing.T) {
	gameID := uuid.New()
	actorID := uuid.New()
	now := time.Now().UnixMilli()

	records := []cache.GameActionRecord{
		{
			GameID:        gameID,
			ActionIndex:   7,
			ActorUserID:   actorID,
			ActionType:    "roll_dice",
			ActionPayload: map[string]interface{}{"value": 4},
			Timestamp:     now,
		},
	}

	rows := toActionRows(records)
	require.Len(t, rows, 1)
	assert.Equal(t, gameID, rows[0].GameID)
	assert.Equal(t, 7, rows[0].ActionIndex)
	assert.Equal(t, actorID, rows[0].ActorID)
	assert.Equal(t, "roll_dice", rows[0].ActionType)
	assert.Equal(t, 4, rows[0].Payload["value"])
	assert.Equal(t, now, rows[0].TimestampMs)
}

func TestToActionRowsEmpty(t *testing.T) {
	assert.Empty(t, toActionRows(nil))
}

func TestAppendBelowThresholdDoesNotFlush(t *testing.T) {
	hs := &HistorianService{
		batchSize: 3,
		batch:     make([]cache.GameActionRecord, 0, 3),
	}

	// Below the batch threshold nothing touches the database, so this is
	// safe without a DB connection.
	hs.appendToBatch(cache.GameActionRecord{GameID: uuid.New(), ActionIndex: 0})
	hs.appendToBatch(cache.GameActionRecord{GameID: uuid.New(), ActionIndex: 1})

	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	assert.Len(t, hs.batch, 2)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("HISTORIAN_TEST_INT", "not-a-number")
	assert.Equal(t, 42, getEnvInt("HISTORIAN_TEST_INT", 42))

	t.Setenv("HISTORIAN_TEST_INT", "17")
	assert.Equal(t, 17, getEnvInt("HISTORIAN_TEST_INT", 42))

	assert.Equal(t, 9, getEnvInt("HISTORIAN_TEST_INT_MISSING", 9))
}
