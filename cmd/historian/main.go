// cmd/historian/main.go is an asynchronous historian service that pops game
// action records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/quizloop/quizloop/internal/cache"
	"github.com/quizloop/quizloop/internal/database"
)

// HistorianService encapsulates the Redis + DB logic for capturing game
// actions and marking games abandoned after a period of inactivity.
type HistorianService struct {
	redisClient  *redis.Client
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration // duration until a game is marked "abandoned"
	lastActivity sync.Map      // map[uuid.UUID]time.Time per game

	batchMu  sync.Mutex
	batch    []cache.GameActionRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService from environment variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		DB:   getEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.GameActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two main loops:
//  1. A loop that reads from the Redis queue, accumulates records in a batch, and flushes them to the DB.
//  2. A periodic inactivity check that marks idle games as abandoned.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("quizloop-historian service started.")
	<-hs.ctx.Done()
	log.Println("quizloop-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the Redis queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a 3-second timeout so context cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
					continue
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.GameActionRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid action record: %v\n", err)
				continue
			}

			hs.lastActivity.Store(record.GameID, time.Now())
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.GameActionRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchLocked()
	}
}

// flushBatchToDB flushes the current batch to the database.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushBatchLocked()
}

// flushBatchLocked flushes the batch. Callers must hold batchMu.
func (hs *HistorianService) flushBatchLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.GameActionRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()

	// Games must exist before their action rows; upsert them first, then
	// finalize any game whose end action is part of this batch.
	if err := hs.ensureGamesInProgress(ctx, batchCopy); err != nil {
		log.Printf("[ERROR] upsert games: %v\n", err)
	}

	if err := database.InsertGameActionsBatch(ctx, toActionRows(batchCopy)); err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
		return
	}
	log.Printf("Flushed %d actions to DB.\n", len(batchCopy))

	for _, rec := range batchCopy {
		if rec.ActionType == "game_end" {
			hs.finalizeGame(ctx, rec.GameID)
		}
	}
}

// toActionRows converts queue records into game_actions rows.
func toActionRows(records []cache.GameActionRecord) []database.GameActionRow {
	rows := make([]database.GameActionRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, database.GameActionRow{
			GameID:      rec.GameID,
			ActionIndex: rec.ActionIndex,
			ActorID:     rec.ActorUserID,
			ActionType:  rec.ActionType,
			Payload:     rec.ActionPayload,
			TimestampMs: rec.Timestamp,
		})
	}
	return rows
}

// ensureGamesInProgress upserts a games row for every distinct game in the batch.
func (hs *HistorianService) ensureGamesInProgress(ctx context.Context, records []cache.GameActionRecord) error {
	seen := make(map[uuid.UUID]bool, len(records))
	return pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, start_time)
			VALUES ($1, 'in_progress', NOW())
			ON CONFLICT (id) DO NOTHING
		`
		for _, rec := range records {
			if seen[rec.GameID] {
				continue
			}
			seen[rec.GameID] = true
			if _, err := tx.Exec(ctx, q, rec.GameID); err != nil {
				return err
			}
		}
		return nil
	})
}

// finalizeGame marks a game completed once its end action has been persisted.
func (hs *HistorianService) finalizeGame(ctx context.Context, gameID uuid.UUID) {
	q := `
		UPDATE games
		SET status = 'completed', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := database.DB.Exec(ctx, q, gameID); err != nil {
		log.Printf("failed to finalize game %v: %v", gameID, err)
	}
	hs.lastActivity.Delete(gameID)
}

// inactivityLoop periodically checks whether any game has been inactive beyond
// the configured threshold and marks such games as abandoned.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				gameID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.markGameAbandoned(gameID)
					hs.lastActivity.Delete(gameID)
				}
				return true
			})
		}
	}
}

// markGameAbandoned marks a game 'abandoned' if it is still 'in_progress'.
func (hs *HistorianService) markGameAbandoned(gameID uuid.UUID) {
	ctx := context.Background()
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := database.DB.Exec(ctx, q, gameID); err != nil {
		log.Printf("failed to mark game %v abandoned: %v", gameID, err)
		return
	}
	log.Printf("Marked game %v as 'abandoned' due to inactivity.", gameID)
}

// Stop gracefully stops the historian service.
func (hs *HistorianService) Stop() {
	hs.cancelFn()
}

func main() {
	hs := NewHistorianService()
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	hs.Stop()

	// Give the final batch a chance to flush before exiting.
	hs.flushBatchToDB()
	log.Println("Historian shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt parses an environment variable as an integer or returns a default.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
