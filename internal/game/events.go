// internal/game/events.go
package game

import "github.com/google/uuid"

// GameEventType is an enum-like type for broadcasting engine transitions.
type GameEventType string

const (
	EventOrderRoll      GameEventType = "order_roll"       // one starting-order die revealed
	EventOrderReroll    GameEventType = "order_reroll"     // tied players roll again
	EventOrderResolved  GameEventType = "order_resolved"   // turn order fixed
	EventDiceTick       GameEventType = "dice_tick"        // transient animation face
	EventDiceResult     GameEventType = "dice_result"      // final dice value
	EventPlayerMoved    GameEventType = "player_moved"     // single-tile pawn step
	EventTileEffect     GameEventType = "tile_effect"      // effect panel raised
	EventQuestionPosed  GameEventType = "question_posed"   // question panel raised
	EventQuestionResult GameEventType = "question_result"  // answer graded
	EventTurnStart      GameEventType = "turn_start"       // next player may roll
	EventSuddenDeath    GameEventType = "sudden_death"     // elimination round begins
	EventGameEnd        GameEventType = "game_end"         // winner declared
	EventGameRestart    GameEventType = "game_restart"     // state reset, order replays
	EventSyncState      GameEventType = "sync_state"       // full snapshot
	EventWatchdog       GameEventType = "watchdog_release" // stuck locks force-cleared
)

// EventUser identifies the player an event concerns.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// GameEvent is the wire format pushed to clients. State carries the full
// snapshot for sync events; Payload holds per-event fields.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *GameSnapshot          `json:"state,omitempty"`
}
