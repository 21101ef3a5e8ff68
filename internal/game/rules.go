// internal/game/rules.go
package game

import "fmt"

// Mode selects the game-length policy.
type Mode string

const (
	// ModeTurnBased ends the game after a fixed number of full player rounds.
	ModeTurnBased Mode = "turns"
	// ModeQuestionBased ends the game when the question pool is exhausted.
	ModeQuestionBased Mode = "questions"
)

// AllowedTurnLimits enumerates the round counts a lobby may pick for
// turn-based games.
var AllowedTurnLimits = []int{5, 10, 15, 20}

// GameConfig captures the game-time configuration chosen in the lobby plus
// the engine's fixed timing constants. Immutable once the game starts.
type GameConfig struct {
	Mode      Mode `json:"mode"`
	TurnLimit int  `json:"turnLimit"` // rounds, turn-based mode only

	RegularReward int `json:"regularReward"`
	BonusReward   int `json:"bonusReward"`

	// Animation/timing knobs. Tests shrink these.
	DiceTicks   int `json:"diceTicks"`   // transient faces shown before the final value
	DiceTickMs  int `json:"diceTickMs"`  // delay between dice faces
	MoveTickMs  int `json:"moveTickMs"`  // delay between single-tile pawn steps
	OrderTickMs int `json:"orderTickMs"` // delay between starting-order roll reveals
	StartDwell  int `json:"startDwellMs"`
	WatchdogMs  int `json:"watchdogMs"`
}

// DefaultConfig returns the standard ten-round turn-based configuration.
func DefaultConfig() GameConfig {
	return GameConfig{
		Mode:          ModeTurnBased,
		TurnLimit:     10,
		RegularReward: 100,
		BonusReward:   200,
		DiceTicks:     8,
		DiceTickMs:    120,
		MoveTickMs:    250,
		OrderTickMs:   400,
		StartDwell:    800,
		WatchdogMs:    500,
	}
}

// Update applies a partial rules map from the lobby onto the config. Unknown
// keys are ignored; invalid values are rejected with an error and nothing is
// applied.
func (c *GameConfig) Update(newRules map[string]interface{}) error {
	updated := *c

	if v, ok := newRules["mode"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("invalid type for mode")
		}
		switch Mode(s) {
		case ModeTurnBased, ModeQuestionBased:
			updated.Mode = Mode(s)
		default:
			return fmt.Errorf("invalid mode %q", s)
		}
	}

	if v, ok := newRules["turnLimit"]; ok && v != nil {
		// JSON numbers decode as float64.
		var n int
		switch t := v.(type) {
		case float64:
			n = int(t)
		case int:
			n = t
		default:
			return fmt.Errorf("invalid type for turnLimit")
		}
		valid := false
		for _, allowed := range AllowedTurnLimits {
			if n == allowed {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("turnLimit must be one of %v", AllowedTurnLimits)
		}
		updated.TurnLimit = n
	}

	*c = updated
	return nil
}
