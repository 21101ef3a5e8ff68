// internal/game/utils.go
package game

import (
	"encoding/json"
	"log"
)

// ConvertEventToBytes marshals a GameEvent into JSON bytes. Logs and returns
// empty JSON "{}" on marshalling error so downstream writers never crash.
func ConvertEventToBytes(ev GameEvent) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("WARNING: failed to marshal GameEvent type %s: %v", ev.Type, err)
		return []byte("{}")
	}
	return data
}
