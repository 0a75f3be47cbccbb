// Package presence tracks every connected client's last-known transform.
//
// A Registry is not safe for concurrent use. The owner serializes access.
package presence

import (
	"github.com/TeamRekursion/darkmoon-server/models/player"
)

type Registry struct {
	entries map[string]player.Transform
}

// Snapshot is the full id -> transform mapping broadcast on every change.
type Snapshot map[string]player.Transform
