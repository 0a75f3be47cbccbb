// Package protocol defines the websocket wire format: a JSON envelope
// carrying a message type and a type-specific payload.
package protocol

import (
	"encoding/json"
)

// Inbound message types.
const (
	MsgMove         = "move"
	MsgChat         = "chat-message"
	MsgGameStart    = "game-start"
	MsgPlayerTagged = "player-tagged"
	MsgGameEnd      = "game-end"
)

// Outbound-only message types.
const (
	MsgWelcome   = "welcome"
	MsgGameState = "game-state"
	MsgGameError = "game-error"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
