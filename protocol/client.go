package protocol

import "github.com/go-gl/mathgl/mgl64"

// Payloads sent by clients.

type Move struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
}

// Chat may carry a client-chosen message id; the server fills in the
// sender fields itself.
type Chat struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

type GameStart struct {
	Mode     string  `json:"mode"`
	Duration float64 `json:"duration,omitempty"` // seconds
}

type PlayerTagged struct {
	TaggerID string `json:"taggerId"`
	TaggedID string `json:"taggedId"`
}
