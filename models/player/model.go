package player

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a client's last-known position and orientation.
type Transform struct {
	Position mgl64.Vec3 `json:"position" msgpack:"position"`
	Rotation mgl64.Vec3 `json:"rotation" msgpack:"rotation"`
}

type Player struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Position    mgl64.Vec3    `json:"position"`
	Rotation    mgl64.Vec3    `json:"rotation"`
	IsIt        bool          `json:"isIt"`
	TimeAsIt    time.Duration `json:"timeAsIt"`
	LastTagTime *time.Time    `json:"lastTagTime,omitempty"`
}
