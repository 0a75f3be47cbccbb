package player

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

func CreatePlayer(id, name string, t Transform) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Position: t.Position,
		Rotation: t.Rotation,
	}
}

// Transform returns the player's spatial part.
func (p *Player) Transform() Transform {
	return Transform{Position: p.Position, Rotation: p.Rotation}
}

func (p *Player) SetTransform(t Transform) {
	p.Position = t.Position
	p.Rotation = t.Rotation
}

// ResetRound clears the per-round fields. isIt is set to it.
func (p *Player) ResetRound(it bool) {
	p.IsIt = it
	p.TimeAsIt = 0
	p.LastTagTime = nil
}

// Finite reports whether every component of both vectors is a finite number.
func (t Transform) Finite() bool {
	return finite(t.Position) && finite(t.Rotation)
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
