// Package session implements the round-based tag game played on top of the
// presence registry: roster, "it" assignment, cooldowns, scoring and the
// round countdown.
//
// A Session is not safe for concurrent use. Every operation runs to
// completion under the owner's lock, and none of them panic on bad input:
// a rejected operation returns false (or an error from Start) and leaves
// the state untouched.
package session

import (
	"errors"
	"time"

	"github.com/TeamRekursion/darkmoon-server/models/player"
)

type Mode string

const (
	ModeNone        Mode = "none"
	ModeTag         Mode = "tag"
	ModeCollectible Mode = "collectible"
	ModeRace        Mode = "race"
)

var (
	ErrNotEnoughPlayers   = errors.New("session: need at least 2 players to start")
	ErrModeNotImplemented = errors.New("session: game mode not implemented")
	ErrUnknownMode        = errors.New("session: unknown game mode")
)

// State is the process-wide round state. ItPlayerID is empty and
// RoundStartTime is zero when unset.
type State struct {
	Mode           Mode
	IsActive       bool
	TimeRemaining  time.Duration
	Scores         map[string]float64
	ItPlayerID     string
	RoundStartTime time.Time
}

// Result is one row of the end-of-round ranking.
type Result struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Tuning holds the round constants.
type Tuning struct {
	TagCooldown    time.Duration
	BaseDuration   time.Duration
	PerPlayerBonus time.Duration
	MaxTagScore    float64
}

func DefaultTuning() Tuning {
	return Tuning{
		TagCooldown:    2 * time.Second,
		BaseDuration:   60 * time.Second,
		PerPlayerBonus: 60 * time.Second,
		MaxTagScore:    300,
	}
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Picker chooses an index in [0, n). n is always > 0.
type Picker interface {
	IntN(n int) int
}

type Session struct {
	tuning Tuning
	clock  Clock
	picker Picker

	state  State
	roster map[string]*player.Player
	order  []string
}
