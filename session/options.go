package session

import (
	"math/rand/v2"
	"time"

	"github.com/TeamRekursion/darkmoon-server/models/player"
)

type Option func(*Session)

func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithPicker(p Picker) Option {
	return func(s *Session) { s.picker = p }
}

func WithTuning(t Tuning) Option {
	return func(s *Session) { s.tuning = t }
}

// NewPicker returns a PCG-backed picker seeded with seed.
func NewPicker(seed uint64) Picker {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func New(opts ...Option) *Session {
	s := &Session{
		tuning: DefaultTuning(),
		clock:  ClockFunc(time.Now),
		state: State{
			Mode:   ModeNone,
			Scores: make(map[string]float64),
		},
		roster: make(map[string]*player.Player),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.picker == nil {
		s.picker = NewPicker(uint64(s.clock.Now().UnixNano()))
	}
	return s
}
