package room

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/chat"
	"github.com/TeamRekursion/darkmoon-server/session"
)

type Option func(*Room)

func WithRoomID(id uuid.UUID) Option {
	return func(r *Room) { r.RoomID = id }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Room) { r.log = log }
}

// WithSession replaces the default session, e.g. one with a fixed clock.
func WithSession(s *session.Session) Option {
	return func(r *Room) { r.session = s }
}

func WithClock(c session.Clock) Option {
	return func(r *Room) { r.clock = c }
}

func WithFilter(f *chat.Filter) Option {
	return func(r *Room) { r.filter = f }
}

func WithNotifier(n Notifier) Option {
	return func(r *Room) { r.notifiers = append(r.notifiers, n) }
}

// WithDefaultDuration sets the round length used when game-start
// carries no duration.
func WithDefaultDuration(d time.Duration) Option {
	return func(r *Room) { r.defaultDuration = d }
}

func WithTickInterval(d time.Duration) Option {
	return func(r *Room) { r.tickInterval = d }
}
