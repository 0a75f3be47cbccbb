// Package room owns the presence registry and the tag session for one
// shared world. Every inbound event runs to completion under a single
// mutex, and the resulting notifications are fanned out before the lock
// is released, so each client sees changes in the order they were made.
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/chat"
	"github.com/TeamRekursion/darkmoon-server/models/presence"
	"github.com/TeamRekursion/darkmoon-server/session"
)

// Conn is one client connection. Send must not block.
type Conn interface {
	Send([]byte) error
	Close() error
}

// Notifier receives every outbound notification after it has been sent
// to the connected clients. Notify must not block.
type Notifier interface {
	Notify(event string, payload any)
}

type Room struct {
	RoomID    uuid.UUID
	StartedAt time.Time

	mu        sync.Mutex
	presence  *presence.Registry
	session   *session.Session
	conns     map[string]Conn
	notifiers []Notifier

	filter          *chat.Filter
	log             *zap.Logger
	clock           session.Clock
	defaultDuration time.Duration
	tickInterval    time.Duration
}

// Info is the public summary served over HTTP.
type Info struct {
	RoomID      uuid.UUID `json:"room_id"`
	StartedAt   int64     `json:"started_at"`
	Connections int       `json:"connections"`
}
