// Package relay republishes room notifications to Redis so processes
// outside the server can follow the game.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/models/presence"
)

const (
	queueSize   = 256
	publishWait = 2 * time.Second
	presenceTTL = time.Minute
)

// Publisher is the subset of *redis.Client the relay uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Message is the msgpack document published for every notification.
type Message struct {
	Event   string `msgpack:"event"`
	Room    string `msgpack:"room"`
	At      int64  `msgpack:"at"` // unix ms
	Payload any    `msgpack:"payload"`
}

type Redis struct {
	client  Publisher
	channel string
	room    string
	log     *zap.Logger
	queue   chan Message
	dropped atomic.Uint64
}

// Dial connects to the Redis server at url and checks it answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedis(client Publisher, channel, room string, log *zap.Logger) *Redis {
	return &Redis{
		client:  client,
		channel: channel,
		room:    room,
		log:     log,
		queue:   make(chan Message, queueSize),
	}
}

// Notify queues a notification. When the queue is full the notification
// is dropped.
func (r *Redis) Notify(event string, payload any) {
	m := Message{Event: event, Room: r.room, At: time.Now().UnixMilli(), Payload: payload}
	select {
	case r.queue <- m:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.log.Warn("relay queue full, dropping notifications", zap.Uint64("dropped", n))
		}
	}
}

// Dropped reports how many notifications were discarded.
func (r *Redis) Dropped() uint64 {
	return r.dropped.Load()
}

// Run publishes queued notifications until ctx is done.
func (r *Redis) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-r.queue:
			r.publish(ctx, m)
		}
	}
}

func (r *Redis) publish(ctx context.Context, m Message) {
	ctx, cancel := context.WithTimeout(ctx, publishWait)
	defer cancel()

	b, err := Encode(m)
	if err != nil {
		r.log.Error("encode relay message", zap.String("event", m.Event), zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		r.log.Warn("publish relay message", zap.String("event", m.Event), zap.Error(err))
		return
	}
	if snap, ok := m.Payload.(presence.Snapshot); ok {
		if err := r.client.Set(ctx, r.presenceKey(), snap, presenceTTL).Err(); err != nil {
			r.log.Warn("store presence snapshot", zap.Error(err))
		}
	}
}

func (r *Redis) presenceKey() string {
	return r.channel + ":presence:" + r.room
}

// Encode serializes m with msgpack, reusing the payloads' json tags.
func Encode(m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
