package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/models/player"
	"github.com/TeamRekursion/darkmoon-server/models/presence"
	"github.com/TeamRekursion/darkmoon-server/protocol"
)

type published struct {
	channel string
	body    []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	published []published
	stored    map[string][]byte
	fail      bool
	notify    chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{stored: make(map[string][]byte), notify: make(chan struct{}, 16)}
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.notify <- struct{}{} }()
	if f.fail {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	f.published = append(f.published, published{channel: channel, body: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func (f *fakePublisher) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	b, err := value.(presence.Snapshot).MarshalBinary()
	if err != nil {
		cmd.SetErr(err)
		return cmd
	}
	f.mu.Lock()
	f.stored[key] = b
	f.mu.Unlock()
	cmd.SetVal("OK")
	return cmd
}

func (f *fakePublisher) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for publish %d", i+1)
		}
	}
}

func TestRunPublishesMsgpack(t *testing.T) {
	pub := newFakePublisher()
	r := NewRedis(pub, "darkmoon:events", "room-1", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Notify(protocol.MsgGameError, protocol.GameError{Message: "nope"})
	pub.wait(t, 1)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.published) != 1 || pub.published[0].channel != "darkmoon:events" {
		t.Fatalf("unexpected publishes %+v", pub.published)
	}
	var got struct {
		Event   string            `msgpack:"event"`
		Room    string            `msgpack:"room"`
		Payload map[string]string `msgpack:"payload"`
	}
	if err := msgpack.Unmarshal(pub.published[0].body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Event != "game-error" || got.Room != "room-1" || got.Payload["message"] != "nope" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestPresenceSnapshotIsStored(t *testing.T) {
	pub := newFakePublisher()
	r := NewRedis(pub, "ch", "r1", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	snap := presence.Snapshot{"a": player.Transform{Position: mgl64.Vec3{1, 2, 3}}}
	r.Notify(protocol.MsgMove, snap)
	pub.wait(t, 1)

	// Set runs right after Publish in the same worker step.
	deadline := time.Now().Add(2 * time.Second)
	for {
		pub.mu.Lock()
		b, ok := pub.stored["ch:presence:r1"]
		pub.mu.Unlock()
		if ok {
			var back presence.Snapshot
			if err := back.UnmarshalBinary(b); err != nil {
				t.Fatalf("unmarshal snapshot: %v", err)
			}
			if back["a"].Position != (mgl64.Vec3{1, 2, 3}) {
				t.Fatalf("stored snapshot = %v", back)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot was not stored")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishFailureDoesNotStopRelay(t *testing.T) {
	pub := newFakePublisher()
	pub.fail = true
	r := NewRedis(pub, "ch", "r1", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Notify(protocol.MsgGameEnd, nil)
	pub.wait(t, 1)

	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()
	r.Notify(protocol.MsgGameEnd, nil)
	pub.wait(t, 1)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.published))
	}
}

func TestNotifyDropsWhenQueueFull(t *testing.T) {
	r := NewRedis(newFakePublisher(), "ch", "r1", zap.NewNop())
	for i := 0; i < queueSize+3; i++ {
		r.Notify(protocol.MsgMove, nil)
	}
	if r.Dropped() != 3 {
		t.Fatalf("dropped = %d, want 3", r.Dropped())
	}
}
