package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/chat"
	"github.com/TeamRekursion/darkmoon-server/models/player"
	"github.com/TeamRekursion/darkmoon-server/models/presence"
	"github.com/TeamRekursion/darkmoon-server/protocol"
	"github.com/TeamRekursion/darkmoon-server/session"
)

func CreateRoom(opts ...Option) *Room {
	r := &Room{
		RoomID:          uuid.New(),
		presence:        presence.NewRegistry(),
		conns:           make(map[string]Conn, 32),
		filter:          chat.NewFilter(chat.DefaultWords),
		log:             zap.NewNop(),
		clock:           session.ClockFunc(time.Now),
		defaultDuration: 60 * time.Second,
		tickInterval:    time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.session == nil {
		r.session = session.New(session.WithClock(r.clock))
	}
	r.StartedAt = r.clock.Now()
	r.log = r.log.With(zap.String("room", r.RoomID.String()))
	return r
}

// Connect registers a new client under a fresh id, welcomes it and
// broadcasts the updated presence snapshot. An empty name gets a
// generated one.
func (r *Room) Connect(c Conn, name string) string {
	id := uuid.NewString()
	if name == "" {
		name = "Player-" + id[:8]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = c
	r.presence.Register(id)
	r.session.AddPlayer(id, name, player.Transform{})
	r.log.Info("client connected", zap.String("client", id), zap.Int("connections", len(r.conns)))

	r.sendTo(c, protocol.MsgWelcome, protocol.Welcome{ID: id})
	r.broadcastPresence()
	return id
}

// Disconnect removes id from the registry and the roster. If the client
// was "it" in a running round the new state is broadcast as well.
func (r *Room) Disconnect(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return
	}
	delete(r.conns, id)
	_ = c.Close()

	r.presence.Unregister(id)
	reassigned := r.session.RemovePlayer(id)
	r.log.Info("client disconnected", zap.String("client", id), zap.Int("connections", len(r.conns)))

	r.broadcastPresence()
	if reassigned {
		st := r.session.State()
		r.log.Info("it reassigned", zap.String("it", st.ItPlayerID))
		r.broadcast(protocol.MsgGameState, r.gameStateLocked())
	}
}

// Handle routes one inbound message from client id. Malformed messages
// and messages from ids that are no longer connected are dropped.
func (r *Room) Handle(id string, msg []byte) {
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		r.log.Debug("dropping malformed message", zap.String("client", id), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		r.log.Debug("dropping message from unknown client", zap.String("client", id), zap.String("type", env.Type))
		return
	}

	switch env.Type {
	case protocol.MsgMove:
		r.handleMove(id, env)
	case protocol.MsgChat:
		r.handleChat(id, env)
	case protocol.MsgGameStart:
		r.handleGameStart(id, c, env)
	case protocol.MsgPlayerTagged:
		r.handleTag(id, env)
	case protocol.MsgGameEnd:
		r.endRoundLocked(id)
	default:
		r.log.Debug("unknown message type", zap.String("client", id), zap.String("type", env.Type))
	}
}

func (r *Room) handleMove(id string, env protocol.Envelope) {
	mv, err := protocol.DecodePayload[protocol.Move](env)
	if err != nil {
		r.log.Debug("bad move payload", zap.String("client", id), zap.Error(err))
		return
	}
	t := player.Transform{Position: mv.Position, Rotation: mv.Rotation}
	if !r.presence.ApplyMove(id, t) {
		r.log.Debug("move rejected", zap.String("client", id))
		return
	}
	r.session.UpdatePlayer(id, t)
	r.broadcastPresence()
}

func (r *Room) handleChat(id string, env protocol.Envelope) {
	m, err := protocol.DecodePayload[protocol.Chat](env)
	if err != nil {
		r.log.Debug("bad chat payload", zap.String("client", id), zap.Error(err))
		return
	}
	msgID := m.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	sender, _ := r.session.Player(id)
	r.broadcast(protocol.MsgChat, protocol.ChatBroadcast{
		ID:         msgID,
		PlayerID:   id,
		PlayerName: sender.Name,
		Message:    r.filter.Clean(m.Message),
		Timestamp:  r.clock.Now().UnixMilli(),
	})
}

func (r *Room) handleGameStart(id string, c Conn, env protocol.Envelope) {
	req, err := protocol.DecodePayload[protocol.GameStart](env)
	switch {
	case errors.Is(err, protocol.ErrEmptyPayload):
		req = protocol.GameStart{}
	case err != nil:
		r.log.Debug("bad game-start payload", zap.String("client", id), zap.Error(err))
		r.sendTo(c, protocol.MsgGameError, protocol.GameError{Message: "Invalid game-start request"})
		return
	}
	mode := session.Mode(req.Mode)
	if mode == "" {
		mode = session.ModeTag
	}
	duration := protocol.Seconds(req.Duration)
	if duration == 0 {
		duration = r.defaultDuration
	}

	if err := r.session.Start(mode, duration); err != nil {
		r.log.Info("round start rejected", zap.String("client", id), zap.Error(err))
		r.sendTo(c, protocol.MsgGameError, protocol.GameError{Message: errorMessage(err)})
		return
	}
	st := r.session.State()
	r.log.Info("round started",
		zap.String("client", id),
		zap.String("it", st.ItPlayerID),
		zap.Duration("duration", st.TimeRemaining),
		zap.Int("players", r.session.Len()))
	r.broadcast(protocol.MsgGameStart, r.gameStateLocked())
}

func (r *Room) handleTag(id string, env protocol.Envelope) {
	tag, err := protocol.DecodePayload[protocol.PlayerTagged](env)
	if err != nil {
		r.log.Debug("bad tag payload", zap.String("client", id), zap.Error(err))
		return
	}
	if tag.TaggerID != id {
		r.log.Info("tag claimed for another player", zap.String("client", id), zap.String("tagger", tag.TaggerID))
		return
	}
	if !r.session.TagPlayer(tag.TaggerID, tag.TaggedID) {
		r.log.Debug("tag rejected", zap.String("client", id), zap.String("tagger", tag.TaggerID), zap.String("tagged", tag.TaggedID))
		return
	}
	r.broadcast(protocol.MsgPlayerTagged, protocol.Tagged{
		TaggerID: tag.TaggerID,
		TaggedID: tag.TaggedID,
		State:    r.gameStateLocked(),
	})
}

func (r *Room) endRoundLocked(by string) {
	results := r.session.EndRound()
	r.log.Info("round ended", zap.String("by", by), zap.Int("players", len(results)))
	r.broadcast(protocol.MsgGameEnd, protocol.GameEnd{
		Results: results,
		State:   r.gameStateLocked(),
	})
}

// Tick advances the round clock by delta, ending the round when it runs
// out. While a round is running every tick broadcasts the game state.
func (r *Room) Tick(delta time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.session.State().IsActive {
		return
	}
	results, ended := r.session.Tick(delta)
	if !ended {
		r.broadcast(protocol.MsgGameState, r.gameStateLocked())
		return
	}
	r.log.Info("round timer expired", zap.Int("players", len(results)))
	r.broadcast(protocol.MsgGameEnd, protocol.GameEnd{
		Results: results,
		State:   r.gameStateLocked(),
	})
}

// Run calls Tick with the elapsed wall time every tick interval until ctx
// is done.
func (r *Room) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	last := r.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := r.clock.Now()
			r.Tick(now.Sub(last))
			last = now
		}
	}
}

// GameState returns the current round state and roster in wire form.
func (r *Room) GameState() protocol.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameStateLocked()
}

func (r *Room) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Room) Info() Info {
	return Info{
		RoomID:      r.RoomID,
		StartedAt:   r.StartedAt.Unix(),
		Connections: r.Connections(),
	}
}

func (r *Room) gameStateLocked() protocol.GameState {
	return protocol.NewGameState(r.session.State(), r.session.Players())
}

func (r *Room) broadcastPresence() {
	r.broadcast(protocol.MsgMove, r.presence.Snapshot())
}

// broadcast sends one encoded message to every connection. Connections
// whose send fails are closed; their read loop then disconnects them.
func (r *Room) broadcast(event string, payload any) {
	b, err := protocol.Encode(event, payload)
	if err != nil {
		r.log.Error("encode broadcast", zap.String("type", event), zap.Error(err))
		return
	}
	for id, c := range r.conns {
		if err := c.Send(b); err != nil {
			r.log.Warn("send failed, closing client", zap.String("client", id), zap.Error(err))
			_ = c.Close()
		}
	}
	for _, n := range r.notifiers {
		n.Notify(event, payload)
	}
}

func (r *Room) sendTo(c Conn, event string, payload any) {
	b, err := protocol.Encode(event, payload)
	if err != nil {
		r.log.Error("encode message", zap.String("type", event), zap.Error(err))
		return
	}
	if err := c.Send(b); err != nil {
		r.log.Warn("send failed, closing client", zap.Error(err))
		_ = c.Close()
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotEnoughPlayers):
		return "Need at least 2 players to start"
	case errors.Is(err, session.ErrModeNotImplemented):
		return "That game mode is not available yet"
	case errors.Is(err, session.ErrUnknownMode):
		return "Unknown game mode"
	default:
		return fmt.Sprintf("Could not start game: %v", err)
	}
}
