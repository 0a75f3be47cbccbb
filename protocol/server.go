package protocol

import (
	"time"

	"github.com/TeamRekursion/darkmoon-server/models/player"
	"github.com/TeamRekursion/darkmoon-server/session"
	"github.com/go-gl/mathgl/mgl64"
)

// Payloads sent by the server.

type Welcome struct {
	ID string `json:"id"`
}

type ChatBroadcast struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"` // unix ms
}

type GameError struct {
	Message string `json:"message"`
}

type PlayerState struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Position    mgl64.Vec3 `json:"position"`
	Rotation    mgl64.Vec3 `json:"rotation"`
	IsIt        bool       `json:"isIt"`
	TimeAsIt    float64    `json:"timeAsIt"`              // seconds
	LastTagTime int64      `json:"lastTagTime,omitempty"` // unix ms
}

type GameState struct {
	Mode           string             `json:"mode"`
	IsActive       bool               `json:"isActive"`
	TimeRemaining  float64            `json:"timeRemaining"` // seconds
	Scores         map[string]float64 `json:"scores"`
	ItPlayerID     string             `json:"itPlayerId,omitempty"`
	RoundStartTime int64              `json:"roundStartTime,omitempty"` // unix ms
	Players        []PlayerState      `json:"players"`
}

type Tagged struct {
	TaggerID string    `json:"taggerId"`
	TaggedID string    `json:"taggedId"`
	State    GameState `json:"state"`
}

type GameEnd struct {
	Results []session.Result `json:"results"`
	State   GameState        `json:"state"`
}

// NewGameState converts session state and roster into the wire form.
func NewGameState(st session.State, players []player.Player) GameState {
	gs := GameState{
		Mode:          string(st.Mode),
		IsActive:      st.IsActive,
		TimeRemaining: st.TimeRemaining.Seconds(),
		Scores:        st.Scores,
		ItPlayerID:    st.ItPlayerID,
		Players:       make([]PlayerState, 0, len(players)),
	}
	if !st.RoundStartTime.IsZero() {
		gs.RoundStartTime = st.RoundStartTime.UnixMilli()
	}
	for _, p := range players {
		t := p.Transform()
		ps := PlayerState{
			ID:       p.ID,
			Name:     p.Name,
			Position: t.Position,
			Rotation: t.Rotation,
			IsIt:     p.IsIt,
			TimeAsIt: p.TimeAsIt.Seconds(),
		}
		if p.LastTagTime != nil {
			ps.LastTagTime = p.LastTagTime.UnixMilli()
		}
		gs.Players = append(gs.Players, ps)
	}
	return gs
}

// Seconds converts a wire duration in seconds. Non-positive or
// non-finite input yields zero.
func Seconds(s float64) time.Duration {
	if !(s > 0) || s > float64(1<<62)/float64(time.Second) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
