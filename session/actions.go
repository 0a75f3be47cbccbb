package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/TeamRekursion/darkmoon-server/models/player"
)

// AddPlayer inserts id into the roster. Re-adding an existing id replaces
// its name and transform but keeps its join slot and round fields, so a
// rejoin never strips the "it" role. Players joining mid-round are not
// added to the scores of the running round.
func (s *Session) AddPlayer(id, name string, t player.Transform) {
	if p, ok := s.roster[id]; ok {
		p.Name = name
		p.SetTransform(t)
		return
	}
	s.roster[id] = player.CreatePlayer(id, name, t)
	s.order = append(s.order, id)
}

// UpdatePlayer copies a new transform into the roster entry for id.
func (s *Session) UpdatePlayer(id string, t player.Transform) bool {
	p, ok := s.roster[id]
	if !ok {
		return false
	}
	p.SetTransform(t)
	return true
}

// RemovePlayer deletes id from the roster. When id was "it" during an
// active tag round a new "it" is picked from the remaining players; the
// returned flag reports whether that happened.
func (s *Session) RemovePlayer(id string) (reassigned bool) {
	if _, ok := s.roster[id]; !ok {
		return false
	}
	delete(s.roster, id)
	delete(s.state.Scores, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if !s.state.IsActive || s.state.Mode != ModeTag || s.state.ItPlayerID != id {
		return false
	}
	s.reassignIt()
	return true
}

func (s *Session) reassignIt() {
	s.state.ItPlayerID = s.pickPlayer()
	for pid, p := range s.roster {
		p.IsIt = pid == s.state.ItPlayerID
	}
}

// Start begins a round of the given mode. Only ModeTag has behavior.
func (s *Session) Start(mode Mode, requested time.Duration) error {
	switch mode {
	case ModeTag:
		if !s.StartRound(requested) {
			return ErrNotEnoughPlayers
		}
		return nil
	case ModeCollectible, ModeRace:
		return fmt.Errorf("%w: %s", ErrModeNotImplemented, mode)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// StartRound starts a tag round. It refuses a roster of exactly one
// player. The round lasts at least the base duration plus a bonus for
// every player above two.
func (s *Session) StartRound(requested time.Duration) bool {
	n := len(s.roster)
	if n == 1 {
		return false
	}

	duration := s.tuning.BaseDuration + s.tuning.PerPlayerBonus*time.Duration(max(0, n-2))
	if requested > duration {
		duration = requested
	}

	now := s.clock.Now()
	s.state = State{
		Mode:           ModeTag,
		IsActive:       true,
		TimeRemaining:  duration,
		Scores:         make(map[string]float64, n),
		ItPlayerID:     s.pickPlayer(),
		RoundStartTime: now,
	}
	for id, p := range s.roster {
		s.state.Scores[id] = 0
		p.ResetRound(id == s.state.ItPlayerID)
	}
	return true
}

// TagPlayer hands "it" from tagger to tagged. The tagger earns
// MaxTagScore minus the seconds it held the role, floored at zero.
func (s *Session) TagPlayer(taggerID, taggedID string) bool {
	if !s.state.IsActive || s.state.Mode != ModeTag {
		return false
	}
	tagger, ok := s.roster[taggerID]
	if !ok {
		return false
	}
	tagged, ok := s.roster[taggedID]
	if !ok {
		return false
	}
	if !tagger.IsIt || tagged.IsIt {
		return false
	}

	now := s.clock.Now()
	if tagger.LastTagTime != nil && now.Sub(*tagger.LastTagTime) < s.tuning.TagCooldown {
		return false
	}

	held := now.Sub(s.state.RoundStartTime)
	if held < 0 {
		held = 0
	}
	if _, scored := s.state.Scores[taggerID]; scored {
		s.state.Scores[taggerID] += max(0, s.tuning.MaxTagScore-held.Seconds())
	}
	tagger.TimeAsIt += held

	tagger.IsIt = false
	tagged.IsIt = true
	tagger.LastTagTime = &now
	taggedAt := now
	tagged.LastTagTime = &taggedAt

	s.state.ItPlayerID = taggedID
	s.state.RoundStartTime = now
	return true
}

// Tick advances the round clock by delta. When the clock runs out the
// round ends and the final ranking is returned with ended set.
func (s *Session) Tick(delta time.Duration) (results []Result, ended bool) {
	if !s.state.IsActive {
		return nil, false
	}
	s.state.TimeRemaining -= delta
	if s.state.TimeRemaining > 0 {
		return nil, false
	}
	return s.EndRound(), true
}

// EndRound deactivates the round and ranks the roster by score, highest
// first. Equal scores keep join order. Calling it on an inactive session
// just ranks whatever scores remain.
func (s *Session) EndRound() []Result {
	s.state.IsActive = false
	s.state.TimeRemaining = 0
	s.state.ItPlayerID = ""

	results := make([]Result, 0, len(s.order))
	for _, id := range s.order {
		p := s.roster[id]
		results = append(results, Result{ID: id, Name: p.Name, Score: s.state.Scores[id]})
		p.ResetRound(false)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func (s *Session) pickPlayer() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[s.picker.IntN(len(s.order))]
}

// State returns a copy of the round state.
func (s *Session) State() State {
	st := s.state
	st.Scores = make(map[string]float64, len(s.state.Scores))
	for id, v := range s.state.Scores {
		st.Scores[id] = v
	}
	return st
}

// Player returns a copy of the roster entry for id.
func (s *Session) Player(id string) (player.Player, bool) {
	p, ok := s.roster[id]
	if !ok {
		return player.Player{}, false
	}
	return *p, true
}

// Players returns copies of the roster in join order.
func (s *Session) Players() []player.Player {
	out := make([]player.Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.roster[id])
	}
	return out
}

func (s *Session) Len() int {
	return len(s.roster)
}
