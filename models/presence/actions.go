package presence

import (
	"encoding/json"

	"github.com/TeamRekursion/darkmoon-server/models/player"
)

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]player.Transform, 32)}
}

// Register inserts id at the origin. A second Register for the same id
// overwrites the previous entry.
func (r *Registry) Register(id string) {
	r.entries[id] = player.Transform{}
}

// ApplyMove overwrites the transform of a registered id. It reports false
// for ids that are not registered and for non-finite transforms.
func (r *Registry) ApplyMove(id string, t player.Transform) bool {
	if _, ok := r.entries[id]; !ok {
		return false
	}
	if !t.Finite() {
		return false
	}
	r.entries[id] = t
	return true
}

// Unregister removes id. Removing an absent id is a no-op.
func (r *Registry) Unregister(id string) {
	delete(r.entries, id)
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Snapshot copies the current mapping.
func (r *Registry) Snapshot() Snapshot {
	s := make(Snapshot, len(r.entries))
	for id, t := range r.entries {
		s[id] = t
	}
	return s
}

func (s Snapshot) MarshalBinary() (data []byte, err error) {
	data, err = json.Marshal(s)
	return data, err
}

func (s *Snapshot) UnmarshalBinary(data []byte) (err error) {
	err = json.Unmarshal(data, s)
	return err
}
