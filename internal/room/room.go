// Package room connects the orchestrator to the shared room where the
// personas and the human meet.
package room

import (
	"sort"
	"sync"
)

// Participant is someone else in the room.
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
}

// Room is a read-only view of the room. The orchestrator only reads
// participant identities, it never mutates transport state.
type Room interface {
	Name() string
	RemoteParticipants() []Participant
}

// Conn is a joined room that also delivers final human utterances.
type Conn interface {
	Room
	Utterances() <-chan string
	Close() error
}

// Static is a fixed room, used for console runs and tests.
type Static struct {
	RoomName     string
	Participants []Participant
}

// Name returns the room name.
func (s Static) Name() string { return s.RoomName }

// RemoteParticipants returns a copy of Participants.
func (s Static) RemoteParticipants() []Participant {
	out := make([]Participant, len(s.Participants))
	copy(out, s.Participants)
	return out
}

// Identities returns the sorted identities of r's remote participants.
func Identities(r Room) []string {
	ps := r.RemoteParticipants()
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.Identity)
	}
	sort.Strings(ids)
	return ids
}

// roster tracks remote participants by identity.
type roster struct {
	mu     sync.Mutex
	byID   map[string]Participant
	joined []string
}

func newRoster() *roster {
	return &roster{byID: make(map[string]Participant)}
}

func (r *roster) add(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.Identity]; !ok {
		r.joined = append(r.joined, p.Identity)
	}
	r.byID[p.Identity] = p
}

func (r *roster) remove(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[identity]; !ok {
		return
	}
	delete(r.byID, identity)
	for i, id := range r.joined {
		if id == identity {
			r.joined = append(r.joined[:i], r.joined[i+1:]...)
			break
		}
	}
}

func (r *roster) list() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Participant, 0, len(r.joined))
	for _, id := range r.joined {
		out = append(out, r.byID[id])
	}
	return out
}
