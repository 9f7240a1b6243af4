// Package conversation holds the state shared by every persona taking part
// in one conversation.
package conversation

import "sync"

// Snapshot is a point-in-time copy of a State.
type Snapshot struct {
	CurrentSpeaker string `json:"current_speaker,omitempty"`
	Started        bool   `json:"conversation_started"`
	TurnCount      int    `json:"turn_count"`
	LastSpeaker    string `json:"last_speaker,omitempty"`
	Topic          string `json:"topic,omitempty"`
}

// State is shared by reference across all persona instances of a single
// conversation. It is created per conversation and never reset.
type State struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewState returns an empty state for a fresh conversation.
func NewState() *State {
	return &State{}
}

// RecordTurn counts a completed turn by speaker. An empty topic leaves the
// current topic in place.
func (s *State) RecordTurn(speaker, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.TurnCount++
	s.snap.LastSpeaker = speaker
	if topic != "" {
		s.snap.Topic = topic
	}
}

// MarkStarted flags the conversation as started. It reports true only for
// the call that flipped the flag.
func (s *State) MarkStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Started {
		return false
	}
	s.snap.Started = true
	return true
}

// SetCurrent mirrors the role the turn coordinator considers active.
func (s *State) SetCurrent(speaker string) {
	s.mu.Lock()
	s.snap.CurrentSpeaker = speaker
	s.mu.Unlock()
}

// Snapshot returns a copy of the current values.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
