package turn

import "sync"

// Alternation is the utterance-routed coordinator: the k-th human utterance
// (1-indexed) goes to RoleA when k is odd and to RoleB when k is even. It
// never records turns on the shared conversation state.
type Alternation struct {
	mu    sync.Mutex
	count int
}

// NewAlternation returns a coordinator that has seen no utterances.
func NewAlternation() *Alternation {
	return &Alternation{}
}

// Next counts one utterance and returns the role that answers it.
func (a *Alternation) Next() Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return SpeakerFor(a.count)
}

// Count returns the number of utterances seen.
func (a *Alternation) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// SpeakerFor returns the role answering the k-th utterance.
func SpeakerFor(k int) Role {
	if k%2 == 0 {
		return RoleB
	}
	return RoleA
}
