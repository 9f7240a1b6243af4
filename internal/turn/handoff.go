package turn

import (
	"errors"
	"fmt"
	"sync"

	"github.com/daikw/duet/internal/conversation"
	"github.com/daikw/duet/internal/persona"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotActive is returned when a persona that does not hold the floor
	// tries to hand it off.
	ErrNotActive = errors.New("persona is not active")
	// ErrHandoffLimit is returned when one utterance triggers more chained
	// handoffs than allowed.
	ErrHandoffLimit = errors.New("handoff limit reached")
)

// Transfer describes a completed handoff. The receiving persona instance is
// built from Persona and seeded with Context.
type Transfer struct {
	From    Role
	To      Role
	Persona persona.Definition
	Context conversation.Context
	Topic   string
	// Utterance is the outgoing persona's transitional line. May be empty.
	Utterance string
}

// Handoff is the tool-driven coordinator. Exactly one role is active; the
// only transition is a swap requested by the active role.
type Handoff struct {
	mu     sync.Mutex
	roster Roster
	state  *conversation.State
	active Role
}

// NewHandoff creates a coordinator with initial holding the floor.
func NewHandoff(roster Roster, state *conversation.State, initial Role) *Handoff {
	if !initial.Valid() {
		initial = RoleA
	}
	state.SetCurrent(initial.String())
	return &Handoff{roster: roster, state: state, active: initial}
}

// Active returns the role currently holding the floor.
func (h *Handoff) Active() Role {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Roster returns the seated personas.
func (h *Handoff) Roster() Roster {
	return h.roster
}

// Request hands the floor from the active role to its counterpart. The turn
// is recorded under from's role label and topic, if non-empty, replaces the
// shared topic. history is the dialogue the next persona instance starts
// with.
func (h *Handoff) Request(from Role, topic string, history conversation.Context) (Transfer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if from != h.active {
		return Transfer{}, fmt.Errorf("handoff from %s while %s holds the floor: %w", from, h.active, ErrNotActive)
	}

	to := from.Other()
	h.state.RecordTurn(from.String(), topic)
	h.active = to
	h.state.SetCurrent(to.String())

	outgoing := h.roster.Persona(from)
	incoming := h.roster.Persona(to)

	log.Info().
		Str("from", outgoing.Identity).
		Str("to", incoming.Identity).
		Str("topic", topic).
		Int("turn", h.state.Snapshot().TurnCount).
		Msg("Handoff")

	return Transfer{
		From:      from,
		To:        to,
		Persona:   incoming,
		Context:   history,
		Topic:     topic,
		Utterance: outgoing.HandoffLine,
	}, nil
}
