// Package turn decides which of the two personas holds the floor.
//
// Two coordinators are provided and they do not interoperate: Handoff, where
// the active persona explicitly transfers the floor, and Alternation, where
// the floor flips on every human utterance.
package turn

import (
	"fmt"

	"github.com/daikw/duet/internal/persona"
)

// Role is one of the two seats in a conversation.
type Role int

const (
	RoleA Role = iota
	RoleB
)

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleA {
		return RoleB
	}
	return RoleA
}

func (r Role) String() string {
	switch r {
	case RoleA:
		return "A"
	case RoleB:
		return "B"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Valid reports whether r is RoleA or RoleB.
func (r Role) Valid() bool {
	return r == RoleA || r == RoleB
}

// Roster assigns a persona to each role.
type Roster struct {
	A persona.Definition
	B persona.Definition
}

// Persona returns the persona seated at r.
func (ro Roster) Persona(r Role) persona.Definition {
	if r == RoleB {
		return ro.B
	}
	return ro.A
}

// RoleOf returns the role held by the persona with the given identity.
func (ro Roster) RoleOf(identity string) (Role, bool) {
	switch identity {
	case ro.A.Identity:
		return RoleA, true
	case ro.B.Identity:
		return RoleB, true
	}
	return RoleA, false
}

// Validate checks both personas and that they are distinct.
func (ro Roster) Validate() error {
	if err := ro.A.Validate(); err != nil {
		return fmt.Errorf("role A: %w", err)
	}
	if err := ro.B.Validate(); err != nil {
		return fmt.Errorf("role B: %w", err)
	}
	if ro.A.Identity == ro.B.Identity {
		return fmt.Errorf("both roles hold persona %q", ro.A.Identity)
	}
	return nil
}
