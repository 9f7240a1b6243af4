package session

import (
	"fmt"
	"strings"
)

// Mode selects how the floor moves between personas.
type Mode string

const (
	// ModeHandoff lets the active persona pass the floor with a tool call.
	ModeHandoff Mode = "handoff"
	// ModeAlternation flips the floor on every human utterance.
	ModeAlternation Mode = "alternation"
	// ModeSolo runs a single persona.
	ModeSolo Mode = "solo"
)

// Modes lists the supported modes.
func Modes() []Mode {
	return []Mode{ModeHandoff, ModeAlternation, ModeSolo}
}

// ParseMode parses a mode name. Empty selects ModeHandoff.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeHandoff, nil
	case ModeHandoff, ModeAlternation, ModeSolo:
		return m, nil
	default:
		return "", fmt.Errorf("unknown conversation mode %q (want handoff, alternation or solo)", s)
	}
}

// seats returns how many personas the mode seats.
func (m Mode) seats() int {
	if m == ModeSolo {
		return 1
	}
	return 2
}
