package avatar

import (
	"context"
	"io"
	"sync"

	"github.com/daikw/duet/internal/persona"
	"github.com/rs/zerolog/log"
)

// State of a Binding.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Binding pairs a persona with its avatar session. It is started at most
// once; a failed start is not retried.
type Binding struct {
	def persona.Definition
	svc Service

	mu     sync.Mutex
	state  State
	handle Handle
	err    error
	done   chan struct{}
}

// ParticipantIdentity is the room identity the avatar of def joins as.
func ParticipantIdentity(def persona.Definition) string {
	return def.Identity + "-avatar"
}

// NewBinding returns an idle binding for def.
func NewBinding(def persona.Definition, svc Service) *Binding {
	return &Binding{def: def, svc: svc}
}

// Persona returns the bound persona.
func (b *Binding) Persona() persona.Definition {
	return b.def
}

// State returns the lifecycle state.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Ready reports whether the avatar has acknowledged startup.
func (b *Binding) Ready() bool {
	return b.State() == StateReady
}

// Start brings the avatar into room and blocks until the avatar service
// acknowledges it. Concurrent callers wait for the same attempt.
func (b *Binding) Start(ctx context.Context, room string) error {
	b.mu.Lock()
	switch b.state {
	case StateReady:
		b.mu.Unlock()
		return nil
	case StateFailed:
		err := b.err
		b.mu.Unlock()
		return err
	case StateClosed:
		b.mu.Unlock()
		return ErrClosed
	case StateStarting:
		done := b.done
		b.mu.Unlock()
		select {
		case <-done:
			return b.result()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.state = StateStarting
	b.done = make(chan struct{})
	b.mu.Unlock()

	log.Info().
		Str("persona", b.def.Identity).
		Str("avatar_id", b.def.AvatarID).
		Str("room", room).
		Msg("Starting avatar session")

	h, err := b.svc.Start(ctx, StartRequest{
		AvatarID:    b.def.AvatarID,
		Room:        room,
		Identity:    ParticipantIdentity(b.def),
		DisplayName: b.def.Name(),
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	defer close(b.done)

	if b.state == StateClosed {
		// closed while starting
		if h != nil {
			_ = h.Close(context.WithoutCancel(ctx))
		}
		return ErrClosed
	}
	if err != nil {
		b.state = StateFailed
		b.err = &StartError{Persona: b.def.Identity, AvatarID: b.def.AvatarID, Err: err}
		log.Error().Err(err).Str("persona", b.def.Identity).Msg("Avatar session failed to start")
		return b.err
	}
	b.state = StateReady
	b.handle = h
	log.Info().Str("persona", b.def.Identity).Msg("Avatar session ready")
	return nil
}

func (b *Binding) result() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateReady:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return b.err
	}
}

// PushAudio forwards synthesized speech to the avatar.
func (b *Binding) PushAudio(ctx context.Context, audio io.Reader, format string) error {
	b.mu.Lock()
	h, state := b.handle, b.state
	b.mu.Unlock()

	switch state {
	case StateReady:
		return h.PushAudio(ctx, audio, format)
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

// Close releases the avatar session. It is safe to call more than once.
func (b *Binding) Close(ctx context.Context) error {
	b.mu.Lock()
	h := b.handle
	prev := b.state
	b.state = StateClosed
	b.handle = nil
	b.mu.Unlock()

	if prev != StateReady || h == nil {
		return nil
	}
	log.Debug().Str("persona", b.def.Identity).Msg("Closing avatar session")
	return h.Close(ctx)
}
