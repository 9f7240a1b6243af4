// Package agent implements a persona instance: one persona speaking through
// one speech session and one avatar, with its own view of the dialogue.
//
// Instances are never mutated into another persona. A handoff builds a new
// instance seeded with the outgoing instance's dialogue.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/daikw/duet/internal/conversation"
	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/speech"
	"github.com/rs/zerolog/log"
)

// ErrAvatarNotReady is returned when a persona would speak before its avatar
// has started.
var ErrAvatarNotReady = errors.New("avatar not ready")

// DefaultGreeting is used for personas without a greeting.
const DefaultGreeting = "Greet the audience and introduce yourself."

// Avatar is the part of an avatar binding an agent depends on.
type Avatar interface {
	Start(ctx context.Context, room string) error
	Ready() bool
}

// Agent is a persona instance.
type Agent struct {
	def     persona.Definition
	state   *conversation.State
	avatar  Avatar
	session speech.Session
	tools   []llm.Tool

	mu      sync.Mutex
	history conversation.Context
}

// New creates a persona instance sharing state and starting from carry.
func New(def persona.Definition, state *conversation.State, avatar Avatar, session speech.Session, carry conversation.Context, tools ...llm.Tool) *Agent {
	return &Agent{
		def:     def,
		state:   state,
		avatar:  avatar,
		session: session,
		tools:   tools,
		history: carry,
	}
}

// Persona returns the persona this instance speaks as.
func (a *Agent) Persona() persona.Definition {
	return a.def
}

// History returns the dialogue this instance has seen.
func (a *Agent) History() conversation.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history
}

// Enter makes the instance ready to speak. It waits for the avatar and, if
// nobody has opened the conversation yet, greets. The returned reply is nil
// when no greeting was produced.
func (a *Agent) Enter(ctx context.Context, room string) (*speech.Reply, error) {
	if err := a.avatar.Start(ctx, room); err != nil {
		return nil, fmt.Errorf("persona %s: %w", a.def.Identity, err)
	}
	if !a.state.MarkStarted() {
		log.Debug().Str("persona", a.def.Identity).Msg("Entered conversation already in progress")
		return nil, nil
	}

	reply, err := a.Greet(ctx)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// Greet opens the conversation with the persona's greeting instruction. It
// does not consult the started flag; Enter does.
func (a *Agent) Greet(ctx context.Context) (speech.Reply, error) {
	greeting := a.def.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}
	log.Info().Str("persona", a.def.Identity).Msg("Opening conversation")
	return a.Respond(ctx, greeting)
}

// Respond generates one reply steered by instructions.
func (a *Agent) Respond(ctx context.Context, instructions string) (speech.Reply, error) {
	if !a.avatar.Ready() {
		return speech.Reply{}, fmt.Errorf("persona %s: %w", a.def.Identity, ErrAvatarNotReady)
	}

	reply, err := a.session.GenerateReply(ctx, speech.ReplyRequest{
		Persona:      a.def,
		Instructions: instructions,
		History:      a.History(),
		Tools:        a.tools,
	})
	if reply.Text != "" {
		a.Observe(conversation.AssistantMessage(a.def.Identity, reply.Text))
	}
	return reply, err
}

// Say speaks text verbatim.
func (a *Agent) Say(ctx context.Context, text string) error {
	if !a.avatar.Ready() {
		return fmt.Errorf("persona %s: %w", a.def.Identity, ErrAvatarNotReady)
	}
	if err := a.session.Say(ctx, a.def, text); err != nil {
		return err
	}
	if text != "" {
		a.Observe(conversation.AssistantMessage(a.def.Identity, text))
	}
	return nil
}

// Hear records a human utterance.
func (a *Agent) Hear(text string) {
	a.Observe(conversation.UserMessage(text))
}

// Observe records a message spoken in the room.
func (a *Agent) Observe(msg conversation.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = a.history.Append(msg)
}
