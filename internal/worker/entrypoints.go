package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daikw/duet/internal/avatar"
	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/room"
	"github.com/daikw/duet/internal/session"
	"github.com/daikw/duet/internal/speech"
	"github.com/daikw/duet/internal/turn"
	"github.com/daikw/duet/internal/turnlog"
	"github.com/daikw/duet/internal/voice"
	"github.com/rs/zerolog/log"
)

// Duo route names.
const (
	RouteDuoAlternation = "duo-alternation"
	RouteDuoHandoff     = "duo-handoff"
)

// SpeechFactory creates a speech session that speaks through the given
// avatars.
type SpeechFactory func(ctx context.Context, bindings ...*avatar.Binding) (speech.Session, error)

// PipelineFactory returns a SpeechFactory building speech.Pipelines that
// share gen and tts.
func PipelineFactory(gen llm.Generator, tts voice.Provider, settings voice.Settings) SpeechFactory {
	return func(ctx context.Context, bindings ...*avatar.Binding) (speech.Session, error) {
		p := speech.NewPipeline(gen, tts, settings)
		for _, b := range bindings {
			p.Attach(b.Persona().Identity, b)
		}
		return p, nil
	}
}

// Deps are the collaborators shared by every entrypoint.
type Deps struct {
	Catalog   *persona.Catalog
	Avatars   avatar.Service
	NewSpeech SpeechFactory
	// Connect joins the job's room. The connection is closed when the job
	// ends.
	Connect  func(ctx context.Context, job Job) (room.Conn, error)
	Recorder turnlog.Recorder
	StartGap time.Duration
	MaxChain int
	// PersonaA and PersonaB seat the duo routes. Empty selects the
	// built-in pair.
	PersonaA string
	PersonaB string
	// OnSession, when set, is called once the conversation has started.
	OnSession func(job Job, m *session.Manager)
}

func (d Deps) validate() error {
	switch {
	case d.Catalog == nil:
		return errors.New("worker: persona catalog is required")
	case d.Avatars == nil:
		return errors.New("worker: avatar service is required")
	case d.NewSpeech == nil:
		return errors.New("worker: speech factory is required")
	case d.Connect == nil:
		return errors.New("worker: room connector is required")
	}
	return nil
}

// Routes registers one solo entrypoint per persona that has an agent name,
// plus the duo-alternation and duo-handoff routes.
func Routes(d Deps) (*Registry, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.PersonaA == "" {
		d.PersonaA = persona.Martha
	}
	if d.PersonaB == "" {
		d.PersonaB = persona.Snoop
	}

	r := NewRegistry()
	for _, def := range d.Catalog.List() {
		if def.AgentName == "" {
			continue
		}
		if err := r.Register(def.AgentName, def.Port, d.solo(def)); err != nil {
			return nil, err
		}
	}

	a, ok := d.Catalog.Get(d.PersonaA)
	if !ok {
		return nil, fmt.Errorf("worker: unknown persona %q for role A", d.PersonaA)
	}
	b, ok := d.Catalog.Get(d.PersonaB)
	if !ok {
		return nil, fmt.Errorf("worker: unknown persona %q for role B", d.PersonaB)
	}
	if err := r.Register(RouteDuoAlternation, 0, d.duo(session.ModeAlternation, a, b, true)); err != nil {
		return nil, err
	}
	if err := r.Register(RouteDuoHandoff, 0, d.duo(session.ModeHandoff, a, b, false)); err != nil {
		return nil, err
	}
	return r, nil
}

func (d Deps) solo(def persona.Definition) Entrypoint {
	return func(ctx context.Context, job Job) error {
		binding := avatar.NewBinding(def, d.Avatars)
		s, err := d.NewSpeech(ctx, binding)
		if err != nil {
			return fmt.Errorf("failed to create speech session for %s: %w", def.Identity, err)
		}
		return d.run(ctx, job, session.ModeSolo, []session.Seat{{Role: turn.RoleA, Binding: binding, Speech: s}})
	}
}

// duo seats a at RoleA and b at RoleB. With shared set both personas speak
// through one session.
func (d Deps) duo(mode session.Mode, a, b persona.Definition, shared bool) Entrypoint {
	return func(ctx context.Context, job Job) error {
		ba := avatar.NewBinding(a, d.Avatars)
		bb := avatar.NewBinding(b, d.Avatars)

		var sa, sb speech.Session
		if shared {
			s, err := d.NewSpeech(ctx, ba, bb)
			if err != nil {
				return fmt.Errorf("failed to create shared speech session: %w", err)
			}
			sa, sb = s, s
		} else {
			var err error
			if sa, err = d.NewSpeech(ctx, ba); err != nil {
				return fmt.Errorf("failed to create speech session for %s: %w", a.Identity, err)
			}
			if sb, err = d.NewSpeech(ctx, bb); err != nil {
				return fmt.Errorf("failed to create speech session for %s: %w", b.Identity, err)
			}
		}
		return d.run(ctx, job, mode, []session.Seat{
			{Role: turn.RoleA, Binding: ba, Speech: sa},
			{Role: turn.RoleB, Binding: bb, Speech: sb},
		})
	}
}

// run joins the room, starts the conversation and relays utterances until
// the room stops delivering them or ctx is done.
func (d Deps) run(ctx context.Context, job Job, mode session.Mode, seats []session.Seat) error {
	conn, err := d.Connect(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to join room %s: %w", job.Room, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Str("room", conn.Name()).Msg("Failed to leave room")
		}
	}()

	m, err := session.New(seats, session.Options{
		Mode:      mode,
		Room:      conn,
		Sequencer: avatar.NewSequencer(d.StartGap),
		Recorder:  d.Recorder,
		MaxChain:  d.MaxChain,
		JobID:     job.ID,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("job", job.ID).Msg("Failed to close conversation")
		}
	}()

	if err := m.Start(ctx); err != nil {
		if len(m.Live()) == 0 {
			return err
		}
		log.Warn().Err(err).Str("job", job.ID).Msg("Continuing without some personas")
	}
	if d.OnSession != nil {
		d.OnSession(job, m)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-conn.Utterances():
			if !ok {
				return nil
			}
			turns, err := m.HandleUtterance(ctx, u)
			if errors.Is(err, session.ErrClosed) {
				return nil
			}
			if err != nil {
				log.Error().Err(err).Str("job", job.ID).Msg("Failed to handle utterance")
				continue
			}
			for _, t := range turns {
				log.Debug().Str("persona", t.Persona).Str("kind", string(t.Kind)).Str("text", t.Text).Msg("Turn")
			}
		}
	}
}
