// Package session runs one conversation: it starts the personas' avatars and
// speech sessions, relays human utterances to whoever holds the floor, and
// tears everything down when the conversation ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/daikw/duet/internal/agent"
	"github.com/daikw/duet/internal/avatar"
	"github.com/daikw/duet/internal/conversation"
	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/room"
	"github.com/daikw/duet/internal/speech"
	"github.com/daikw/duet/internal/turn"
	"github.com/daikw/duet/internal/turnlog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
	// ErrNotStarted is returned before Start.
	ErrNotStarted = errors.New("session not started")
	// ErrPersonaUnavailable is returned when the floor would go to a persona
	// whose avatar or speech session failed to start.
	ErrPersonaUnavailable = errors.New("persona unavailable")
)

// DefaultMaxChain bounds the handoffs one utterance may trigger.
const DefaultMaxChain = 4

// Seat is one persona's place in the conversation. Seats may share a speech
// session; sessions are compared by identity.
type Seat struct {
	Role    turn.Role
	Binding *avatar.Binding
	Speech  speech.Session
}

// Persona returns the persona seated here.
func (s Seat) Persona() persona.Definition {
	return s.Binding.Persona()
}

// Options configures a Manager.
type Options struct {
	Mode      Mode
	Room      room.Room
	Sequencer *avatar.Sequencer
	Recorder  turnlog.Recorder
	// MaxChain bounds chained handoffs per utterance. Zero selects
	// DefaultMaxChain.
	MaxChain int
	JobID    string
}

// Turn is something a persona did in response to an event.
type Turn struct {
	Role    turn.Role
	Persona string
	Kind    turnlog.Kind
	Text    string
	Topic   string
}

// Manager owns the avatar bindings and speech sessions of one conversation.
type Manager struct {
	opts   Options
	seats  []Seat
	roster turn.Roster
	state  *conversation.State

	handoff *turn.Handoff
	alt     *turn.Alternation

	// floor is held for every reply so two personas never speak at once.
	floor sync.Mutex

	mu      sync.Mutex
	agents  map[turn.Role]*agent.Agent
	started bool
	closed  bool
	seq     int
}

// New validates the seating for opts.Mode and returns an unstarted manager.
func New(seats []Seat, opts Options) (*Manager, error) {
	if opts.Mode == "" {
		opts.Mode = ModeHandoff
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	if opts.Room == nil {
		return nil, errors.New("session: room is required")
	}
	if len(seats) != opts.Mode.seats() {
		return nil, fmt.Errorf("session: %s mode needs %d seat(s), got %d", opts.Mode, opts.Mode.seats(), len(seats))
	}
	if opts.Sequencer == nil {
		opts.Sequencer = avatar.NewSequencer(0)
	}
	if opts.Recorder == nil {
		opts.Recorder = turnlog.Nop{}
	}
	if opts.MaxChain <= 0 {
		opts.MaxChain = DefaultMaxChain
	}

	sorted := make([]Seat, len(seats))
	copy(sorted, seats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Role < sorted[j].Role })

	for i, s := range sorted {
		if !s.Role.Valid() {
			return nil, fmt.Errorf("session: seat %d has invalid role %s", i, s.Role)
		}
		if i > 0 && sorted[i-1].Role == s.Role {
			return nil, fmt.Errorf("session: role %s seated twice", s.Role)
		}
		if s.Binding == nil || s.Speech == nil {
			return nil, fmt.Errorf("session: seat %s needs an avatar binding and a speech session", s.Role)
		}
	}

	var roster turn.Roster
	if opts.Mode == ModeSolo {
		roster.A = sorted[0].Persona()
		sorted[0].Role = turn.RoleA
	} else {
		roster = turn.Roster{A: sorted[0].Persona(), B: sorted[1].Persona()}
		if err := roster.Validate(); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}

	m := &Manager{
		opts:   opts,
		seats:  sorted,
		roster: roster,
		state:  conversation.NewState(),
		agents: make(map[turn.Role]*agent.Agent),
	}
	if opts.Mode == ModeAlternation {
		m.alt = turn.NewAlternation()
	}
	return m, nil
}

// Mode returns the conversation mode.
func (m *Manager) Mode() Mode { return m.opts.Mode }

// Roster returns the seated personas. In solo mode only A is set.
func (m *Manager) Roster() turn.Roster { return m.roster }

// State returns a copy of the shared conversation state.
func (m *Manager) State() conversation.Snapshot { return m.state.Snapshot() }

// Live returns the roles whose persona can speak.
func (m *Manager) Live() []turn.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []turn.Role
	for _, s := range m.seats {
		if _, ok := m.agents[s.Role]; ok {
			roles = append(roles, s.Role)
		}
	}
	return roles
}

// Active returns the role holding the floor in handoff mode.
func (m *Manager) Active() (turn.Role, bool) {
	h := m.coordinator()
	if h == nil {
		return turn.RoleA, false
	}
	return h.Active(), true
}

func (m *Manager) coordinator() *turn.Handoff {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handoff
}

// Start brings up avatars one at a time with the sequencer's gap, starts each
// speech session whose avatars all came up, and lets the live personas enter
// in role order; the first one greets, or the next live one if that fails. A
// seat that fails does not stop the others. The returned error joins every seat failure.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	m.floor.Lock()
	defer m.floor.Unlock()

	roomName := m.opts.Room.Name()
	failed := make([]error, len(m.seats))

	bindings := make([]*avatar.Binding, len(m.seats))
	for i, s := range m.seats {
		bindings[i] = s.Binding
	}
	for i, err := range m.opts.Sequencer.StartAll(ctx, roomName, bindings) {
		if err != nil {
			log.Error().Err(err).Str("persona", m.seats[i].Persona().Identity).Msg("Avatar failed to start")
			failed[i] = err
		}
	}

	for _, g := range m.sessionGroups() {
		if blocker := firstErr(failed, g.seats); blocker != nil {
			log.Warn().Strs("personas", m.identities(g.seats)).Msg("Not starting speech session, avatar failed")
			for _, i := range g.seats {
				if failed[i] == nil {
					failed[i] = fmt.Errorf("persona %s: shared speech session not started: %w", m.seats[i].Persona().Identity, ErrPersonaUnavailable)
				}
			}
			continue
		}
		if err := g.session.Start(ctx); err != nil {
			for _, i := range g.seats {
				failed[i] = fmt.Errorf("failed to start speech session for %s: %w", m.seats[i].Persona().Identity, err)
			}
		}
	}

	log.Info().
		Str("room", roomName).
		Strs("participants", room.Identities(m.opts.Room)).
		Msg("Remote participants")

	live := false
	m.mu.Lock()
	for i, s := range m.seats {
		if failed[i] == nil {
			m.agents[s.Role] = m.newAgent(s.Role, conversation.Context{})
			live = true
		}
	}
	m.mu.Unlock()
	if !live {
		return errors.Join(failed...)
	}

	var (
		greeter  turn.Role
		greeting *speech.Reply
	)
	for i, s := range m.seats {
		a := m.agent(s.Role)
		if a == nil {
			continue
		}
		reply, err := a.Enter(ctx, roomName)
		if err != nil {
			log.Error().Err(err).Str("persona", s.Persona().Identity).Msg("Persona failed to enter")
			failed[i] = err
			m.drop(s.Role)
			continue
		}
		if reply != nil {
			greeter, greeting = s.Role, reply
			m.spoke(ctx, s.Role, turnlog.KindGreeting, reply.Text, "")
		}
	}

	// The opener failed after claiming the opening; the next live persona
	// greets instead.
	if greeting == nil && m.state.Snapshot().Started {
		for i, s := range m.seats {
			a := m.agent(s.Role)
			if a == nil {
				continue
			}
			reply, err := a.Greet(ctx)
			if err != nil {
				log.Error().Err(err).Str("persona", s.Persona().Identity).Msg("Persona failed to greet")
				failed[i] = err
				m.drop(s.Role)
				continue
			}
			greeter, greeting = s.Role, &reply
			m.spoke(ctx, s.Role, turnlog.KindGreeting, reply.Text, "")
			break
		}
	}

	roles := m.Live()
	if len(roles) == 0 {
		return errors.Join(failed...)
	}
	if m.opts.Mode == ModeHandoff {
		initial := roles[0]
		if greeting != nil {
			initial = greeter
		}
		m.mu.Lock()
		m.handoff = turn.NewHandoff(m.roster, m.state, initial)
		m.mu.Unlock()
	}

	if greeting != nil && m.opts.Mode == ModeHandoff {
		var turns []Turn
		if err := m.followHandoffs(ctx, greeter, *greeting, 0, &turns); err != nil {
			log.Warn().Err(err).Msg("Handoff after greeting failed")
		}
	}
	return errors.Join(failed...)
}

// HandleUtterance relays a human utterance to the persona holding the floor
// and returns what the personas did in response.
func (m *Manager) HandleUtterance(ctx context.Context, text string) ([]Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if err := m.ready(); err != nil {
		return nil, err
	}

	m.floor.Lock()
	defer m.floor.Unlock()

	for _, a := range m.liveAgents() {
		a.Hear(text)
	}

	var turns []Turn
	switch m.opts.Mode {
	case ModeAlternation:
		role := m.alt.Next()
		m.state.SetCurrent(role.String())
		t, _, err := m.respond(ctx, role, m.roster.Persona(role).ReplyInstructions(text), "")
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)

	case ModeSolo:
		t, _, err := m.respond(ctx, turn.RoleA, m.roster.A.ReplyInstructions(text), "")
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)

	case ModeHandoff:
		h := m.coordinator()
		if h == nil {
			return nil, ErrPersonaUnavailable
		}
		role := h.Active()
		t, reply, err := m.respond(ctx, role, "", "")
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
		if err := m.followHandoffs(ctx, role, reply, 0, &turns); err != nil {
			return turns, err
		}
	}
	return turns, nil
}

// Handoff passes the floor from the persona with identity to its
// counterpart, as if the persona had called its handoff tool.
func (m *Manager) Handoff(ctx context.Context, identity, topic string) ([]Turn, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if m.opts.Mode != ModeHandoff {
		return nil, fmt.Errorf("handoff is not available in %s mode", m.opts.Mode)
	}
	from, ok := m.roster.RoleOf(identity)
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", identity)
	}

	m.floor.Lock()
	defer m.floor.Unlock()

	var turns []Turn
	err := m.handoffAndReply(ctx, from, topic, 1, &turns)
	return turns, err
}

// Say makes the persona with identity speak text verbatim.
func (m *Manager) Say(ctx context.Context, identity, text string) (Turn, error) {
	if err := m.ready(); err != nil {
		return Turn{}, err
	}
	role, ok := m.roster.RoleOf(identity)
	if !ok || (m.opts.Mode == ModeSolo && role != turn.RoleA) {
		return Turn{}, fmt.Errorf("unknown persona %q", identity)
	}

	m.floor.Lock()
	defer m.floor.Unlock()

	a := m.agent(role)
	if a == nil {
		return Turn{}, fmt.Errorf("%w: %s", ErrPersonaUnavailable, identity)
	}
	if err := a.Say(ctx, text); err != nil {
		return Turn{}, err
	}
	return m.spoke(ctx, role, turnlog.KindLine, text, ""), nil
}

// Close stops every speech session and then releases every avatar. It waits
// for a reply in progress to finish. Calling Close again is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.floor.Lock()
	defer m.floor.Unlock()

	var errs []error
	for _, g := range m.sessionGroups() {
		if err := g.session.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close speech session for %s: %w", strings.Join(m.identities(g.seats), ","), err))
		}
	}
	for _, s := range m.seats {
		if err := s.Binding.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to release avatar for %s: %w", s.Persona().Identity, err))
		}
	}

	m.mu.Lock()
	m.agents = make(map[turn.Role]*agent.Agent)
	m.mu.Unlock()

	log.Info().Str("room", m.opts.Room.Name()).Msg("Conversation closed")
	return errors.Join(errs...)
}

// respond asks the persona at role for a reply and records it. Callers hold
// the floor.
func (m *Manager) respond(ctx context.Context, role turn.Role, instructions, topic string) (Turn, speech.Reply, error) {
	a := m.agent(role)
	if a == nil {
		return Turn{}, speech.Reply{}, fmt.Errorf("%w: %s", ErrPersonaUnavailable, m.roster.Persona(role).Identity)
	}
	reply, err := a.Respond(ctx, instructions)
	if err != nil {
		return Turn{}, reply, err
	}
	return m.spoke(ctx, role, turnlog.KindReply, reply.Text, topic), reply, nil
}

// followHandoffs carries out handoff tool calls in reply, and in the replies
// that follow, until no handoff is requested or the chain limit is reached.
func (m *Manager) followHandoffs(ctx context.Context, from turn.Role, reply speech.Reply, chain int, turns *[]Turn) error {
	for {
		topic, ok := m.requestedHandoff(from, reply.ToolCalls)
		if !ok {
			return nil
		}
		if chain >= m.opts.MaxChain {
			log.Warn().
				Err(turn.ErrHandoffLimit).
				Int("limit", m.opts.MaxChain).
				Str("persona", m.roster.Persona(from).Identity).
				Msg("Ignoring handoff, floor stays")
			return nil
		}
		chain++

		next, err := m.transfer(ctx, from, topic, turns)
		if err != nil {
			return err
		}
		to := from.Other()
		reply, err = next.Respond(ctx, handoffInstructions(topic))
		if err != nil {
			return err
		}
		*turns = append(*turns, m.spoke(ctx, to, turnlog.KindReply, reply.Text, topic))
		from = to
	}
}

// handoffAndReply transfers the floor away from from and lets the incoming
// persona reply, following any further handoffs.
func (m *Manager) handoffAndReply(ctx context.Context, from turn.Role, topic string, chain int, turns *[]Turn) error {
	next, err := m.transfer(ctx, from, topic, turns)
	if err != nil {
		return err
	}
	to := from.Other()
	reply, err := next.Respond(ctx, handoffInstructions(topic))
	if err != nil {
		return err
	}
	*turns = append(*turns, m.spoke(ctx, to, turnlog.KindReply, reply.Text, topic))
	return m.followHandoffs(ctx, to, reply, chain, turns)
}

// requestedHandoff returns the topic of the first handoff in calls that
// targets the counterpart of from.
func (m *Manager) requestedHandoff(from turn.Role, calls []llm.ToolCall) (string, bool) {
	for _, c := range calls {
		to, topic, ok := turn.ParseHandoff(c, m.roster)
		if !ok {
			log.Debug().Str("tool", c.Name).Msg("Ignoring unknown tool call")
			continue
		}
		if to == from {
			log.Warn().Str("persona", m.roster.Persona(from).Identity).Msg("Ignoring handoff to self")
			continue
		}
		return topic, true
	}
	return "", false
}

// transfer hands the floor from from to its counterpart and seats a fresh
// instance of the incoming persona, seeded with the dialogue so far.
func (m *Manager) transfer(ctx context.Context, from turn.Role, topic string, turns *[]Turn) (*agent.Agent, error) {
	to := from.Other()
	outgoing := m.agent(from)
	if outgoing == nil {
		return nil, fmt.Errorf("%w: %s", ErrPersonaUnavailable, m.roster.Persona(from).Identity)
	}
	if m.agent(to) == nil {
		return nil, fmt.Errorf("%w: %s", ErrPersonaUnavailable, m.roster.Persona(to).Identity)
	}

	tr, err := m.coordinator().Request(from, topic, outgoing.History())
	if err != nil {
		return nil, err
	}
	*turns = append(*turns, m.spoke(ctx, from, turnlog.KindHandoff, "", topic))

	carry := tr.Context
	if tr.Utterance != "" {
		if err := outgoing.Say(ctx, tr.Utterance); err != nil {
			log.Warn().Err(err).Str("persona", m.roster.Persona(from).Identity).Msg("Failed to speak handoff line")
		} else {
			*turns = append(*turns, m.spoke(ctx, from, turnlog.KindLine, tr.Utterance, topic))
			carry = carry.Append(conversation.AssistantMessage(m.roster.Persona(from).Identity, tr.Utterance))
		}
	}

	next := m.newAgent(to, carry)
	if _, err := next.Enter(ctx, m.opts.Room.Name()); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.agents[to] = next
	m.mu.Unlock()
	return next, nil
}

func handoffInstructions(topic string) string {
	if topic == "" {
		return "You have just been handed the conversation. Pick it up from where it left off."
	}
	return fmt.Sprintf("You have just been handed the conversation. Pick it up, talking about %s.", topic)
}

// spoke records a turn, lets the other personas hear what was said, and
// returns it.
func (m *Manager) spoke(ctx context.Context, role turn.Role, kind turnlog.Kind, text, topic string) Turn {
	def := m.roster.Persona(role)
	t := Turn{Role: role, Persona: def.Identity, Kind: kind, Text: text, Topic: topic}

	if text != "" {
		msg := conversation.AssistantMessage(def.Identity, text)
		m.mu.Lock()
		for r, a := range m.agents {
			if r != role {
				a.Observe(msg)
			}
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	entry := turnlog.Entry{
		JobID:     m.opts.JobID,
		Seq:       seq,
		At:        time.Now(),
		Kind:      kind,
		Role:      role.String(),
		Persona:   def.Identity,
		Text:      text,
		Topic:     topic,
		TurnCount: m.state.Snapshot().TurnCount,
	}
	if err := m.opts.Recorder.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Int("seq", seq).Msg("Failed to record turn")
	}
	return t
}

func (m *Manager) newAgent(role turn.Role, carry conversation.Context) *agent.Agent {
	s := m.seat(role)
	var tools []llm.Tool
	if m.opts.Mode == ModeHandoff {
		tools = turn.ToolsFor(m.roster, role)
	}
	return agent.New(s.Persona(), m.state, s.Binding, s.Speech, carry, tools...)
}

func (m *Manager) seat(role turn.Role) Seat {
	for _, s := range m.seats {
		if s.Role == role {
			return s
		}
	}
	panic(fmt.Sprintf("session: no seat for role %s", role))
}

func (m *Manager) agent(role turn.Role) *agent.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agents[role]
}

func (m *Manager) drop(role turn.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.agents, role)
}

func (m *Manager) liveAgents() []*agent.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*agent.Agent, 0, len(m.agents))
	for _, s := range m.seats {
		if a, ok := m.agents[s.Role]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (m *Manager) ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return ErrClosed
	case !m.started:
		return ErrNotStarted
	}
	return nil
}

type sessionGroup struct {
	session speech.Session
	seats   []int
}

// sessionGroups groups seat indices by speech session, in seat order.
func (m *Manager) sessionGroups() []sessionGroup {
	var groups []sessionGroup
outer:
	for i, s := range m.seats {
		for g := range groups {
			if groups[g].session == s.Speech {
				groups[g].seats = append(groups[g].seats, i)
				continue outer
			}
		}
		groups = append(groups, sessionGroup{session: s.Speech, seats: []int{i}})
	}
	return groups
}

func (m *Manager) identities(seats []int) []string {
	ids := make([]string, 0, len(seats))
	for _, i := range seats {
		ids = append(ids, m.seats[i].Persona().Identity)
	}
	return ids
}

func firstErr(errs []error, idx []int) error {
	for _, i := range idx {
		if errs[i] != nil {
			return errs[i]
		}
	}
	return nil
}
