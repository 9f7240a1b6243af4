package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/voice"
	"github.com/rs/zerolog/log"
)

// DefaultAudioFormat is used when the voice settings name no format.
const DefaultAudioFormat = "mp3"

// Pipeline is a Session built from a reply generator, a TTS provider and
// per-persona audio sinks.
type Pipeline struct {
	gen      llm.Generator
	tts      voice.Provider
	settings voice.Settings

	mu      sync.Mutex
	sinks   map[string]AudioSink
	started bool
}

// NewPipeline creates a pipeline. Sinks are attached with Attach.
func NewPipeline(gen llm.Generator, tts voice.Provider, settings voice.Settings) *Pipeline {
	if settings.Format == "" {
		settings.Format = DefaultAudioFormat
	}
	return &Pipeline{
		gen:      gen,
		tts:      tts,
		settings: settings,
		sinks:    make(map[string]AudioSink),
	}
}

// Attach routes audio spoken as the persona with the given identity to sink.
func (p *Pipeline) Attach(identity string, sink AudioSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks[identity] = sink
}

// Start marks the session live.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	log.Debug().Int("sinks", len(p.sinks)).Msg("Speech pipeline started")
	return nil
}

// Started reports whether Start has been called and Close has not.
func (p *Pipeline) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// GenerateReply asks the model for a reply and speaks its text, if any.
func (p *Pipeline) GenerateReply(ctx context.Context, req ReplyRequest) (Reply, error) {
	if !p.Started() {
		return Reply{}, ErrNotStarted
	}

	resp, err := p.gen.Generate(ctx, llm.Request{
		System:       req.Persona.Instructions,
		Instructions: req.Instructions,
		History:      req.History,
		Tools:        req.Tools,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("failed to generate reply for %s: %w", req.Persona.Identity, err)
	}

	reply := Reply{Text: resp.Text, ToolCalls: resp.ToolCalls}
	if reply.Text == "" {
		return reply, nil
	}
	if err := p.speak(ctx, req.Persona, reply.Text); err != nil {
		return reply, err
	}
	return reply, nil
}

// Say speaks text verbatim as def.
func (p *Pipeline) Say(ctx context.Context, def persona.Definition, text string) error {
	if !p.Started() {
		return ErrNotStarted
	}
	if text == "" {
		return nil
	}
	return p.speak(ctx, def, text)
}

func (p *Pipeline) speak(ctx context.Context, def persona.Definition, text string) error {
	p.mu.Lock()
	sink, ok := p.sinks[def.Identity]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSink, def.Identity)
	}

	opts := p.settings.Options(def.Voice)
	audio, err := p.tts.Synthesize(ctx, text, opts)
	if err != nil {
		return fmt.Errorf("failed to synthesize speech for %s: %w", def.Identity, err)
	}
	defer func() { _ = audio.Close() }()

	log.Debug().
		Str("persona", def.Identity).
		Str("voice", opts.Voice).
		Str("provider", p.tts.Name()).
		Int("chars", len(text)).
		Msg("Speaking")

	if err := sink.PushAudio(ctx, audio, opts.Format); err != nil {
		return fmt.Errorf("failed to push audio for %s: %w", def.Identity, err)
	}
	return nil
}

// Close stops the session. Later replies fail with ErrNotStarted.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
	return nil
}
