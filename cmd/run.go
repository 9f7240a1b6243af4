package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/daikw/duet/internal/avatar"
	"github.com/daikw/duet/internal/config"
	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/room"
	"github.com/daikw/duet/internal/session"
	"github.com/daikw/duet/internal/speech"
	"github.com/daikw/duet/internal/turnlog"
	"github.com/daikw/duet/internal/voice"
	"github.com/daikw/duet/internal/worker"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "agent",
			Aliases: []string{"a"},
			Usage:   "Routing key name[:port], e.g. martha-agent:8081 or duo-handoff (default: duo-<conversation.mode>)",
		},
		&cli.StringFlag{
			Name:    "room",
			Aliases: []string{"r"},
			Usage:   "Room to join",
			Value:   "duet",
		},
		&cli.BoolFlag{
			Name:  "console",
			Usage: "Read utterances from stdin and print turns instead of joining a room",
		},
	}
}

func handleRun(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	key, err := routingKey(c.String("agent"), cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, catalog, c.Bool("console"))
	if err != nil {
		return err
	}
	registry, err := worker.Routes(deps)
	if err != nil {
		return err
	}
	return registry.Dispatch(ctx, key, c.String("room"))
}

// routingKey defaults an empty key to the duo route for the configured mode.
func routingKey(agent string, cfg *config.Config) (string, error) {
	if agent != "" {
		return agent, nil
	}
	mode, err := session.ParseMode(cfg.Conversation.Mode)
	if err != nil {
		return "", err
	}
	if mode == session.ModeSolo {
		return "", fmt.Errorf("solo mode needs --agent to pick a persona")
	}
	return "duo-" + string(mode), nil
}

func loadCatalog() (*persona.Catalog, error) {
	f, err := persona.LoadFileWithFallback()
	if err != nil {
		return nil, err
	}
	return persona.LoadCatalog(f)
}

// buildDeps wires the configured services. Nothing here contacts a remote
// service; clients are created when a job first needs them.
func buildDeps(ctx context.Context, cfg *config.Config, catalog *persona.Catalog, console bool) (worker.Deps, error) {
	recorder, err := newRecorder(ctx, cfg, console)
	if err != nil {
		return worker.Deps{}, err
	}

	deps := worker.Deps{
		Catalog:   catalog,
		NewSpeech: lazySpeech(cfg),
		Recorder:  recorder,
		StartGap:  time.Duration(cfg.Avatar.StartGap),
		MaxChain:  cfg.Conversation.MaxChain,
	}

	if console {
		deps.Avatars = consoleAvatars()
		deps.Connect = func(ctx context.Context, job worker.Job) (room.Conn, error) {
			fmt.Fprintln(os.Stderr, color.CyanString("Type to talk to %s, Ctrl-D to leave.", job.AgentName))
			return room.NewConsole(job.Room, os.Stdin, room.Participant{Identity: "console", Name: "You"}), nil
		}
		return deps, nil
	}

	if cfg.Room.URL == "" {
		return worker.Deps{}, fmt.Errorf("room URL is not configured (set room.url or LIVEKIT_URL)")
	}
	tokens := room.TokenSource{
		APIKey:    cfg.Room.APIKey,
		APISecret: cfg.Room.APISecret,
		TTL:       time.Duration(cfg.Room.TokenTTL),
	}

	var opts []avatar.HTTPOption
	if cfg.Avatar.BaseURL != "" {
		opts = append(opts, avatar.WithBaseURL(cfg.Avatar.BaseURL))
	}
	opts = append(opts, avatar.WithRoomAccess(cfg.Room.URL, tokens.Token))
	deps.Avatars = avatar.NewHTTPService(cfg.Avatar.APIKey, opts...)

	filters := noiseFilters(cfg.Room.URL)
	var ignore []string
	for _, def := range catalog.List() {
		ignore = append(ignore, avatar.ParticipantIdentity(def))
	}
	deps.Connect = func(ctx context.Context, job worker.Job) (room.Conn, error) {
		identity := cfg.Room.Identity + "-" + job.AgentName
		token, err := tokens.Token(job.Room, identity, job.AgentName)
		if err != nil {
			return nil, err
		}
		conn, err := room.Dial(ctx, room.DialOptions{
			URL:      cfg.Room.URL,
			Room:     job.Room,
			Token:    token,
			Identity: identity,
			Noise:    room.FilterName(filters.Resolve(cfg.NoiseCancellation)),
			Ignore:   ignore,
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return deps, nil
}

// lazySpeech creates the reply model and TTS provider on first use and
// shares them between every pipeline.
func lazySpeech(cfg *config.Config) worker.SpeechFactory {
	var (
		once    sync.Once
		factory worker.SpeechFactory
		initErr error
	)
	return func(ctx context.Context, bindings ...*avatar.Binding) (speech.Session, error) {
		once.Do(func() {
			gen, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
			if err != nil {
				initErr = fmt.Errorf("failed to create reply model: %w", err)
				return
			}
			tts, err := voice.New(ctx, cfg.Voice)
			if err != nil {
				initErr = fmt.Errorf("failed to create voice provider: %w", err)
				return
			}
			log.Debug().Str("provider", tts.Name()).Msg("Voice provider ready")
			factory = worker.PipelineFactory(gen, tts, cfg.Voice)
		})
		if initErr != nil {
			return nil, initErr
		}
		return factory(ctx, bindings...)
	}
}

func newRecorder(ctx context.Context, cfg *config.Config, console bool) (turnlog.Recorder, error) {
	var recorders turnlog.Multi
	if console {
		recorders = append(recorders, consoleRecorder{out: os.Stdout})
	} else {
		recorders = append(recorders, turnlog.LogRecorder{})
	}
	if cfg.TurnLog.Table != "" {
		r, err := turnlog.NewDynamoRecorder(ctx, cfg.TurnLog.Table, cfg.TurnLog.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create turn log: %w", err)
		}
		recorders = append(recorders, r)
	}
	return recorders, nil
}

// noiseFilters registers the enhanced filters, which only cloud-hosted
// rooms provide.
func noiseFilters(roomURL string) *room.NoiseFilters {
	cloud := func() bool {
		u, err := url.Parse(roomURL)
		return err == nil && strings.HasSuffix(u.Hostname(), ".livekit.cloud")
	}
	return room.NewNoiseFilters(
		room.NoiseFilter{Name: "bvc", Available: cloud},
		room.NoiseFilter{Name: "krisp", Available: cloud},
	)
}

// consoleAvatars accepts every avatar and discards its audio.
func consoleAvatars() avatar.Service {
	return avatar.ServiceFunc(func(ctx context.Context, req avatar.StartRequest) (avatar.Handle, error) {
		return discardHandle{identity: req.Identity}, nil
	})
}

type discardHandle struct {
	identity string
}

func (h discardHandle) PushAudio(ctx context.Context, audio io.Reader, format string) error {
	n, err := io.Copy(io.Discard, audio)
	log.Debug().Str("avatar", h.identity).Int64("bytes", n).Str("format", format).Msg("Audio")
	return err
}

func (h discardHandle) Close(ctx context.Context) error { return nil }

// consoleRecorder prints turns for a console conversation.
type consoleRecorder struct {
	out io.Writer
}

func (r consoleRecorder) Record(_ context.Context, e turnlog.Entry) error {
	name := color.New(color.FgMagenta, color.Bold).Sprint(e.Persona)
	if e.Role == "B" {
		name = color.New(color.FgCyan, color.Bold).Sprint(e.Persona)
	}
	switch e.Kind {
	case turnlog.KindHandoff:
		msg := fmt.Sprintf("%s hands off", e.Persona)
		if e.Topic != "" {
			msg += " (" + e.Topic + ")"
		}
		_, err := fmt.Fprintln(r.out, color.YellowString("  ↪ %s", msg))
		return err
	default:
		_, err := fmt.Fprintf(r.out, "%s: %s\n", name, e.Text)
		return err
	}
}
