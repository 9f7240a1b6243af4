package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/daikw/duet/internal/config"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/room"
	"github.com/daikw/duet/internal/voice"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

type checker struct {
	issues   int
	warnings int
	actions  []string
}

func (k *checker) ok(format string, args ...any) {
	fmt.Println(color.GreenString("✅ "+format, args...))
}

func (k *checker) warn(action, format string, args ...any) {
	k.warnings++
	fmt.Println(color.YellowString("⚠️  "+format, args...))
	if action != "" {
		k.actions = append(k.actions, action)
	}
}

func (k *checker) fail(action, format string, args ...any) {
	k.issues++
	fmt.Println(color.RedString("❌ "+format, args...))
	if action != "" {
		k.actions = append(k.actions, action)
	}
}

func handleStatus(ctx context.Context, c *cli.Command) error {
	k := &checker{}

	cwd, _ := os.Getwd()
	fmt.Printf("📍 Directory: %s\n", cwd)
	fmt.Printf("🏷️  duet %s (%s)\n", version, revision)
	fmt.Println("")

	cfg, err := loadConfig(c)
	if err != nil {
		k.fail("Fix duet.json or run 'duet config init'", "Config: %v", err)
		return summarize(k)
	}
	k.ok("Config: mode %s, max chain %d", cfg.Conversation.Mode, cfg.Conversation.MaxChain)

	catalog, err := loadCatalog()
	if err != nil {
		k.fail("Fix .duet/personas.json", "Personas: %v", err)
	} else {
		k.ok("Personas: %v", catalog.Identities())
		if _, ok := catalog.Get(persona.Martha); !ok {
			k.warn("", "Persona %s is missing", persona.Martha)
		}
		if _, ok := catalog.Get(persona.Snoop); !ok {
			k.warn("", "Persona %s is missing", persona.Snoop)
		}
	}

	checkRoom(k, cfg)

	if cfg.Avatar.APIKey == "" {
		k.fail("Set HEDRA_API_KEY or avatar.apiKey", "Avatar service: no API key")
	} else {
		k.ok("Avatar service: API key set, start gap %s", time.Duration(cfg.Avatar.StartGap))
	}

	if cfg.LLM.APIKey == "" {
		k.fail("Set GEMINI_API_KEY or llm.apiKey", "Reply model: no API key")
	} else {
		k.ok("Reply model: API key set")
	}

	checkVoice(ctx, k, cfg)

	if cfg.TurnLog.Table != "" {
		k.ok("Turn log: DynamoDB table %s", cfg.TurnLog.Table)
	} else {
		fmt.Println("📝 Turn log: application log only")
	}

	return summarize(k)
}

func checkRoom(k *checker, cfg *config.Config) {
	switch {
	case cfg.Room.URL == "":
		k.fail("Set LIVEKIT_URL or room.url", "Room: no URL (console mode still works)")
	case cfg.Room.APIKey == "" || cfg.Room.APISecret == "":
		k.fail("Set LIVEKIT_API_KEY and LIVEKIT_API_SECRET", "Room: %s, credentials missing", cfg.Room.URL)
	default:
		if _, err := (room.TokenSource{APIKey: cfg.Room.APIKey, APISecret: cfg.Room.APISecret}).Token("status", "status", ""); err != nil {
			k.fail("Check the room API credentials", "Room: cannot mint token: %v", err)
		} else {
			k.ok("Room: %s", cfg.Room.URL)
		}
	}

	if cfg.NoiseCancellation != "" && cfg.NoiseCancellation != "none" {
		if f := noiseFilters(cfg.Room.URL).Resolve(cfg.NoiseCancellation); f == nil {
			k.warn("", "Noise cancellation %q unavailable, rooms are joined without it", cfg.NoiseCancellation)
		} else {
			k.ok("Noise cancellation: %s", f.Name)
		}
	}
}

func checkVoice(ctx context.Context, k *checker, cfg *config.Config) {
	provider, err := voice.New(ctx, cfg.Voice)
	if err != nil {
		k.fail("Configure voice.provider and its credentials", "Voice: %v", err)
		return
	}
	if !provider.IsAvailable(ctx) {
		k.warn("Check the "+provider.Name()+" credentials", "Voice: %s not reachable", provider.Name())
		return
	}
	k.ok("Voice: %s", provider.Name())
}

func summarize(k *checker) error {
	fmt.Println("")
	if k.issues == 0 && k.warnings == 0 {
		fmt.Println(color.GreenString("✅ All checks passed!"))
		return nil
	}
	fmt.Printf("%d issue(s), %d warning(s)\n", k.issues, k.warnings)
	if len(k.actions) > 0 {
		fmt.Println("")
		fmt.Println("Recommended actions:")
		for _, a := range k.actions {
			fmt.Printf("  - %s\n", a)
		}
	}
	return nil
}
