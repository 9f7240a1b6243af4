package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/daikw/duet/internal/voice"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func handleVoices(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	settings := cfg.Voice
	if p := c.String("provider"); p != "" {
		settings.Provider = p
	}
	provider, err := voice.New(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	voices, err := provider.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}
	voices = filterVoices(voices, c.String("language"))

	fmt.Printf("🔊 %s voices (%d):\n", provider.Name(), len(voices))
	for _, v := range voices {
		line := fmt.Sprintf("   %-28s %-8s", color.New(color.Bold).Sprint(v.ID), v.Language)
		if v.Gender != "" {
			line += " " + v.Gender
		}
		if v.Description != "" {
			line += "  " + color.HiBlackString(v.Description)
		}
		fmt.Println(line)
	}

	if len(settings.Voices) > 0 {
		fmt.Println("")
		fmt.Println("🎤 Persona voice map:")
		for id, name := range settings.Voices {
			fmt.Printf("   %s → %s\n", id, name)
		}
	}
	return nil
}

// filterVoices keeps voices whose language starts with lang, ignoring case.
func filterVoices(voices []voice.Voice, lang string) []voice.Voice {
	if lang == "" {
		return voices
	}
	lang = strings.ToLower(lang)
	var out []voice.Voice
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Language), lang) {
			out = append(out, v)
		}
	}
	return out
}
