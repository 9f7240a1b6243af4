package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daikw/duet/internal/config"
	"github.com/daikw/duet/internal/persona"
	"github.com/urfave/cli/v3"
)

func handleConfigShow(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	output, err := json.MarshalIndent(cfg.MaskSecrets(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}

	fmt.Println("Effective configuration (secrets masked):")
	fmt.Println(string(output))
	return nil
}

func handleConfigInit(ctx context.Context, c *cli.Command) error {
	configPath := filepath.Join(persona.ConfigDir, config.FileName)
	if c.Bool("global") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, persona.ConfigDir, config.FileName)
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := config.Default()
	cfg.Room.URL = "${LIVEKIT_URL}"
	cfg.Room.APIKey = "${LIVEKIT_API_KEY}"
	cfg.Room.APISecret = "${LIVEKIT_API_SECRET}"
	cfg.Avatar.APIKey = "${HEDRA_API_KEY}"
	cfg.LLM.APIKey = "${GEMINI_API_KEY}"
	cfg.Voice.APIKey = "${OPENAI_API_KEY}"

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("✅ Created configuration: %s\n", configPath)
	fmt.Println("\nUse ${ENV_VAR} syntax for sensitive values like API keys.")
	return nil
}
