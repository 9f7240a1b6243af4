package main

import (
	"context"
	"fmt"
	"os"

	"github.com/daikw/duet/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "duet",
		Usage: "Two avatar personas sharing one live conversation",
		Description: `duet runs voice personas with avatars in a real-time room.
Either persona can hold the floor: personas alternate on every utterance,
or the active persona hands the conversation over with a tool call.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a duet.json (default: .duet/duet.json, then ~/.duet/duet.json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run an agent entrypoint in a room",
				Action: handleRun,
				Flags:  runFlags(),
			},
			{
				Name:    "personas",
				Aliases: []string{"p"},
				Usage:   "Inspect the persona catalog",
				Commands: []*cli.Command{
					{
						Name:    "list",
						Aliases: []string{"ls"},
						Usage:   "List personas and their routes",
						Action:  handlePersonasList,
					},
					{
						Name:      "show",
						Usage:     "Show one persona as JSON",
						ArgsUsage: "<identity>",
						Action:    handlePersonasShow,
					},
					{
						Name:   "init",
						Usage:  "Write the built-in catalog to .duet/personas.json for editing",
						Action: handlePersonasInit,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "force",
								Usage: "Overwrite an existing personas.json",
							},
						},
					},
				},
			},
			{
				Name:   "token",
				Usage:  "Mint a room access token for a human participant",
				Action: handleToken,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "room",
						Usage:    "Room name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "identity",
						Usage:    "Participant identity",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name (default: identity)",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime (default: room.tokenTtl from config)",
					},
				},
			},
			{
				Name:   "voices",
				Usage:  "List voices of a TTS provider",
				Action: handleVoices,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "TTS provider: openai, polly, gcp (default: voice.provider from config)",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Only list voices for this language code",
					},
				},
			},
			{
				Name:  "config",
				Usage: "Manage duet.json",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the effective configuration",
						Action: handleConfigShow,
					},
					{
						Name:   "init",
						Usage:  "Create an example duet.json",
						Action: handleConfigInit,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "global",
								Usage: "Create in ~/.duet instead of the project",
							},
						},
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Check configuration and credentials",
				Action: handleStatus,
			},
			{
				Name:   "mcp",
				Usage:  "Run a handoff conversation and serve its tools over MCP on stdio",
				Action: handleMCP,
				Flags:  mcpFlags(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			if err := config.LoadDotenv("."); err != nil {
				log.Warn().Err(err).Msg("Failed to load .env files")
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}

// loadConfig reads --config when given, otherwise the project or global
// config.
func loadConfig(c *cli.Command) (*config.Config, error) {
	loader := config.NewLoader()
	if path := c.String("config"); path != "" {
		return loader.LoadFromPath(path)
	}
	return loader.Load(".")
}
