package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/worker"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func handlePersonasList(ctx context.Context, c *cli.Command) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	fmt.Println("🎭 Personas:")
	for _, def := range catalog.List() {
		route := "-"
		if def.AgentName != "" {
			route = def.AgentName
			if def.Port != 0 {
				route += ":" + strconv.Itoa(def.Port)
			}
		}
		fmt.Printf("   %s (%s)\n", bold.Sprint(def.Name()), def.Identity)
		fmt.Printf("      voice: %s  avatar: %s  route: %s\n", def.Voice, def.AvatarID, route)
	}

	fmt.Println("")
	fmt.Println("🔀 Duo routes:")
	fmt.Printf("   %s\n", worker.RouteDuoAlternation)
	fmt.Printf("   %s\n", worker.RouteDuoHandoff)
	return nil
}

func handlePersonasShow(ctx context.Context, c *cli.Command) error {
	identity := c.Args().First()
	if identity == "" {
		return fmt.Errorf("persona identity is required")
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	def, ok := catalog.Get(identity)
	if !ok {
		return fmt.Errorf("persona %q not found (known: %v)", identity, catalog.Identities())
	}

	output, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format persona: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func handlePersonasInit(ctx context.Context, c *cli.Command) error {
	path := filepath.Join(persona.ConfigDir, persona.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("persona file already exists: %s (use --force to overwrite)", path)
	}

	if err := persona.SaveFile(".", persona.DefaultCatalog()); err != nil {
		return err
	}

	fmt.Printf("✅ Created persona catalog: %s\n", path)
	fmt.Println("\nEdit a persona's fields to override the built-in values.")
	return nil
}
