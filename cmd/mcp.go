package main

import (
	"context"
	"fmt"

	"github.com/daikw/duet/internal/mcpserver"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/session"
	"github.com/daikw/duet/internal/turn"
	"github.com/daikw/duet/internal/worker"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func mcpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "agent",
			Aliases: []string{"a"},
			Usage:   "Routing key of the conversation to control",
			Value:   worker.RouteDuoHandoff,
		},
		&cli.StringFlag{
			Name:    "room",
			Aliases: []string{"r"},
			Usage:   "Room to join",
			Value:   "duet",
		},
	}
}

// handleMCP joins the room in the background and serves the conversation
// tools on stdio. Stdout belongs to the protocol, so there is no console
// mode here.
func handleMCP(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps, err := buildDeps(ctx, cfg, catalog, false)
	if err != nil {
		return err
	}
	var srv *mcpserver.Server
	deps.OnSession = func(job worker.Job, m *session.Manager) {
		log.Info().Str("job", job.ID).Msg("Conversation attached to MCP tools")
		srv.Attach(m)
	}
	registry, err := worker.Routes(deps)
	if err != nil {
		return err
	}

	key := c.String("agent")
	job, _, err := registry.Resolve(key)
	if err != nil {
		return err
	}
	roster, err := rosterFor(catalog, job.AgentName)
	if err != nil {
		return err
	}
	srv = mcpserver.New(roster, version)

	done := make(chan error, 1)
	go func() {
		err := registry.Dispatch(ctx, key, c.String("room"))
		srv.Attach(nil)
		if err != nil {
			log.Error().Err(err).Msg("Conversation ended")
		}
		done <- err
	}()

	serveErr := srv.ServeStdio()
	cancel()
	if err := <-done; err != nil && serveErr == nil {
		return err
	}
	return serveErr
}

// rosterFor seats the personas a route brings into the room.
func rosterFor(catalog *persona.Catalog, agentName string) (turn.Roster, error) {
	switch agentName {
	case worker.RouteDuoAlternation, worker.RouteDuoHandoff:
		return turn.Roster{A: catalog.MustGet(persona.Martha), B: catalog.MustGet(persona.Snoop)}, nil
	}
	def, ok := catalog.ByAgentName(agentName)
	if !ok {
		return turn.Roster{}, fmt.Errorf("no persona for route %q", agentName)
	}
	return turn.Roster{A: def}, nil
}
