// Package mcpserver exposes a running conversation over the Model Context
// Protocol, so an external agent can make a persona speak or hand off the
// floor.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/daikw/duet/internal/conversation"
	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/session"
	"github.com/daikw/duet/internal/turn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// ErrNoConversation is reported by every tool until a conversation is
// attached.
var ErrNoConversation = errors.New("no conversation running")

// Controller is the part of a conversation the tools drive.
type Controller interface {
	Say(ctx context.Context, identity, text string) (session.Turn, error)
	Handoff(ctx context.Context, identity, topic string) ([]session.Turn, error)
	State() conversation.Snapshot
}

// Server serves the conversation tools for a roster.
type Server struct {
	roster turn.Roster
	mcp    *server.MCPServer
	tools  []string

	mu   sync.RWMutex
	ctrl Controller
}

// New registers the say and state tools, plus one handoff tool per persona
// when roster seats two.
func New(roster turn.Roster, version string) *Server {
	s := &Server{
		roster: roster,
		mcp:    server.NewMCPServer("duet", version, server.WithToolCapabilities(false)),
	}

	s.add(mcp.NewTool("say",
		mcp.WithDescription("Make a persona speak the given text verbatim through its avatar."),
		mcp.WithString("persona", mcp.Required(), mcp.Description("Persona identity, one of: "+strings.Join(s.identities(), ", "))),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to speak")),
	), s.handleSay)

	s.add(mcp.NewTool("state",
		mcp.WithDescription("Return the shared conversation state as JSON."),
	), s.handleState)

	if len(s.identities()) == 2 {
		for _, r := range []turn.Role{turn.RoleA, turn.RoleB} {
			s.add(handoffTool(turn.HandoffTool(roster.Persona(r))), s.handoffHandler(r))
		}
	}
	return s
}

// handoffTool mirrors a reply-model tool as an MCP tool.
func handoffTool(t llm.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(p.Name, popts...))
	}
	return mcp.NewTool(t.Name, opts...)
}

func (s *Server) add(t mcp.Tool, h server.ToolHandlerFunc) {
	s.mcp.AddTool(t, h)
	s.tools = append(s.tools, t.Name)
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Attach points the tools at c. Passing nil detaches.
func (s *Server) Attach(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = c
}

func (s *Server) controller() (Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctrl == nil {
		return nil, ErrNoConversation
	}
	return s.ctrl, nil
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	log.Info().Strs("tools", s.tools).Msg("Serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleSay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity, err := req.RequireString("persona")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.controller()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, err := c.Say(ctx, identity, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("say failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s said: %s", t.Persona, t.Text)), nil
}

func (s *Server) handleState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.controller()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.Marshal(c.State())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handoffHandler transfers the floor to the persona at target, on behalf of
// its counterpart.
func (s *Server) handoffHandler(target turn.Role) server.ToolHandlerFunc {
	from := s.roster.Persona(target.Other()).Identity
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c, err := s.controller()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topic := req.GetString(turn.TopicParam, "")

		turns, err := c.Handoff(ctx, from, topic)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("handoff failed: %v", err)), nil
		}
		return mcp.NewToolResultText(describe(turns)), nil
	}
}

func describe(turns []session.Turn) string {
	if len(turns) == 0 {
		return "nothing was said"
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		switch {
		case t.Text != "":
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", t.Kind, t.Persona, t.Text))
		case t.Topic != "":
			lines = append(lines, fmt.Sprintf("[%s] %s (topic: %s)", t.Kind, t.Persona, t.Topic))
		default:
			lines = append(lines, fmt.Sprintf("[%s] %s", t.Kind, t.Persona))
		}
	}
	return strings.Join(lines, "\n")
}

func (s *Server) identities() []string {
	var ids []string
	for _, r := range []turn.Role{turn.RoleA, turn.RoleB} {
		if id := s.roster.Persona(r).Identity; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
