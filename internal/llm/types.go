// Package llm generates persona replies and tool calls from a hosted
// language model.
package llm

import (
	"context"

	"github.com/daikw/duet/internal/conversation"
)

// Param is a string parameter of a tool.
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Tool is a function the model may call instead of, or after, answering.
type Tool struct {
	Name        string
	Description string
	Params      []Param
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// String returns the string argument key, or "" if absent or not a string.
func (c ToolCall) String(key string) string {
	s, _ := c.Args[key].(string)
	return s
}

// Request is one reply generation.
type Request struct {
	// System is the persona's standing instruction.
	System string
	// Instructions steers this particular reply. May be empty.
	Instructions string
	History      conversation.Context
	Tools        []Tool
}

// Response is the model output.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Generator produces a reply for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
