package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/daikw/duet/internal/conversation"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the subset of the genai Models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates replies with the Gemini API.
type Gemini struct {
	models ContentGenerator
	model  string
}

// NewGemini creates a Gemini generator. An empty apiKey falls back to
// GEMINI_API_KEY.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not found in config or GEMINI_API_KEY environment variable")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models ContentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

// Generate sends the persona instructions, history and tools to Gemini.
func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	contents := toContents(req.History, req.Instructions)

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	log.Debug().
		Str("model", g.model).
		Int("history", req.History.Len()).
		Int("tools", len(req.Tools)).
		Msg("Making Gemini generate request")

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	return fromResponse(resp), nil
}

// toContents maps history to Gemini turns and appends the per-reply
// instruction as a final user turn.
func toContents(history conversation.Context, instructions string) []*genai.Content {
	var out []*genai.Content
	for _, m := range history.Messages() {
		role := genai.Role(genai.RoleUser)
		text := m.Content
		if m.Role == conversation.RoleAssistant {
			role = genai.RoleModel
			if m.Speaker != "" {
				text = m.Speaker + ": " + text
			}
		}
		out = append(out, genai.NewContentFromText(text, role))
	}
	if instructions != "" {
		out = append(out, genai.NewContentFromText(instructions, genai.RoleUser))
	}
	if len(out) == 0 {
		// Gemini rejects empty contents
		out = append(out, genai.NewContentFromText("Continue the conversation.", genai.RoleUser))
	}
	return out
}

func toDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Params)),
		}
		for _, p := range t.Params {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: p.Description,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func fromResponse(resp *genai.GenerateContentResponse) Response {
	var out Response
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	out.Text = strings.TrimSpace(text.String())
	return out
}
