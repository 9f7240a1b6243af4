package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenAITTSEndpoint = "/audio/speech"
	OpenAIDefaultTTS  = "gpt-4o-mini-tts"
)

// OpenAIProvider implements the Provider interface for the OpenAI speech API.
// Its voice names match the realtime voices the built-in personas use.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI TTS provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: OpenAIBaseURL,
		model:   OpenAIDefaultTTS,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ListVoices returns the built-in OpenAI voices
func (p *OpenAIProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	// Voices shared by the speech and realtime APIs
	return []Voice{
		{ID: "alloy", Name: "Alloy", Language: "en", Gender: "neutral", Description: "Balanced, clear voice"},
		{ID: "ash", Name: "Ash", Language: "en", Gender: "male", Description: "Warm, confident voice"},
		{ID: "ballad", Name: "Ballad", Language: "en", Gender: "male", Description: "Melodic, expressive voice"},
		{ID: "coral", Name: "Coral", Language: "en", Gender: "female", Description: "Friendly, upbeat voice"},
		{ID: "echo", Name: "Echo", Language: "en", Gender: "male", Description: "Deep, resonant voice"},
		{ID: "sage", Name: "Sage", Language: "en", Gender: "female", Description: "Calm, thoughtful voice"},
		{ID: "shimmer", Name: "Shimmer", Language: "en", Gender: "female", Description: "Warm, friendly voice"},
		{ID: "verse", Name: "Verse", Language: "en", Gender: "male", Description: "Dynamic, versatile voice"},
	}, nil
}

// Synthesize generates audio from text using the OpenAI speech API
func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	// Set defaults
	voice := options.Voice
	if voice == "" {
		voice = "alloy"
	}
	model := options.Model
	if model == "" {
		model = p.model
	}
	format := options.Format
	if format == "" {
		format = "mp3"
	}

	// Prepare request payload, speed clamped to OpenAI limits
	requestBody := map[string]interface{}{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": format,
		"speed":           speakingRate(options.Speed),
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	endpoint := p.baseURL + OpenAITTSEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	log.Debug().
		Str("endpoint", endpoint).
		Str("voice", voice).
		Str("model", model).
		Str("format", format).
		Msg("Making OpenAI TTS request")

	// Make request
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var apiErr OpenAIError
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("OpenAI API error: status %d: %s", resp.StatusCode, apiErr)
		}
		return nil, fmt.Errorf("OpenAI API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// IsAvailable reports whether an API key is configured.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// OpenAIError represents an error from OpenAI API
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (e OpenAIError) String() string {
	return fmt.Sprintf("%s (type: %s, code: %s)", e.Error.Message, e.Error.Type, e.Error.Code)
}

func (p *OpenAIProvider) withBaseURL(u string) *OpenAIProvider {
	if u != "" {
		p.baseURL = strings.TrimSuffix(u, "/")
	}
	return p
}
