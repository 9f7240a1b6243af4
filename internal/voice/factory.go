package voice

import (
	"context"
	"fmt"
	"os"
)

// Settings selects and configures a TTS provider.
type Settings struct {
	Provider string            `json:"provider,omitempty"`
	APIKey   string            `json:"apiKey,omitempty"`
	BaseURL  string            `json:"baseUrl,omitempty"`
	Model    string            `json:"model,omitempty"`
	Format   string            `json:"format,omitempty"`
	Region   string            `json:"region,omitempty"`
	Language string            `json:"language,omitempty"`
	Engine   string            `json:"engine,omitempty"`
	// Voices maps persona voice ids to provider voice names.
	Voices map[string]string `json:"voices,omitempty"`
}

// DefaultProvider is used when Settings.Provider is empty.
const DefaultProvider = "openai"

// Providers lists the provider names New understands.
func Providers() []string {
	return []string{"openai", "polly", "gcp"}
}

// New creates the provider named in s, wrapped with its voice map.
func New(ctx context.Context, s Settings) (Provider, error) {
	name := s.Provider
	if name == "" {
		name = DefaultProvider
	}

	var (
		p   Provider
		err error
	)
	switch name {
	case "openai":
		p, err = newOpenAI(s)
	case "polly":
		p, err = NewPollyProvider(ctx, s.Region)
	case "gcp":
		var opts []GCPProviderOption
		if s.Language != "" {
			opts = append(opts, WithGCPLanguage(s.Language))
		}
		p, err = NewGCPProvider(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return Mapped(p, s.Voices), nil
}

func newOpenAI(s Settings) (*OpenAIProvider, error) {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
	}

	p := NewOpenAIProvider(apiKey).withBaseURL(s.BaseURL)
	if s.Model != "" {
		p.model = s.Model
	}
	return p, nil
}

// Options returns the synthesis options for a persona voice under s.
func (s Settings) Options(voiceID string) SynthesizeOptions {
	return SynthesizeOptions{
		Voice:    voiceID,
		Format:   s.Format,
		Language: s.Language,
		Engine:   s.Engine,
	}
}
