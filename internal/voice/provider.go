// Package voice turns persona replies into speech through a pluggable TTS
// provider.
package voice

import (
	"context"
	"io"
)

// Provider defines the interface for TTS providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ListVoices returns available voices for this provider
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates audio from text and returns an audio stream
	Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error)

	// IsAvailable checks if the provider is available (can be used)
	IsAvailable(ctx context.Context) bool
}

// Voice represents a voice option
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesizeOptions contains options for text synthesis
type SynthesizeOptions struct {
	Voice      string  `json:"voice"`
	Speed      float64 `json:"speed,omitempty"`       // Speed multiplier (0.25-4.0)
	Format     string  `json:"format,omitempty"`      // Output format (mp3, ogg, pcm, wav)
	Language   string  `json:"language,omitempty"`    // Language code
	Model      string  `json:"model,omitempty"`       // Model to use
	Engine     string  `json:"engine,omitempty"`      // Polly engine / GCP voice family
	SampleRate string  `json:"sample_rate,omitempty"` // Hz, as a string
}

// Mapped wraps a provider so that persona voice identifiers are translated to
// provider-specific voice names. Unmapped voices pass through.
func Mapped(p Provider, voices map[string]string) Provider {
	if len(voices) == 0 {
		return p
	}
	return &mappedProvider{Provider: p, voices: voices}
}

type mappedProvider struct {
	Provider
	voices map[string]string
}

func (m *mappedProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if v, ok := m.voices[options.Voice]; ok {
		options.Voice = v
	}
	return m.Provider.Synthesize(ctx, text, options)
}
