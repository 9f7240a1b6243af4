package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrGCPCredentials is returned when Google Cloud rejects the caller's
// credentials.
var ErrGCPCredentials = errors.New("google cloud credentials rejected")

// GCPClient is the subset of the Text-to-Speech client used here.
type GCPClient interface {
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GCPProvider implements the Provider interface for Google Cloud Text-to-Speech
type GCPProvider struct {
	client   GCPClient
	voice    string
	language string
}

// GCPProviderOption is a functional option for configuring GCPProvider
type GCPProviderOption func(*GCPProvider)

// WithGCPVoice sets the default voice
func WithGCPVoice(voice string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.voice = voice
	}
}

// WithGCPLanguage sets the default language code
func WithGCPLanguage(language string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.language = language
	}
}

// NewGCPProvider creates a new Google Cloud TTS provider. Authentication
// uses Application Default Credentials.
func NewGCPProvider(ctx context.Context, opts ...GCPProviderOption) (*GCPProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
	}
	return newGCPProvider(client, opts...), nil
}

func newGCPProvider(client GCPClient, opts ...GCPProviderOption) *GCPProvider {
	p := &GCPProvider{
		client:   client,
		voice:    "en-US-Neural2-F",
		language: "en-US",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *GCPProvider) Name() string {
	return "gcp"
}

// ListVoices returns available voices from Google Cloud TTS
func (p *GCPProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: p.language})
	if err != nil {
		return nil, fmt.Errorf("failed to list GCP voices: %w", classifyGCPError(err))
	}

	var voices []Voice
	for _, v := range resp.Voices {
		// Map SSML gender
		gender := "unknown"
		switch v.SsmlGender {
		case texttospeechpb.SsmlVoiceGender_MALE:
			gender = "male"
		case texttospeechpb.SsmlVoiceGender_FEMALE:
			gender = "female"
		case texttospeechpb.SsmlVoiceGender_NEUTRAL:
			gender = "neutral"
		}

		// One entry per language the voice speaks
		for _, langCode := range v.LanguageCodes {
			voices = append(voices, Voice{
				ID:          v.Name,
				Name:        v.Name,
				Language:    langCode,
				Gender:      gender,
				Description: fmt.Sprintf("%s voice (%s)", detectEngineType(v.Name), strings.Join(v.LanguageCodes, ", ")),
			})
		}
	}

	log.Debug().Int("count", len(voices)).Msg("Listed GCP TTS voices")
	return voices, nil
}

// detectEngineType determines the engine type from voice name
func detectEngineType(voiceName string) string {
	name := strings.ToLower(voiceName)
	switch {
	case strings.Contains(name, "wavenet"):
		return "WaveNet"
	case strings.Contains(name, "neural2"):
		return "Neural2"
	case strings.Contains(name, "studio"):
		return "Studio"
	case strings.Contains(name, "chirp"):
		return "Chirp"
	case strings.Contains(name, "news"):
		return "News"
	case strings.Contains(name, "casual"):
		return "Casual"
	default:
		return "Standard"
	}
}

// Synthesize generates audio from text using Google Cloud TTS
func (p *GCPProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	// Determine voice to use
	voice := p.voice
	if options.Voice != "" {
		voice = options.Voice
	}

	// Determine language from options or voice name
	lang := p.language
	if options.Language != "" {
		lang = options.Language
	} else if parts := strings.Split(voice, "-"); len(parts) >= 2 {
		// Extract language from voice name (e.g., en-US-Neural2-F -> en-US)
		lang = parts[0] + "-" + parts[1]
	}

	// Build synthesis input (detect SSML)
	input := &texttospeechpb.SynthesisInput{
		InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
	}
	if isSSML(text) {
		input.InputSource = &texttospeechpb.SynthesisInput_Ssml{Ssml: text}
	}

	// Build voice selection and audio config
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: input,
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   audioEncoding(options.Format),
			SpeakingRate:    speakingRate(options.Speed),
			SampleRateHertz: sampleRateHertz(options.SampleRate),
		},
	}

	log.Debug().
		Str("voice", voice).
		Str("language", lang).
		Str("format", options.Format).
		Msg("Making GCP TTS synthesis request")

	// Make the API call
	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", classifyGCPError(err))
	}

	return io.NopCloser(bytes.NewReader(resp.AudioContent)), nil
}

// classifyGCPError maps credential failures to ErrGCPCredentials while
// keeping the original status in the chain.
func classifyGCPError(err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %w", ErrGCPCredentials, err)
	default:
		return err
	}
}

// audioEncoding converts a format string to a GCP audio encoding
func audioEncoding(format string) texttospeechpb.AudioEncoding {
	switch strings.ToLower(format) {
	case "wav", "linear16", "pcm":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "ogg", "ogg_opus", "opus":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	case "mulaw":
		return texttospeechpb.AudioEncoding_MULAW
	case "alaw":
		return texttospeechpb.AudioEncoding_ALAW
	default:
		return texttospeechpb.AudioEncoding_MP3
	}
}

// speakingRate clamps speed to the 0.25 to 4.0 range GCP accepts.
func speakingRate(speed float64) float64 {
	switch {
	case speed <= 0:
		return 1.0
	case speed < 0.25:
		return 0.25
	case speed > 4.0:
		return 4.0
	default:
		return speed
	}
}

// sampleRateHertz returns the sample rate in Hz, 0 for the voice default
func sampleRateHertz(sampleRate string) int32 {
	switch sampleRate {
	case "8000":
		return 8000
	case "16000":
		return 16000
	case "22050":
		return 22050
	case "24000":
		return 24000
	case "44100":
		return 44100
	case "48000":
		return 48000
	default:
		return 0
	}
}

// IsAvailable checks if the GCP TTS service is reachable with the current
// credentials.
func (p *GCPProvider) IsAvailable(ctx context.Context) bool {
	// Try to list voices as a health check
	_, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: p.language})
	if err != nil {
		log.Debug().Str("code", status.Code(err).String()).Msg("GCP TTS not available")
		return false
	}
	return true
}

// Close closes the GCP client
func (p *GCPProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
