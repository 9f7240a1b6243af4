package voice

import (
	"context"
	"io"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MockGCPClient is a mock for the GCP TTS client
type MockGCPClient struct {
	mock.Mock
}

func (m *MockGCPClient) ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*texttospeechpb.ListVoicesResponse), args.Error(1)
}

func (m *MockGCPClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*texttospeechpb.SynthesizeSpeechResponse), args.Error(1)
}

func (m *MockGCPClient) Close() error {
	return m.Called().Error(0)
}

func TestGCPProvider_Name(t *testing.T) {
	p := &GCPProvider{}
	assert.Equal(t, "gcp", p.Name())
}

func TestDetectEngineType(t *testing.T) {
	tests := []struct {
		voiceName string
		expected  string
	}{
		{"en-US-Wavenet-A", "WaveNet"},
		{"en-US-Neural2-F", "Neural2"},
		{"en-US-Studio-O", "Studio"},
		{"en-US-Chirp3-HD-Charon", "Chirp"},
		{"en-US-News-K", "News"},
		{"en-US-Casual-K", "Casual"},
		{"unknown-voice", "Standard"},
	}

	for _, tt := range tests {
		t.Run(tt.voiceName, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectEngineType(tt.voiceName))
		})
	}
}

func TestAudioEncoding(t *testing.T) {
	tests := []struct {
		format   string
		expected texttospeechpb.AudioEncoding
	}{
		{"mp3", texttospeechpb.AudioEncoding_MP3},
		{"MP3", texttospeechpb.AudioEncoding_MP3},
		{"wav", texttospeechpb.AudioEncoding_LINEAR16},
		{"pcm", texttospeechpb.AudioEncoding_LINEAR16},
		{"ogg", texttospeechpb.AudioEncoding_OGG_OPUS},
		{"mulaw", texttospeechpb.AudioEncoding_MULAW},
		{"", texttospeechpb.AudioEncoding_MP3},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.expected, audioEncoding(tt.format))
		})
	}
}

func TestSpeakingRate(t *testing.T) {
	assert.Equal(t, 1.0, speakingRate(0))
	assert.Equal(t, 0.25, speakingRate(0.1))
	assert.Equal(t, 4.0, speakingRate(9))
	assert.Equal(t, 1.5, speakingRate(1.5))
}

func TestGCPProvider_ListVoices(t *testing.T) {
	client := &MockGCPClient{}
	p := newGCPProvider(client)

	client.On("ListVoices", mock.Anything, mock.MatchedBy(func(r *texttospeechpb.ListVoicesRequest) bool {
		return r.LanguageCode == "en-US"
	})).Return(&texttospeechpb.ListVoicesResponse{
		Voices: []*texttospeechpb.Voice{
			{Name: "en-US-Neural2-F", LanguageCodes: []string{"en-US"}, SsmlGender: texttospeechpb.SsmlVoiceGender_FEMALE},
			{Name: "en-US-Wavenet-D", LanguageCodes: []string{"en-US"}, SsmlGender: texttospeechpb.SsmlVoiceGender_MALE},
		},
	}, nil)

	voices, err := p.ListVoices(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, voices, 2) {
		assert.Equal(t, "female", voices[0].Gender)
		assert.Equal(t, "Neural2 voice (en-US)", voices[0].Description)
		assert.Equal(t, "male", voices[1].Gender)
	}
	client.AssertExpectations(t)
}

func TestGCPProvider_Synthesize(t *testing.T) {
	client := &MockGCPClient{}
	p := newGCPProvider(client)

	client.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(r *texttospeechpb.SynthesizeSpeechRequest) bool {
		return r.Voice.Name == "en-GB-Neural2-B" &&
			r.Voice.LanguageCode == "en-GB" &&
			r.GetInput().GetText() == "Darling, hollandaise is patience." &&
			r.AudioConfig.AudioEncoding == texttospeechpb.AudioEncoding_MP3
	})).Return(&texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("audio")}, nil)

	rc, err := p.Synthesize(context.Background(), "Darling, hollandaise is patience.", SynthesizeOptions{Voice: "en-GB-Neural2-B"})
	assert.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "audio", string(data))
	client.AssertExpectations(t)
}

func TestGCPProvider_SynthesizeSSML(t *testing.T) {
	client := &MockGCPClient{}
	p := newGCPProvider(client)

	client.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(r *texttospeechpb.SynthesizeSpeechRequest) bool {
		return r.GetInput().GetSsml() != ""
	})).Return(&texttospeechpb.SynthesizeSpeechResponse{}, nil)

	_, err := p.Synthesize(context.Background(), "<speak>Fo shizzle</speak>", SynthesizeOptions{})
	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestGCPProvider_CredentialErrors(t *testing.T) {
	client := &MockGCPClient{}
	p := newGCPProvider(client)

	client.On("SynthesizeSpeech", mock.Anything, mock.Anything).
		Return(nil, status.Error(codes.Unauthenticated, "no ADC"))

	_, err := p.Synthesize(context.Background(), "hello", SynthesizeOptions{})
	assert.ErrorIs(t, err, ErrGCPCredentials)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGCPProvider_IsAvailable(t *testing.T) {
	client := &MockGCPClient{}
	p := newGCPProvider(client)
	client.On("ListVoices", mock.Anything, mock.Anything).Return(nil, status.Error(codes.Unavailable, "down")).Once()
	client.On("ListVoices", mock.Anything, mock.Anything).Return(&texttospeechpb.ListVoicesResponse{}, nil).Once()

	assert.False(t, p.IsAvailable(context.Background()))
	assert.True(t, p.IsAvailable(context.Background()))
}

func TestGCPProvider_Close(t *testing.T) {
	client := &MockGCPClient{}
	client.On("Close").Return(nil).Once()

	assert.NoError(t, newGCPProvider(client).Close())
	assert.NoError(t, (&GCPProvider{}).Close())
	client.AssertExpectations(t)
}
