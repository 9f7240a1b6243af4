package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPollyClient is a mock implementation of the Polly API client
type MockPollyClient struct {
	mock.Mock
}

func (m *MockPollyClient) DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error) {
	args := m.Called(ctx, params)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*polly.DescribeVoicesOutput), args.Error(1)
}

func (m *MockPollyClient) SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	args := m.Called(ctx, params)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*polly.SynthesizeSpeechOutput), args.Error(1)
}

func audioOutput(data string) *polly.SynthesizeSpeechOutput {
	return &polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(strings.NewReader(data)),
		ContentType: aws.String("audio/mpeg"),
	}
}

func TestPollyProvider_Name(t *testing.T) {
	provider := &PollyProvider{}
	assert.Equal(t, "polly", provider.Name())
}

func TestPollyProvider_ListVoices(t *testing.T) {
	tests := []struct {
		name           string
		mockResponse   *polly.DescribeVoicesOutput
		mockError      error
		expectedVoices []Voice
		expectedError  string
	}{
		{
			name: "successful voice listing",
			mockResponse: &polly.DescribeVoicesOutput{
				Voices: []types.Voice{
					{
						Id:               types.VoiceId("Joanna"),
						Name:             aws.String("Joanna"),
						LanguageCode:     types.LanguageCode("en-US"),
						Gender:           types.GenderFemale,
						SupportedEngines: []types.Engine{types.EngineNeural, types.EngineStandard},
					},
					{
						Id:               types.VoiceId("Matthew"),
						Name:             aws.String("Matthew"),
						LanguageCode:     types.LanguageCode("en-US"),
						Gender:           types.GenderMale,
						SupportedEngines: []types.Engine{types.EngineNeural},
					},
				},
			},
			expectedVoices: []Voice{
				{
					ID:          "Joanna",
					Name:        "Joanna",
					Language:    "en-US",
					Gender:      "female",
					Description: "Female voice, neural, standard engine supported",
				},
				{
					ID:          "Matthew",
					Name:        "Matthew",
					Language:    "en-US",
					Gender:      "male",
					Description: "Male voice, neural engine supported",
				},
			},
		},
		{
			name:          "API error",
			mockError:     errors.New("API error"),
			expectedError: "failed to list Polly voices: API error",
		},
		{
			name:           "empty voice list",
			mockResponse:   &polly.DescribeVoicesOutput{Voices: []types.Voice{}},
			expectedVoices: []Voice{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &MockPollyClient{}
			provider := &PollyProvider{client: mockClient, region: "us-east-1"}

			mockClient.On("DescribeVoices", mock.Anything, mock.Anything).Return(tt.mockResponse, tt.mockError)

			voices, err := provider.ListVoices(context.Background())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedVoices, voices)
			}

			mockClient.AssertExpectations(t)
		})
	}
}

func TestPollyProvider_ListVoicesByLanguage(t *testing.T) {
	mockClient := &MockPollyClient{}
	provider := &PollyProvider{client: mockClient}

	mockClient.On("DescribeVoices", mock.Anything, mock.MatchedBy(func(in *polly.DescribeVoicesInput) bool {
		return in.LanguageCode == types.LanguageCode("en-GB")
	})).Return(&polly.DescribeVoicesOutput{
		Voices: []types.Voice{{Id: types.VoiceId("Amy"), Name: aws.String("Amy"), LanguageCode: "en-GB", Gender: types.GenderFemale}},
	}, nil)

	voices, err := provider.ListVoicesByLanguage(context.Background(), "en-GB")
	assert.NoError(t, err)
	if assert.Len(t, voices, 1) {
		assert.Equal(t, "Amy", voices[0].ID)
		assert.Equal(t, "Female voice, unknown engine supported", voices[0].Description)
	}
	mockClient.AssertExpectations(t)
}

func TestPollyProvider_Synthesize(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		options       SynthesizeOptions
		mockResponse  *polly.SynthesizeSpeechOutput
		mockError     error
		expectedError string
		validateInput func(*testing.T, *polly.SynthesizeSpeechInput)
	}{
		{
			name:         "defaults",
			text:         "Hello world",
			mockResponse: audioOutput("mock audio data"),
			validateInput: func(t *testing.T, input *polly.SynthesizeSpeechInput) {
				assert.Equal(t, "Hello world", *input.Text)
				assert.Equal(t, types.VoiceId("Joanna"), input.VoiceId)
				assert.Equal(t, types.OutputFormatMp3, input.OutputFormat)
				assert.Equal(t, types.EngineNeural, input.Engine)
				assert.Equal(t, types.TextTypeText, input.TextType)
				assert.Nil(t, input.SampleRate)
			},
		},
		{
			name: "custom options",
			text: "Custom text",
			options: SynthesizeOptions{
				Voice:      "Matthew",
				Format:     "ogg",
				Engine:     "standard",
				SampleRate: "16000",
			},
			mockResponse: audioOutput("mock audio data"),
			validateInput: func(t *testing.T, input *polly.SynthesizeSpeechInput) {
				assert.Equal(t, types.VoiceId("Matthew"), input.VoiceId)
				assert.Equal(t, types.OutputFormatOggVorbis, input.OutputFormat)
				assert.Equal(t, types.EngineStandard, input.Engine)
				assert.Equal(t, "16000", *input.SampleRate)
			},
		},
		{
			name:         "SSML",
			text:         "<speak>Hello <prosody rate='slow'>world</prosody></speak>",
			mockResponse: audioOutput("mock audio data"),
			validateInput: func(t *testing.T, input *polly.SynthesizeSpeechInput) {
				assert.Equal(t, types.TextTypeSsml, input.TextType)
			},
		},
		{
			name:          "empty text error",
			expectedError: "text cannot be empty",
		},
		{
			name:          "unsupported format error",
			text:          "Hello",
			options:       SynthesizeOptions{Format: "flac"},
			expectedError: "unsupported audio format: flac",
		},
		{
			name:          "API synthesis error",
			text:          "Hello",
			mockError:     errors.New("synthesis failed"),
			expectedError: "failed to synthesize speech: synthesis failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &MockPollyClient{}
			provider := &PollyProvider{client: mockClient, region: "us-east-1"}

			if tt.expectedError == "" || tt.mockError != nil {
				mockClient.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(input *polly.SynthesizeSpeechInput) bool {
					if tt.validateInput != nil {
						tt.validateInput(t, input)
					}
					return true
				})).Return(tt.mockResponse, tt.mockError)
			}

			result, err := provider.Synthesize(context.Background(), tt.text, tt.options)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				data, readErr := io.ReadAll(result)
				assert.NoError(t, readErr)
				assert.Equal(t, "mock audio data", string(data))
			}

			mockClient.AssertExpectations(t)
		})
	}
}

func TestPollyProvider_Synthesize_EngineValidation(t *testing.T) {
	tests := []struct {
		engine   string
		expected types.Engine
	}{
		{"neural", types.EngineNeural},
		{"standard", types.EngineStandard},
		{"long-form", types.EngineLongForm},
		{"generative", types.EngineGenerative},
		{"NEURAL", types.EngineNeural},
		{"invalid", types.EngineNeural},
		{"", types.EngineNeural},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("engine_%s", tt.engine), func(t *testing.T) {
			mockClient := &MockPollyClient{}
			provider := &PollyProvider{client: mockClient}

			mockClient.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(input *polly.SynthesizeSpeechInput) bool {
				return input.Engine == tt.expected
			})).Return(audioOutput("test"), nil)

			_, err := provider.Synthesize(context.Background(), "test", SynthesizeOptions{Engine: tt.engine})
			assert.NoError(t, err)
			mockClient.AssertExpectations(t)
		})
	}
}

func TestPollyProvider_IsAvailable(t *testing.T) {
	tests := []struct {
		name          string
		mockResponse  *polly.DescribeVoicesOutput
		mockError     error
		expectedAvail bool
	}{
		{"service available", &polly.DescribeVoicesOutput{Voices: []types.Voice{{Id: types.VoiceId("test")}}}, nil, true},
		{"service unavailable", nil, errors.New("network error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &MockPollyClient{}
			provider := &PollyProvider{client: mockClient}

			mockClient.On("DescribeVoices", mock.Anything, mock.Anything).Return(tt.mockResponse, tt.mockError)

			assert.Equal(t, tt.expectedAvail, provider.IsAvailable(context.Background()))
			mockClient.AssertExpectations(t)
		})
	}
}

func TestFormatSupportedEngines(t *testing.T) {
	assert.Equal(t, "unknown", formatSupportedEngines(nil))
	assert.Equal(t, "neural, generative", formatSupportedEngines([]types.Engine{types.EngineNeural, types.EngineGenerative}))
}
