package avatar

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
	DefaultBaseURL   = "https://api.hedra.com/public/livekit/v1"
	SessionsEndpoint = "/sessions"
)

// TokenFunc mints a room access token for the avatar participant.
type TokenFunc func(room, identity, name string) (string, error)

// HTTPService starts avatar sessions through the avatar provider's REST API.
// The provider joins the room itself using the URL and token it is given.
type HTTPService struct {
	apiKey     string
	baseURL    string
	roomURL    string
	token      TokenFunc
	httpClient *http.Client
}

// HTTPOption configures an HTTPService.
type HTTPOption func(*HTTPService)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) HTTPOption {
	return func(s *HTTPService) {
		s.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithRoomAccess gives the service what the avatar needs to join the room.
func WithRoomAccess(roomURL string, token TokenFunc) HTTPOption {
	return func(s *HTTPService) {
		s.roomURL = roomURL
		s.token = token
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPService) {
		s.httpClient = c
	}
}

// NewHTTPService creates a REST-backed avatar service.
func NewHTTPService(apiKey string, opts ...HTTPOption) *HTTPService {
	s := &HTTPService{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type startBody struct {
	AvatarID            string `json:"avatar_id"`
	Room                string `json:"room"`
	ParticipantIdentity string `json:"participant_identity,omitempty"`
	ParticipantName     string `json:"participant_name,omitempty"`
	RoomURL             string `json:"livekit_url,omitempty"`
	RoomToken           string `json:"livekit_token,omitempty"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// APIError is a non-2xx response from the avatar API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("avatar API error: status %d, body: %s", e.Status, e.Body)
}

// Start creates a remote avatar session and waits for the API to report it
// ready.
func (s *HTTPService) Start(ctx context.Context, req StartRequest) (Handle, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("avatar API key is not configured")
	}
	if req.AvatarID == "" {
		return nil, fmt.Errorf("avatar id cannot be empty")
	}

	body := startBody{
		AvatarID:            req.AvatarID,
		Room:                req.Room,
		ParticipantIdentity: req.Identity,
		ParticipantName:     req.DisplayName,
		RoomURL:             s.roomURL,
	}
	if s.token != nil {
		tok, err := s.token(req.Room, req.Identity, req.DisplayName)
		if err != nil {
			return nil, fmt.Errorf("failed to mint avatar room token: %w", err)
		}
		body.RoomToken = tok
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := s.baseURL + SessionsEndpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", s.apiKey)

	log.Debug().
		Str("endpoint", endpoint).
		Str("avatar_id", req.AvatarID).
		Str("room", req.Room).
		Msg("Making avatar start request")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var out startResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode avatar start response: %w", err)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("avatar start response has no session id")
	}
	if out.Status != "" && out.Status != "ready" {
		return nil, fmt.Errorf("avatar session %s not ready: %s", out.SessionID, out.Status)
	}

	return &httpHandle{svc: s, id: out.SessionID}, nil
}

type httpHandle struct {
	svc *HTTPService
	id  string
}

func (h *httpHandle) sessionURL() string {
	return h.svc.baseURL + SessionsEndpoint + "/" + h.id
}

func (h *httpHandle) PushAudio(ctx context.Context, audio io.Reader, format string) error {
	if format == "" {
		format = "mp3"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.sessionURL()+"/audio", audio)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", audioContentType(format))
	req.Header.Set("X-API-Key", h.svc.apiKey)

	resp, err := h.svc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	return nil
}

func (h *httpHandle) Close(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.sessionURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", h.svc.apiKey)

	resp, err := h.svc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to close avatar session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusNotFound {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	return nil
}

func audioContentType(format string) string {
	switch strings.ToLower(format) {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	case "ogg", "opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
