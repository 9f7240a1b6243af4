package avatar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPService_StartPushClose(t *testing.T) {
	var (
		gotStart startBody
		gotAudio string
		deleted  bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sessions":
			_ = json.NewDecoder(r.Body).Decode(&gotStart)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"session_id":"s-1","status":"ready"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/sessions/s-1/audio":
			assert.Equal(t, "audio/mpeg", r.Header.Get("Content-Type"))
			b, _ := io.ReadAll(r.Body)
			gotAudio = string(b)
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodDelete && r.URL.Path == "/sessions/s-1":
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewHTTPService("secret",
		WithBaseURL(srv.URL+"/"),
		WithRoomAccess("wss://rooms.example", func(room, identity, name string) (string, error) {
			return "tok-" + room + "-" + identity, nil
		}),
	)

	h, err := svc.Start(context.Background(), StartRequest{
		AvatarID:    "avatar-m",
		Room:        "kitchen",
		Identity:    "martha-avatar",
		DisplayName: "Martha",
	})
	require.NoError(t, err)

	assert.Equal(t, "avatar-m", gotStart.AvatarID)
	assert.Equal(t, "kitchen", gotStart.Room)
	assert.Equal(t, "wss://rooms.example", gotStart.RoomURL)
	assert.Equal(t, "tok-kitchen-martha-avatar", gotStart.RoomToken)

	require.NoError(t, h.PushAudio(context.Background(), strings.NewReader("mp3-data"), "mp3"))
	assert.Equal(t, "mp3-data", gotAudio)

	require.NoError(t, h.Close(context.Background()))
	assert.True(t, deleted)
}

func TestHTTPService_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":"slow down"}`, "status 429"},
		{"no session", http.StatusOK, `{"status":"ready"}`, "no session id"},
		{"not ready", http.StatusOK, `{"session_id":"s","status":"queued"}`, "not ready"},
		{"bad json", http.StatusOK, `{`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewHTTPService("secret", WithBaseURL(srv.URL))
			_, err := svc.Start(context.Background(), StartRequest{AvatarID: "a", Room: "r"})
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHTTPService_RequiresKeyAndAvatar(t *testing.T) {
	_, err := NewHTTPService("").Start(context.Background(), StartRequest{AvatarID: "a"})
	assert.ErrorContains(t, err, "API key")

	_, err = NewHTTPService("k").Start(context.Background(), StartRequest{})
	assert.ErrorContains(t, err, "avatar id")
}

func TestAudioContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", audioContentType("MP3"))
	assert.Equal(t, "audio/wav", audioContentType("wav"))
	assert.Equal(t, "audio/ogg", audioContentType("opus"))
	assert.Equal(t, "application/octet-stream", audioContentType("flac"))
}
