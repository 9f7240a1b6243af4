package room

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAndIdentities(t *testing.T) {
	r := Static{RoomName: "kitchen", Participants: []Participant{{Identity: "zoe"}, {Identity: "al"}}}
	assert.Equal(t, "kitchen", r.Name())
	assert.Equal(t, []string{"al", "zoe"}, Identities(r))

	ps := r.RemoteParticipants()
	ps[0].Identity = "changed"
	assert.Equal(t, "zoe", r.Participants[0].Identity)
}

func TestRoster(t *testing.T) {
	ro := newRoster()
	ro.add(Participant{Identity: "a"})
	ro.add(Participant{Identity: "b"})
	ro.add(Participant{Identity: "a", Name: "Alice"})
	ro.remove("missing")

	assert.Equal(t, []Participant{{Identity: "a", Name: "Alice"}, {Identity: "b"}}, ro.list())

	ro.remove("a")
	assert.Equal(t, []Participant{{Identity: "b"}}, ro.list())
}

func TestAccessToken(t *testing.T) {
	signed, err := AccessToken("key", "secret", Grant{Room: "kitchen", Identity: "guest", CanPublish: true}, time.Minute)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, tok.Valid)

	assert.Equal(t, "key", claims["iss"])
	assert.Equal(t, "guest", claims["sub"])
	assert.Equal(t, "guest", claims["name"])
	assert.NotEmpty(t, claims["jti"])

	video, ok := claims["video"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "kitchen", video["room"])
	assert.Equal(t, true, video["roomJoin"])
	assert.Equal(t, true, video["canPublish"])
	assert.Equal(t, false, video["canSubscribe"])
}

func TestAccessToken_Validation(t *testing.T) {
	_, err := AccessToken("", "s", Grant{Room: "r", Identity: "i"}, 0)
	assert.ErrorContains(t, err, "key/secret")

	_, err = AccessToken("k", "s", Grant{Identity: "i"}, 0)
	assert.ErrorContains(t, err, "room and identity")
}

func TestTokenSource(t *testing.T) {
	src := TokenSource{APIKey: "k", APISecret: "s"}
	signed, err := src.Token("kitchen", "martha-avatar", "Martha")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return []byte("s"), nil })
	require.NoError(t, err)
	assert.Equal(t, "Martha", claims["name"])
}

func TestSignalURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://rooms.example.com", "wss://rooms.example.com/agent", false},
		{"http://localhost:7880/", "ws://localhost:7880/agent", false},
		{"wss://rooms.example.com/base", "wss://rooms.example.com/base/agent", false},
		{"ftp://x", "", true},
		{"not a url", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := signalURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient(t *testing.T) {
	joined := make(chan Event, 1)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		var join Event
		if !assert.NoError(t, conn.ReadJSON(&join)) {
			return
		}
		joined <- join

		frames := []Event{
			{Type: EventRoomState, Participants: []Participant{{Identity: "guest", Name: "Guest"}}},
			{Type: EventParticipantJoined, Participant: &Participant{Identity: "martha-avatar"}},
			{Type: EventTranscription, Participant: &Participant{Identity: "guest"}, Text: "hel", Final: false},
			{Type: EventTranscription, Participant: &Participant{Identity: "martha-avatar"}, Text: "Welcome", Final: true},
			{Type: EventTranscription, Participant: &Participant{Identity: "guest"}, Text: " hello ", Final: true},
		}
		for _, f := range frames {
			assert.NoError(t, conn.WriteJSON(f))
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		assert.NoError(t, conn.WriteJSON(Event{Type: EventTranscription, Participant: &Participant{Identity: "guest"}, Text: "bye", Final: true}))

		// hold the connection until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c, err := Dial(context.Background(), DialOptions{
		URL:      server.URL,
		Room:     "kitchen",
		Token:    "tok",
		Identity: "duet",
		Noise:    "bvc",
		Ignore:   []string{"martha-avatar"},
	})
	require.NoError(t, err)

	join := <-joined
	assert.Equal(t, EventJoin, join.Type)
	assert.Equal(t, "kitchen", join.Room)
	assert.Equal(t, "bvc", join.Noise)

	assert.Equal(t, "hello", <-c.Utterances())
	assert.Equal(t, "bye", <-c.Utterances())

	assert.Equal(t, "kitchen", c.Name())
	assert.Equal(t, []string{"guest", "martha-avatar"}, Identities(c))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, open := <-c.Utterances()
	assert.False(t, open)
}

func TestDial_BadURL(t *testing.T) {
	_, err := Dial(context.Background(), DialOptions{URL: "ftp://nope"})
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	c := NewConsole("console", strings.NewReader("hello\n\n  what's for dessert?  \n"), Participant{Identity: "you"})

	var got []string
	for u := range c.Utterances() {
		got = append(got, u)
	}
	assert.Equal(t, []string{"hello", "what's for dessert?"}, got)
	assert.Equal(t, []string{"you"}, Identities(c))
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNoiseFilters(t *testing.T) {
	filters := NewNoiseFilters(
		NoiseFilter{Name: "bvc", Available: func() bool { return true }},
		NoiseFilter{Name: "krisp", Available: func() bool { return false }},
	)
	assert.Equal(t, []string{"bvc", "krisp"}, filters.Names())

	assert.Equal(t, "bvc", FilterName(filters.Resolve("bvc")))
	assert.Nil(t, filters.Resolve("krisp"))
	assert.Nil(t, filters.Resolve("unknown"))
	assert.Nil(t, filters.Resolve(""))
	assert.Nil(t, filters.Resolve("none"))
	assert.Equal(t, "", FilterName(nil))
}
