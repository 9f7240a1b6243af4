package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultConnectTimeout = 10 * time.Second
	utteranceBuffer       = 16
)

// Event types exchanged with the room signaling endpoint.
const (
	EventJoin              = "join"
	EventRoomState         = "room_state"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventTranscription     = "transcription"
	EventError             = "error"
)

// Event is one signaling frame.
type Event struct {
	Type         string        `json:"type"`
	Room         string        `json:"room,omitempty"`
	Identity     string        `json:"identity,omitempty"`
	Participant  *Participant  `json:"participant,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Text         string        `json:"text,omitempty"`
	Final        bool          `json:"final,omitempty"`
	Noise        string        `json:"noise_cancellation,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// DialOptions configures a room connection.
type DialOptions struct {
	URL      string
	Room     string
	Token    string
	Identity string
	// Noise names the noise filter to request. Empty requests none.
	Noise string
	// Ignore lists identities whose transcriptions are not utterances,
	// typically the personas' own avatars.
	Ignore []string
}

// Client is a websocket connection to the room signaling endpoint.
type Client struct {
	conn   *websocket.Conn
	room   string
	ignore map[string]bool

	roster     *roster
	utterances chan string
	done       chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial joins the room and starts reading events.
func Dial(ctx context.Context, opts DialOptions) (*Client, error) {
	wsURL, err := signalURL(opts.URL)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	if opts.Token != "" {
		headers.Set("Authorization", "Bearer "+opts.Token)
	}

	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial room (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial room: %w", err)
	}

	c := &Client{
		conn:       conn,
		room:       opts.Room,
		ignore:     make(map[string]bool, len(opts.Ignore)+1),
		roster:     newRoster(),
		utterances: make(chan string, utteranceBuffer),
		done:       make(chan struct{}),
	}
	for _, id := range opts.Ignore {
		c.ignore[id] = true
	}
	if opts.Identity != "" {
		c.ignore[opts.Identity] = true
	}

	if err := c.send(Event{Type: EventJoin, Room: opts.Room, Identity: opts.Identity, Noise: opts.Noise}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to join room %s: %w", opts.Room, err)
	}

	log.Info().Str("room", opts.Room).Str("identity", opts.Identity).Msg("Joined room")
	go c.readLoop()
	return c, nil
}

// signalURL rewrites an http(s) room URL to its websocket signaling URL.
func signalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid room URL %q", raw)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported room URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/agent"
	return u.String(), nil
}

// Name returns the room name.
func (c *Client) Name() string { return c.room }

// RemoteParticipants returns participants in join order.
func (c *Client) RemoteParticipants() []Participant { return c.roster.list() }

// Utterances yields final transcriptions from human participants. The
// channel is closed when the connection ends.
func (c *Client) Utterances() <-chan string { return c.utterances }

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close leaves the room and waits for the read loop to stop.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) send(e Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(e)
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.utterances)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				return
			}
			c.setErr(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed room event")
			continue
		}
		c.handle(e)
	}
}

func (c *Client) handle(e Event) {
	switch e.Type {
	case EventRoomState:
		for _, p := range e.Participants {
			c.roster.add(p)
		}
	case EventParticipantJoined:
		if e.Participant != nil {
			c.roster.add(*e.Participant)
			log.Debug().Str("identity", e.Participant.Identity).Msg("Participant joined")
		}
	case EventParticipantLeft:
		if e.Participant != nil {
			c.roster.remove(e.Participant.Identity)
			log.Debug().Str("identity", e.Participant.Identity).Msg("Participant left")
		}
	case EventTranscription:
		if !e.Final || strings.TrimSpace(e.Text) == "" {
			return
		}
		if e.Participant != nil && c.ignore[e.Participant.Identity] {
			return
		}
		select {
		case c.utterances <- strings.TrimSpace(e.Text):
		default:
			log.Warn().Str("text", e.Text).Msg("Utterance buffer full, dropping")
		}
	case EventError:
		log.Error().Str("message", e.Message).Msg("Room error")
	default:
		log.Debug().Str("type", e.Type).Msg("Ignoring room event")
	}
}
