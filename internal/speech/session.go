// Package speech turns persona instructions into spoken replies.
package speech

import (
	"context"
	"errors"
	"io"

	"github.com/daikw/duet/internal/conversation"
	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
)

var (
	// ErrNotStarted is returned by a session used before Start or after Close.
	ErrNotStarted = errors.New("speech session not started")
	// ErrNoSink is returned when no audio sink is attached for a persona.
	ErrNoSink = errors.New("no audio sink for persona")
)

// ReplyRequest asks the session to speak as Persona.
type ReplyRequest struct {
	Persona      persona.Definition
	Instructions string
	History      conversation.Context
	Tools        []llm.Tool
}

// Reply is what was spoken, plus any tools the model asked to call.
type Reply struct {
	Text      string
	ToolCalls []llm.ToolCall
}

// Session is a conversational voice session. One session may speak for
// several personas; the persona of each reply travels in the request.
type Session interface {
	Start(ctx context.Context) error
	// GenerateReply blocks until the reply has been rendered.
	GenerateReply(ctx context.Context, req ReplyRequest) (Reply, error)
	// Say speaks text verbatim in def's voice.
	Say(ctx context.Context, def persona.Definition, text string) error
	Close(ctx context.Context) error
}

// AudioSink receives synthesized audio for one persona, typically the
// persona's avatar.
type AudioSink interface {
	PushAudio(ctx context.Context, audio io.Reader, format string) error
}
