// Package turnlog records what each persona said during a conversation.
package turnlog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind classifies an entry.
type Kind string

const (
	KindGreeting Kind = "greeting"
	KindReply    Kind = "reply"
	KindHandoff  Kind = "handoff"
	KindLine     Kind = "line"
)

// Entry is one recorded turn.
type Entry struct {
	JobID     string    `json:"job_id"`
	Seq       int       `json:"seq"`
	At        time.Time `json:"at"`
	Kind      Kind      `json:"kind"`
	Role      string    `json:"role"`
	Persona   string    `json:"persona"`
	Text      string    `json:"text,omitempty"`
	Utterance string    `json:"utterance,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	TurnCount int       `json:"turn_count"`
}

// Recorder stores entries. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record does nothing.
func (Nop) Record(context.Context, Entry) error { return nil }

// LogRecorder writes entries to the global logger.
type LogRecorder struct{}

// Record logs e at info level.
func (LogRecorder) Record(_ context.Context, e Entry) error {
	log.Info().
		Str("job", e.JobID).
		Int("seq", e.Seq).
		Str("kind", string(e.Kind)).
		Str("role", e.Role).
		Str("persona", e.Persona).
		Str("topic", e.Topic).
		Int("turn_count", e.TurnCount).
		Str("text", e.Text).
		Msg("Turn")
	return nil
}

// Multi records to every recorder in turn and joins their errors.
type Multi []Recorder

// Record passes e to each recorder.
func (m Multi) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
