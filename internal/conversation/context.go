package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one exchanged line of dialogue.
type Message struct {
	Role    Role      `json:"role"`
	Speaker string    `json:"speaker,omitempty"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// UserMessage builds a message spoken by the human participant.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Speaker: "user", Content: text, At: time.Now()}
}

// AssistantMessage builds a message spoken by a persona.
func AssistantMessage(speaker, text string) Message {
	return Message{Role: RoleAssistant, Speaker: speaker, Content: text, At: time.Now()}
}

// Context is an immutable, ordered dialogue history. The zero value is an
// empty history. Append never modifies the receiver, so a Context can be
// handed to a new persona instance as a snapshot.
type Context struct {
	msgs []Message
}

// NewContext copies msgs into a new Context.
func NewContext(msgs ...Message) Context {
	return Context{}.Append(msgs...)
}

// Append returns a new Context with msgs added to the end.
func (c Context) Append(msgs ...Message) Context {
	if len(msgs) == 0 {
		return c
	}
	out := make([]Message, 0, len(c.msgs)+len(msgs))
	out = append(out, c.msgs...)
	out = append(out, msgs...)
	return Context{msgs: out}
}

// Messages returns a copy of the history.
func (c Context) Messages() []Message {
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len reports the number of messages.
func (c Context) Len() int {
	return len(c.msgs)
}

// Last returns at most the n most recent messages as a new Context.
func (c Context) Last(n int) Context {
	if n <= 0 {
		return Context{}
	}
	if n >= len(c.msgs) {
		return c
	}
	return NewContext(c.msgs[len(c.msgs)-n:]...)
}

// Transcript renders the history as "speaker: content" lines.
func (c Context) Transcript() string {
	var b strings.Builder
	for _, m := range c.msgs {
		speaker := m.Speaker
		if speaker == "" {
			speaker = string(m.Role)
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}
	return b.String()
}
