package persona

import (
	"fmt"
	"strings"
)

// UtterancePlaceholder is replaced with the human's words in ReplyTemplate.
const UtterancePlaceholder = "{utterance}"

// Definition describes one persona. Values are copied around freely and
// never mutated after the catalog is built.
type Definition struct {
	Identity      string `json:"identity"`
	DisplayName   string `json:"display_name,omitempty"`
	Voice         string `json:"voice"`
	AvatarID      string `json:"avatar_id"`
	Instructions  string `json:"instructions"`
	Greeting      string `json:"greeting,omitempty"`
	ReplyTemplate string `json:"reply_template,omitempty"`
	HandoffLine   string `json:"handoff_line,omitempty"`
	AgentName     string `json:"agent_name,omitempty"`
	Port          int    `json:"port,omitempty"`
}

// Validate checks that the fields needed to bring the persona into a room
// are present.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Identity) == "" {
		return fmt.Errorf("persona identity cannot be empty")
	}
	if d.Voice == "" {
		return fmt.Errorf("persona %q: voice cannot be empty", d.Identity)
	}
	if d.AvatarID == "" {
		return fmt.Errorf("persona %q: avatar id cannot be empty", d.Identity)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("persona %q: invalid port %d", d.Identity, d.Port)
	}
	return nil
}

// Name returns the display name, falling back to the identity.
func (d Definition) Name() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Identity
}

// ReplyInstructions renders the per-utterance instruction with the
// utterance embedded verbatim.
func (d Definition) ReplyInstructions(utterance string) string {
	tmpl := d.ReplyTemplate
	if tmpl == "" {
		tmpl = "Respond to: '" + UtterancePlaceholder + "'."
	}
	if !strings.Contains(tmpl, UtterancePlaceholder) {
		return tmpl + " The audience said: '" + utterance + "'."
	}
	return strings.ReplaceAll(tmpl, UtterancePlaceholder, utterance)
}

// merge overlays the non-empty fields of o onto d.
func (d Definition) merge(o Definition) Definition {
	if o.DisplayName != "" {
		d.DisplayName = o.DisplayName
	}
	if o.Voice != "" {
		d.Voice = o.Voice
	}
	if o.AvatarID != "" {
		d.AvatarID = o.AvatarID
	}
	if o.Instructions != "" {
		d.Instructions = o.Instructions
	}
	if o.Greeting != "" {
		d.Greeting = o.Greeting
	}
	if o.ReplyTemplate != "" {
		d.ReplyTemplate = o.ReplyTemplate
	}
	if o.HandoffLine != "" {
		d.HandoffLine = o.HandoffLine
	}
	if o.AgentName != "" {
		d.AgentName = o.AgentName
	}
	if o.Port != 0 {
		d.Port = o.Port
	}
	return d
}
