package turn

import (
	"strings"

	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
)

// HandoffToolPrefix prefixes the name of every handoff tool.
const HandoffToolPrefix = "handoff_to_"

// TopicParam is the optional topic argument of a handoff tool.
const TopicParam = "topic"

// HandoffToolName returns the tool name that transfers the floor to target.
func HandoffToolName(target persona.Definition) string {
	return HandoffToolPrefix + target.Identity
}

// HandoffTool describes the tool that transfers the floor to target.
func HandoffTool(target persona.Definition) llm.Tool {
	return llm.Tool{
		Name: HandoffToolName(target),
		Description: "Hand the conversation over to " + target.Name() +
			". Call this when " + target.Name() + " should speak next.",
		Params: []llm.Param{{
			Name:        TopicParam,
			Description: "Optional topic for " + target.Name() + " to pick up",
		}},
	}
}

// ToolsFor returns the handoff tools available to the persona at r.
func ToolsFor(ro Roster, r Role) []llm.Tool {
	return []llm.Tool{HandoffTool(ro.Persona(r.Other()))}
}

// ParseHandoff reports whether call is a handoff tool for a persona in the
// roster and returns the target role and topic.
func ParseHandoff(call llm.ToolCall, ro Roster) (to Role, topic string, ok bool) {
	identity, found := strings.CutPrefix(call.Name, HandoffToolPrefix)
	if !found {
		return RoleA, "", false
	}
	to, ok = ro.RoleOf(identity)
	if !ok {
		return RoleA, "", false
	}
	return to, call.String(TopicParam), true
}
