package turn

import (
	"testing"

	"github.com/daikw/duet/internal/llm"
	"github.com/daikw/duet/internal/persona"
	"github.com/stretchr/testify/assert"
)

func TestAlternation_OddToA(t *testing.T) {
	a := NewAlternation()
	for k := 1; k <= 10; k++ {
		want := RoleA
		if k%2 == 0 {
			want = RoleB
		}
		assert.Equal(t, want, a.Next(), "utterance %d", k)
		assert.Equal(t, k, a.Count())
	}
}

func TestSpeakerFor(t *testing.T) {
	assert.Equal(t, RoleA, SpeakerFor(1))
	assert.Equal(t, RoleB, SpeakerFor(2))
	assert.Equal(t, RoleA, SpeakerFor(101))
}

func TestHandoffTool(t *testing.T) {
	ro := testRoster()
	tools := ToolsFor(ro, RoleA)

	if assert.Len(t, tools, 1) {
		assert.Equal(t, "handoff_to_snoop", tools[0].Name)
		assert.Contains(t, tools[0].Description, ro.B.Name())
		assert.Equal(t, TopicParam, tools[0].Params[0].Name)
		assert.False(t, tools[0].Params[0].Required)
	}
	assert.Equal(t, "handoff_to_martha", ToolsFor(ro, RoleB)[0].Name)
}

func TestParseHandoff(t *testing.T) {
	ro := testRoster()

	to, topic, ok := ParseHandoff(llm.ToolCall{
		Name: "handoff_to_snoop",
		Args: map[string]any{"topic": "dessert"},
	}, ro)
	assert.True(t, ok)
	assert.Equal(t, RoleB, to)
	assert.Equal(t, "dessert", topic)

	_, _, ok = ParseHandoff(llm.ToolCall{Name: "handoff_to_oprah"}, ro)
	assert.False(t, ok)

	_, _, ok = ParseHandoff(llm.ToolCall{Name: "lookup_recipe"}, ro)
	assert.False(t, ok)

	to, topic, ok = ParseHandoff(llm.ToolCall{Name: HandoffToolName(persona.Definition{Identity: persona.Martha})}, ro)
	assert.True(t, ok)
	assert.Equal(t, RoleA, to)
	assert.Empty(t, topic)
}
