package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{"valid", Definition{Identity: "a", Voice: "ash", AvatarID: "x"}, ""},
		{"no identity", Definition{Voice: "ash", AvatarID: "x"}, "identity"},
		{"no voice", Definition{Identity: "a", AvatarID: "x"}, "voice"},
		{"no avatar", Definition{Identity: "a", Voice: "ash"}, "avatar"},
		{"bad port", Definition{Identity: "a", Voice: "ash", AvatarID: "x", Port: 70000}, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefinition_ReplyInstructions(t *testing.T) {
	d := Definition{ReplyTemplate: "Respond to: '" + UtterancePlaceholder + "'. Keep it brief."}
	assert.Equal(t, "Respond to: 'hello'. Keep it brief.", d.ReplyInstructions("hello"))

	// verbatim, including format verbs
	assert.Equal(t, "Respond to: '100%s sure'. Keep it brief.", d.ReplyInstructions("100%s sure"))

	assert.Equal(t, "Respond to: 'hi'.", Definition{}.ReplyInstructions("hi"))
	assert.Equal(t, "Be nice. The audience said: 'hi'.", Definition{ReplyTemplate: "Be nice."}.ReplyInstructions("hi"))
}

func TestBuiltins_Valid(t *testing.T) {
	for _, d := range Builtins() {
		assert.NoError(t, d.Validate(), d.Identity)
		assert.Contains(t, d.ReplyTemplate, UtterancePlaceholder)
		assert.NotEmpty(t, d.Greeting)
		assert.NotEmpty(t, d.HandoffLine)
	}
}
