package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type block struct {
	Summary string `json:"summary"`
	Advice  string `json:"advice"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want block
	}{
		{"plain", `{"summary":"穏やかな一日","advice":"深呼吸を"}`, block{"穏やかな一日", "深呼吸を"}},
		{"fenced", "```json\n{\"summary\":\"s\",\"advice\":\"a\"}\n```", block{"s", "a"}},
		{"fence without tag", "```\n{\"summary\":\"s\",\"advice\":\"a\"}\n```", block{"s", "a"}},
		{"prose around", "はい、こちらです。\n{\"summary\":\"s\",\"advice\":\"a\"}\n以上です。", block{"s", "a"}},
		{"brace inside string", `{"summary":"{括弧}を含む","advice":"a"} trailing }`, block{"{括弧}を含む", "a"}},
		{"trailing comma repaired", `{"summary":"s","advice":"a",}`, block{"s", "a"}},
		{"unterminated repaired", `{"summary":"s","advice":"a"`, block{"s", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got block
			require.NoError(t, ExtractJSON(tt.in, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	for _, in := range []string{"", "no json here", "[1,2,3]"} {
		var got block
		err := ExtractJSON(in, &got)
		assert.True(t, errors.Is(err, ErrMalformed), "input %q: %v", in, err)
	}
}

func TestExtractJSON_TypeMismatch(t *testing.T) {
	var got block
	err := ExtractJSON(`{"summary": 12, "advice": "a"}`, &got)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`x {"a":{"b":1}} y`))
	assert.Equal(t, `{"a":"\"}"}`, extractJSONObject(`{"a":"\"}"}`))
	assert.Equal(t, "", extractJSONObject("none"))
}
