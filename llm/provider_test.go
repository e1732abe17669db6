package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"fenced json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no tag", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  ```json\n{}\n```  ", "{}"},
		{"plain text", "hello", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	got, err := ParseJSONObject("```json\n{\"tool\": \"addPet\", \"confidence\": 0.9}\n```")
	require.NoError(t, err)
	assert.Equal(t, "addPet", got["tool"])
	assert.Equal(t, 0.9, got["confidence"])

	_, err = ParseJSONObject("not json at all")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrMalformedOutput, perr.Code)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Code: ErrRateLimited, Message: "slow down", HTTPStatus: 429}
	assert.Equal(t, "slow down", err.Error())
}
