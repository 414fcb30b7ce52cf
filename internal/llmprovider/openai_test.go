package llmprovider

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/semindex/semindex/internal/semerr"
)

func TestIsTransientOpenAIError429(t *testing.T) {
	err := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	require.True(t, IsTransient(err))
}

func TestIsTransientOpenAIError5xx(t *testing.T) {
	err := &openai.APIError{HTTPStatusCode: 503, Message: "unavailable"}
	require.True(t, IsTransient(err))
}

func TestIsTransientOpenAIError4xxNotRetried(t *testing.T) {
	err := &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}
	require.False(t, IsTransient(err))
}

func TestClassifyOpenAIErrorWrapsKind(t *testing.T) {
	transient := classifyOpenAIError("op", &openai.APIError{HTTPStatusCode: 500})
	require.True(t, semerr.Is(transient, semerr.KindTransient))

	perUnit := classifyOpenAIError("op", errors.New("invalid schema"))
	require.True(t, semerr.Is(perUnit, semerr.KindPerUnit))
}
