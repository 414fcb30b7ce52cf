package embedder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelDimensions(t *testing.T) {
	require.Equal(t, 1536, ModelTextEmbedding3Small.dimensions())
	require.Equal(t, 3072, ModelTextEmbedding3Large.dimensions())
}

func TestEmbedEmptyInputReturnsNil(t *testing.T) {
	e := NewOpenAIEmbedder("test-key", ModelTextEmbedding3Small)
	out, err := e.Embed(nil, nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestNewOpenAIEmbedderName(t *testing.T) {
	e := NewOpenAIEmbedder("test-key", ModelTextEmbedding3Large)
	require.Equal(t, "text-embedding-3-large", e.Name())
}
