package embedder

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/semindex/semindex/internal/semerr"
)

const maxBatchSize = 100

// Model is a supported OpenAI embedding model identifier.
type Model string

const (
	ModelTextEmbedding3Small Model = "text-embedding-3-small"
	ModelTextEmbedding3Large Model = "text-embedding-3-large"
)

func (m Model) dimensions() int {
	switch m {
	case ModelTextEmbedding3Large:
		return 3072
	default:
		return 1536
	}
}

// OpenAIEmbedder generates embeddings using OpenAI's embeddings API,
// batching requests at maxBatchSize per the teacher's embedder.
type OpenAIEmbedder struct {
	client *openai.Client
	model  Model
}

func NewOpenAIEmbedder(apiKey string, model Model) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: openai.NewClient(apiKey), model: model}
}

func (e *OpenAIEmbedder) Name() string      { return string(e.model) }
func (e *OpenAIEmbedder) Dimensions() int   { return e.model.dimensions() }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, semerr.Transient("openai_embed", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, semerr.PerUnit("openai_embed", errMismatchedEmbeddingCount(len(resp.Data), len(batch)))
		}
		for _, d := range resp.Data {
			out = append(out, d.Embedding)
		}
	}
	return out, nil
}

type countMismatchError struct{ got, want int }

func (e countMismatchError) Error() string {
	return "openai returned a different embedding count than requested"
}

func errMismatchedEmbeddingCount(got, want int) error {
	return countMismatchError{got: got, want: want}
}
