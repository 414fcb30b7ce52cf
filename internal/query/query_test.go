package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/vectorstore"
)

type fakeEmbedder struct{ vector []float32 }

func (f fakeEmbedder) Name() string    { return "fake-embed" }
func (f fakeEmbedder) Dimensions() int { return len(f.vector) }
func (f fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func newTestEngine(t *testing.T, vectors *vectorstore.Store) *Engine {
	t.Helper()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 6000, TokensPerMinute: 6000000, MaxRetries: 2})
	return New(Deps{Vectors: vectors, Limiter: limiter, Embedder: fakeEmbedder{vector: []float32{1, 0, 0, 0}}})
}

func TestSearchFilesDropsProjectContextHit(t *testing.T) {
	vectors := vectorstore.New()
	ctx := context.Background()
	project := "/p"

	require.NoError(t, vectors.Upsert(ctx, project, vectorstore.KindFiles, []vectorstore.Document{
		{ID: projectContextDocID, Text: "project description", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{}},
		{ID: "main.go#0", Text: "chunk one", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"relative_path": "main.go"}},
	}))

	engine := newTestEngine(t, vectors)
	result, err := engine.SearchFiles(ctx, project, "what does this do", 10, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Equal(t, "main.go#0", result.Hits[0].ID)
}

func TestSearchFilesBestPerPathKeepsHighestScoringChunk(t *testing.T) {
	vectors := vectorstore.New()
	ctx := context.Background()
	project := "/p"

	require.NoError(t, vectors.Upsert(ctx, project, vectorstore.KindFiles, []vectorstore.Document{
		{ID: "a.go#0", Text: "chunk a0", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"relative_path": "a.go"}},
		{ID: "a.go#1", Text: "chunk a1", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]any{"relative_path": "a.go"}},
		{ID: "b.go#0", Text: "chunk b0", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"relative_path": "b.go"}},
	}))

	engine := newTestEngine(t, vectors)
	result, err := engine.SearchFiles(ctx, project, "query", 10, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)

	paths := make(map[string]bool)
	for _, r := range result.BestPath {
		require.False(t, paths[r.Metadata["relative_path"].(string)], "each path appears at most once")
		paths[r.Metadata["relative_path"].(string)] = true
	}
	require.Len(t, result.BestPath, 2)
}

func TestSearchFunctionsReturnsShapedResults(t *testing.T) {
	vectors := vectorstore.New()
	ctx := context.Background()
	project := "/p"

	require.NoError(t, vectors.Upsert(ctx, project, vectorstore.KindFunctions, []vectorstore.Document{
		{ID: "fn1", Text: "Add(a, b) sums two ints", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"name": "Add"}},
	}))

	engine := newTestEngine(t, vectors)
	results, err := engine.SearchFunctions(ctx, project, "sum two numbers", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "fn1", results[0].ID)
	require.Equal(t, "Add", results[0].Metadata["name"])
}
