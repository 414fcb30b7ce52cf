package fileindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/config"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/vectorstore"
)

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }
func (fakeProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (*llmprovider.CompletionResponse, error) {
	return &llmprovider.CompletionResponse{Content: `{"summary":"does a thing"}`, FinishReason: "stop"}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string       { return "fake-embed" }
func (fakeEmbedder) Dimensions() int    { return 4 }
func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

func newTestEngine(t *testing.T) (*Engine, *checkpoint.Store, *vectorstore.Store) {
	t.Helper()
	store, err := checkpoint.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vectors := vectorstore.New()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 6000, TokensPerMinute: 6000000, MaxRetries: 2})

	engine := New(Deps{
		Checkpoint: store, Vectors: vectors, Limiter: limiter,
		Provider: fakeProvider{}, Embedder: fakeEmbedder{}, Model: "test-model",
	}, config.ChunkConfig{MaxTokens: 6000, OverlapTokens: 500}, 4, 70)

	return engine, store, vectors
}

func writeCompletedPA(t *testing.T, store *checkpoint.Store, root string) {
	t.Helper()
	pa := analysis.New()
	pa.Completed = true
	pa.Description = analysis.Field[string]{Value: "a test project", Confidence: 95, HasValue: true}
	require.NoError(t, store.PutPAState(context.Background(), root, pa))
}

func TestRunFailsPreconditionWhenNoPA(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	dir := t.TempDir()
	_, err := engine.Run(context.Background(), dir, false)
	require.Error(t, err)
}

func TestRunIndexesQueuedFilesAndWritesProjectContext(t *testing.T) {
	engine, store, vectors := newTestEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	writeCompletedPA(t, store, root)

	stats, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Processed)
	require.Equal(t, 0, stats.Failed)

	require.GreaterOrEqual(t, vectors.Count(dir, vectorstore.KindFiles), 2, "expects the file's chunk doc plus the project-context doc")
}

func TestRunSkipsUnchangedFilesOnSecondRun(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	writeCompletedPA(t, store, root)

	_, err = engine.Run(context.Background(), dir, false)
	require.NoError(t, err)

	stats, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Processed)
	require.Equal(t, 1, stats.Skipped)
}

func TestUpdateFilesReindexesSinglePath(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	writeCompletedPA(t, store, root)

	_, err = engine.Run(context.Background(), dir, false)
	require.NoError(t, err)

	stats, err := engine.UpdateFiles(context.Background(), dir, []string{"main.go"})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Processed)
}

func TestRunWritesReverseDependencyDocForSharedImport(t *testing.T) {
	engine, store, vectors := newTestEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n\nimport \"fmt\"\n\nfunc A() { fmt.Println() }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package main\n\nimport \"fmt\"\n\nfunc B() { fmt.Println() }\n"), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	writeCompletedPA(t, store, root)

	stats, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Processed)

	hits, err := vectors.Query(context.Background(), dir, vectorstore.KindFiles, []float32{0.1, 0.2, 0.3, 0.4}, 10, vectorstore.Predicate{"doc_type": "reverse_dependency"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "fmt", hits[0].Metadata["dependency"])
	require.Equal(t, "2", hits[0].Metadata["dependent_count"])
}

func TestRemoveFilesDeletesDocsAndCheckpoint(t *testing.T) {
	engine, store, vectors := newTestEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	writeCompletedPA(t, store, root)

	_, err = engine.Run(context.Background(), dir, false)
	require.NoError(t, err)

	before := vectors.Count(dir, vectorstore.KindFiles)
	require.NoError(t, engine.RemoveFiles(context.Background(), dir, []string{"main.go"}))
	after := vectors.Count(dir, vectorstore.KindFiles)
	require.Less(t, after, before)

	row, err := store.Get(context.Background(), checkpoint.KindFI, root, "main.go")
	require.NoError(t, err)
	require.Nil(t, row)
}
