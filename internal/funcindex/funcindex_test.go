package funcindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/vectorstore"
)

var errBoom = errors.New("boom")

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }
func (fakeProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (*llmprovider.CompletionResponse, error) {
	return &llmprovider.CompletionResponse{
		Content:      `{"description":"adds two numbers","purpose":"arithmetic helper","input_description":"two ints","output_description":"their sum","side_effects":[],"complexity":"low"}`,
		FinishReason: "stop",
	}, nil
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (*llmprovider.CompletionResponse, error) {
	return nil, errBoom
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string    { return "fake-embed" }
func (fakeEmbedder) Dimensions() int { return 4 }
func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

func newTestEngine(t *testing.T, provider llmprovider.Provider) (*Engine, *checkpoint.Store, *vectorstore.Store) {
	t.Helper()
	store, err := checkpoint.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vectors := vectorstore.New()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 6000, TokensPerMinute: 6000000, MaxRetries: 2})

	engine := New(Deps{
		Checkpoint: store, Vectors: vectors, Limiter: limiter,
		Provider: provider, Embedder: fakeEmbedder{}, Model: "test-model",
	}, 5, 4, 70)

	return engine, store, vectors
}

func seedPAAndFI(t *testing.T, store *checkpoint.Store, root string) {
	t.Helper()
	pa := analysis.New()
	pa.Completed = true
	pa.Description = analysis.Field[string]{Value: "a test project", Confidence: 95, HasValue: true}
	require.NoError(t, store.PutPAState(context.Background(), root, pa))
	require.NoError(t, store.Put(context.Background(), checkpoint.KindFI, root, checkpoint.FileRow{
		RelPath: "main.go", Hash: "h1", Count: 1, Status: checkpoint.StatusCompleted,
	}))
}

const sampleGoSource = `package main

func Add(a int, b int) int {
	return a + b
}

func main() {
	Add(1, 2)
}
`

func TestRunFailsPreconditionWhenNoPA(t *testing.T) {
	engine, _, _ := newTestEngine(t, fakeProvider{})
	dir := t.TempDir()
	_, err := engine.Run(context.Background(), dir, false)
	require.Error(t, err)
}

func TestRunFailsPreconditionWhenFIEmpty(t *testing.T) {
	engine, store, _ := newTestEngine(t, fakeProvider{})
	dir := t.TempDir()
	root, err := filepath.Abs(dir)
	require.NoError(t, err)

	pa := analysis.New()
	pa.Completed = true
	require.NoError(t, store.PutPAState(context.Background(), root, pa))

	_, err = engine.Run(context.Background(), dir, false)
	require.Error(t, err)
}

func TestRunIndexesFunctionsFromCodeFiles(t *testing.T) {
	engine, store, vectors := newTestEngine(t, fakeProvider{})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	seedPAAndFI(t, store, root)

	stats, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesProcessed)
	require.Equal(t, 2, stats.FunctionsTotal)
	require.Equal(t, 0, stats.Failed)

	require.Equal(t, 2, vectors.Count(dir, vectorstore.KindFunctions))
}

func TestRunSkipsUnchangedFilesOnSecondRun(t *testing.T) {
	engine, store, _ := newTestEngine(t, fakeProvider{})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	seedPAAndFI(t, store, root)

	_, err = engine.Run(context.Background(), dir, false)
	require.NoError(t, err)

	stats, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 0, stats.FilesProcessed)
	require.Equal(t, 1, stats.Skipped)
}

func TestUpdateFilesReprocessesNamedPathsEvenWithUnchangedHash(t *testing.T) {
	engine, store, vectors := newTestEngine(t, fakeProvider{})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	seedPAAndFI(t, store, root)

	_, err = engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 2, vectors.Count(dir, vectorstore.KindFunctions))

	stats, err := engine.UpdateFiles(context.Background(), dir, []string{"main.go"})
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesProcessed)
	require.Equal(t, 2, stats.FunctionsTotal, "UpdateFiles must reprocess regardless of the file's unchanged hash")

	require.Equal(t, 2, vectors.Count(dir, vectorstore.KindFunctions))
}

func TestRunFallsBackToMinimalAnalysisOnProviderFailure(t *testing.T) {
	engine, store, vectors := newTestEngine(t, failingProvider{})
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	seedPAAndFI(t, store, root)

	stats, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.FunctionsTotal, "no function is dropped even when analysis fails")
	require.Equal(t, 1, stats.Failed)

	require.Equal(t, 2, vectors.Count(dir, vectorstore.KindFunctions))
}
