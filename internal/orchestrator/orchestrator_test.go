package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/config"
	"github.com/semindex/semindex/internal/fileindex"
	"github.com/semindex/semindex/internal/funcindex"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/paengine"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/vectorstore"
)

// fakeProvider answers every Complete call with a fixed body. Real usage
// needs different bodies for PA vs FI/FuI calls; tests route to a distinct
// fakeProvider per engine instead of branching on request content.
type fakeProvider struct {
	body string
}

func (f fakeProvider) Name() string { return "fake" }
func (f fakeProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (*llmprovider.CompletionResponse, error) {
	return &llmprovider.CompletionResponse{Content: f.body, FinishReason: "stop"}, nil
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

const convergedPABody = `{"description":"a test project","description_confidence":95,"languages":["Go"],"languages_confidence":95,"frameworks":[],"frameworks_confidence":95,"modules":["main"],"modules_confidence":95,"entry_points":["main.go"],"entry_points_confidence":95,"architecture":"single binary","architecture_confidence":95,"next_path":[],"reasoning":"done"}`

const fileAnalysisBody = `{"summary":"does a thing"}`

const functionAnalysisBody = `{"description":"adds two numbers","purpose":"arithmetic helper","input_description":"two ints","output_description":"their sum","side_effects":[],"complexity":"low"}`

func buildTestOrchestrator(t *testing.T) (*Orchestrator, *checkpoint.Store) {
	t.Helper()
	store, err := checkpoint.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vectors := vectorstore.New()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 6000, TokensPerMinute: 6000000, MaxRetries: 2})

	paEngine := paengine.New(paengine.Deps{
		Checkpoint: store, Limiter: limiter, Provider: fakeProvider{body: convergedPABody}, Model: "test-model",
		IsTransient: func(error) bool { return false },
	}, config.Default().PA)

	fiEngine := fileindex.New(fileindex.Deps{
		Checkpoint: store, Vectors: vectors, Limiter: limiter,
		Provider: fakeProvider{body: fileAnalysisBody}, Embedder: fakeEmbedder{}, Model: "test-model",
	}, config.ChunkConfig{MaxTokens: 6000, OverlapTokens: 500}, 5, 70)

	fuiEngine := funcindex.New(funcindex.Deps{
		Checkpoint: store, Vectors: vectors, Limiter: limiter,
		Provider: fakeProvider{body: functionAnalysisBody}, Embedder: fakeEmbedder{}, Model: "test-model",
	}, 5, 4, 70)

	return New(store, paEngine, fiEngine, fuiEngine, 70), store
}

const sampleGoSource = `package main

func Add(a int, b int) int {
	return a + b
}

func main() {
	Add(1, 2)
}
`

func TestCheckStatusReportsNotFoundBeforeAnyRun(t *testing.T) {
	orch, _ := buildTestOrchestrator(t)
	dir := t.TempDir()

	status, err := orch.CheckStatus(context.Background(), dir)
	require.NoError(t, err)
	require.False(t, status.PAFound)
}

func TestFullIndexRunsAllThreeStagesInOrder(t *testing.T) {
	orch, _ := buildTestOrchestrator(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Project\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	result, err := orch.FullIndex(context.Background(), dir, false)
	require.NoError(t, err)
	require.True(t, result.PA.Completed)
	require.True(t, result.RanFiles)
	require.True(t, result.RanFunctions)
	require.Equal(t, 2, result.Files.Processed)
	require.Equal(t, 2, result.Functions.FunctionsTotal)

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	status, err := orch.CheckStatus(context.Background(), root)
	require.NoError(t, err)
	require.True(t, status.PAFound)
	require.Equal(t, 2, status.Files.Completed)
	require.Equal(t, 1, status.Functions.Completed)
}

func TestUpdateAndRemoveFilesFanOutToBothIndexes(t *testing.T) {
	orch, _ := buildTestOrchestrator(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	_, err := orch.FullIndex(context.Background(), dir, false)
	require.NoError(t, err)

	updateResult, err := orch.UpdateFiles(context.Background(), dir, []string{"main.go"})
	require.NoError(t, err)
	require.Equal(t, 1, updateResult.Files.Processed)
	require.Equal(t, 2, updateResult.Functions.FunctionsTotal)

	require.NoError(t, orch.RemoveFiles(context.Background(), dir, []string{"main.go"}))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	status, err := orch.CheckStatus(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 0, status.Files.Total)
	require.Equal(t, 0, status.Functions.Total)
}
