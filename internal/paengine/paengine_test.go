package paengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/config"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/scanner"
)

func TestSeedFirstLevelPicksReadmeManifestsAndTopEntries(t *testing.T) {
	records := []scanner.FileRecord{
		{RelPath: "README.md"},
		{RelPath: "go.mod"},
		{RelPath: "src/main.go"},
		{RelPath: "src/nested/deep.go"},
		{RelPath: "docs/guide.md"},
	}
	seeds := seedFirstLevel(records)
	require.Contains(t, seeds, "README.md")
	require.Contains(t, seeds, "go.mod")
	require.Contains(t, seeds, "src/main.go")
	require.NotContains(t, seeds, "src/nested/deep.go", "only immediate entries of source dirs are seeded")
	require.NotContains(t, seeds, "docs/guide.md", "docs is not a conventional source dir")
}

func TestFilterToUnreadExistingDedupsAndFiltersMissing(t *testing.T) {
	existing := map[string]bool{"a.go": true, "b.go": true}
	analyzed := map[string]bool{"a.go": true}
	out := filterToUnreadExisting([]string{"a.go", "b.go", "b.go", "gone.go"}, existing, analyzed)
	require.Equal(t, []string{"b.go"}, out)
}

func TestRenderTreeRespectsDepthAndPerDirCaps(t *testing.T) {
	records := []scanner.FileRecord{
		{RelPath: "a.go"}, {RelPath: "b.go"}, {RelPath: "c.go"},
		{RelPath: "x/y/z/deep.go"},
	}
	out := renderTree(records, 2, 2)
	require.Contains(t, out, "... (2 more)")
	require.NotContains(t, out, "deep.go", "depth 2 must not render files three levels down")
}

func TestParseUpdateStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"description\":\"x\",\"description_confidence\":50}\n```"
	u, err := parseUpdate(raw)
	require.NoError(t, err)
	require.Equal(t, "x", u.Description)
	require.Equal(t, 50, u.DescriptionConfidence)
}

func TestTryRepairJSONClosesUnclosedBraces(t *testing.T) {
	raw := `{"description": "a Go service", "description_confidence": 80`
	repaired := tryRepairJSON(raw)
	u, err := parseUpdate(repaired)
	require.NoError(t, err)
	require.Equal(t, "a Go service", u.Description)
}

// fakeProvider returns a canned JSON body regardless of the request,
// simulating a well-behaved LLM for the convergence-loop test.
type fakeProvider struct {
	body string
	n    int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (*llmprovider.CompletionResponse, error) {
	f.n++
	return &llmprovider.CompletionResponse{Content: f.body, FinishReason: "stop"}, nil
}

func TestRunConvergesInOneIterationOnHighConfidenceResponse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("A Python web service built with FastAPI."), 0o644))

	store, err := checkpoint.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: 6000, TokensPerMinute: 6000000, MaxRetries: 2,
		BaseBackoff: 0, MaxBackoff: 0,
	})

	body := `{
		"description": "A Python web service built with FastAPI.", "description_confidence": 95,
		"languages": ["Python"], "languages_confidence": 95,
		"frameworks": ["FastAPI"], "frameworks_confidence": 95,
		"modules": ["api"], "modules_confidence": 95,
		"entry_points": ["main.py"], "entry_points_confidence": 95,
		"architecture": "Single-service REST API.", "architecture_confidence": 95,
		"next_path": [], "reasoning": "confident already"
	}`
	provider := &fakeProvider{body: body}

	engine := New(Deps{
		Checkpoint:  store,
		Limiter:     limiter,
		Provider:    provider,
		Model:       "test-model",
		IsTransient: func(error) bool { return false },
	}, config.PAConfig{
		MaxIterations: 5, BatchSize: 5, MaxFileBytes: 20000, Retries: 3,
		StopHigh: 90, StopOK: 70, StopAvg: 80, TreeMaxDepth: 4, TreeMaxPerDir: 30,
	})

	state, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.True(t, state.Completed)
	require.Contains(t, state.Languages.Value, "Python")
	require.GreaterOrEqual(t, state.Languages.Confidence, 70)
	require.Equal(t, 1, provider.n)
}

func TestRunReturnsCachedStateWhenAlreadyCompleted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))

	store, err := checkpoint.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 60, TokensPerMinute: 60000, MaxRetries: 1})
	provider := &fakeProvider{body: `{"description":"x","description_confidence":10,"languages":[],"languages_confidence":10,"frameworks":[],"frameworks_confidence":10,"modules":[],"modules_confidence":10,"entry_points":[],"entry_points_confidence":10,"architecture":"","architecture_confidence":10,"next_path":[],"reasoning":""}`}

	engine := New(Deps{Checkpoint: store, Limiter: limiter, Provider: provider, Model: "m", IsTransient: func(error) bool { return false }},
		config.PAConfig{MaxIterations: 1, BatchSize: 5, MaxFileBytes: 1000, Retries: 1, StopHigh: 90, StopOK: 70, StopAvg: 80, TreeMaxDepth: 4, TreeMaxPerDir: 30})

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	require.NoError(t, store.PutPAState(context.Background(), root, map[string]any{"completed": true}))

	state, err := engine.Run(context.Background(), dir, false)
	require.NoError(t, err)
	require.True(t, state.Completed)
	require.Equal(t, 0, provider.n, "a cached completed state must short-circuit without calling the provider")
}
