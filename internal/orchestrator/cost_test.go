package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateCostCountsOnlyPendingCodeAndDocFiles(t *testing.T) {
	orch, _ := buildTestOrchestrator(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hello\n"), 0o644))

	estimate, err := orch.EstimateCost(context.Background(), dir, "gpt-4o-mini", "text-embedding-3-small")
	require.NoError(t, err)

	require.Equal(t, 2, estimate.TotalFiles)
	require.Greater(t, estimate.TotalTokensEstimate, 0)
	require.Greater(t, estimate.EstimatedCost, 0.0)
	require.Contains(t, estimate.CostBreakdown, "file_analysis")
	require.Contains(t, estimate.CostBreakdown, "function_analysis")
	require.Contains(t, estimate.CostBreakdown, "embeddings")
	require.Contains(t, estimate.CostBreakdown, "architecture")
}

func TestEstimateCostExcludesAlreadyIndexedFiles(t *testing.T) {
	orch, _ := buildTestOrchestrator(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	_, err := orch.FullIndex(context.Background(), dir, false)
	require.NoError(t, err)

	estimate, err := orch.EstimateCost(context.Background(), dir, "gpt-4o-mini", "text-embedding-3-small")
	require.NoError(t, err)

	require.Equal(t, 0, estimate.TotalFiles)
	require.NotContains(t, estimate.CostBreakdown, "architecture")
}

func TestEstimateCostZeroCostWithUnpricedModel(t *testing.T) {
	orch, _ := buildTestOrchestrator(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(sampleGoSource), 0o644))

	estimate, err := orch.EstimateCost(context.Background(), dir, "no-such-model", "no-such-embed-model")
	require.NoError(t, err)

	require.Equal(t, 1, estimate.TotalFiles)
	require.Equal(t, 0.0, estimate.EstimatedCost)
}
