package orchestrator

import (
	"context"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/scanner"
	"github.com/semindex/semindex/internal/semerr"
)

// Rough per-call output-token estimates, matching the MaxTokens the FI and
// FuI engines actually request for their analysis calls.
const (
	fileAnalysisOutputTokens     = 512
	functionAnalysisOutputTokens = 512
	embeddingInputFraction       = 0.5 // embeddings run over summaries, not full source
	charsPerTokenEstimate        = 4
)

// CostEstimate previews the LLM/embedding spend a full_index run over
// project's not-yet-indexed files would incur, without making any API
// calls. Token counts are approximated from file size (charsPerTokenEstimate
// bytes per token), the same rough ratio internal/chunker uses elsewhere.
type CostEstimate struct {
	TotalFiles          int
	TotalTokensEstimate int
	EstimatedCost       float64
	CostBreakdown       map[string]float64 // keys: file_analysis, function_analysis, embeddings, architecture
}

// EstimateCost scans project, finds the files FI would still need to index
// (those failing checkpoint.ShouldReindex), and projects a cost breakdown
// across file analysis, function analysis, and embeddings, plus a PA
// ("architecture") bucket when project analysis hasn't completed yet.
func (o *Orchestrator) EstimateCost(ctx context.Context, project, completionModel, embeddingModel string) (*CostEstimate, error) {
	records, err := scanner.Scan(scanner.Config{Root: project})
	if err != nil {
		return nil, semerr.Fatal("estimate_cost_scan", err)
	}

	estimate := &CostEstimate{CostBreakdown: make(map[string]float64)}

	var pendingInputTokens int
	for _, r := range records {
		if r.Classification != scanner.ClassCode && r.Classification != scanner.ClassDocumentation {
			continue
		}
		reindex, err := o.checkpoint.ShouldReindex(ctx, checkpoint.KindFI, project, r.RelPath, r.Hash)
		if err != nil {
			return nil, semerr.Fatal("estimate_cost_should_reindex", err)
		}
		if !reindex {
			continue
		}
		estimate.TotalFiles++
		pendingInputTokens += int(r.Size) / charsPerTokenEstimate
	}

	fileOutputTokens := estimate.TotalFiles * fileAnalysisOutputTokens
	estimate.CostBreakdown["file_analysis"] = llmprovider.EstimateCost(completionModel, pendingInputTokens, fileOutputTokens)

	// Function analysis has no cheap token-free proxy for "how many
	// functions" without running C5's AST extraction, so it's approximated
	// as one analysis call's worth of tokens per pending file — a rough
	// per-file floor, not a per-function count.
	functionOutputTokens := estimate.TotalFiles * functionAnalysisOutputTokens
	estimate.CostBreakdown["function_analysis"] = llmprovider.EstimateCost(completionModel, pendingInputTokens, functionOutputTokens)

	embeddingTokens := int(float64(pendingInputTokens) * embeddingInputFraction)
	estimate.CostBreakdown["embeddings"] = llmprovider.EstimateCost(embeddingModel, embeddingTokens, 0)

	estimate.TotalTokensEstimate = pendingInputTokens + fileOutputTokens + functionOutputTokens + embeddingTokens

	pa := analysis.New()
	found, err := o.checkpoint.GetPAState(ctx, project, pa)
	if err != nil {
		return nil, semerr.Fatal("estimate_cost_pa_state", err)
	}
	if !found || !pa.Completed {
		archInputTokens := pendingInputTokens / 4
		archOutputTokens := estimate.TotalFiles * 200
		estimate.CostBreakdown["architecture"] = llmprovider.EstimateCost(completionModel, archInputTokens, archOutputTokens)
		estimate.TotalTokensEstimate += archInputTokens + archOutputTokens
	}

	for _, v := range estimate.CostBreakdown {
		estimate.EstimatedCost += v
	}

	return estimate, nil
}
