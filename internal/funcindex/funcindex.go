// Package funcindex implements the Function Index Engine (C10): for every
// source-code file, runs the AST extractor (C5) to obtain function records,
// tags each with trigger/layer info (C6), analyzes and embeds it under
// bounded per-file concurrency, and upserts the resulting documents. No
// function is ever dropped: an LLM analysis failure degrades to a minimal
// fallback description rather than skipping the function, mirroring the
// per-unit failure isolation already established in internal/fileindex.
package funcindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/ast"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/embedder"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/scanner"
	"github.com/semindex/semindex/internal/semerr"
	"github.com/semindex/semindex/internal/telemetry"
	"github.com/semindex/semindex/internal/trigger"
	"github.com/semindex/semindex/internal/vectorstore"
)

// Deps are funcindex's external collaborators.
type Deps struct {
	Checkpoint *checkpoint.Store
	Vectors    *vectorstore.Store
	Limiter    *ratelimit.Limiter
	Provider   llmprovider.Provider
	Embedder   embedder.Embedder
	Model      string
	// Telemetry is optional; a nil value disables counting.
	Telemetry *telemetry.Counters
}

// Engine runs the FuI pipeline for one project at a time.
type Engine struct {
	deps            Deps
	fileConcurrency int
	funcConcurrency int
	stopOK          int
	onProgress      func(processed, total int, relPath string)
}

// SetProgressFunc registers a callback invoked after every queued file's
// functions finish indexing, reporting how many of the total queued files
// have completed so far. Passing nil disables reporting.
func (e *Engine) SetProgressFunc(fn func(processed, total int, relPath string)) {
	e.onProgress = fn
}

// New constructs an Engine. maxConcurrentFiles bounds the outer, per-file
// fan-out; maxConcurrentFunctions bounds the inner, per-file function-level
// fan-out (the spec's MAX_CONCURRENT_FILES outer / MAX_CONCURRENT_FUNCTIONS
// inner). stopOK is the PA minimum confidence accepted in place of
// PA.Completed.
func New(deps Deps, maxConcurrentFiles, maxConcurrentFunctions, stopOK int) *Engine {
	if maxConcurrentFiles <= 0 {
		maxConcurrentFiles = 5
	}
	if maxConcurrentFunctions <= 0 {
		maxConcurrentFunctions = 4
	}
	return &Engine{deps: deps, fileConcurrency: maxConcurrentFiles, funcConcurrency: maxConcurrentFunctions, stopOK: stopOK}
}

// Stats summarizes one Run.
type Stats struct {
	FilesProcessed int
	FunctionsTotal int
	Failed         int
	Skipped        int
}

func isTransient(err error) bool { return semerr.Is(err, semerr.KindTransient) }

// loadPA enforces the FuI precondition: PA completed-or-sufficient for
// project. FI readiness (non-zero completed count) is checked separately by
// the caller since it's a different table.
func loadPA(ctx context.Context, store *checkpoint.Store, project string, stopOK int) (*analysis.Project, error) {
	pa := analysis.New()
	found, err := store.GetPAState(ctx, project, pa)
	if err != nil {
		return nil, semerr.Fatal("funcindex_load_pa", err)
	}
	if !found {
		return nil, semerr.Precondition("funcindex_load_pa", fmt.Errorf("no project analysis found for %s", project))
	}
	if !pa.Completed && pa.MinConfidence() < stopOK {
		return nil, semerr.Precondition("funcindex_load_pa", fmt.Errorf("project analysis not sufficiently converged for %s", project))
	}
	return pa, nil
}

// Run indexes every code file's functions for project. force drops the
// existing FuI collection and checkpoint rows before reindexing.
func (e *Engine) Run(ctx context.Context, project string, force bool) (Stats, error) {
	root, err := filepath.Abs(project)
	if err != nil {
		return Stats{}, semerr.Fatal("funcindex_run", err)
	}
	project = root

	pa, err := loadPA(ctx, e.deps.Checkpoint, project, e.stopOK)
	if err != nil {
		return Stats{}, err
	}

	fiStats, err := e.deps.Checkpoint.AggregateStats(ctx, checkpoint.KindFI, project)
	if err != nil {
		return Stats{}, semerr.Fatal("funcindex_run", err)
	}
	if fiStats.Completed == 0 {
		return Stats{}, semerr.Precondition("funcindex_run", fmt.Errorf("file index has no completed files for %s", project))
	}

	if force {
		if err := e.deps.Vectors.Drop(project, vectorstore.KindFunctions); err != nil {
			return Stats{}, semerr.Fatal("funcindex_run", err)
		}
		if err := e.deps.Checkpoint.DeleteByProjectAndKind(ctx, checkpoint.KindFuI, project); err != nil {
			return Stats{}, semerr.Fatal("funcindex_run", err)
		}
	}

	records, err := scanner.Scan(scanner.Config{Root: project})
	if err != nil {
		return Stats{}, semerr.Fatal("funcindex_run", err)
	}

	var codeRecords []scanner.FileRecord
	for _, r := range records {
		if r.Classification == scanner.ClassCode {
			codeRecords = append(codeRecords, r)
		}
	}

	var stats Stats
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.fileConcurrency)

	var queued []scanner.FileRecord
	for _, r := range codeRecords {
		reindex, err := e.deps.Checkpoint.ShouldReindex(ctx, checkpoint.KindFuI, project, r.RelPath, r.Hash)
		if err != nil {
			return Stats{}, semerr.Fatal("funcindex_run", err)
		}
		if !reindex {
			stats.Skipped++
			continue
		}
		queued = append(queued, r)
	}

	total := len(queued)
	var done int

	for _, r := range queued {
		wg.Add(1)
		sem <- struct{}{}
		go func(r scanner.FileRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			n, failed := e.indexFile(ctx, project, r, pa)

			mu.Lock()
			stats.FilesProcessed++
			stats.FunctionsTotal += n
			if failed {
				stats.Failed++
			}
			done++
			if e.onProgress != nil {
				e.onProgress(done, total, r.RelPath)
			}
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	return stats, nil
}

// indexFile extracts, analyzes, embeds, and upserts every function found in
// r, returning the function count and whether the file-level checkpoint row
// recorded a failure.
func (e *Engine) indexFile(ctx context.Context, project string, r scanner.FileRecord, pa *analysis.Project) (int, bool) {
	content, err := scanner.ReadFile(project, r.RelPath)
	if err != nil {
		e.putFailure(ctx, project, r, err)
		e.deps.Telemetry.IncFailedUnits()
		return 0, true
	}
	e.deps.Telemetry.IncFilesScanned()

	extractor := ast.Dispatch(r.Language)
	funcs, err := extractor.ExtractFunctions(content, r.RelPath)
	if err != nil {
		e.putFailure(ctx, project, r, err)
		e.deps.Telemetry.IncFailedUnits()
		return 0, true
	}
	if len(funcs) == 0 {
		_ = e.deps.Checkpoint.Put(ctx, checkpoint.KindFuI, project, checkpoint.FileRow{
			RelPath: r.RelPath, Hash: r.Hash, Count: 0, Status: checkpoint.StatusCompleted,
		})
		return 0, false
	}

	funcNameToID := ast.FuncNameIndex(funcs)
	edges, err := extractor.ExtractCalls(content, r.RelPath, funcs, funcNameToID)
	if err != nil {
		edges = nil
	}
	calleeModules := calleeModulesByCaller(edges)

	var fmu sync.Mutex
	var fwg sync.WaitGroup
	fsem := make(chan struct{}, e.funcConcurrency)
	docs := make([]vectorstore.Document, 0, len(funcs))
	anyFailed := false

	for _, fn := range funcs {
		fwg.Add(1)
		fsem <- struct{}{}
		go func(fn ast.Function) {
			defer fwg.Done()
			defer func() { <-fsem }()

			doc, failed := e.analyzeAndEmbedFunction(ctx, project, r, fn, pa, calleeModules[fn.ID])

			fmu.Lock()
			docs = append(docs, doc)
			if failed {
				anyFailed = true
				e.deps.Telemetry.IncFailedUnits()
			} else {
				e.deps.Telemetry.IncCompletedUnits()
			}
			fmu.Unlock()
		}(fn)
	}
	fwg.Wait()

	if err := e.deps.Vectors.Upsert(ctx, project, vectorstore.KindFunctions, docs); err != nil {
		e.putFailure(ctx, project, r, err)
		return len(funcs), true
	}

	status := checkpoint.StatusCompleted
	if anyFailed {
		status = checkpoint.StatusFailed
	}
	_ = e.deps.Checkpoint.Put(ctx, checkpoint.KindFuI, project, checkpoint.FileRow{
		RelPath: r.RelPath, Hash: r.Hash, Count: len(funcs), Status: status,
	})

	return len(funcs), anyFailed
}

func calleeModulesByCaller(edges []ast.CallEdge) map[string][]string {
	out := make(map[string][]string)
	for _, e := range edges {
		if e.CalleeModule == "" {
			continue
		}
		out[e.CallerID] = append(out[e.CallerID], e.CalleeModule)
	}
	return out
}

// analyzeAndEmbedFunction runs the per-function analyze+embed stage. On any
// analysis failure it falls back to a minimal description built from the
// function's own signature so the function is never dropped from the index.
func (e *Engine) analyzeAndEmbedFunction(ctx context.Context, project string, r scanner.FileRecord, fn ast.Function, pa *analysis.Project, calleeModules []string) (vectorstore.Document, bool) {
	info := trigger.Detect(fn, r.Language)
	hasTrigger := info != nil
	layer := trigger.Classify(fn.Name, r.RelPath, r.Language, hasTrigger, fn.Decorators, nil)
	layer = trigger.PromoteForExternalCalls(layer, calleeModules, trigger.IsKnownThirdPartyModule)

	result, err := e.analyzeFunction(ctx, r, fn, pa)
	failed := false
	if err != nil {
		result = fallbackAnalysis(fn)
		failed = true
	}

	embedding, err := e.embedFunction(ctx, fn, result)
	if err != nil {
		embedding = nil
		failed = true
	}

	return buildFunctionDocument(project, r, fn, info, layer, result, embedding), failed
}

func (e *Engine) analyzeFunction(ctx context.Context, r scanner.FileRecord, fn ast.Function, pa *analysis.Project) (functionAnalysis, error) {
	messages := buildFunctionAnalysisMessages(r.RelPath, r.Language, fn, pa)
	estTokens := 1500

	attempt := 0
	resp, err := ratelimit.ExecuteWithRetry(ctx, e.deps.Limiter, isTransient, func(ctx context.Context) (*llmprovider.CompletionResponse, error) {
		if attempt > 0 {
			e.deps.Telemetry.IncLLMRetries()
		}
		attempt++
		if err := e.deps.Limiter.Acquire(ctx, estTokens); err != nil {
			return nil, semerr.Transient("funcindex_analyze", err)
		}
		e.deps.Telemetry.IncLLMCalls()
		return e.deps.Provider.Complete(ctx, llmprovider.CompletionRequest{
			Model:       e.deps.Model,
			Messages:    messages,
			MaxTokens:   512,
			Temperature: 0.1,
			JSONMode:    true,
		})
	})
	if err != nil {
		return functionAnalysis{}, err
	}
	return parseFunctionAnalysis(resp.Content)
}

func (e *Engine) embedFunction(ctx context.Context, fn ast.Function, result functionAnalysis) ([]float32, error) {
	text := buildFunctionEmbeddingText(fn, result)

	vecs, err := ratelimit.ExecuteWithRetry(ctx, e.deps.Limiter, isTransient, func(ctx context.Context) ([][]float32, error) {
		if err := e.deps.Limiter.Acquire(ctx, 500); err != nil {
			return nil, semerr.Transient("funcindex_embed", err)
		}
		e.deps.Telemetry.IncEmbedCalls()
		return e.deps.Embedder.Embed(ctx, []string{text})
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("funcindex: embedder returned no vectors")
	}
	return vecs[0], nil
}

// UpdateFiles re-extracts and re-embeds functions for paths only, bypassing
// the hash-unchanged skip Run applies: update_files callers already know
// these paths changed (or want them force-refreshed after a dependent
// reindex), so each path is cleared and reprocessed unconditionally.
func (e *Engine) UpdateFiles(ctx context.Context, project string, paths []string) (Stats, error) {
	root, err := filepath.Abs(project)
	if err != nil {
		return Stats{}, semerr.Fatal("funcindex_update_files", err)
	}
	project = root

	pa, err := loadPA(ctx, e.deps.Checkpoint, project, e.stopOK)
	if err != nil {
		return Stats{}, err
	}

	records, err := scanner.Scan(scanner.Config{Root: project})
	if err != nil {
		return Stats{}, semerr.Fatal("funcindex_scan", err)
	}
	byPath := make(map[string]scanner.FileRecord, len(records))
	for _, r := range records {
		byPath[r.RelPath] = r
	}

	var stats Stats
	for _, p := range paths {
		r, ok := byPath[p]
		if !ok {
			continue
		}
		if err := e.deps.Vectors.DeleteWhere(ctx, project, vectorstore.KindFunctions, vectorstore.Predicate{"relative_path": p}); err != nil {
			return stats, semerr.Fatal("funcindex_delete_docs", err)
		}
		if err := e.deps.Checkpoint.DeleteFile(ctx, checkpoint.KindFuI, project, p); err != nil {
			return stats, semerr.Fatal("funcindex_delete_checkpoint", err)
		}
		n, failed := e.indexFile(ctx, project, r, pa)
		stats.FilesProcessed++
		stats.FunctionsTotal += n
		if failed {
			stats.Failed++
		}
	}
	return stats, nil
}

// RemoveFiles deletes every indexed function document and checkpoint row
// whose relative_path is in paths, per the specification's remove_files
// fan-out to FuI.
func (e *Engine) RemoveFiles(ctx context.Context, project string, paths []string) error {
	root, err := filepath.Abs(project)
	if err != nil {
		return semerr.Fatal("funcindex_remove_files", err)
	}
	project = root

	for _, p := range paths {
		if err := e.deps.Vectors.DeleteWhere(ctx, project, vectorstore.KindFunctions, vectorstore.Predicate{"relative_path": p}); err != nil {
			return semerr.Fatal("funcindex_remove_vectors", err)
		}
		if err := e.deps.Checkpoint.DeleteFile(ctx, checkpoint.KindFuI, project, p); err != nil {
			return semerr.Fatal("funcindex_remove_checkpoint", err)
		}
	}
	return nil
}

func (e *Engine) putFailure(ctx context.Context, project string, r scanner.FileRecord, cause error) {
	_ = e.deps.Checkpoint.Put(ctx, checkpoint.KindFuI, project, checkpoint.FileRow{
		RelPath: r.RelPath, Hash: r.Hash, Status: checkpoint.StatusFailed, Error: cause.Error(),
	})
}

// functionID combines hash12(project) with a hash of (file, name,
// line_start), per the specification's function document identity rule.
func functionID(project string, fn ast.Function) string {
	return fmt.Sprintf("%s_%s", hash12(project), ast.FunctionID(fn.FilePath, fn.Name, fn.LineStart))
}

func hash12(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
