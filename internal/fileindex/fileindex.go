// Package fileindex implements the FI Engine (C9): the per-file
// chunk -> analyze -> embed -> upsert pipeline with checkpointed,
// content-hash-gated incremental reindexing under bounded concurrency.
// Grounded on the teacher's concurrency pattern in cmd/index.go (a
// semaphore-bounded goroutine fan-out over files with a shared error
// collector), generalized to the specification's per-chunk two-stage
// (analyze, then embed) rate-limited pipeline.
package fileindex

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/ast"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/chunker"
	"github.com/semindex/semindex/internal/config"
	"github.com/semindex/semindex/internal/embedder"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/scanner"
	"github.com/semindex/semindex/internal/semerr"
	"github.com/semindex/semindex/internal/telemetry"
	"github.com/semindex/semindex/internal/vectorstore"
)

// Deps are the engine's external collaborators.
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

// Engine runs the FI pipeline for one project at a time.
type Engine struct {
	deps        Deps
	chunk       config.ChunkConfig
	concurrency int
	stopOK      int
	onProgress  func(processed, total int, relPath string)
}

// New constructs an Engine. stopOK is the PA min_confidence threshold
// that, short of full completion, still satisfies FI's precondition.
func New(deps Deps, chunkCfg config.ChunkConfig, maxConcurrentFiles, stopOK int) *Engine {
	if maxConcurrentFiles <= 0 {
		maxConcurrentFiles = 1
	}
	return &Engine{deps: deps, chunk: chunkCfg, concurrency: maxConcurrentFiles, stopOK: stopOK}
}

// SetProgressFunc registers a callback invoked after every queued file
// finishes (successfully or not), reporting how many of the total queued
// files have completed so far. Passing nil disables reporting.
func (e *Engine) SetProgressFunc(fn func(processed, total int, relPath string)) {
	e.onProgress = fn
}

// Stats summarizes one Run call.
type Stats struct {
	Processed int
	Failed    int
	Skipped   int
}

func isTransient(err error) bool { return semerr.Is(err, semerr.KindTransient) }

// loadPA reads the PA record and enforces C9's precondition: PA must be
// completed, or its min_confidence must already clear StopOK.
func (e *Engine) loadPA(ctx context.Context, project string) (*analysis.Project, error) {
	state := analysis.New()
	found, err := e.deps.Checkpoint.GetPAState(ctx, project, state)
	if err != nil {
		return nil, semerr.Fatal("fileindex_load_pa", err)
	}
	if !found {
		return nil, semerr.Precondition("fileindex_pa_missing", fmt.Errorf("no project analysis exists for %s", project))
	}
	if !state.Completed && state.MinConfidence() < e.stopOK {
		return nil, semerr.Precondition("fileindex_pa_insufficient", fmt.Errorf("project analysis is neither completed nor at stop_ok confidence"))
	}
	return state, nil
}

// Run executes the FI pipeline against project, per the specification's
// C9 pseudocode.
func (e *Engine) Run(ctx context.Context, project string, force bool) (Stats, error) {
	return e.RunFiltered(ctx, project, force, nil, nil)
}

// RunFiltered is Run with the orchestrator's optional include/exclude glob
// overlay on top of the scanner's own defaults, for index_files(P, force,
// include?, exclude?).
func (e *Engine) RunFiltered(ctx context.Context, project string, force bool, include, exclude []string) (Stats, error) {
	root, err := filepath.Abs(project)
	if err != nil {
		return Stats{}, semerr.Fatal("fileindex_run", err)
	}
	project = root

	pa, err := e.loadPA(ctx, project)
	if err != nil {
		return Stats{}, err
	}

	if force {
		if err := e.deps.Vectors.Drop(project, vectorstore.KindFiles); err != nil {
			return Stats{}, semerr.Fatal("fileindex_drop_collection", err)
		}
		if err := e.deps.Checkpoint.DeleteByProjectAndKind(ctx, checkpoint.KindFI, project); err != nil {
			return Stats{}, semerr.Fatal("fileindex_clear_checkpoints", err)
		}
	}

	scanCfg := scanner.Config{Root: project}
	if len(include) > 0 {
		scanCfg.Include = include
	}
	if len(exclude) > 0 {
		scanCfg.Exclude = exclude
	}
	records, err := scanner.Scan(scanCfg)
	if err != nil {
		return Stats{}, semerr.Fatal("fileindex_scan", err)
	}

	if err := e.writeProjectContextDocument(ctx, project, pa); err != nil {
		return Stats{}, err
	}

	var queued []scanner.FileRecord
	for _, r := range records {
		reindex, err := e.deps.Checkpoint.ShouldReindex(ctx, checkpoint.KindFI, project, r.RelPath, r.Hash)
		if err != nil {
			return Stats{}, semerr.Fatal("fileindex_should_reindex", err)
		}
		if reindex {
			queued = append(queued, r)
		}
	}

	var (
		stats      Stats
		mu         sync.Mutex
		wg         sync.WaitGroup
		sem        = make(chan struct{}, e.concurrency)
		depsByFile = make(map[string][]string, len(queued))
	)
	stats.Skipped = len(records) - len(queued)
	total := len(queued)
	var done int

	for _, r := range queued {
		r := r
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ok, deps := e.indexFile(ctx, project, r, pa)

			mu.Lock()
			if ok {
				stats.Processed++
				if len(deps) > 0 {
					depsByFile[r.RelPath] = deps
				}
			} else {
				stats.Failed++
			}
			done++
			if e.onProgress != nil {
				e.onProgress(done, total, r.RelPath)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if err := e.writeReverseDependencyDocs(ctx, project, depsByFile); err != nil {
		return stats, err
	}

	return stats, nil
}

// indexFile runs the chunk -> analyze -> embed -> upsert pipeline for
// one file, writing a completed or failed checkpoint row in all cases.
// On success it also returns the file's import/dependency names (best
// effort; extraction failures never fail the file), for the caller to
// fold into the run's reverse-dependency documents.
func (e *Engine) indexFile(ctx context.Context, project string, r scanner.FileRecord, pa *analysis.Project) (bool, []string) {
	content, err := scanner.ReadFile(project, r.RelPath)
	if err != nil {
		e.putFailure(ctx, project, r, err)
		e.deps.Telemetry.IncFailedUnits()
		return false, nil
	}
	e.deps.Telemetry.IncFilesScanned()

	chunks := chunker.Split(string(content), r.Language, e.chunk.MaxTokens, e.chunk.OverlapTokens)

	docs := make([]vectorstore.Document, 0, len(chunks))
	for _, c := range chunks {
		summary, err := e.analyzeChunk(ctx, r, c, pa)
		if err != nil {
			e.putFailure(ctx, project, r, err)
			e.deps.Telemetry.IncFailedUnits()
			return false, nil
		}

		embeddingText := buildEmbeddingText(r.RelPath, c, summary)
		vec, err := e.embed(ctx, embeddingText)
		if err != nil {
			e.putFailure(ctx, project, r, err)
			e.deps.Telemetry.IncFailedUnits()
			return false, nil
		}
		e.deps.Telemetry.IncChunksEmbedded()

		docs = append(docs, vectorstore.Document{
			ID:        chunkDocID(r.RelPath, c.Index),
			Text:      c.Content,
			Embedding: vec,
			Metadata: map[string]any{
				"relative_path": r.RelPath,
				"language":      r.Language,
				"chunk_index":   c.Index,
				"chunk_total":   c.Total,
				"start_line":    c.StartLine,
				"end_line":      c.EndLine,
				"summary":       summary,
				"content_hash":  r.Hash,
			},
		})
	}

	if err := e.deps.Vectors.Upsert(ctx, project, vectorstore.KindFiles, docs); err != nil {
		e.putFailure(ctx, project, r, err)
		e.deps.Telemetry.IncFailedUnits()
		return false, nil
	}

	_ = e.deps.Checkpoint.Put(ctx, checkpoint.KindFI, project, checkpoint.FileRow{
		RelPath: r.RelPath, Hash: r.Hash, Count: len(docs), Status: checkpoint.StatusCompleted,
	})
	e.deps.Telemetry.IncCompletedUnits()
	return true, extractDependencyNames(r, content)
}

// extractDependencyNames returns the deduplicated import paths r's content
// declares, via the same per-language ast.Extractor used for function
// extraction. A language with no dedicated extractor falls back to the
// generic one, which returns no imports, so unsupported languages simply
// contribute nothing to the reverse-dependency view.
func extractDependencyNames(r scanner.FileRecord, content []byte) []string {
	imports, err := ast.Dispatch(r.Language).ExtractImports(content, r.RelPath)
	if err != nil || len(imports) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(imports))
	names := make([]string, 0, len(imports))
	for _, imp := range imports {
		if imp.Path == "" || seen[imp.Path] {
			continue
		}
		seen[imp.Path] = true
		names = append(names, imp.Path)
	}
	return names
}

func (e *Engine) putFailure(ctx context.Context, project string, r scanner.FileRecord, cause error) {
	_ = e.deps.Checkpoint.Put(ctx, checkpoint.KindFI, project, checkpoint.FileRow{
		RelPath: r.RelPath, Hash: r.Hash, Count: 0, Status: checkpoint.StatusFailed, Error: cause.Error(),
	})
}

// analyzeChunk summarizes one chunk via the LLM, gated by C1.
func (e *Engine) analyzeChunk(ctx context.Context, r scanner.FileRecord, c chunker.Chunk, pa *analysis.Project) (string, error) {
	messages := buildChunkAnalysisMessages(r.RelPath, r.Language, c, pa)
	estTokens := chunker.EstimateTokens(c.Content) + 512

	attempt := 0
	resp, err := ratelimit.ExecuteWithRetry(ctx, e.deps.Limiter, isTransient, func(ctx context.Context) (*llmprovider.CompletionResponse, error) {
		if attempt > 0 {
			e.deps.Telemetry.IncLLMRetries()
		}
		attempt++
		if err := e.deps.Limiter.Acquire(ctx, estTokens); err != nil {
			return nil, err
		}
		e.deps.Telemetry.IncLLMCalls()
		return e.deps.Provider.Complete(ctx, llmprovider.CompletionRequest{
			Model: e.deps.Model, Messages: messages, MaxTokens: 512, Temperature: 0.1, JSONMode: true,
		})
	})
	if err != nil {
		return "", err
	}
	return parseChunkSummary(resp.Content), nil
}

// embed turns text into a vector, gated by C1.
func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	estTokens := chunker.EstimateTokens(text)
	vecs, err := ratelimit.ExecuteWithRetry(ctx, e.deps.Limiter, isTransient, func(ctx context.Context) ([][]float32, error) {
		if err := e.deps.Limiter.Acquire(ctx, estTokens); err != nil {
			return nil, err
		}
		e.deps.Telemetry.IncEmbedCalls()
		return e.deps.Embedder.Embed(ctx, []string{text})
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("fileindex: embedder returned no vectors")
	}
	return vecs[0], nil
}

// writeProjectContextDocument writes the synthetic self-description
// document the specification requires FI to maintain alongside the
// per-chunk documents.
func (e *Engine) writeProjectContextDocument(ctx context.Context, project string, pa *analysis.Project) error {
	text := pa.Description.Value
	vec, err := e.embed(ctx, text)
	if err != nil {
		return err
	}
	doc := vectorstore.Document{
		ID:   projectContextDocID(),
		Text: text,
		Embedding: vec,
		Metadata: map[string]any{
			"doc_type":     "project_context",
			"description":  pa.Description.Value,
			"languages":    vectorstore.EncodeList(pa.Languages.Value),
			"frameworks":   vectorstore.EncodeList(pa.Frameworks.Value),
			"modules":      vectorstore.EncodeList(pa.Modules.Value),
			"entry_points": vectorstore.EncodeList(pa.EntryPoints.Value),
			"architecture": pa.Architecture.Value,
		},
	}
	return e.deps.Vectors.Upsert(ctx, project, vectorstore.KindFiles, []vectorstore.Document{doc})
}

// writeReverseDependencyDocs builds one synthetic "used by N files" document
// per import/dependency name shared by 2+ files in this run, so files search
// can answer blast-radius ("what depends on X") queries. depsByFile holds
// the successfully-extracted import names keyed by relative path; a nil or
// empty map is a no-op rather than an error, since dependency extraction
// is best-effort per file.
func (e *Engine) writeReverseDependencyDocs(ctx context.Context, project string, depsByFile map[string][]string) error {
	if len(depsByFile) == 0 {
		return nil
	}

	reverse := make(map[string][]string)
	for relPath, deps := range depsByFile {
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], relPath)
		}
	}

	if err := e.deps.Vectors.DeleteWhere(ctx, project, vectorstore.KindFiles, vectorstore.Predicate{"doc_type": "reverse_dependency"}); err != nil {
		return semerr.Fatal("fileindex_clear_reverse_deps", err)
	}

	var docs []vectorstore.Document
	for dep, dependents := range reverse {
		if len(dependents) < 2 {
			continue
		}
		sort.Strings(dependents)

		text := buildReverseDependencyText(dep, dependents)
		vec, err := e.embed(ctx, text)
		if err != nil {
			return err
		}
		docs = append(docs, vectorstore.Document{
			ID:   reverseDependencyDocID(dep),
			Text: text,
			Embedding: vec,
			Metadata: map[string]any{
				"doc_type":        "reverse_dependency",
				"dependency":      dep,
				"dependent_count": len(dependents),
				"dependents":      vectorstore.EncodeList(dependents),
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}
	return e.deps.Vectors.Upsert(ctx, project, vectorstore.KindFiles, docs)
}

func buildReverseDependencyText(dep string, dependents []string) string {
	text := fmt.Sprintf("Dependency: %s\nUsed by %d files (blast radius):\n", dep, len(dependents))
	for _, f := range dependents {
		text += fmt.Sprintf("- %s depends on %s\n", f, dep)
	}
	text += fmt.Sprintf("\nChanges to %s could affect all %d files listed above.", dep, len(dependents))
	return text
}

func reverseDependencyDocID(dep string) string {
	return fmt.Sprintf("__reverse_dep__%s", dep)
}

// UpdateFiles reruns the per-file pipeline for exactly paths, deleting
// their prior documents first, per the specification's update_files.
func (e *Engine) UpdateFiles(ctx context.Context, project string, paths []string) (Stats, error) {
	root, err := filepath.Abs(project)
	if err != nil {
		return Stats{}, semerr.Fatal("fileindex_update_files", err)
	}
	project = root

	pa, err := e.loadPA(ctx, project)
	if err != nil {
		return Stats{}, err
	}

	records, err := scanner.Scan(scanner.Config{Root: project})
	if err != nil {
		return Stats{}, semerr.Fatal("fileindex_scan", err)
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
		if err := e.deps.Vectors.DeleteWhere(ctx, project, vectorstore.KindFiles, vectorstore.Predicate{"relative_path": p}); err != nil {
			return stats, semerr.Fatal("fileindex_delete_docs", err)
		}
		if err := e.deps.Checkpoint.DeleteFile(ctx, checkpoint.KindFI, project, p); err != nil {
			return stats, semerr.Fatal("fileindex_delete_checkpoint", err)
		}
		if ok, _ := e.indexFile(ctx, project, r, pa); ok {
			stats.Processed++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

// RemoveFiles deletes every indexed document and checkpoint row for
// paths, per the specification's remove_files.
func (e *Engine) RemoveFiles(ctx context.Context, project string, paths []string) error {
	root, err := filepath.Abs(project)
	if err != nil {
		return semerr.Fatal("fileindex_remove_files", err)
	}
	project = root

	for _, p := range paths {
		if err := e.deps.Vectors.DeleteWhere(ctx, project, vectorstore.KindFiles, vectorstore.Predicate{"relative_path": p}); err != nil {
			return semerr.Fatal("fileindex_remove_vectors", err)
		}
		if err := e.deps.Checkpoint.DeleteFile(ctx, checkpoint.KindFI, project, p); err != nil {
			return semerr.Fatal("fileindex_remove_checkpoint", err)
		}
	}
	return nil
}

func chunkDocID(relPath string, index int) string {
	return fmt.Sprintf("%s#%d", relPath, index)
}

func projectContextDocID() string {
	return "__project_context__"
}

func buildEmbeddingText(relPath string, c chunker.Chunk, summary string) string {
	return fmt.Sprintf("File: %s\nSummary: %s\n\n%s", relPath, summary, c.Content)
}
