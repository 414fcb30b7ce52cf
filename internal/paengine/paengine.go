// Package paengine implements the PA Engine (C7): the iterative
// convergence loop that refines a project's description, languages,
// frameworks, modules, entry points, and architecture by feeding batches
// of file contents to an LLM and merging confidence-weighted fields
// until a stopping threshold is met. Grounded on the teacher's
// FileAnalyzer.Analyze (internal/indexer/analyzer.go): the same
// multi-step JSON parse-repair-retry ladder (completeWithRetry,
// tryRepairJSON, parseAnalysis, the truncation/temperature/fallback
// chain) is generalized here from "one file -> one analysis" into
// "one batch of files -> one merged understanding".
package paengine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/chunker"
	"github.com/semindex/semindex/internal/config"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/scanner"
	"github.com/semindex/semindex/internal/semerr"
	"github.com/semindex/semindex/internal/telemetry"
)

// Deps are the engine's external collaborators, all already constructed.
type Deps struct {
	Checkpoint  *checkpoint.Store
	Limiter     *ratelimit.Limiter
	Provider    llmprovider.Provider
	Model       string
	IsTransient ratelimit.Classifier
	// Telemetry is optional; a nil value disables counting.
	Telemetry *telemetry.Counters
}

// Engine runs the PA convergence loop for one project at a time.
type Engine struct {
	deps Deps
	cfg  config.PAConfig
}

// New constructs an Engine bound to deps and the convergence thresholds
// in cfg.
func New(deps Deps, cfg config.PAConfig) *Engine {
	return &Engine{deps: deps, cfg: cfg}
}

// fileContext is one file's content bundled with its relative path for a
// single LLM request.
type fileContext struct {
	RelPath string
	Content string
}

// Run executes the convergence loop described in the specification's PA
// Engine pseudocode: load-or-init, seed the first level, iterate reading
// batches and merging LLM responses until a stop condition fires or
// MAX_ITERATIONS is exhausted.
func (e *Engine) Run(ctx context.Context, project string, force bool) (*analysis.Project, error) {
	root, err := filepath.Abs(project)
	if err != nil {
		return nil, semerr.Fatal("paengine_run", err)
	}

	state := analysis.New()
	found, err := e.deps.Checkpoint.GetPAState(ctx, root, state)
	if err != nil {
		return nil, semerr.Fatal("paengine_load_state", err)
	}
	if found && state.Completed && !force {
		return state, nil
	}
	if force {
		if err := e.deps.Checkpoint.ClearPA(ctx, root); err != nil {
			return nil, semerr.Fatal("paengine_clear", err)
		}
		state = analysis.New()
	}

	records, err := scanner.Scan(scanner.Config{Root: root})
	if err != nil {
		return nil, semerr.Fatal("paengine_scan", err)
	}
	existing := make(map[string]bool, len(records))
	for _, r := range records {
		existing[r.RelPath] = true
	}

	filesQueue := seedFirstLevel(records)
	tree := renderTree(records, e.cfg.TreeMaxDepth, e.cfg.TreeMaxPerDir)

	for iteration := 0; iteration < e.cfg.MaxIterations; iteration++ {
		next := filterToUnreadExisting(filesQueue, existing, state.FilesAnalyzed)
		if len(next) > e.cfg.BatchSize {
			next = next[:e.cfg.BatchSize]
		}
		if len(next) == 0 {
			if state.MinConfidence() >= e.cfg.StopHigh || state.MinConfidence() >= e.cfg.StopOK {
				state.Completed = true
			}
			break
		}

		contexts, err := readContents(root, next, e.cfg.MaxFileBytes)
		if err != nil {
			return state, semerr.Fatal("paengine_read_contents", err)
		}
		for range contexts {
			e.deps.Telemetry.IncFilesScanned()
		}
		state.MarkAnalyzed(next...)

		update, err := e.llmCallWithValidation(ctx, state, tree, contexts)
		if err != nil {
			e.deps.Telemetry.IncFailedUnits()
			return state, err
		}
		e.deps.Telemetry.IncCompletedUnits()
		state = analysis.Merge(state, update)

		snapshot := *state
		if err := e.deps.Checkpoint.PutIteration(ctx, root, iteration, next, next, snapshot); err != nil {
			return state, semerr.Fatal("paengine_put_iteration", err)
		}
		if err := e.deps.Checkpoint.PutPAState(ctx, root, state); err != nil {
			return state, semerr.Fatal("paengine_put_state", err)
		}

		filesQueue = filterExisting(update.NextPath, existing)
		if state.MinConfidence() >= e.cfg.StopHigh && len(filesQueue) == 0 {
			state.Completed = true
			break
		}
	}

	if !state.Completed {
		if state.MinConfidence() >= e.cfg.StopOK || state.AvgConfidence() >= e.cfg.StopAvg {
			state.Completed = true
		}
	}
	if err := e.deps.Checkpoint.PutPAState(ctx, root, state); err != nil {
		return state, semerr.Fatal("paengine_put_state", err)
	}
	return state, nil
}

// filterToUnreadExisting keeps the entries of queue that are present in
// existing (still on disk, per the last scan) and not yet in analyzed,
// preserving order and dropping duplicates.
func filterToUnreadExisting(queue []string, existing, analyzed map[string]bool) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(queue))
	for _, p := range queue {
		if seen[p] || analyzed[p] || !existing[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// filterExisting keeps only the paths still present in the last scan,
// used to sanitize the LLM-directed next_path list.
func filterExisting(paths []string, existing map[string]bool) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if existing[p] {
			out = append(out, p)
		}
	}
	return out
}

// seedFirstLevel picks README files, common manifest files, and the
// immediate entries of conventional top-level source directories, per
// the specification's "README, manifests, top entries of {src, lib,
// app, ...}" seeding rule.
func seedFirstLevel(records []scanner.FileRecord) []string {
	manifestNames := map[string]bool{
		"go.mod": true, "package.json": true, "pyproject.toml": true,
		"requirements.txt": true, "Cargo.toml": true, "pom.xml": true,
		"build.gradle": true, "build.gradle.kts": true, "composer.json": true,
		"Gemfile": true, "setup.py": true,
	}
	sourceDirs := map[string]bool{
		"src": true, "lib": true, "app": true, "cmd": true, "internal": true, "pkg": true,
	}
	const maxPerSourceDir = 10

	var seeds []string
	perDirCount := map[string]int{}
	for _, r := range records {
		base := filepath.Base(r.RelPath)
		if isReadme(base) || manifestNames[base] {
			seeds = append(seeds, r.RelPath)
			continue
		}
		segs := splitPath(r.RelPath)
		if len(segs) == 2 && sourceDirs[segs[0]] {
			if perDirCount[segs[0]] < maxPerSourceDir {
				seeds = append(seeds, r.RelPath)
				perDirCount[segs[0]]++
			}
		}
	}
	sort.Strings(seeds)
	return seeds
}

func isReadme(base string) bool {
	switch base {
	case "README.md", "README", "README.rst", "README.txt", "readme.md":
		return true
	default:
		return false
	}
}

func splitPath(relPath string) []string {
	var segs []string
	for _, s := range strings.Split(filepath.ToSlash(relPath), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// readContents reads each relative path under root, truncating to
// maxBytes (the specification's CAP), and skips unreadable files rather
// than aborting the batch.
func readContents(root string, relPaths []string, maxBytes int) ([]fileContext, error) {
	out := make([]fileContext, 0, len(relPaths))
	for _, rp := range relPaths {
		data, err := os.ReadFile(filepath.Join(root, rp))
		if err != nil {
			continue
		}
		if maxBytes > 0 && len(data) > maxBytes {
			data = data[:maxBytes]
		}
		out = append(out, fileContext{RelPath: rp, Content: string(data)})
	}
	return out, nil
}

// estimateRequestTokens approximates the token budget a completion
// request will consume, reusing the chunker's deterministic estimator so
// C1 and C7 agree on a single notion of "token".
func estimateRequestTokens(messages []llmprovider.Message) int {
	total := 0
	for _, m := range messages {
		total += chunker.EstimateTokens(m.Content)
	}
	return total
}
