package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/config"
	"github.com/semindex/semindex/internal/embedder"
	"github.com/semindex/semindex/internal/fileindex"
	"github.com/semindex/semindex/internal/funcindex"
	"github.com/semindex/semindex/internal/llmprovider"
	"github.com/semindex/semindex/internal/orchestrator"
	"github.com/semindex/semindex/internal/paengine"
	"github.com/semindex/semindex/internal/query"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/semerr"
	"github.com/semindex/semindex/internal/telemetry"
	"github.com/semindex/semindex/internal/vectorstore"
)

const vectorstoreFileName = "vectorstore.gob.gz"

// app bundles the wired engines one command invocation needs, plus the
// stores a command must persist/close before exiting.
type app struct {
	storageDir   string
	checkpoint   *checkpoint.Store
	vectors      *vectorstore.Store
	orchestrator *orchestrator.Orchestrator
	query        *query.Engine
	fi           *fileindex.Engine
	fui          *funcindex.Engine
	telemetry    *telemetry.Counters
	model        string
	embedModel   embedder.Model
}

// openApp wires C1-C12 for projectPath the same way for every command:
// a checkpoint store and vector store under <projectPath>/<storage root>,
// an OpenAI-backed provider and embedder, and the orchestrator/query
// engines built over them.
func openApp(projectPath string) (*app, error) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	storageDir := filepath.Join(projectPath, cfg.Storage.Root)
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir %s: %w", storageDir, err)
	}

	cp, err := checkpoint.Open(filepath.Join(storageDir, "checkpoint.db"))
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}

	vectors := vectorstore.New()
	if _, err := os.Stat(filepath.Join(storageDir, vectorstoreFileName)); err == nil {
		if err := vectors.Load(storageDir); err != nil {
			cp.Close()
			return nil, fmt.Errorf("loading vector store: %w", err)
		}
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		cp.Close()
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := os.Getenv("SEMINDEX_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	provider := llmprovider.NewOpenAIProvider(apiKey, model)
	embed := embedder.NewOpenAIEmbedder(apiKey, embedder.ModelTextEmbedding3Small)
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		TokensPerMinute:   cfg.RateLimit.TokensPerMinute,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		BaseBackoff:       cfg.RateLimit.BaseBackoff,
		MaxBackoff:        cfg.RateLimit.MaxBackoff,
	})

	counters := telemetry.New()

	paEngine := paengine.New(paengine.Deps{
		Checkpoint: cp, Limiter: limiter, Provider: provider, Model: model,
		IsTransient: llmprovider.IsTransient, Telemetry: counters,
	}, cfg.PA)

	fiEngine := fileindex.New(fileindex.Deps{
		Checkpoint: cp, Vectors: vectors, Limiter: limiter,
		Provider: provider, Embedder: embed, Model: model, Telemetry: counters,
	}, cfg.Chunk, cfg.Concurrency.MaxConcurrentFiles, cfg.PA.StopOK)

	fuiEngine := funcindex.New(funcindex.Deps{
		Checkpoint: cp, Vectors: vectors, Limiter: limiter,
		Provider: provider, Embedder: embed, Model: model, Telemetry: counters,
	}, cfg.Concurrency.MaxConcurrentFiles, cfg.Concurrency.MaxConcurrentFunctions, cfg.PA.StopOK)

	orch := orchestrator.New(cp, paEngine, fiEngine, fuiEngine, cfg.PA.StopOK)
	q := query.New(query.Deps{Vectors: vectors, Limiter: limiter, Embedder: embed})

	return &app{
		storageDir:   storageDir,
		checkpoint:   cp,
		vectors:      vectors,
		orchestrator: orch,
		query:        q,
		fi:           fiEngine,
		fui:          fuiEngine,
		telemetry:    counters,
		model:        model,
		embedModel:   embedder.ModelTextEmbedding3Small,
	}, nil
}

// close persists the vector store and closes the checkpoint store. Called
// via defer in every command's Run after openApp succeeds.
func (a *app) close() error {
	persistErr := a.vectors.Persist(a.storageDir)
	closeErr := a.checkpoint.Close()
	if persistErr != nil {
		return fmt.Errorf("persisting vector store: %w", persistErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing checkpoint store: %w", closeErr)
	}
	return nil
}

// exitCodeFor maps an operation error to the exit codes the CLI surface
// promises: 0 success, 2 precondition-not-met, 1 any other failure.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if semerr.Is(err, semerr.KindPrecondition) {
		return 2
	}
	return 1
}

// exitOnRunError reports err (if any) to stderr and exits with the code
// exitCodeFor assigns it. Commands call this after each fallible step instead
// of returning err to cobra, so the precondition exit code survives.
func exitOnRunError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCodeFor(err))
}

// printTelemetry reports the per-stage counters accumulated by a's engines
// during this process's lifetime. Counters reset every invocation, so this
// is only meaningful for the command that did the work, not for status.
func printTelemetry(a *app) {
	snap := a.telemetry.Snapshot()
	fmt.Fprintf(os.Stderr, "telemetry: files_scanned=%d chunks_embedded=%d llm_calls=%d llm_retries=%d embed_calls=%d completed_units=%d failed_units=%d\n",
		snap.FilesScanned, snap.ChunksEmbedded, snap.LLMCalls, snap.LLMRetries, snap.EmbedCalls, snap.CompletedUnits, snap.FailedUnits)
}
