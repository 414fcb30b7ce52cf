// Package query implements the Query Engine (C11): embeds a query string,
// runs a filtered top-k search against a project's files or functions
// collection, strips the synthetic project-context hit, and shapes the
// result per kind. Grounded on the same rate-limited embed-then-search call
// shape already established in internal/fileindex and internal/funcindex,
// with no direct teacher analogue (the teacher never exposes an ad hoc
// search surface; it indexes and writes docs out to a fixed report).
package query

import (
	"context"
	"errors"
	"sort"

	"github.com/semindex/semindex/internal/embedder"
	"github.com/semindex/semindex/internal/ratelimit"
	"github.com/semindex/semindex/internal/semerr"
	"github.com/semindex/semindex/internal/vectorstore"
)

var errNoEmbedding = errors.New("embedder returned no vectors for query")

// Deps are query's external collaborators.
type Deps struct {
	Vectors  *vectorstore.Store
	Limiter  *ratelimit.Limiter
	Embedder embedder.Embedder
}

// Engine runs searches against a project's indexed collections.
type Engine struct {
	deps Deps
}

// New constructs an Engine.
func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// Kind names a searchable collection.
type Kind string

const (
	KindFiles     Kind = "files"
	KindFunctions Kind = "functions"
)

func (k Kind) vectorstoreKind() vectorstore.Kind {
	if k == KindFunctions {
		return vectorstore.KindFunctions
	}
	return vectorstore.KindFiles
}

const projectContextDocID = "__project_context__"

// Result is one shaped search hit.
type Result struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]any
}

// FileResult is a file-kind search response: the raw chunk hits plus a
// deduplicated best-per-path view.
type FileResult struct {
	Hits     []Result
	BestPath []Result // highest-scoring chunk per relative_path, score descending
}

func isTransient(err error) bool { return semerr.Is(err, semerr.KindTransient) }

// SearchFunctions runs a functions-kind search.
func (e *Engine) SearchFunctions(ctx context.Context, project, queryText string, topK int, filters vectorstore.Predicate) ([]Result, error) {
	hits, err := e.search(ctx, project, KindFunctions, queryText, topK, filters)
	if err != nil {
		return nil, err
	}
	return toResults(hits), nil
}

// SearchFiles runs a files-kind search, also returning the deduplicated
// best-per-path view the specification requires.
func (e *Engine) SearchFiles(ctx context.Context, project, queryText string, topK int, filters vectorstore.Predicate) (FileResult, error) {
	hits, err := e.search(ctx, project, KindFiles, queryText, topK, filters)
	if err != nil {
		return FileResult{}, err
	}
	results := toResults(hits)
	return FileResult{Hits: results, BestPath: bestPerPath(results)}, nil
}

// search embeds queryText, acquires rate-limit tokens, runs the filtered
// top-k query, and drops the synthetic project-context hit if present.
func (e *Engine) search(ctx context.Context, project string, kind Kind, queryText string, topK int, filters vectorstore.Predicate) ([]vectorstore.Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	embedding, err := e.embedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}

	// The project-context doc may occupy a top-k slot, so over-fetch by one
	// to keep the caller's requested count after dropping it.
	hits, err := e.deps.Vectors.Query(ctx, project, kind.vectorstoreKind(), embedding, topK+1, filters)
	if err != nil {
		return nil, semerr.Fatal("query_search", err)
	}

	filtered := hits[:0]
	for _, h := range hits {
		if h.ID == projectContextDocID {
			continue
		}
		filtered = append(filtered, h)
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}

func (e *Engine) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	vecs, err := ratelimit.ExecuteWithRetry(ctx, e.deps.Limiter, isTransient, func(ctx context.Context) ([][]float32, error) {
		if err := e.deps.Limiter.Acquire(ctx, 500); err != nil {
			return nil, semerr.Transient("query_embed", err)
		}
		return e.deps.Embedder.Embed(ctx, []string{queryText})
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, semerr.Fatal("query_embed", errNoEmbedding)
	}
	return vecs[0], nil
}

func toResults(hits []vectorstore.Hit) []Result {
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{ID: h.ID, Score: h.Score, Text: h.Text, Metadata: h.Metadata}
	}
	return out
}

// bestPerPath keeps the highest-scoring chunk per relative_path, sorted by
// score descending.
func bestPerPath(results []Result) []Result {
	best := make(map[string]Result)
	for _, r := range results {
		path, _ := r.Metadata["relative_path"].(string)
		cur, ok := best[path]
		if !ok || r.Score > cur.Score {
			best[path] = r
		}
	}
	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
