// Package vectorstore implements the vector store facade (C3): per
// (project, kind) scoped collections over chromem-go, with metadata
// restricted to the {string, int, float, bool} union and list fields
// flattened to delimited strings on write and split back out on read.
// It generalizes the teacher's ChromemStore (internal/vectordb/chromem.go),
// which keeps everything in one hardcoded "codebase" collection, into the
// per-project-per-kind collection naming the specification requires.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Kind names one of the three collection kinds a project can have.
type Kind string

const (
	KindAnalysis  Kind = "analysis"
	KindFiles     Kind = "files"
	KindFunctions Kind = "functions"
)

const listDelimiter = "\x1f" // unit separator; disallowed in producing fields

// Document is what C7/C9/C10 write and C11 reads back.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// Hit is one result of a Query call.
type Hit struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float32 // in [0, 1], monotonically decreasing with distance
}

// Predicate filters documents by exact metadata match (AND across keys).
// chromem-go's where-clause only supports string equality, so predicate
// values are stringified with the same encoding used on write.
type Predicate map[string]string

// Store is the vector store facade, scoped per project.
type Store struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// New constructs an empty, in-process Store. Persistence to disk (the
// on-disk vector store internals) is an external collaborator's concern
// per the specification; callers that want durability call Persist/Load.
func New() *Store {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

// CollectionName implements collection_name(P, kind) = f"{kind}_{hash12(P)}".
func CollectionName(project string, kind Kind) string {
	return fmt.Sprintf("%s_%s", kind, hash12(project))
}

func hash12(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// noopEmbed satisfies chromem's EmbeddingFunc signature; every Document we
// add already carries its embedding, so this is never actually invoked in
// practice (chromem only calls it when AddDocument omits an embedding).
func noopEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("vectorstore: no embedding supplied for document text %q", truncate(text, 40))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (s *Store) collection(project string, kind Kind) (*chromem.Collection, error) {
	name := CollectionName(project, kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(name, nil, noopEmbed)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create collection %s: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

// Upsert writes docs into the (project, kind) collection, replacing any
// existing document sharing an id atomically as observed by subsequent
// queries (chromem-go's AddDocuments keys by id internally).
func (s *Store) Upsert(ctx context.Context, project string, kind Kind, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := s.collection(project, kind)
	if err != nil {
		return err
	}

	chromeDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromeDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Text,
			Embedding: d.Embedding,
			Metadata:  EncodeMetadata(d.Metadata),
		}
	}
	return col.AddDocuments(ctx, chromeDocs, 1)
}

// DeleteByIDs removes documents by id from the (project, kind) collection.
func (s *Store) DeleteByIDs(ctx context.Context, project string, kind Kind, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := s.collection(project, kind)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, ids...)
}

// DeleteWhere removes every document in the (project, kind) collection
// matching pred.
func (s *Store) DeleteWhere(ctx context.Context, project string, kind Kind, pred Predicate) error {
	col, err := s.collection(project, kind)
	if err != nil {
		return err
	}
	return col.Delete(ctx, map[string]string(pred), nil)
}

// Query embeds-free top-k search: embedding is supplied by the caller
// (C11 already ran it through the rate limiter and the embedding
// provider), so this performs the vector comparison directly.
func (s *Store) Query(ctx context.Context, project string, kind Kind, embedding []float32, topK int, pred Predicate) ([]Hit, error) {
	col, err := s.collection(project, kind)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.QueryEmbedding(ctx, embedding, topK, map[string]string(pred), nil)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		distance := 1 - r.Similarity
		if distance < 0 {
			distance = 0
		}
		hits[i] = Hit{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: DecodeMetadata(r.Metadata),
			Score:    1 / (1 + distance),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// Drop removes the entire (project, kind) collection, used by a force
// reindex ("drop FI vector collection" / "drop FuI vector collection").
func (s *Store) Drop(project string, kind Kind) error {
	name := CollectionName(project, kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return s.db.DeleteCollection(name)
}

// Count returns the document count of the (project, kind) collection.
func (s *Store) Count(project string, kind Kind) int {
	s.mu.Lock()
	col, ok := s.collections[CollectionName(project, kind)]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return col.Count()
}

// Persist exports every known collection's backing DB to dir.
func (s *Store) Persist(dir string) error {
	return s.db.ExportToFile(dir+"/vectorstore.gob.gz", true, "")
}

// Load imports a previously persisted DB, replacing the in-memory one.
// Existing *Collection handles are dropped; callers must not hold onto
// them across Load.
func (s *Store) Load(dir string) error {
	db := chromem.NewDB()
	if err := db.ImportFromFile(dir+"/vectorstore.gob.gz", ""); err != nil {
		return fmt.Errorf("vectorstore: load: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = db
	s.collections = make(map[string]*chromem.Collection)
	return nil
}

// EncodeMetadata flattens a restricted-union metadata map into the
// map[string]string chromem-go requires: scalars are formatted in their
// natural representation, []string fields are comma-... actually
// unit-separator-joined (lossless, since the delimiter is disallowed in
// producing fields).
func EncodeMetadata(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float32:
			out[k] = strconv.FormatFloat(float64(val), 'f', -1, 32)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case []string:
			out[k] = strings.Join(val, listDelimiter)
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// DecodeMetadata returns the flat string map back as an any-valued map,
// leaving every value as a string; callers that know a field is a list
// split it with DecodeList, and callers that know a field is numeric
// parse it themselves. This mirrors chromem-go's own storage model
// (map[string]string) rather than guessing types back.
func DecodeMetadata(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecodeList splits a comma-... unit-separator-joined list field written
// by EncodeMetadata. Empty string decodes to nil, not [""].
func DecodeList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listDelimiter)
}

// EncodeList is the inverse of DecodeList, exposed for callers that build
// metadata maps incrementally rather than through EncodeMetadata.
func EncodeList(items []string) string {
	return strings.Join(items, listDelimiter)
}
