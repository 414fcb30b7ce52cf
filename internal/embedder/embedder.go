// Package embedder defines the external embedding interface the FI engine
// (C9) and FuI engine (C10) call through, plus a go-openai-backed
// implementation. Adapted from ziadkadry99-auto-doc/internal/embeddings/
// {embedder.go,openai.go}, dropping the chromem/google/ollama variants
// since only go-openai is wired per this system's domain stack.
package embedder

import "context"

// Embedder generates embeddings for one or more texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}
