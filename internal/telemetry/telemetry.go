// Package telemetry records per-stage counters for the indexing pipeline
// so that the CLI can report them after the command that did the work;
// check_status does not read them (it aggregates from C2). It does not log;
// diagnostic logging stays at the call site via fmt/os.Stderr the way the
// rest of this codebase does it.
package telemetry

import "sync/atomic"

// Counters is a set of monotonically increasing counters, safe for
// concurrent use by the bounded-concurrency workers in C9/C10.
type Counters struct {
	filesScanned   atomic.Int64
	chunksEmbedded atomic.Int64
	llmCalls       atomic.Int64
	llmRetries     atomic.Int64
	embedCalls     atomic.Int64
	failedUnits    atomic.Int64
	completedUnits atomic.Int64
}

// Snapshot is an immutable read of a Counters at a point in time.
type Snapshot struct {
	FilesScanned   int64
	ChunksEmbedded int64
	LLMCalls       int64
	LLMRetries     int64
	EmbedCalls     int64
	FailedUnits    int64
	CompletedUnits int64
}

// New returns a zeroed Counters.
func New() *Counters { return &Counters{} }

// Every Inc method is nil-receiver safe so callers can hold an optional
// *Counters (e.g. Deps.Telemetry left unset in tests) without a guard at
// each call site.
func (c *Counters) IncFilesScanned() {
	if c != nil {
		c.filesScanned.Add(1)
	}
}

func (c *Counters) IncChunksEmbedded() {
	if c != nil {
		c.chunksEmbedded.Add(1)
	}
}

func (c *Counters) IncLLMCalls() {
	if c != nil {
		c.llmCalls.Add(1)
	}
}

func (c *Counters) IncLLMRetries() {
	if c != nil {
		c.llmRetries.Add(1)
	}
}

func (c *Counters) IncEmbedCalls() {
	if c != nil {
		c.embedCalls.Add(1)
	}
}

func (c *Counters) IncFailedUnits() {
	if c != nil {
		c.failedUnits.Add(1)
	}
}

func (c *Counters) IncCompletedUnits() {
	if c != nil {
		c.completedUnits.Add(1)
	}
}

// Snapshot returns a consistent-enough read of every counter. Individual
// fields may be read out of lockstep with each other under contention;
// that is acceptable for a progress display. A nil Counters reports a
// zero Snapshot.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		FilesScanned:   c.filesScanned.Load(),
		ChunksEmbedded: c.chunksEmbedded.Load(),
		LLMCalls:       c.llmCalls.Load(),
		LLMRetries:     c.llmRetries.Load(),
		EmbedCalls:     c.embedCalls.Load(),
		FailedUnits:    c.failedUnits.Load(),
		CompletedUnits: c.completedUnits.Load(),
	}
}
