// Package orchestrator implements the Orchestrator (C12): the only
// dependency-gated entry points callers (the cmd/ surface) invoke. It holds
// no indexing logic of its own — every operation fans out to C7
// (internal/paengine), C9 (internal/fileindex), or C10 (internal/funcindex)
// — and enforces the ordering rules the specification assigns to this
// component rather than to any one engine: full_index's PA-then-FI-then-FuI
// sequencing, update_files/remove_files fanning out to both FI and FuI, and
// check_status aggregating C2 across all three index kinds.
package orchestrator

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/checkpoint"
	"github.com/semindex/semindex/internal/fileindex"
	"github.com/semindex/semindex/internal/funcindex"
	"github.com/semindex/semindex/internal/paengine"
	"github.com/semindex/semindex/internal/semerr"
)

var (
	errPANotSufficient  = errors.New("project analysis did not reach completed or stop_ok confidence")
	errFIFailedOutright = errors.New("file index had no successfully processed files")
)

// Orchestrator wires the three engines together behind the specification's
// fixed entry-point surface.
type Orchestrator struct {
	checkpoint *checkpoint.Store
	pa         *paengine.Engine
	fi         *fileindex.Engine
	fui        *funcindex.Engine
	stopOK     int
}

// New constructs an Orchestrator over already-configured engines. stopOK
// mirrors the PAConfig.StopOK threshold used to build pa, fi, and fui, and
// governs full_index's "continue past PA" rule.
func New(store *checkpoint.Store, pa *paengine.Engine, fi *fileindex.Engine, fui *funcindex.Engine, stopOK int) *Orchestrator {
	return &Orchestrator{checkpoint: store, pa: pa, fi: fi, fui: fui, stopOK: stopOK}
}

// AnalyzeProject runs C7 for project.
func (o *Orchestrator) AnalyzeProject(ctx context.Context, project string, force bool) (*analysis.Project, error) {
	return o.pa.Run(ctx, project, force)
}

// IndexFiles runs C9 for project, gated on PA readiness (enforced inside
// fileindex.Engine.Run itself; this entry point exists so callers never
// reach into C9 directly).
func (o *Orchestrator) IndexFiles(ctx context.Context, project string, force bool, include, exclude []string) (fileindex.Stats, error) {
	return o.fi.RunFiltered(ctx, project, force, include, exclude)
}

// IndexFunctions runs C10 for project, gated on PA readiness and FI
// non-empty (enforced inside funcindex.Engine.Run).
func (o *Orchestrator) IndexFunctions(ctx context.Context, project string, force bool) (funcindex.Stats, error) {
	return o.fui.Run(ctx, project, force)
}

// FullIndexResult reports what each stage of a full_index run did.
type FullIndexResult struct {
	PA           *analysis.Project
	Files        fileindex.Stats
	Functions    funcindex.Stats
	RanFiles     bool
	RanFunctions bool
}

// FullIndex runs PA, then FI, then FuI, in strict sequence. Per the
// specification: proceed to FI even when PA didn't reach completed, as
// long as its min_confidence already clears stopOK; stop before FuI if FI
// failed outright (every queued file failed, none completed).
func (o *Orchestrator) FullIndex(ctx context.Context, project string, force bool) (FullIndexResult, error) {
	var result FullIndexResult

	pa, err := o.pa.Run(ctx, project, force)
	if err != nil {
		return result, err
	}
	result.PA = pa

	if !pa.Completed && pa.MinConfidence() < o.stopOK {
		return result, semerr.Precondition("full_index", errPANotSufficient)
	}

	fiStats, err := o.fi.Run(ctx, project, force)
	if err != nil {
		return result, err
	}
	result.Files = fiStats
	result.RanFiles = true

	if fiStats.Processed == 0 && fiStats.Failed > 0 {
		return result, semerr.Precondition("full_index", errFIFailedOutright)
	}

	fuiStats, err := o.fui.Run(ctx, project, force)
	if err != nil {
		return result, err
	}
	result.Functions = fuiStats
	result.RanFunctions = true

	return result, nil
}

// UpdateFilesResult reports what each engine did for an update_files call.
type UpdateFilesResult struct {
	Files     fileindex.Stats
	Functions funcindex.Stats
}

// UpdateFiles fans out to both FI and FuI for paths. A FuI precondition
// failure (e.g. PA no longer sufficient) does not undo the FI update
// already applied and is not returned: UpdateFiles then returns a nil error
// with result.Functions left zero. Any other FuI error is returned.
func (o *Orchestrator) UpdateFiles(ctx context.Context, project string, paths []string) (UpdateFilesResult, error) {
	var result UpdateFilesResult

	fiStats, err := o.fi.UpdateFiles(ctx, project, paths)
	if err != nil {
		return result, err
	}
	result.Files = fiStats

	fuiStats, err := o.fui.UpdateFiles(ctx, project, paths)
	if err != nil {
		if semerr.Is(err, semerr.KindPrecondition) {
			return result, nil
		}
		return result, err
	}
	result.Functions = fuiStats
	return result, nil
}

// RemoveFiles fans out the deletion to both FI and FuI.
func (o *Orchestrator) RemoveFiles(ctx context.Context, project string, paths []string) error {
	if err := o.fi.RemoveFiles(ctx, project, paths); err != nil {
		return err
	}
	return o.fui.RemoveFiles(ctx, project, paths)
}

// Status is check_status's aggregate report across all three index kinds.
type Status struct {
	PA        *analysis.Project
	PAFound   bool
	Files     checkpoint.Stats
	Functions checkpoint.Stats
}

// CheckStatus returns aggregate stats per index from C2.
func (o *Orchestrator) CheckStatus(ctx context.Context, project string) (Status, error) {
	var status Status

	root, err := filepath.Abs(project)
	if err != nil {
		return status, semerr.Fatal("check_status", err)
	}
	project = root

	pa := analysis.New()
	found, err := o.checkpoint.GetPAState(ctx, project, pa)
	if err != nil {
		return status, semerr.Fatal("check_status", err)
	}
	status.PAFound = found
	if found {
		status.PA = pa
	}

	files, err := o.checkpoint.AggregateStats(ctx, checkpoint.KindFI, project)
	if err != nil {
		return status, semerr.Fatal("check_status", err)
	}
	status.Files = files

	functions, err := o.checkpoint.AggregateStats(ctx, checkpoint.KindFuI, project)
	if err != nil {
		return status, semerr.Fatal("check_status", err)
	}
	status.Functions = functions

	return status, nil
}
