// Package checkpoint implements the durable checkpoint store (C2):
// per-(project, index kind, key) status records for PA, FI, and FuI, plus
// the PA iteration snapshot log. It adapts the teacher's SQLite wrapper
// (internal/db/db.go: Open/OpenMemory/migrate/schema-as-const-string)
// to the four logical tables named in the specification, in place of the
// teacher's unrelated audit/facts/teams/flows tables.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the terminal state of a checkpointed unit of work.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Kind names one of the two per-file checkpoint tables.
type Kind string

const (
	KindFI  Kind = "fi_files"
	KindFuI Kind = "fui_files"
)

// FileRow is a row of fi_files or fui_files.
type FileRow struct {
	RelPath string
	Hash    string
	Count   int // chunks_count for FI, functions_count for FuI
	Status  Status
	Error   string
}

// Stats aggregates a kind's rows for a project.
type Stats struct {
	Total     int
	Completed int
	Failed    int
	UnitSum   int // sum of chunks_count or functions_count across completed rows
}

// Store is the checkpoint store, backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the checkpoint database at path, running
// migrations idempotently.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating checkpoint directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging checkpoint store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running checkpoint migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory checkpoint store, for tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory checkpoint store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running checkpoint migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS pa_state (
    project TEXT PRIMARY KEY,
    record  TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pa_iterations (
    project   TEXT NOT NULL,
    iteration INTEGER NOT NULL,
    files_requested TEXT NOT NULL DEFAULT '[]',
    files_read      TEXT NOT NULL DEFAULT '[]',
    snapshot        TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY(project, iteration)
);

CREATE TABLE IF NOT EXISTS fi_files (
    project TEXT NOT NULL,
    relative_path TEXT NOT NULL,
    hash TEXT NOT NULL,
    chunks_count INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK(status IN ('completed','failed')),
    error TEXT,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY(project, relative_path)
);

CREATE TABLE IF NOT EXISTS fui_files (
    project TEXT NOT NULL,
    relative_path TEXT NOT NULL,
    hash TEXT NOT NULL,
    functions_count INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK(status IN ('completed','failed')),
    error TEXT,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY(project, relative_path)
);
`

// --- pa_state ---

// PutPAState durably writes the serialized PA record for project. The
// write is committed before this call returns, satisfying the crash
// safety requirement that a put is durable before the caller treats the
// unit of work as done.
func (s *Store) PutPAState(ctx context.Context, project string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal pa state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pa_state(project, record, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(project) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		project, string(data))
	return err
}

// GetPAState reads the serialized PA record into dst. Returns
// (false, nil) if no record exists yet.
func (s *Store) GetPAState(ctx context.Context, project string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM pa_state WHERE project = ?`, project).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("unmarshal pa state: %w", err)
	}
	return true, nil
}

// --- pa_iterations ---

// PutIteration durably records one PA iteration snapshot.
func (s *Store) PutIteration(ctx context.Context, project string, iteration int, filesRequested, filesRead []string, snapshot any) error {
	reqJSON, err := json.Marshal(filesRequested)
	if err != nil {
		return err
	}
	readJSON, err := json.Marshal(filesRead)
	if err != nil {
		return err
	}
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pa_iterations(project, iteration, files_requested, files_read, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(project, iteration) DO UPDATE SET
			files_requested = excluded.files_requested,
			files_read = excluded.files_read,
			snapshot = excluded.snapshot`,
		project, iteration, string(reqJSON), string(readJSON), string(snapJSON))
	return err
}

// IterationSnapshot is one row of the iteration log.
type IterationSnapshot struct {
	Iteration      int
	FilesRequested []string
	FilesRead      []string
	CreatedAt      time.Time
}

// ListIterations returns the iteration log for project in order, the
// observable record required by the PA engine's "strictly sequential,
// observable via the iteration snapshot log" ordering guarantee.
func (s *Store) ListIterations(ctx context.Context, project string) ([]IterationSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, files_requested, files_read, created_at FROM pa_iterations
		WHERE project = ? ORDER BY iteration ASC`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IterationSnapshot
	for rows.Next() {
		var snap IterationSnapshot
		var reqJSON, readJSON string
		if err := rows.Scan(&snap.Iteration, &reqJSON, &readJSON, &snap.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(reqJSON), &snap.FilesRequested)
		_ = json.Unmarshal([]byte(readJSON), &snap.FilesRead)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// --- fi_files / fui_files ---

func tableFor(kind Kind) string {
	return string(kind)
}

func countColumnFor(kind Kind) string {
	if kind == KindFI {
		return "chunks_count"
	}
	return "functions_count"
}

// Put durably writes a per-file checkpoint row for the given kind.
func (s *Store) Put(ctx context.Context, kind Kind, project string, row FileRow) error {
	table := tableFor(kind)
	col := countColumnFor(kind)
	query := fmt.Sprintf(`
		INSERT INTO %s(project, relative_path, hash, %s, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(project, relative_path) DO UPDATE SET
			hash = excluded.hash,
			%s = excluded.%s,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at`, table, col, col, col)

	var errVal any
	if row.Error != "" {
		errVal = row.Error
	}
	_, err := s.db.ExecContext(ctx, query, project, row.RelPath, row.Hash, row.Count, string(row.Status), errVal)
	return err
}

// Get reads the checkpoint row for (project, relPath) under kind. Returns
// (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, kind Kind, project, relPath string) (*FileRow, error) {
	table := tableFor(kind)
	col := countColumnFor(kind)
	query := fmt.Sprintf(`SELECT relative_path, hash, %s, status, COALESCE(error, '') FROM %s WHERE project = ? AND relative_path = ?`, col, table)

	var row FileRow
	var status string
	err := s.db.QueryRowContext(ctx, query, project, relPath).Scan(&row.RelPath, &row.Hash, &row.Count, &status, &row.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Status = Status(status)
	return &row, nil
}

// ShouldReindex implements the spec's should_reindex decision: a file
// must be reprocessed unless a completed checkpoint exists with a
// matching content hash.
func (s *Store) ShouldReindex(ctx context.Context, kind Kind, project, relPath, currentHash string) (bool, error) {
	row, err := s.Get(ctx, kind, project, relPath)
	if err != nil {
		return false, err
	}
	if row == nil {
		return true, nil
	}
	if row.Status == StatusFailed {
		return true, nil
	}
	if row.Hash != currentHash {
		return true, nil
	}
	return false, nil
}

// ClearPA removes the pa_state row and the full pa_iterations log for
// project, used by the PA engine's force flag ("clear all PA
// checkpoints") without touching the unrelated FI/FuI tables.
func (s *Store) ClearPA(ctx context.Context, project string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"pa_state", "pa_iterations"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE project = ?`, table), project); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteByProject removes every row across all four tables for project.
func (s *Store) DeleteByProject(ctx context.Context, project string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"pa_state", "pa_iterations", string(KindFI), string(KindFuI)} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE project = ?`, table), project); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteByProjectAndKind removes every row for project under one kind
// (plus, for KindFI paired with a full reindex, the PA tables are left
// untouched — callers drop those explicitly via DeleteByProject).
func (s *Store) DeleteByProjectAndKind(ctx context.Context, kind Kind, project string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE project = ?`, tableFor(kind)), project)
	return err
}

// DeleteFile removes a single file's checkpoint row under kind, used by
// remove_files.
func (s *Store) DeleteFile(ctx context.Context, kind Kind, project, relPath string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE project = ? AND relative_path = ?`, tableFor(kind)), project, relPath)
	return err
}

// AggregateStats computes the summary counts check_status reports.
func (s *Store) AggregateStats(ctx context.Context, kind Kind, project string) (Stats, error) {
	table := tableFor(kind)
	col := countColumnFor(kind)
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN %s ELSE 0 END), 0)
		FROM %s WHERE project = ?`, col, table)

	var stats Stats
	err := s.db.QueryRowContext(ctx, query, project).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.UnitSum)
	return stats, err
}
