// Package ledger keeps a SQLite history of reconciliation runs.
package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
)

// timeLayout is fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded run.
type Entry struct {
	RunID            string        `json:"run_id" yaml:"run_id"`
	StartedAt        time.Time     `json:"started_at" yaml:"started_at"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
	SyncDir          string        `json:"sync_dir" yaml:"sync_dir"`
	OutputDir        string        `json:"output_dir" yaml:"output_dir"`
	Files            int           `json:"files" yaml:"files"`
	Machines         int           `json:"machines" yaml:"machines"`
	Sessions         int           `json:"sessions" yaml:"sessions"`
	InputTokens      int64         `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens     int64         `json:"output_tokens" yaml:"output_tokens"`
	TotalCost        float64       `json:"total_cost" yaml:"total_cost"`
	Conflicts        int           `json:"conflicts" yaml:"conflicts"`
	Errors           int           `json:"errors" yaml:"errors"`
	SessionsDigest   string        `json:"sessions_digest" yaml:"sessions_digest"`
	SessionsArtifact string        `json:"sessions_artifact" yaml:"sessions_artifact"`
}

// Ledger records runs in a SQLite database.
type Ledger struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the ledger location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapIO("resolve", "home directory", err)
	}
	return filepath.Join(home, constants.DefaultStateDir, constants.LedgerFileName), nil
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapResource("open", "ledger", path, err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, errors.WrapResource("configure", "ledger", path, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("migrate", "ledger", path, err)
	}

	return &Ledger{db: db, path: path}, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends a run.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return &errors.ValidationError{Field: "run_id", Message: "is required"}
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, started_at, duration_ms, sync_dir, output_dir, files, machines, sessions,
			input_tokens, output_tokens, total_cost, conflicts, errors, sessions_digest, sessions_artifact
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.StartedAt.UTC().Format(timeLayout), e.Duration.Milliseconds(), e.SyncDir, e.OutputDir,
		e.Files, e.Machines, e.Sessions, e.InputTokens, e.OutputTokens, e.TotalCost,
		e.Conflicts, e.Errors, e.SessionsDigest, e.SessionsArtifact,
	)
	if err != nil {
		return errors.WrapResource("record", "run", e.RunID, err)
	}
	return nil
}

const selectColumns = `run_id, started_at, duration_ms, sync_dir, output_dir, files, machines, sessions,
	input_tokens, output_tokens, total_cost, conflicts, errors, sessions_digest, sessions_artifact`

// List returns the most recent runs first. A limit of zero or less returns all runs.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapResource("list", "runs", "", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("list", "runs", "", err)
	}
	return entries, nil
}

// Get returns one run by id.
func (l *Ledger) Get(ctx context.Context, runID string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM runs WHERE run_id = ?`, runID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &errors.NotFoundError{Resource: "run", ID: runID}
		}
		return nil, err
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e         Entry
		startedAt string
		duration  int64
	)
	if err := s.Scan(&e.RunID, &startedAt, &duration, &e.SyncDir, &e.OutputDir, &e.Files, &e.Machines,
		&e.Sessions, &e.InputTokens, &e.OutputTokens, &e.TotalCost, &e.Conflicts, &e.Errors,
		&e.SessionsDigest, &e.SessionsArtifact); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, errors.WrapParse("time", "ledger", err)
	}
	e.StartedAt = t
	e.Duration = time.Duration(duration) * time.Millisecond
	return &e, nil
}
