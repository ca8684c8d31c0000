// Package ledger keeps a local history of submissions in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Submission is one recorded submit invocation.
type Submission struct {
	ID         int64
	ConfigPath string
	OutputDir  string
	JobID      string
	GitHash    string
	GitBranch  string
	DryRun     bool
	CreatedAt  time.Time
}

// Ledger is an open history database.
type Ledger struct {
	db *sql.DB
}

const createSubmissions = `
CREATE TABLE IF NOT EXISTS submissions (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  config_path TEXT NOT NULL,
  output_dir  TEXT NOT NULL,
  job_id      TEXT,
  git_hash    TEXT,
  git_branch  TEXT,
  dry_run     INTEGER NOT NULL DEFAULT 0,
  created_at  TEXT NOT NULL
);`

// Open opens or creates the database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	if _, err := db.Exec(createSubmissions); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends a submission and returns its row ID.
func (l *Ledger) Record(ctx context.Context, s Submission) (int64, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	dry := 0
	if s.DryRun {
		dry = 1
	}
	res, err := l.db.ExecContext(ctx, `
INSERT INTO submissions (config_path, output_dir, job_id, git_hash, git_branch, dry_run, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ConfigPath, s.OutputDir, s.JobID, s.GitHash, s.GitBranch, dry, s.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to record submission: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent submissions first. limit <= 0 means all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Submission, error) {
	query := `SELECT id, config_path, output_dir, job_id, git_hash, git_branch, dry_run, created_at
FROM submissions ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		var jobID, hash, branch sql.NullString
		var dry int
		var created string
		if err := rows.Scan(&s.ID, &s.ConfigPath, &s.OutputDir, &jobID, &hash, &branch, &dry, &created); err != nil {
			return nil, err
		}
		s.JobID = jobID.String
		s.GitHash = hash.String
		s.GitBranch = branch.String
		s.DryRun = dry == 1
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			s.CreatedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Lazy opens the ledger at Path on the first Record call, so nothing is
// created on disk for submissions that never get that far.
type Lazy struct {
	Path string

	l *Ledger
}

func (z *Lazy) Record(ctx context.Context, s Submission) (int64, error) {
	if z.l == nil {
		l, err := Open(z.Path)
		if err != nil {
			return 0, err
		}
		z.l = l
	}
	return z.l.Record(ctx, s)
}

// Close closes the ledger if it was opened.
func (z *Lazy) Close() error {
	if z.l == nil {
		return nil
	}
	err := z.l.Close()
	z.l = nil
	return err
}
