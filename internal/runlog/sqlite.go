package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	command      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	artifacts    TEXT,
	metrics      TEXT,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "runlog: migrate sqlite")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Start(ctx context.Context, command string) (*Entry, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		id, command, string(StatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: start %s", command)
	}

	return &Entry{
		ID:        id,
		Command:   command,
		Status:    StatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) Complete(ctx context.Context, id string, result *Result) error {
	artifactsJSON, metricsJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, artifacts = ?, metrics = ? WHERE id = ?`,
		string(StatusComplete), time.Now().UTC(), artifactsJSON, metricsJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", id)
	}
	return checkRowsAffected(res, "run", id)
}

func (s *SQLiteStore) Fail(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(StatusFailed), time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", id)
	}
	return checkRowsAffected(res, "run", id)
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, status, started_at, completed_at, artifacts, metrics, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: list runs iterate")
}

// helpers

// marshalResult renders the nullable artifact and metric columns. A nil
// result or nil field stays NULL rather than encoding as an empty document.
func marshalResult(result *Result) (artifacts, metrics any, err error) {
	if result == nil {
		return nil, nil, nil
	}
	if result.Artifacts != nil {
		b, err := json.Marshal(result.Artifacts)
		if err != nil {
			return nil, nil, eris.Wrap(err, "runlog: marshal artifacts")
		}
		artifacts = string(b)
	}
	if result.Metrics != nil {
		b, err := json.Marshal(result.Metrics)
		if err != nil {
			return nil, nil, eris.Wrap(err, "runlog: marshal metrics")
		}
		metrics = string(b)
	}
	return artifacts, metrics, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runlog: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*Entry, error) {
	var e Entry
	var status string
	var completedAt sql.NullTime
	var artifactsJSON, metricsJSON, errMsg sql.NullString

	err := row.Scan(&e.ID, &e.Command, &status, &e.StartedAt, &completedAt, &artifactsJSON, &metricsJSON, &errMsg)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: scan run")
	}

	e.Status = Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	if artifactsJSON.Valid {
		if err := json.Unmarshal([]byte(artifactsJSON.String), &e.Artifacts); err != nil {
			return nil, eris.Wrap(err, "runlog: unmarshal artifacts")
		}
	}
	if metricsJSON.Valid {
		if err := json.Unmarshal([]byte(metricsJSON.String), &e.Metrics); err != nil {
			return nil, eris.Wrap(err, "runlog: unmarshal metrics")
		}
	}
	if errMsg.Valid {
		e.Error = errMsg.String
	}
	return &e, nil
}
