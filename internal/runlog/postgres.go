package runlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the run log uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool, for deployments where several
// operators share one run history.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: parse postgres config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "runlog: ping postgres")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	command      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	artifacts    JSONB,
	metrics      JSONB,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "runlog: migrate postgres")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Start(ctx context.Context, command string) (*Entry, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES ($1, $2, $3, $4)`,
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

func (s *PostgresStore) Complete(ctx context.Context, id string, result *Result) error {
	var artifactsJSON, metricsJSON []byte
	if result != nil && result.Artifacts != nil {
		var err error
		artifactsJSON, err = json.Marshal(result.Artifacts)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal artifacts")
		}
	}
	if result != nil && result.Metrics != nil {
		var err error
		metricsJSON, err = json.Marshal(result.Metrics)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metrics")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, completed_at = $2, artifacts = $3, metrics = $4 WHERE id = $5`,
		string(StatusComplete), time.Now().UTC(), artifactsJSON, metricsJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) Fail(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		string(StatusFailed), time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, command, status, started_at, completed_at, artifacts, metrics, error
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		var completedAt *time.Time
		var errStr *string
		var artifactsJSON, metricsJSON []byte
		if err := rows.Scan(&e.ID, &e.Command, &status, &e.StartedAt, &completedAt, &artifactsJSON, &metricsJSON, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		e.Status = Status(status)
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if artifactsJSON != nil {
			if err := json.Unmarshal(artifactsJSON, &e.Artifacts); err != nil {
				return nil, eris.Wrap(err, "runlog: unmarshal artifacts")
			}
		}
		if metricsJSON != nil {
			if err := json.Unmarshal(metricsJSON, &e.Metrics); err != nil {
				return nil, eris.Wrap(err, "runlog: unmarshal metrics")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: list runs iterate")
}
