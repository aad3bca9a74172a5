package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements RunStore using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	error      TEXT,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pdf_manifest (
	url            TEXT PRIMARY KEY,
	local_path     TEXT NOT NULL,
	filename       TEXT NOT NULL,
	case_reference TEXT,
	page_count     INTEGER NOT NULL DEFAULT 0,
	char_count     INTEGER NOT NULL DEFAULT 0,
	ocr_required   BOOLEAN NOT NULL DEFAULT FALSE,
	text           TEXT,
	downloaded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_phase ON runs(phase);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_pdf_manifest_case_ref ON pdf_manifest(case_reference);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, phase string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, phase, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, phase, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Phase:     phase,
		Status:    model.RunStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, report *model.RunReport) error {
	resultJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), resultJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, phase, status, result, error, started_at, updated_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var result []byte
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.Phase, &r.Status, &result, &errMsg, &r.StartedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(result) > 0 {
			var report model.RunReport
			if err := json.Unmarshal(result, &report); err == nil {
				r.Result = &report
			}
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) GetManifestEntry(ctx context.Context, url string) (*ManifestEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT url, local_path, filename, case_reference, page_count, char_count, ocr_required, text, downloaded_at
		 FROM pdf_manifest WHERE url = $1`, url,
	)

	var e ManifestEntry
	var caseRef, text *string
	err := row.Scan(&e.URL, &e.LocalPath, &e.Filename, &caseRef, &e.PageCount, &e.CharCount, &e.OCRRequired, &text, &e.DownloadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get manifest entry %s", url)
	}
	if caseRef != nil {
		e.CaseReference = *caseRef
	}
	if text != nil {
		e.Text = *text
	}
	return &e, nil
}

func (s *PostgresStore) PutManifestEntry(ctx context.Context, entry *ManifestEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pdf_manifest (url, local_path, filename, case_reference, page_count, char_count, ocr_required, text, downloaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (url) DO UPDATE SET
		   local_path = EXCLUDED.local_path,
		   filename = EXCLUDED.filename,
		   case_reference = EXCLUDED.case_reference,
		   page_count = EXCLUDED.page_count,
		   char_count = EXCLUDED.char_count,
		   ocr_required = EXCLUDED.ocr_required,
		   text = EXCLUDED.text,
		   downloaded_at = EXCLUDED.downloaded_at`,
		entry.URL, entry.LocalPath, entry.Filename, entry.CaseReference,
		entry.PageCount, entry.CharCount, entry.OCRRequired, entry.Text, entry.DownloadedAt,
	)
	return eris.Wrapf(err, "postgres: put manifest entry %s", entry.URL)
}

func (s *PostgresStore) CountManifestEntries(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pdf_manifest`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count manifest entries")
}
