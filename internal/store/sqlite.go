package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// SQLiteStore implements RunStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	error      TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pdf_manifest (
	url            TEXT PRIMARY KEY,
	local_path     TEXT NOT NULL,
	filename       TEXT NOT NULL,
	case_reference TEXT,
	page_count     INTEGER NOT NULL DEFAULT 0,
	char_count     INTEGER NOT NULL DEFAULT 0,
	ocr_required   INTEGER NOT NULL DEFAULT 0,
	text           TEXT,
	downloaded_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_phase ON runs(phase);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_pdf_manifest_case_ref ON pdf_manifest(case_reference);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRun(ctx context.Context, phase string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, phase, status, started_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, phase, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Phase:     phase,
		Status:    model.RunStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, report *model.RunReport) error {
	resultJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, result = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(resultJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phase, status, result, error, started_at, updated_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var result, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.Phase, &r.Status, &result, &errMsg, &r.StartedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if result.Valid && result.String != "" {
			var report model.RunReport
			if err := json.Unmarshal([]byte(result.String), &report); err == nil {
				r.Result = &report
			}
		}
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) GetManifestEntry(ctx context.Context, url string) (*ManifestEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, local_path, filename, case_reference, page_count, char_count, ocr_required, text, downloaded_at
		 FROM pdf_manifest WHERE url = ?`, url,
	)

	var e ManifestEntry
	var caseRef, text sql.NullString
	var ocr int
	err := row.Scan(&e.URL, &e.LocalPath, &e.Filename, &caseRef, &e.PageCount, &e.CharCount, &ocr, &text, &e.DownloadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get manifest entry %s", url)
	}
	e.CaseReference = caseRef.String
	e.Text = text.String
	e.OCRRequired = ocr != 0
	return &e, nil
}

func (s *SQLiteStore) PutManifestEntry(ctx context.Context, entry *ManifestEntry) error {
	ocr := 0
	if entry.OCRRequired {
		ocr = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf_manifest (url, local_path, filename, case_reference, page_count, char_count, ocr_required, text, downloaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   local_path = excluded.local_path,
		   filename = excluded.filename,
		   case_reference = excluded.case_reference,
		   page_count = excluded.page_count,
		   char_count = excluded.char_count,
		   ocr_required = excluded.ocr_required,
		   text = excluded.text,
		   downloaded_at = excluded.downloaded_at`,
		entry.URL, entry.LocalPath, entry.Filename, entry.CaseReference,
		entry.PageCount, entry.CharCount, ocr, entry.Text, entry.DownloadedAt,
	)
	return eris.Wrapf(err, "sqlite: put manifest entry %s", entry.URL)
}

func (s *SQLiteStore) CountManifestEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pdf_manifest`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count manifest entries")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
