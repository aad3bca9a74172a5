package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStartRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "enrich", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.StartRun(context.Background(), "enrich")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "enrich", run.Phase)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", &model.RunReport{Total: 3, Enriched: 3})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", &model.RunReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("failed", "http 500", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(context.Background(), "run-1", "http 500"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	report, err := json.Marshal(&model.RunReport{Total: 5, Enriched: 4, Failed: 1})
	require.NoError(t, err)
	errMsg := "context canceled"
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "phase", "status", "result", "error", "started_at", "updated_at"}).
		AddRow("run-2", "pdfs", model.RunStatusFailed, []byte(nil), &errMsg, now, now).
		AddRow("run-1", "enrich", model.RunStatusComplete, report, (*string)(nil), now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, phase, status, result, error").
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "context canceled", runs[0].Error)
	assert.Nil(t, runs[0].Result)

	assert.Equal(t, "run-1", runs[1].ID)
	require.NotNil(t, runs[1].Result)
	assert.Equal(t, 4, runs[1].Result.Enriched)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresManifestEntry(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	caseRef := "BIR/00CN/LSC/2023/0044"
	text := "the tribunal determines"
	rows := pgxmock.NewRows([]string{
		"url", "local_path", "filename", "case_reference",
		"page_count", "char_count", "ocr_required", "text", "downloaded_at",
	}).AddRow(
		"https://assets.example.org/d.pdf", "data/pdfs/d.pdf", "d.pdf", &caseRef,
		12, 20400, false, &text, now,
	)

	mock.ExpectQuery("SELECT url, local_path, filename").
		WithArgs("https://assets.example.org/d.pdf").
		WillReturnRows(rows)

	got, err := s.GetManifestEntry(context.Background(), "https://assets.example.org/d.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "BIR/00CN/LSC/2023/0044", got.CaseReference)
	assert.Equal(t, 20400, got.CharCount)
	assert.Equal(t, "the tribunal determines", got.Text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresManifestEntryMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT url, local_path, filename").
		WithArgs("https://assets.example.org/absent.pdf").
		WillReturnRows(pgxmock.NewRows([]string{
			"url", "local_path", "filename", "case_reference",
			"page_count", "char_count", "ocr_required", "text", "downloaded_at",
		}))

	got, err := s.GetManifestEntry(context.Background(), "https://assets.example.org/absent.pdf")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutManifestEntry(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	entry := &ManifestEntry{
		URL:          "https://assets.example.org/d.pdf",
		LocalPath:    "data/pdfs/d.pdf",
		Filename:     "d.pdf",
		CharCount:    40,
		OCRRequired:  true,
		DownloadedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO pdf_manifest").
		WithArgs(entry.URL, entry.LocalPath, entry.Filename, entry.CaseReference,
			entry.PageCount, entry.CharCount, entry.OCRRequired, entry.Text, entry.DownloadedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutManifestEntry(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountManifestEntries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.CountManifestEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
