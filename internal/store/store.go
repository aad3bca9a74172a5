package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// ManifestEntry records one downloaded attachment: where it came from,
// where it landed, and what text extraction yielded. Resumed fallback runs
// consult the manifest before re-downloading.
type ManifestEntry struct {
	URL           string    `json:"url"`
	LocalPath     string    `json:"local_path"`
	Filename      string    `json:"filename"`
	CaseReference string    `json:"case_reference"`
	PageCount     int       `json:"page_count"`
	CharCount     int       `json:"char_count"`
	OCRRequired   bool      `json:"ocr_required"`
	Text          string    `json:"text,omitempty"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// RunStore persists the run log and the attachment download manifest.
type RunStore interface {
	// Run log
	StartRun(ctx context.Context, phase string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, report *model.RunReport) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Attachment manifest
	GetManifestEntry(ctx context.Context, url string) (*ManifestEntry, error)
	PutManifestEntry(ctx context.Context, entry *ManifestEntry) error
	CountManifestEntries(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a RunStore for the configured driver.
func Open(ctx context.Context, driver, dsn string) (RunStore, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
