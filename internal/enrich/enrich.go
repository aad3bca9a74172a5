package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grantley-gardens/tribunal-cli/internal/config"
	"github.com/grantley-gardens/tribunal-cli/internal/govuk"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/resilience"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

// ContentFetcher fetches the content API document for a GOV.UK path.
type ContentFetcher interface {
	FetchContent(ctx context.Context, path string) (*govuk.ContentDetail, error)
}

// Runner drives the enrichment phase: a bounded worker pool claims pending
// records, fetches their content API documents, and writes results back to
// the store. The store is the only shared mutable state; workers hold
// clones between claim and completion.
type Runner struct {
	store      *store.RecordStore
	checkpoint *store.Checkpoint
	fetcher    ContentFetcher
	cfg        config.EnrichConfig

	saveMu sync.Mutex
}

// NewRunner creates an enrichment runner.
func NewRunner(s *store.RecordStore, cp *store.Checkpoint, fetcher ContentFetcher, cfg config.EnrichConfig) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 100
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = 1
	}
	return &Runner{store: s, checkpoint: cp, fetcher: fetcher, cfg: cfg}
}

type passStats struct {
	mu          sync.Mutex
	processed   int
	enriched    int
	skipped     int
	failed      int
	failReasons map[string]int
}

// Run enriches every pending record. Failed records get reset to pending
// between passes so transient failures are retried once more at the run
// level on top of per-request retries. Context cancellation stops the pool
// after in-flight requests finish; a final checkpoint still captures what
// completed.
func (r *Runner) Run(ctx context.Context) (*model.RunReport, error) {
	started := time.Now()
	report := &model.RunReport{
		Total:       r.store.Len(),
		FailReasons: make(map[string]int),
	}

	for pass := 1; pass <= r.cfg.MaxPasses; pass++ {
		keys := r.store.PendingKeys()
		if len(keys) == 0 {
			break
		}
		zap.L().Info("enrichment pass starting",
			zap.Int("pass", pass),
			zap.Int("pending", len(keys)),
			zap.Int("concurrency", r.cfg.Concurrency),
		)

		stats := &passStats{failReasons: make(map[string]int)}
		passErr := r.runPass(ctx, keys, stats)

		report.Processed += stats.processed
		report.Enriched += stats.enriched
		report.Skipped += stats.skipped
		report.Failed += stats.failed
		for reason, n := range stats.failReasons {
			report.FailReasons[reason] += n
		}

		// A run whose progress cannot be persisted would be redone in full
		// on resume. This save is the final snapshot attempt for the pass;
		// if it fails the run aborts.
		if err := r.save(); err != nil {
			report.ElapsedSecs = time.Since(started).Seconds()
			return report, eris.Wrap(err, "enrich: checkpoint save")
		}

		if passErr != nil {
			report.ElapsedSecs = time.Since(started).Seconds()
			return report, passErr
		}

		zap.L().Info("enrichment pass complete",
			zap.Int("pass", pass),
			zap.Int("enriched", stats.enriched),
			zap.Int("failed", stats.failed),
			zap.Int("skipped", stats.skipped),
		)

		// Another pass only helps if something failed and can be redone.
		if pass < r.cfg.MaxPasses && stats.failed > 0 {
			reset := r.store.ResetTransient()
			zap.L().Info("retrying failed records", zap.Int("reset", reset))
		}
	}

	// Failures that survived the last pass are final for this run; they
	// stay in the store as failed, never dropped.
	report.Failed = r.store.Counts()[model.StateFailed]
	report.ElapsedSecs = time.Since(started).Seconds()
	return report, nil
}

func (r *Runner) runPass(ctx context.Context, keys []model.Key, stats *passStats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.processOne(ctx, key, stats)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) processOne(ctx context.Context, key model.Key, stats *passStats) {
	d, ok := r.store.Claim(key)
	if !ok {
		return
	}

	if d.HasText() && !r.cfg.Force {
		r.store.Complete(d)
		r.bump(stats, func() { stats.skipped++ })
		return
	}

	detail, err := r.fetcher.FetchContent(ctx, d.ID)
	if err != nil {
		reason := failReason(err)
		r.store.Fail(key, reason)
		r.bump(stats, func() {
			stats.failed++
			stats.failReasons[reason]++
		})
		zap.L().Warn("enrichment failed",
			zap.String("record", key.String()),
			zap.String("reason", reason),
		)
		return
	}

	applyContent(d, detail)
	r.store.Complete(d)
	r.bump(stats, func() { stats.enriched++ })
}

// bump updates counters and triggers a periodic checkpoint save. The save
// itself happens outside the stats lock.
func (r *Runner) bump(stats *passStats, fn func()) {
	stats.mu.Lock()
	fn()
	stats.processed++
	due := stats.processed%r.cfg.CheckpointInterval == 0
	processed := stats.processed
	stats.mu.Unlock()

	if due {
		if err := r.save(); err != nil {
			zap.L().Error("checkpoint save failed", zap.Error(err))
			return
		}
		zap.L().Info("checkpoint saved", zap.Int("processed", processed))
	}
}

func (r *Runner) save() error {
	if r.checkpoint == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	return r.checkpoint.Save(r.store, string(model.SourceGovUK))
}

// applyContent writes the content API document onto the record.
func applyContent(d *model.Decision, detail *govuk.ContentDetail) {
	d.ContentID = detail.ContentID
	d.FullText = detail.Details.Metadata.HiddenIndexableContent
	if d.FullText != "" {
		d.TextSource = model.TextSourceContentAPI
	}

	d.Attachments = d.Attachments[:0]
	for _, a := range detail.Details.Attachments {
		d.Attachments = append(d.Attachments, model.Attachment{
			Title:       a.Title,
			URL:         a.URL,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
		})
	}
}

// failReason reduces an error to a short stable label so failures can be
// aggregated in the run report.
func failReason(err error) string {
	var fe *resilience.FatalError
	if errors.As(err, &fe) && fe.StatusCode > 0 {
		return fmt.Sprintf("http %d", fe.StatusCode)
	}
	var re *resilience.RetryableError
	if errors.As(err, &re) && re.StatusCode > 0 {
		return fmt.Sprintf("http %d", re.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return msg
}
