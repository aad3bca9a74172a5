package wales

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/grantley-gardens/tribunal-cli/internal/config"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/resilience"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

// Scraper walks the Wales tribunal site's list and detail pages. List pages
// and detail pages are paced separately; list pages are heavier for the
// host and get the longer delay.
type Scraper struct {
	baseURL       string
	userAgent     string
	firstYear     int
	http          *http.Client
	listLimiter   *rate.Limiter
	detailLimiter *rate.Limiter
	retry         resilience.RetryConfig

	now func() time.Time
}

// NewScraper creates a Wales site scraper from configuration.
func NewScraper(cfg config.WalesConfig) *Scraper {
	return &Scraper{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		firstYear: cfg.FirstYear,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
			},
		},
		listLimiter:   newLimiter(cfg.ListDelay),
		detailLimiter: newLimiter(cfg.DetailDelay),
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxRetries,
			InitialBackoff: cfg.RetryDelay,
			OnRetry:        resilience.RetryLogger("wales", "fetch"),
		},
		now: time.Now,
	}
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Options tunes a scrape run.
type Options struct {
	// Sample caps how many decisions get detail page fetches.
	Sample int
}

// Run discovers Wales decisions and upserts them as pending records. A
// record that already has full text is left alone, so re-running after the
// PDF phase only picks up newly published decisions.
func (s *Scraper) Run(ctx context.Context, recs *store.RecordStore, opts Options) (*model.RunReport, error) {
	started := s.now()
	rep := &model.RunReport{FailReasons: make(map[string]int)}

	entries, err := s.collectEntries(ctx)
	if err != nil {
		return rep, err
	}
	if opts.Sample > 0 && len(entries) > opts.Sample {
		entries = entries[:opts.Sample]
	}
	rep.Total = len(entries)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrap(err, "wales: run cancelled")
		}

		key := model.Key{Source: model.SourceWales, ID: entry.Slug}
		if existing, ok := recs.Get(key); ok && existing.HasText() {
			rep.Skipped++
			continue
		}

		detail, err := s.fetchDetail(ctx, entry)
		if err != nil {
			// The record is still usable from list page data alone.
			rep.Failed++
			rep.FailReasons[failReason(err)]++
			zap.L().Warn("wales detail page failed",
				zap.String("case_reference", entry.CaseReference),
				zap.Error(err),
			)
		}

		d := BuildDecision(s.baseURL, entry, detail)
		if !recs.Upsert(d) {
			recs.Update(d)
		}
		rep.Processed++
	}

	rep.ElapsedSecs = s.now().Sub(started).Seconds()
	zap.L().Info("wales scrape complete",
		zap.Int("decisions", rep.Total),
		zap.Int("processed", rep.Processed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("detail_failures", rep.Failed),
	)
	return rep, nil
}

// collectEntries walks every list page and dedups decisions across pages.
// A failed or missing fiscal year page is logged and skipped; the other
// pages still yield a usable run.
func (s *Scraper) collectEntries(ctx context.Context) ([]ListEntry, error) {
	targets := ListTargets(s.baseURL, s.firstYear, s.now())
	zap.L().Info("wales list scrape starting", zap.Int("pages", len(targets)))

	var entries []ListEntry
	seen := make(map[string]bool)
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "wales: list scrape cancelled")
		}

		doc, err := s.fetchDoc(ctx, target.URL, s.listLimiter)
		if err != nil {
			zap.L().Warn("wales list page failed",
				zap.String("url", target.URL),
				zap.Error(err),
			)
			continue
		}

		for _, entry := range ParseListPage(doc, target.Type) {
			key := entry.CaseReference
			if key == "" {
				key = entry.Slug
			}
			if !seen[key] {
				seen[key] = true
				entries = append(entries, entry)
			}
		}
	}

	zap.L().Info("wales list scrape complete", zap.Int("unique_decisions", len(entries)))
	return entries, nil
}

func (s *Scraper) fetchDetail(ctx context.Context, entry ListEntry) (*Detail, error) {
	doc, err := s.fetchDoc(ctx, s.baseURL+entry.Slug, s.detailLimiter)
	if err != nil {
		return nil, err
	}
	return ParseDetailPage(doc), nil
}

// fetchDoc performs a paced, retried page fetch. 429 and 5xx retry with
// backoff, 404 and other client errors fail immediately.
func (s *Scraper) fetchDoc(ctx context.Context, endpoint string, limiter *rate.Limiter) (*goquery.Document, error) {
	return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*goquery.Document, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "wales: limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "wales: create request %s", endpoint)
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := s.http.Do(req)
		if err != nil {
			return nil, resilience.NewRetryableError(eris.Wrapf(err, "wales: get %s", endpoint), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			httpErr := eris.Errorf("wales: http %d from %s", resp.StatusCode, endpoint)
			if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewRetryableError(httpErr, resp.StatusCode)
			}
			return nil, resilience.NewFatalError(httpErr, resp.StatusCode)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, resilience.NewRetryableError(eris.Wrapf(err, "wales: parse %s", endpoint), 0)
		}
		return doc, nil
	})
}

// failReason reduces an error to a short stable label for the run report.
func failReason(err error) string {
	var fe *resilience.FatalError
	if errors.As(err, &fe) && fe.StatusCode > 0 {
		return fmt.Sprintf("http %d", fe.StatusCode)
	}
	var re *resilience.RetryableError
	if errors.As(err, &re) && re.StatusCode > 0 {
		return fmt.Sprintf("http %d", re.StatusCode)
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
