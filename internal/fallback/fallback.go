package fallback

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/ocr"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

// Downloader fetches attachment bytes.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Options configures the attachment fallback phase.
type Options struct {
	// PDFDir is where downloaded attachments land.
	PDFDir string
	// MinTextChars is the OCR threshold: extracted text shorter than this
	// flags the record as needing OCR instead of filling FullText.
	MinTextChars int
	// SaveEvery checkpoints the record store every N processed records.
	SaveEvery int
	// Sample limits the number of eligible records processed (0 = all).
	Sample int
	// All widens the target set to every record with attachments instead
	// of only those missing full text.
	All bool
}

// Runner fills FullText from PDF attachments for records the content API
// left empty. Records are processed one at a time; the manifest in the run
// store lets an interrupted run reuse prior downloads.
type Runner struct {
	store      *store.RecordStore
	checkpoint *store.Checkpoint
	manifest   store.RunStore
	downloader Downloader
	extractor  ocr.Extractor
	opts       Options
}

// NewRunner creates a fallback runner.
func NewRunner(s *store.RecordStore, cp *store.Checkpoint, manifest store.RunStore, dl Downloader, ex ocr.Extractor, opts Options) *Runner {
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 100
	}
	if opts.SaveEvery <= 0 {
		opts.SaveEvery = 25
	}
	return &Runner{
		store:      s,
		checkpoint: cp,
		manifest:   manifest,
		downloader: dl,
		extractor:  ex,
		opts:       opts,
	}
}

var decisionTitleRe = regexp.MustCompile(`(?i)decision`)

// ChooseAttachment picks the attachment to extract text from: the first one
// whose title mentions "decision", else the first. Deterministic so reruns
// pick the same document.
func ChooseAttachment(atts []model.Attachment) (model.Attachment, bool) {
	if len(atts) == 0 {
		return model.Attachment{}, false
	}
	for _, a := range atts {
		if decisionTitleRe.MatchString(a.Title) {
			return a, true
		}
	}
	return atts[0], true
}

// Targets returns the records eligible for this run in snapshot order.
func (r *Runner) Targets() []*model.Decision {
	var targets []*model.Decision
	for _, d := range r.store.Snapshot() {
		if len(d.Attachments) == 0 {
			continue
		}
		if !r.opts.All && d.HasText() {
			continue
		}
		targets = append(targets, d)
		if r.opts.Sample > 0 && len(targets) >= r.opts.Sample {
			break
		}
	}
	return targets
}

// Run processes every eligible record.
func (r *Runner) Run(ctx context.Context) (*model.RunReport, error) {
	started := time.Now()
	targets := r.Targets()

	rep := &model.RunReport{
		Total:       len(targets),
		FailReasons: make(map[string]int),
	}

	zap.L().Info("attachment fallback starting",
		zap.Int("targets", len(targets)),
		zap.Bool("all", r.opts.All),
		zap.Int("sample", r.opts.Sample),
	)

	if err := os.MkdirAll(r.opts.PDFDir, 0o755); err != nil {
		return rep, eris.Wrapf(err, "fallback: mkdir %s", r.opts.PDFDir)
	}

	for _, d := range targets {
		if err := ctx.Err(); err != nil {
			if saveErr := r.save(); saveErr != nil {
				zap.L().Error("checkpoint save failed", zap.Error(saveErr))
			}
			return rep, eris.Wrap(err, "fallback: canceled")
		}

		r.processOne(ctx, d, rep)
		rep.Processed++

		if rep.Processed%r.opts.SaveEvery == 0 {
			if err := r.save(); err != nil {
				zap.L().Error("checkpoint save failed", zap.Error(err))
			} else {
				zap.L().Info("manifest checkpoint", zap.Int("processed", rep.Processed))
			}
		}
	}

	// Progress that cannot be persisted would be redone on resume; a failed
	// final snapshot aborts the run.
	if err := r.save(); err != nil {
		rep.ElapsedSecs = time.Since(started).Seconds()
		return rep, eris.Wrap(err, "fallback: checkpoint save")
	}
	rep.ElapsedSecs = time.Since(started).Seconds()
	return rep, nil
}

func (r *Runner) processOne(ctx context.Context, d *model.Decision, rep *model.RunReport) {
	att, ok := ChooseAttachment(d.Attachments)
	if !ok {
		return
	}

	entry, err := r.lookupManifest(ctx, att.URL)
	if err != nil {
		zap.L().Warn("manifest lookup failed", zap.String("url", att.URL), zap.Error(err))
	}

	if entry != nil {
		rep.Skipped++
	} else {
		entry, err = r.fetchAndExtract(ctx, d, att)
		if err != nil {
			reason := shortReason(err)
			rep.Failed++
			rep.FailReasons[reason]++
			zap.L().Warn("attachment fallback failed",
				zap.String("record", d.Key().String()),
				zap.String("url", att.URL),
				zap.String("reason", reason),
			)
			return
		}
	}

	r.apply(d, entry, rep)
}

// lookupManifest returns a prior manifest entry only if its file is still
// on disk, mirroring a resume check on both the row and the artifact.
func (r *Runner) lookupManifest(ctx context.Context, url string) (*store.ManifestEntry, error) {
	if r.manifest == nil {
		return nil, nil
	}
	entry, err := r.manifest.GetManifestEntry(ctx, url)
	if err != nil || entry == nil {
		return nil, err
	}
	if _, statErr := os.Stat(entry.LocalPath); statErr != nil {
		return nil, nil
	}
	return entry, nil
}

func (r *Runner) fetchAndExtract(ctx context.Context, d *model.Decision, att model.Attachment) (*store.ManifestEntry, error) {
	data, err := r.downloader.Download(ctx, att.URL)
	if err != nil {
		return nil, err
	}

	filename := FilenameFromURL(att.URL)
	dest := filepath.Join(r.opts.PDFDir, filename)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "fallback: write %s", dest)
	}

	res, err := r.extractor.ExtractText(ctx, dest)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(res.Text)
	entry := &store.ManifestEntry{
		URL:           att.URL,
		LocalPath:     dest,
		Filename:      filename,
		CaseReference: d.CaseReference,
		PageCount:     res.Pages,
		CharCount:     len(text),
		OCRRequired:   len(text) < r.opts.MinTextChars,
		DownloadedAt:  time.Now().UTC(),
	}
	if !entry.OCRRequired {
		entry.Text = text
	}

	if r.manifest != nil {
		if err := r.manifest.PutManifestEntry(ctx, entry); err != nil {
			zap.L().Warn("manifest write failed", zap.String("url", att.URL), zap.Error(err))
		}
	}
	return entry, nil
}

// apply writes the extraction result onto the record. Below-threshold text
// flags the record for OCR and leaves FullText empty.
func (r *Runner) apply(d *model.Decision, entry *store.ManifestEntry, rep *model.RunReport) {
	if entry.OCRRequired {
		// The flag means no usable text anywhere; a record that already has
		// content API text keeps it and stays unflagged.
		if !d.HasText() {
			d.OCRRequired = true
			r.store.Update(d)
			rep.OCRRequired++
		}
		return
	}

	if !d.HasText() && entry.Text != "" {
		d.FullText = entry.Text
		d.TextSource = model.TextSourcePDF
		d.OCRRequired = false
		rep.FromFallback++
	}
	r.store.Update(d)
}

func (r *Runner) save() error {
	if r.checkpoint == nil {
		return nil
	}
	return r.checkpoint.Save(r.store, "")
}

var digitsRe = regexp.MustCompile(`^\d+$`)

// FilenameFromURL derives a unique local filename from an asset URL.
// GOV.UK asset paths end ".../file/<id>/<name>.pdf"; the numeric id keeps
// same-named files apart.
func FilenameFromURL(rawURL string) string {
	parts := strings.Split(strings.TrimRight(rawURL, "/"), "/")
	if len(parts) == 0 {
		return "unknown.pdf"
	}
	filename := parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		if digitsRe.MatchString(parts[i]) {
			return parts[i] + "_" + filename
		}
	}
	return filename
}

func shortReason(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return msg
}
