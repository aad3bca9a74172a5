package extract

import (
	"time"

	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

// Options configures the extraction pass.
type Options struct {
	// MinTextChars nulls any full text shorter than this before extraction.
	MinTextChars int
	// Overwrite re-extracts applicant/respondent even when a prior pass
	// already filled them.
	Overwrite bool
}

// Run applies cleanup fixes and structured extraction to every record in
// the store. Extraction is deterministic, so repeated runs over the same
// text produce identical structured fields.
func Run(s *store.RecordStore, opts Options) *model.RunReport {
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 100
	}
	started := time.Now()

	var dateFixes, regionInvalid, regionMissing, shortCleaned int
	report := &model.RunReport{
		Total:         s.Len(),
		FieldCoverage: make(map[string]int),
	}

	now := time.Now().UTC()
	for _, d := range s.Snapshot() {
		changed := false

		if FixDecisionDate(d, now) {
			dateFixes++
			changed = true
		}
		fixedInvalid, fixedMissing := FixRegionCode(d)
		if fixedInvalid {
			regionInvalid++
			changed = true
		}
		if fixedMissing {
			regionMissing++
			changed = true
		}
		if CleanShortFullText(d, opts.MinTextChars) {
			shortCleaned++
			changed = true
		}

		if d.HasText() {
			structured := Extract(d.FullText)
			if !opts.Overwrite && d.Structured != nil && structured != nil {
				// A prior pass may have parsed parties the blunt patterns
				// no longer find; keep those unless told to overwrite.
				if structured.Applicant == "" {
					structured.Applicant = d.Structured.Applicant
				}
				if structured.Respondent == "" {
					structured.Respondent = d.Structured.Respondent
				}
				// Acts known from discovery metadata stay cited alongside
				// those found in the text.
				structured.LegalActsCited = mergeActs(d.Structured.LegalActsCited, structured.LegalActsCited)
			}
			CleanStructured(structured)
			if structured != nil && !isEmpty(structured) {
				d.Structured = structured
				changed = true
			}
			report.Processed++
		}

		if changed {
			s.Update(d)
		}
		tallyCoverage(report.FieldCoverage, d)
	}

	report.ElapsedSecs = time.Since(started).Seconds()
	zap.L().Info("extraction pass complete",
		zap.Int("records", report.Total),
		zap.Int("with_text", report.Processed),
		zap.Int("date_fixes", dateFixes),
		zap.Int("region_fixed_invalid", regionInvalid),
		zap.Int("region_fixed_missing", regionMissing),
		zap.Int("short_text_nulled", shortCleaned),
	)
	return report
}

func mergeActs(prior, found []string) []string {
	if len(prior) == 0 {
		return found
	}
	seen := make(map[string]bool, len(prior))
	merged := append([]string(nil), prior...)
	for _, a := range prior {
		seen[a] = true
	}
	for _, a := range found {
		if !seen[a] {
			seen[a] = true
			merged = append(merged, a)
		}
	}
	return merged
}

func tallyCoverage(cov map[string]int, d *model.Decision) {
	if d.RegionCode != "" {
		cov["region_code"]++
	}
	if d.HasText() {
		cov["full_text"]++
	}
	s := d.Structured
	if s == nil {
		return
	}
	if s.Applicant != "" {
		cov["applicant"]++
	}
	if s.Respondent != "" {
		cov["respondent"]++
	}
	if s.ApplicationType != "" {
		cov["application_type"]++
	}
	if len(s.TribunalMembers) > 0 {
		cov["tribunal_members"]++
	}
	if s.PresidingJudge != "" {
		cov["presiding_judge"]++
	}
	if s.DecisionOutcome != "" {
		cov["decision_outcome"]++
	}
	if len(s.FinancialAmounts) > 0 {
		cov["financial_amounts"]++
	}
	if s.HearingDate != "" {
		cov["hearing_date"]++
	}
	if len(s.LegalActsCited) > 0 {
		cov["legal_acts_cited"]++
	}
}
