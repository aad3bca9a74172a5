package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// ValidRegionCodes are the tribunal office prefixes that appear in case
// references.
var ValidRegionCodes = map[string]bool{
	"LON": true, "CHI": true, "MAN": true, "BIR": true, "CAM": true,
	"HAV": true, "NS": true, "TR": true, "NT": true, "VG": true,
	"NAT": true, "GB": true, "RC": true, "WAL": true,
}

// fuzzyRegionMap repairs two-letter truncations of known office codes.
var fuzzyRegionMap = map[string]string{
	"BI": "BIR", "LO": "LON", "MA": "MAN", "CH": "CHI",
	"CA": "CAM", "HA": "HAV",
}

var (
	isoDateRe       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	isoPrefixRe     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	regionRefRe     = regexp.MustCompile(`\b(LON|CHI|MAN|BIR|CAM|HAV|NS|TR|NT|VG|NAT|GB|RC|WAL)/`)
	regionCaseRefRe = regexp.MustCompile(`(LON|CHI|MAN|BIR|CAM|HAV|NS|TR|NT|VG|NAT|GB|RC|WAL)/\S+`)
)

// FixDecisionDate repairs an obviously wrong year in DecisionDate using
// PublishedAt as the reference. Some upstream entries carry year typos like
// 2925 or 3034; a decision dated more than 90 days after publication is
// treated the same way. Returns true if the date was changed.
func FixDecisionDate(d *model.Decision, now time.Time) bool {
	m := isoDateRe.FindStringSubmatch(d.DecisionDate)
	pub := isoPrefixRe.FindStringSubmatch(d.PublishedAt)
	if m == nil || pub == nil {
		return false
	}

	year := atoi(m[1])
	month := atoi(m[2])
	day := atoi(m[3])
	pubYear := atoi(pub[1])
	pubMonth := atoi(pub[2])
	pubDay := atoi(pub[3])

	minYear, maxYear := 2001, now.Year()+1
	needsFix := year < minYear || year > maxYear
	if !needsFix {
		decDate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		pubDate := time.Date(pubYear, time.Month(pubMonth), pubDay, 0, 0, 0, 0, time.UTC)
		if decDate.Sub(pubDate) > 90*24*time.Hour {
			needsFix = true
		}
	}
	if !needsFix {
		return false
	}

	corrected := pubYear
	// A December decision published in January belongs to the prior year.
	if month > pubMonth || (month == pubMonth && day > pubDay) {
		corrected = pubYear - 1
	}

	d.DecisionDate = fmt.Sprintf("%04d-%s-%s", corrected, m[2], m[3])
	return true
}

// FixRegionCode repairs a missing or invalid region code by searching the
// case reference, property address, and the first 500 chars of full text.
// A record with no case reference at all may also recover one from the
// text. Returns (fixedInvalid, fixedMissing).
func FixRegionCode(d *model.Decision) (bool, bool) {
	if d.RegionCode != "" && ValidRegionCodes[d.RegionCode] {
		return false, false
	}

	if d.RegionCode != "" {
		if m := regionRefRe.FindStringSubmatch(d.CaseReference); m != nil {
			d.RegionCode = strings.ToUpper(m[1])
			return true, false
		}
		prefix := strings.ToUpper(d.RegionCode)
		if len(prefix) >= 2 {
			if mapped, ok := fuzzyRegionMap[prefix[:2]]; ok {
				d.RegionCode = mapped
				return true, false
			}
		}
	}

	head := d.FullText
	if len(head) > 500 {
		head = head[:500]
	}
	for _, source := range []string{d.CaseReference, d.PropertyAddress, head} {
		if source == "" {
			continue
		}
		m := regionRefRe.FindStringSubmatch(source)
		if m == nil {
			continue
		}
		d.RegionCode = strings.ToUpper(m[1])
		if d.CaseReference == "" && d.FullText != "" {
			if ref := regionCaseRefRe.FindString(head); ref != "" {
				d.CaseReference = ref
			}
		}
		return false, true
	}
	return false, false
}

// CleanShortFullText nulls full text too short to extract anything from.
// Returns true if the text was cleared.
func CleanShortFullText(d *model.Decision, minChars int) bool {
	if d.FullText != "" && len(d.FullText) < minChars {
		d.FullText = ""
		d.TextSource = model.TextSourceNone
		return true
	}
	return false
}

// CleanStructured removes garbage short party values and extreme financial
// amounts (anything over £50M is a parse artefact, not an award).
func CleanStructured(s *model.Structured) {
	if s == nil {
		return
	}
	if isBadShortValue(s.Applicant) {
		s.Applicant = ""
	}
	if isBadShortValue(s.Respondent) {
		s.Respondent = ""
	}

	const maxAmount = 50_000_000
	if len(s.FinancialAmounts) > 0 {
		filtered := s.FinancialAmounts[:0]
		for _, a := range s.FinancialAmounts {
			if a <= maxAmount {
				filtered = append(filtered, a)
			}
		}
		s.FinancialAmounts = filtered
	}
}

func isBadShortValue(val string) bool {
	return val != "" && len(strings.TrimSpace(val)) <= 3
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
