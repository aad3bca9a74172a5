package sitedata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// Record is a slimmed decision for client-side use. Full text, attachments
// and pipeline bookkeeping are stripped to keep the file small; distinctive
// words from the full text survive as a search keyword string.
type Record struct {
	ID     string       `json:"id"`
	Source model.Source `json:"source"`

	CaseReference   string `json:"case_reference"`
	PropertyAddress string `json:"property_address"`
	RegionCode      string `json:"region_code"`
	Description     string `json:"description,omitempty"`

	Category         string `json:"category"`
	CategoryLabel    string `json:"category_label"`
	SubCategory      string `json:"sub_category,omitempty"`
	SubCategoryLabel string `json:"sub_category_label,omitempty"`

	DecisionDate string `json:"decision_date"`
	PublishedAt  string `json:"published_at,omitempty"`
	URL          string `json:"url"`

	OCRRequired bool              `json:"ocr_required,omitempty"`
	Structured  *model.Structured `json:"structured,omitempty"`

	SearchKeywords string `json:"search_keywords,omitempty"`
}

// DateRange is the span of decision dates in the dataset.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// Stats summarises the dataset for filter menus and the landing page.
type Stats struct {
	Total             int                 `json:"total"`
	Categories        map[string]int      `json:"categories"`
	SubCategories     map[string]int      `json:"sub_categories"`
	Regions           map[string]int      `json:"regions"`
	Years             map[string]int      `json:"years"`
	CategoryHierarchy map[string][]string `json:"category_hierarchy"`
	DateRange         DateRange           `json:"date_range"`
	FieldCoverage     map[string]int      `json:"field_coverage"`
	LegalActs         map[string]int      `json:"legal_acts"`
}

// SiteData is the complete payload served to the static site.
type SiteData struct {
	Stats     *Stats    `json:"stats"`
	Decisions []*Record `json:"decisions"`
}

var wordRe = regexp.MustCompile(`[a-zA-Z]{3,}`)

// commonWordShare drops words appearing in more than this share of
// documents from the keyword index.
const commonWordShare = 0.05

// topLegalActs caps the legal act frequency table.
const topLegalActs = 20

// Build converts decisions into the slim site payload with aggregate stats
// and a per-record keyword index.
func Build(decisions []*model.Decision) *SiteData {
	stats := &Stats{
		Total:             len(decisions),
		Categories:        make(map[string]int),
		SubCategories:     make(map[string]int),
		Regions:           make(map[string]int),
		Years:             make(map[string]int),
		CategoryHierarchy: make(map[string][]string),
		FieldCoverage:     make(map[string]int),
	}

	catToSub := make(map[string]map[string]bool)
	actFreq := make(map[string]int)
	for _, d := range decisions {
		cat := d.CategoryLabel
		sub := d.SubCategoryLabel
		region := d.RegionCode
		if region == "" {
			region = "Unknown"
		}

		if cat != "" {
			stats.Categories[cat]++
		}
		if sub != "" {
			stats.SubCategories[sub]++
		}
		stats.Regions[region]++
		if len(d.DecisionDate) >= 4 {
			stats.Years[d.DecisionDate[:4]]++
		}
		if cat != "" && sub != "" {
			if catToSub[cat] == nil {
				catToSub[cat] = make(map[string]bool)
			}
			catToSub[cat][sub] = true
		}

		if d.DecisionDate != "" {
			if stats.DateRange.Earliest == "" || d.DecisionDate < stats.DateRange.Earliest {
				stats.DateRange.Earliest = d.DecisionDate
			}
			if d.DecisionDate > stats.DateRange.Latest {
				stats.DateRange.Latest = d.DecisionDate
			}
		}

		tallyCoverage(stats.FieldCoverage, d.Structured)
		if d.Structured != nil {
			for _, act := range d.Structured.LegalActsCited {
				actFreq[act]++
			}
		}
	}

	for cat, subs := range catToSub {
		list := make([]string, 0, len(subs))
		for sub := range subs {
			list = append(list, sub)
		}
		sort.Strings(list)
		stats.CategoryHierarchy[cat] = list
	}
	stats.LegalActs = topN(actFreq, topLegalActs)

	docWords, common := keywordIndex(decisions)
	records := make([]*Record, len(decisions))
	for i, d := range decisions {
		records[i] = slim(d, distinctive(docWords[i], common))
	}

	zap.L().Info("site data built",
		zap.Int("decisions", len(records)),
		zap.Int("categories", len(stats.Categories)),
		zap.Int("dropped_common_words", len(common)),
	)
	return &SiteData{Stats: stats, Decisions: records}
}

// WriteFile writes the payload as compact JSON via a temp file and rename.
func WriteFile(path string, data *SiteData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "sitedata: create output dir")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sitedata: marshal")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return eris.Wrap(err, "sitedata: write temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "sitedata: rename into place")
	}
	return nil
}

func slim(d *model.Decision, keywords string) *Record {
	r := &Record{
		ID:               d.ID,
		Source:           d.Source,
		CaseReference:    d.CaseReference,
		PropertyAddress:  d.PropertyAddress,
		RegionCode:       d.RegionCode,
		Description:      d.Description,
		Category:         d.Category,
		CategoryLabel:    d.CategoryLabel,
		SubCategory:      d.SubCategory,
		SubCategoryLabel: d.SubCategoryLabel,
		DecisionDate:     d.DecisionDate,
		PublishedAt:      d.PublishedAt,
		URL:              d.URL,
		OCRRequired:      d.OCRRequired,
		SearchKeywords:   keywords,
	}
	if d.Structured != nil {
		s := *d.Structured
		r.Structured = &s
	}
	return r
}

// keywordIndex returns each document's word set plus the set of words too
// common to be useful search keys.
func keywordIndex(decisions []*model.Decision) ([]map[string]bool, map[string]bool) {
	docFreq := make(map[string]int)
	docWords := make([]map[string]bool, len(decisions))
	for i, d := range decisions {
		if !d.HasText() {
			continue
		}
		words := make(map[string]bool)
		for _, w := range wordRe.FindAllString(strings.ToLower(d.FullText), -1) {
			words[w] = true
		}
		docWords[i] = words
		for w := range words {
			docFreq[w]++
		}
	}

	maxFreq := float64(len(decisions)) * commonWordShare
	common := make(map[string]bool)
	for w, c := range docFreq {
		if float64(c) > maxFreq {
			common[w] = true
		}
	}
	return docWords, common
}

func distinctive(words, common map[string]bool) string {
	if len(words) == 0 {
		return ""
	}
	kept := make([]string, 0, len(words))
	for w := range words {
		if !common[w] {
			kept = append(kept, w)
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

func tallyCoverage(cov map[string]int, s *model.Structured) {
	if s == nil {
		return
	}
	if s.Applicant != "" {
		cov["applicant"]++
	}
	if s.Respondent != "" {
		cov["respondent"]++
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

func topN(freq map[string]int, n int) map[string]int {
	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(freq))
	for k, c := range freq {
		entries = append(entries, entry{k, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.key] = e.count
	}
	return out
}
