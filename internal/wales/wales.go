// Package wales scrapes the Residential Property Tribunal Wales site. The
// site has no API, so discovery walks list pages (tribunal type by fiscal
// year) and each decision's detail page. Decision text lives in linked PDFs
// handled by the attachment fallback phase.
package wales

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// TribunalType is one of the site's decision registers.
type TribunalType struct {
	ID       int
	Category string
	Label    string
	Prefix   string
}

// tribunalTypes is ordered so list URLs are generated deterministically.
var tribunalTypes = []TribunalType{
	{1, "wales-rent-assessment", "Wales - Rent Assessment", "RAC"},
	{2, "wales-leasehold-valuation", "Wales - Leasehold Valuation", "LVT"},
	{4, "wales-residential-property", "Wales - Residential Property", "RPT"},
}

var (
	// Link text format: "RAC/0013/09/24: 1 Grantley Gardens", sometimes
	// with joined references ("RPT/0008/07/23 & RPT/0009/07/23: ...").
	caseRefLinkRe = regexp.MustCompile(`^((?:RAC|LVT|RPT)/\d{4}/\d{2}/\d{2}(?:\s*&\s*(?:RAC|LVT|RPT)/\d{4}/\d{2}/\d{2})*)\s*:\s*(.+)$`)
	caseRefDateRe = regexp.MustCompile(`^(?:RAC|LVT|RPT)/\d{4}/(\d{2})/(\d{2})`)
	nonSlugRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

const pdfPathPrefix = "/sites/residentialproperty/files/"

// ListEntry is a decision link found on a list page.
type ListEntry struct {
	Slug            string
	CaseReference   string
	PropertyAddress string
	Type            TribunalType
}

// ListTarget is one list page to fetch.
type ListTarget struct {
	Type      TribunalType
	StartYear int
	URL       string
}

// ListTargets generates the list page URLs: each tribunal type crossed with
// each fiscal year (April to April) from firstYear to the current one.
func ListTargets(baseURL string, firstYear int, now time.Time) []ListTarget {
	lastStart := now.Year()
	if now.Month() < time.April {
		lastStart--
	}

	var targets []ListTarget
	for _, tt := range tribunalTypes {
		for year := firstYear; year <= lastStart; year++ {
			targets = append(targets, ListTarget{
				Type:      tt,
				StartYear: year,
				URL:       fmt.Sprintf("%s/decisions/%d/%d-04--%d-04", baseURL, tt.ID, year, year+1),
			})
		}
	}
	return targets
}

// ParseListPage extracts decision links from a list page. Links whose text
// does not start with a case reference are navigation and are skipped.
func ParseListPage(doc *goquery.Document, tt TribunalType) []ListEntry {
	var entries []ListEntry
	seen := make(map[string]bool)

	doc.Find(`a[href^="/"]`).Each(func(_ int, sel *goquery.Selection) {
		text := collapseSpace(sel.Text())
		m := caseRefLinkRe.FindStringSubmatch(text)
		if m == nil {
			return
		}
		slug, _ := sel.Attr("href")
		if seen[slug] {
			return
		}
		seen[slug] = true

		// Joined references share one decision; the first is primary.
		primary := strings.TrimSpace(strings.SplitN(m[1], "&", 2)[0])
		entries = append(entries, ListEntry{
			Slug:            slug,
			CaseReference:   primary,
			PropertyAddress: strings.TrimSpace(m[2]),
			Type:            tt,
		})
	})
	return entries
}

// Detail holds what a decision detail page yields: labelled metadata fields
// and the PDF path, either of which may be absent.
type Detail struct {
	Metadata map[string]string
	PDFPath  string
}

// ParseDetailPage extracts "<strong>Label:</strong> value" metadata pairs
// from the body field and the first decision PDF link. Keys are lowercased
// with the trailing colon stripped ("act", "case type", "property").
func ParseDetailPage(doc *goquery.Document) *Detail {
	d := &Detail{Metadata: make(map[string]string)}

	root := doc.Find(`[class*="field--name-body"]`).First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find("strong").Each(func(_ int, sel *goquery.Selection) {
		key := strings.ToLower(strings.TrimSuffix(collapseSpace(sel.Text()), ":"))
		key = strings.TrimSpace(key)
		value := collapseSpace(textUntilBreak(sel.Nodes[0].NextSibling))
		if key != "" && value != "" {
			d.Metadata[key] = value
		}
	})

	doc.Find(`a[href$=".pdf"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(href, pdfPathPrefix) {
			d.PDFPath = href
			return false
		}
		return true
	})
	return d
}

// BuildDecision assembles a pending record from list and detail page data.
func BuildDecision(baseURL string, entry ListEntry, detail *Detail) *model.Decision {
	if detail == nil {
		detail = &Detail{Metadata: map[string]string{}}
	}

	address := detail.Metadata["property"]
	if address == "" {
		address = entry.PropertyAddress
	}

	caseType := detail.Metadata["case type"]
	subSlug := slugify(caseType)
	subCategory := ""
	if subSlug != "" {
		subCategory = entry.Type.Category + "---" + subSlug
	}

	d := &model.Decision{
		ID:               entry.Slug,
		Source:           model.SourceWales,
		CaseReference:    entry.CaseReference,
		PropertyAddress:  address,
		RegionCode:       "WAL",
		Category:         entry.Type.Category,
		CategoryLabel:    entry.Type.Label,
		SubCategory:      subCategory,
		SubCategoryLabel: caseType,
		DecisionDate:     DecisionDateFromRef(entry.CaseReference),
		URL:              baseURL + entry.Slug,
		State:            model.StatePending,
	}
	if act := detail.Metadata["act"]; act != "" {
		d.Structured = &model.Structured{LegalActsCited: []string{act}}
	}
	if detail.PDFPath != "" {
		d.Attachments = []model.Attachment{{
			Title:       entry.CaseReference + " decision",
			URL:         baseURL + detail.PDFPath,
			ContentType: "application/pdf",
		}}
	}
	return d
}

// DecisionDateFromRef derives a nominal decision date from the MM/YY tail
// of a case reference: RAC/0013/09/24 becomes 2024-09-01. Only month
// precision is available, so the day is always the 1st.
func DecisionDateFromRef(caseRef string) string {
	m := caseRefDateRe.FindStringSubmatch(caseRef)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-01", 2000+year, month)
}

func slugify(s string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

// collapseSpace normalizes runs of whitespace, including the decoded
// &nbsp; characters the site pads labels with.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textUntilBreak collects sibling text after a label, stopping at the next
// label or a line break. The surrounding <p>/<span> closes the run anyway
// when the parent's children are exhausted.
func textUntilBreak(n *html.Node) string {
	var b strings.Builder
	for ; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && (n.Data == "strong" || n.Data == "br") {
			break
		}
		b.WriteString(nodeText(n))
	}
	return b.String()
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
