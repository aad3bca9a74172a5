package govuk

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

var regionPrefixRe = regexp.MustCompile(`^([A-Z]+)/`)

var titleCaser = cases.Title(language.BritishEnglish)

// DecisionFromResult transforms a raw search hit into a decision record.
// The link path doubles as the record identifier; it is unique on GOV.UK
// and is what the content API is keyed by.
func DecisionFromResult(baseURL string, r SearchResult) *model.Decision {
	address, caseRef := parseTitle(r.Title)

	regionCode := ""
	if m := regionPrefixRe.FindStringSubmatch(caseRef); m != nil {
		regionCode = m[1]
	}

	return &model.Decision{
		ID:               r.Link,
		Source:           model.SourceGovUK,
		CaseReference:    caseRef,
		PropertyAddress:  address,
		RegionCode:       regionCode,
		Description:      r.Description,
		Category:         r.Category,
		CategoryLabel:    cleanCategory(r.Category),
		SubCategory:      r.SubCategory,
		SubCategoryLabel: cleanCategory(r.SubCategory),
		DecisionDate:     r.DecisionDate,
		PublishedAt:      r.PublicTime,
		URL:              baseURL + r.Link,
		State:            model.StatePending,
	}
}

// parseTitle splits "Address: CASE/REF/NUMBER" into address and case
// reference. Addresses themselves contain colons, so the split is on the
// last one.
func parseTitle(title string) (address, caseRef string) {
	if i := strings.LastIndex(title, ":"); i >= 0 {
		return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+1:])
	}
	return strings.TrimSpace(title), ""
}

// cleanCategory converts a slug-style category into a readable label.
// Double-hyphen slugs become "A - B" labels.
func cleanCategory(cat string) string {
	if cat == "" {
		return ""
	}
	s := strings.ReplaceAll(cat, "-", " ")
	s = strings.ReplaceAll(s, "   ", " - ")
	return titleCaser.String(strings.TrimSpace(s))
}

// SearchAll pages through the full tribunal decision listing and invokes
// fn for every record. Page order is the API's own, so records arrive in
// a stable listing order.
func (c *Client) SearchAll(ctx context.Context, batchSize int, fn func(*model.Decision)) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	first, err := c.SearchPage(ctx, 0, 1)
	if err != nil {
		return 0, err
	}
	total := first.Total
	zap.L().Info("discovered listing size",
		zap.String("source", string(model.SourceGovUK)),
		zap.Int("total", total),
	)

	seen := 0
	for start := 0; start < total; start += batchSize {
		page, err := c.SearchPage(ctx, start, batchSize)
		if err != nil {
			return seen, err
		}
		if len(page.Results) == 0 {
			zap.L().Warn("empty search page before listed total",
				zap.Int("start", start),
				zap.Int("total", total),
			)
			break
		}
		for _, r := range page.Results {
			fn(DecisionFromResult(c.baseURL, r))
			seen++
		}
		zap.L().Info("fetched search page",
			zap.Int("start", start),
			zap.Int("page_size", len(page.Results)),
			zap.Int("seen", seen),
		)
	}
	return seen, nil
}
