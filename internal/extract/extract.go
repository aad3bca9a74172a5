package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// Extract derives structured fields from a decision's full text. It is a
// pure function: no network, no state, deterministic. A field with no match
// stays at its zero value; placeholders are never fabricated.
func Extract(text string) *model.Structured {
	if text == "" {
		return nil
	}

	s := &model.Structured{
		Applicant:       extractApplicant(text),
		Respondent:      extractRespondent(text),
		ApplicationType: extractApplicationType(text),
	}

	members := filterMembers(extractMembers(text))
	if len(members) > 0 {
		s.TribunalMembers = members
		s.PresidingJudge = presidingJudge(members)
	}

	s.DecisionOutcome = truncateOutcome(extractOutcome(text))
	s.FinancialAmounts = extractAmounts(text)
	s.HearingDate = extractHearingDate(text)
	s.LegalActsCited = extractLegalActs(text)

	if isEmpty(s) {
		return nil
	}
	return s
}

func isEmpty(s *model.Structured) bool {
	return s.Applicant == "" && s.Respondent == "" && s.ApplicationType == "" &&
		len(s.TribunalMembers) == 0 && s.DecisionOutcome == "" &&
		len(s.FinancialAmounts) == 0 && s.HearingDate == "" &&
		len(s.LegalActsCited) == 0
}

// --- Parties ---

// Pattern priority: Applicant > Tenant > Lessee. Label layouts vary wildly
// between regional offices, hence the repeated tab/colon separator class.
var applicantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Applicants?\s*(?:/\s*(?:Tenant|Lessee)s?)?\s*[\t :]+\s*(.+?)(?:\n|Respondent|Representative|Landlord|Freeholder)`),
	regexp.MustCompile(`(?is)Applicants?\s*[\t :]+\s*(.+?)(?:\n|Respondent|Representative|Landlord|Freeholder)`),
	regexp.MustCompile(`(?is)Tenants?\s*[\t :]+\s*(.+?)(?:\n|Landlord|Representative|Address|Type of|Date|Tribunal)`),
	regexp.MustCompile(`(?is)Lessees?\s*[\t :]+\s*(.+?)(?:\n|Landlord|Freeholder|Representative|Type of|Date|Tribunal)`),
}

var respondentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Respondents?\s*(?:/\s*(?:Landlord|Freeholder)s?)?\s*[\t :]+\s*(.+?)(?:\n|Representative|Solicitor|Type of|Date|Tribunal|Venue)`),
	regexp.MustCompile(`(?is)Respondents?\s*[\t :]+\s*(.+?)(?:\n|Representative|Solicitor|Type of|Date|Tribunal|Venue)`),
	regexp.MustCompile(`(?is)Landlords?\s*[\t :]+\s*(.+?)(?:\n|Tenant|Representative|Address|Type of|Date|Tribunal)`),
	regexp.MustCompile(`(?is)Freeholders?\s*[\t :]+\s*(.+?)(?:\n|Tenant|Lessee|Representative|Type of|Date|Tribunal)`),
}

var applicationTypeRe = regexp.MustCompile(`(?i)Type of (?:Application|application)\s*:?\s*(.+?)(?:\n|Tribunal|Date)`)

var whitespaceRe = regexp.MustCompile(`\s+`)

func extractApplicant(text string) string {
	return extractParty(text, applicantPatterns)
}

func extractRespondent(text string) string {
	return extractParty(text, respondentPatterns)
}

func extractParty(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		val := collapseSpace(m[1])
		val = strings.Trim(val, " \t:")
		if len(val) > 3 && len(val) < 300 && !isNoise(val) {
			return val
		}
	}
	return ""
}

func extractApplicationType(text string) string {
	m := applicationTypeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	val := collapseSpace(m[1])
	if len(val) == 0 || len(val) >= 200 {
		return ""
	}
	return val
}

var partyNoise = map[string]bool{
	"n/a": true, "not applicable": true, "none": true, "unknown": true,
	"the tribunal": true, "see below": true, "as above": true, "various": true,
}

func isNoise(val string) bool {
	if partyNoise[strings.ToLower(strings.TrimSpace(val))] {
		return true
	}
	alpha := 0
	for _, r := range val {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	return alpha < 3
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// --- Tribunal members ---

var (
	memberBlockRe = regexp.MustCompile(`(?s)Tribunal\s+[Mm]embers?\s*[\t :]+\s*(.+?)(?:Venue|Date of|Date and|Hearing|\n\s*\n\s*\n|DECISION)`)
	judgeBlockRe  = regexp.MustCompile(`(?s)Tribunal\s*[\t :]+\s*((?:(?:Tribunal\s+)?Judge|Deputy).+?)(?:Venue|Date of|Date and|Hearing|\n\s*\n\s*\n|DECISION)`)
	wereBlockRe   = regexp.MustCompile(`(?s)(?:The Tribunal members were|Tribunal members were)\s*(.+?)(?:Landlord|Tenant|$)`)
	chairmanRe    = regexp.MustCompile(`Chairman\s*[\t :]+\s*([A-Z][^\n]{5,100})`)

	memberBoundaryRe  = regexp.MustCompile(`(?i)^(?:Venue|Date|Hearing|DECISION|Application|Property|Case)`)
	memberHeaderRe    = regexp.MustCompile(`(?i)^(?:Venue|Date|Type|Case|Property|Hearing|Application|Representative|DECISION)`)
	memberStartRe     = regexp.MustCompile(`^(?:Mr|Ms|Mrs|Miss|Dr|Prof|Judge|Deputy|Tribunal|Regional|Sir|Dame|[A-Z])`)
	trailingDateRe    = regexp.MustCompile(`\s+Dated?[:\s].*$`)
	chairSuffixRe     = regexp.MustCompile(`(?i)\s*\((?:Chair(?:man)?|Presiding)\)\s*`)
	memberNoiseRe     = regexp.MustCompile(`(?i)^(?:Landlords?|Tenants?|Applicants?|Respondents?|Lessees?|Freeholders?|None|N/?A|Not applicable|Unknown|FHSJA|AISMA|ARLA|RICS|BSc|BA|MA|LLB|MRICS|FRICS|See above|As above|Various)$`)
	postcodeRe        = regexp.MustCompile(`(?i)[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}`)
	tabbedPartyRe     = regexp.MustCompile(`(?i)\t\s*(?:Applicant|Respondent|Landlord|Tenant)`)
	singleWordTitleRe = regexp.MustCompile(`(?i)^(?:Judge|Deputy|Chairman|Dr|Prof|Sir|Dame)`)
	judgeTitleRe      = regexp.MustCompile(`(?i)Judge|Chairman|Chairm`)
)

func extractMembers(text string) []string {
	for _, re := range []*regexp.Regexp{memberBlockRe, judgeBlockRe, wereBlockRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if members := parseMemberBlock(m[1]); len(members) > 0 {
				return members
			}
		}
	}
	if m := chairmanRe.FindStringSubmatch(text); m != nil {
		if name := cleanMemberName(strings.TrimSpace(m[1])); name != "" {
			return []string{name}
		}
	}
	return nil
}

func parseMemberBlock(block string) []string {
	var members []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if memberBoundaryRe.MatchString(line) {
			break
		}
		if name := cleanMemberName(line); name != "" {
			members = append(members, name)
		}
	}
	return members
}

func cleanMemberName(raw string) string {
	val := strings.Trim(raw, " \t:,")
	val = trailingDateRe.ReplaceAllString(val, "")
	val = chairSuffixRe.ReplaceAllString(val, " ")
	val = strings.TrimSpace(val)

	if !memberStartRe.MatchString(val) {
		return ""
	}
	if len(val) < 4 || len(val) > 150 {
		return ""
	}
	if memberHeaderRe.MatchString(val) {
		return ""
	}
	return val
}

// filterMembers drops party labels, qualification acronyms, postcodes, and
// bare surnames, capping at five members per panel.
func filterMembers(members []string) []string {
	var filtered []string
	for _, member := range members {
		stripped := strings.TrimSpace(member)
		if memberNoiseRe.MatchString(stripped) {
			continue
		}
		if postcodeRe.MatchString(member) {
			continue
		}
		if strings.Contains(member, "\t") && tabbedPartyRe.MatchString(member) {
			continue
		}
		words := strings.Fields(stripped)
		if len(words) == 1 && !singleWordTitleRe.MatchString(words[0]) {
			continue
		}
		filtered = append(filtered, member)
	}
	if len(filtered) > 5 {
		filtered = filtered[:5]
	}
	return filtered
}

func presidingJudge(members []string) string {
	for _, m := range members {
		if judgeTitleRe.MatchString(m) {
			return m
		}
	}
	return members[0]
}

// --- Decision outcome ---

var (
	outcomeDecisionRe = regexp.MustCompile(`(?s)DECISION\s*\n+\s*(?:Decisions? of the Tribunal\s*\n+\s*)?(?:\(?1\)?\s*)?(.+?)(?:\n\s*\(?2\)|\n\s*\n|$)`)
	outcomeVerbRe     = regexp.MustCompile(`(?s)(?:The\s+)?[Tt]ribunal\s+((?:determines|orders|decides|grants)\s+.+?)(?:\.\s|\n\s*\n)`)
	outcomeDisposalRe = regexp.MustCompile(`(?is)(?:The )?(?:application|appeal)\s+is\s+(?:dismissed|allowed|granted|refused|struck out)(?:.{0,200}?)(?:\.\s|\n)`)
)

func extractOutcome(text string) string {
	if m := outcomeDecisionRe.FindStringSubmatch(text); m != nil {
		outcome := collapseSpace(m[1])
		if len(outcome) > 10 && len(outcome) < 500 {
			return outcome
		}
	}

	if m := outcomeVerbRe.FindStringSubmatch(text); m != nil {
		outcome := collapseSpace("The tribunal " + m[1])
		if len(outcome) < 500 {
			return outcome
		}
	}

	if m := outcomeDisposalRe.FindString(text); m != "" {
		outcome := collapseSpace(m)
		if len(outcome) < 500 {
			return outcome
		}
	}

	return ""
}

// truncateOutcome cuts overly long outcomes at the first sentence boundary
// after 200 chars, hard-capped at 300.
func truncateOutcome(outcome string) string {
	if len(outcome) <= 200 {
		return outcome
	}
	if idx := strings.Index(outcome[200:], ". "); idx != -1 && 200+idx < 300 {
		return outcome[:200+idx+1]
	}
	if len(outcome) > 300 {
		return outcome[:297] + "..."
	}
	return outcome
}

// --- Financial amounts ---

var amountRe = regexp.MustCompile(`£([\d,]+(?:\.\d{2})?)`)

// extractAmounts returns every positive £ amount, first-seen order, deduped.
func extractAmounts(text string) []float64 {
	var amounts []float64
	seen := make(map[float64]bool)
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil || val <= 0 {
			continue
		}
		if !seen[val] {
			seen[val] = true
			amounts = append(amounts, val)
		}
	}
	return amounts
}

// --- Hearing date ---

var hearingDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Date\s+of\s+(?:Video\s+|Paper\s+|Oral\s+)?Hearing\s*[\t :]+\s*(.{5,60})`),
	regexp.MustCompile(`Date\s+and\s+[Vv]enue\s+of\s+(?:Hearing|hearing)\s*[\t :]+\s*(.{5,60})`),
	regexp.MustCompile(`Hearing\s+[Dd]ate\s*[\t :]+\s*(.{5,60})`),
	regexp.MustCompile(`Heard?\s+on\s*[\t :]+\s*(.{5,60})`),
	regexp.MustCompile(`Date\s+of\s+[Dd]etermination\s*[\t :]+\s*(.{5,60})`),
}

var (
	longDateRe  = regexp.MustCompile(`(?i)^(\d{1,2}\s*(?:st|nd|rd|th)?\s*(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4})`)
	shortDateRe = regexp.MustCompile(`^(\d{1,2}[/.]\d{1,2}[/.]\d{2,4})`)
	ordinalRe   = regexp.MustCompile(`(\d)(st|nd|rd|th)`)
)

func extractHearingDate(text string) string {
	for _, re := range hearingDatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[1])
		if d := longDateRe.FindStringSubmatch(raw); d != nil {
			return strings.TrimSpace(ordinalRe.ReplaceAllString(d[1], "$1"))
		}
		if d := shortDateRe.FindStringSubmatch(raw); d != nil {
			return d[1]
		}
	}
	return ""
}

// --- Legal acts ---

type actPattern struct {
	re       *regexp.Regexp
	template string
}

var legalActs = []actPattern{
	{regexp.MustCompile(`(?i)Landlord and Tenant Act\s+(\d{4})`), "Landlord and Tenant Act %s"},
	{regexp.MustCompile(`(?i)Leasehold Reform[,\s]+Housing and Urban Development Act\s+(\d{4})`), "Leasehold Reform, Housing and Urban Development Act %s"},
	{regexp.MustCompile(`(?i)Leasehold Reform Act\s+(\d{4})`), "Leasehold Reform Act %s"},
	{regexp.MustCompile(`(?i)Housing Act\s+(\d{4})`), "Housing Act %s"},
	{regexp.MustCompile(`(?i)Housing and Planning Act\s+(\d{4})`), "Housing and Planning Act %s"},
	{regexp.MustCompile(`(?i)Commonhold and Leasehold Reform Act\s+(\d{4})`), "Commonhold and Leasehold Reform Act %s"},
	{regexp.MustCompile(`(?i)Rent Act\s+(\d{4})`), "Rent Act %s"},
	{regexp.MustCompile(`(?i)Building Safety Act\s+(\d{4})`), "Building Safety Act %s"},
	{regexp.MustCompile(`(?i)Equality Act\s+(\d{4})`), "Equality Act %s"},
	{regexp.MustCompile(`(?i)Protection from Eviction Act\s+(\d{4})`), "Protection from Eviction Act %s"},
	{regexp.MustCompile(`(?i)Tribunal Procedure[^.]{0,50}Rules\s+(\d{4})`), "Tribunal Procedure Rules %s"},
}

func extractLegalActs(text string) []string {
	var acts []string
	seen := make(map[string]bool)
	for _, ap := range legalActs {
		for _, m := range ap.re.FindAllStringSubmatch(text, -1) {
			act := fmt.Sprintf(ap.template, m[1])
			if !seen[act] {
				seen[act] = true
				acts = append(acts, act)
			}
		}
	}
	return acts
}
