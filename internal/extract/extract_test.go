package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDecision = `
FIRST-TIER TRIBUNAL
PROPERTY CHAMBER (RESIDENTIAL PROPERTY)

Case reference : LON/00AB/LSC/2024/0123
Property : 9 Grantley Gardens, London
Applicant : Jane Doe
Respondent : Acme Property Management Ltd
Type of application : Liability to pay service charges
Tribunal members : Judge S Brilliant
Mr T Johnson MRICS
Date of Hearing : 14th March 2024

DECISION

The tribunal determines that the service charge of £950.00 claimed for the
year 2023 is payable in full, together with administration fees of £120.50.

The application is made under section 27A of the Landlord and Tenant Act 1985
and the Commonhold and Leasehold Reform Act 2002.
`

func TestExtractApplicant(t *testing.T) {
	s := Extract(sampleDecision)
	require.NotNil(t, s)
	assert.Equal(t, "Jane Doe", s.Applicant)
}

func TestExtractRespondent(t *testing.T) {
	s := Extract(sampleDecision)
	require.NotNil(t, s)
	assert.Equal(t, "Acme Property Management Ltd", s.Respondent)
}

func TestExtractApplicationType(t *testing.T) {
	s := Extract(sampleDecision)
	require.NotNil(t, s)
	assert.Equal(t, "Liability to pay service charges", s.ApplicationType)
}

func TestExtractTenantFallbackPattern(t *testing.T) {
	text := "Tenant : Mr John Smith\nLandlord : Grantley Estates Ltd\n"
	s := Extract(text)
	require.NotNil(t, s)
	assert.Equal(t, "Mr John Smith", s.Applicant)
	assert.Equal(t, "Grantley Estates Ltd", s.Respondent)
}

func TestExtractPartyRejectsNoise(t *testing.T) {
	for _, noise := range []string{"N/A", "none", "The Tribunal", "123", "--"} {
		s := Extract("Applicant : " + noise + "\nsome more text here to pad the document")
		if s != nil {
			assert.Empty(t, s.Applicant, "noise value %q must be rejected", noise)
		}
	}
}

func TestExtractTribunalMembers(t *testing.T) {
	s := Extract(sampleDecision)
	require.NotNil(t, s)
	require.Len(t, s.TribunalMembers, 2)
	assert.Equal(t, "Judge S Brilliant", s.TribunalMembers[0])
	assert.Equal(t, "Mr T Johnson MRICS", s.TribunalMembers[1])
	assert.Equal(t, "Judge S Brilliant", s.PresidingJudge)
}

func TestExtractMembersCapAtFive(t *testing.T) {
	text := `Tribunal members : Judge A One
Mr B Two
Mrs C Three
Ms D Four
Dr E Five
Mr F Six
Mr G Seven
Venue : London
`
	members := filterMembers(extractMembers(text))
	assert.Len(t, members, 5)
}

func TestExtractMembersFiltersPostcodes(t *testing.T) {
	text := "Tribunal members : Judge A One\n10 Downing Street SW1A 2AA\nVenue : remote\n"
	members := filterMembers(extractMembers(text))
	require.Len(t, members, 1)
	assert.Equal(t, "Judge A One", members[0])
}

func TestExtractChairmanPattern(t *testing.T) {
	text := "Some preamble.\nChairman : Mr J Worthington FRICS\nThe committee inspected the property."
	members := extractMembers(text)
	require.Len(t, members, 1)
	assert.Equal(t, "Mr J Worthington FRICS", members[0])
}

func TestPresidingJudgeFallsBackToFirst(t *testing.T) {
	assert.Equal(t, "Mr A Smith MRICS", presidingJudge([]string{"Mr A Smith MRICS", "Mrs B Jones"}))
}

func TestExtractOutcomeDecisionHeader(t *testing.T) {
	text := "Background.\n\nDECISION\n\n(1) The service charges claimed are payable in full by the applicant.\n(2) No order under section 20C.\n"
	outcome := extractOutcome(text)
	// The leading "(1)" marker is consumed by the pattern.
	assert.Equal(t, "The service charges claimed are payable in full by the applicant.", outcome)
}

func TestExtractOutcomeTribunalVerb(t *testing.T) {
	text := "Discussion follows. The tribunal determines that the sum of £500 is payable. Further text."
	outcome := extractOutcome(text)
	assert.Equal(t, "The tribunal determines that the sum of £500 is payable", outcome)
}

func TestExtractOutcomeDismissed(t *testing.T) {
	text := "Accordingly the application is dismissed. Costs follow."
	outcome := extractOutcome(text)
	assert.Contains(t, outcome, "application is dismissed")
}

func TestTruncateOutcome(t *testing.T) {
	short := "The application is allowed."
	assert.Equal(t, short, truncateOutcome(short))

	// Sentence boundary between 200 and 300 chars: cut there.
	long := ""
	for len(long) < 220 {
		long += "word "
	}
	long += "end of sentence. More trailing text that should be dropped entirely from the outcome summary"
	got := truncateOutcome(long)
	assert.LessOrEqual(t, len(got), 300)
	assert.Contains(t, got, "end of sentence.")
	assert.NotContains(t, got, "trailing")

	// No boundary: hard cap with ellipsis.
	noBoundary := ""
	for len(noBoundary) < 400 {
		noBoundary += "x"
	}
	got = truncateOutcome(noBoundary)
	assert.Len(t, got, 300)
	assert.Equal(t, "...", got[297:])
}

func TestExtractAmounts(t *testing.T) {
	text := "Charges of £950.00 and £1,200.50 plus £950.00 again and £0 and £75,000,000 headline value."
	amounts := extractAmounts(text)
	// Dedup preserves first-seen order; zero excluded at extraction, the
	// 50M cap is applied by cleanup.
	assert.Equal(t, []float64{950.00, 1200.50, 75000000}, amounts)
}

func TestExtractAmountsSpecExample(t *testing.T) {
	amounts := extractAmounts("the sum of £950.00 is payable")
	assert.Equal(t, []float64{950.00}, amounts)
}

func TestExtractHearingDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"ordinal stripped", "Date of Hearing : 14th March 2024\n", "14 March 2024"},
		{"video hearing", "Date of Video Hearing : 2 June 2023 at 10am\n", "2 June 2023"},
		{"numeric format", "Hearing date : 05/11/2022\n", "05/11/2022"},
		{"heard on", "Heard on : 1st February 2021, remotely\n", "1 February 2021"},
		{"determination", "Date of determination : 12.03.2020\n", "12.03.2020"},
		{"absent", "No dates mentioned here at all.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractHearingDate(tt.text))
		})
	}
}

func TestExtractLegalActs(t *testing.T) {
	s := Extract(sampleDecision)
	require.NotNil(t, s)
	// "Commonhold and Leasehold Reform Act" also matches the shorter
	// "Leasehold Reform Act" pattern; both citations are kept.
	assert.Equal(t, []string{
		"Landlord and Tenant Act 1985",
		"Leasehold Reform Act 2002",
		"Commonhold and Leasehold Reform Act 2002",
	}, s.LegalActsCited)
}

func TestExtractLegalActsDedup(t *testing.T) {
	text := "Under the Housing Act 2004 and again the Housing Act 2004, and the Rent Act 1977."
	acts := extractLegalActs(text)
	assert.Equal(t, []string{"Housing Act 2004", "Rent Act 1977"}, acts)
}

func TestExtractEmptyTextReturnsNil(t *testing.T) {
	assert.Nil(t, Extract(""))
}

func TestExtractNoMatchesReturnsNil(t *testing.T) {
	assert.Nil(t, Extract("completely unrelated prose with nothing to find"))
}

func TestExtractDeterministic(t *testing.T) {
	a := Extract(sampleDecision)
	b := Extract(sampleDecision)
	assert.Equal(t, a, b)
}
