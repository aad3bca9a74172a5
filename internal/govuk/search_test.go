package govuk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

func TestParseTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		address string
		caseRef string
	}{
		{
			name:    "standard title",
			title:   "9 Grantley Gardens, Plymouth: CHI/00HG/LSC/2024/0101",
			address: "9 Grantley Gardens, Plymouth",
			caseRef: "CHI/00HG/LSC/2024/0101",
		},
		{
			name:    "address with extra colon",
			title:   "Flat 2: The Old Mill, Leeds: LON/00AE/OLR/2023/0456",
			address: "Flat 2: The Old Mill, Leeds",
			caseRef: "LON/00AE/OLR/2023/0456",
		},
		{
			name:    "no case reference",
			title:   "12 High Street, Bristol",
			address: "12 High Street, Bristol",
			caseRef: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, caseRef := parseTitle(tt.title)
			assert.Equal(t, tt.address, address)
			assert.Equal(t, tt.caseRef, caseRef)
		})
	}
}

func TestCleanCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"leasehold-disputes-management", "Leasehold Disputes Management"},
		{"rents--market", "Rents - Market"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanCategory(tt.in))
	}
}

func TestDecisionFromResult(t *testing.T) {
	r := SearchResult{
		Title:        "9 Grantley Gardens, Plymouth: CHI/00HG/LSC/2024/0101",
		Description:  "Service charge dispute",
		Link:         "/residential-property-tribunal-decisions/9-grantley-gardens",
		PublicTime:   "2024-05-20T09:30:00.000+01:00",
		Category:     "leasehold-disputes-management",
		SubCategory:  "leasehold-disputes-management--service-charges",
		DecisionDate: "2024-05-15",
	}

	d := DecisionFromResult("https://www.gov.uk", r)

	assert.Equal(t, model.SourceGovUK, d.Source)
	assert.Equal(t, "/residential-property-tribunal-decisions/9-grantley-gardens", d.ID)
	assert.Equal(t, "CHI/00HG/LSC/2024/0101", d.CaseReference)
	assert.Equal(t, "9 Grantley Gardens, Plymouth", d.PropertyAddress)
	assert.Equal(t, "CHI", d.RegionCode)
	assert.Equal(t, "Leasehold Disputes Management", d.CategoryLabel)
	assert.Equal(t, "2024-05-15", d.DecisionDate)
	assert.Equal(t, "https://www.gov.uk/residential-property-tribunal-decisions/9-grantley-gardens", d.URL)
	assert.Equal(t, model.StatePending, d.State)
}

func TestDecisionFromResultNoRegion(t *testing.T) {
	d := DecisionFromResult("https://www.gov.uk", SearchResult{
		Title: "Somewhere: lowercase/ref",
		Link:  "/x",
	})
	require.Equal(t, "lowercase/ref", d.CaseReference)
	assert.Empty(t, d.RegionCode)
}
