package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "decisions.xlsx")
	decisions := []*model.Decision{
		{
			ID:               "/d/1",
			Source:           model.SourceGovUK,
			CaseReference:    "LON/00AB/LSC/2024/0001",
			PropertyAddress:  "9 Grantley Gardens, London",
			RegionCode:       "LON",
			CategoryLabel:    "Leasehold Disputes (Management)",
			SubCategoryLabel: "Service Charges",
			DecisionDate:     "2024-03-14",
			URL:              "https://www.gov.uk/d/1",
			Structured: &model.Structured{
				Applicant:        "Jane Doe",
				Respondent:       "Acme Property Management Ltd",
				TribunalMembers:  []string{"Judge S Brilliant", "Mr T Johnson MRICS"},
				FinancialAmounts: []float64{950, 120.5},
				LegalActsCited:   []string{"Landlord and Tenant Act 1985"},
			},
		},
		{
			ID:            "rac-0002",
			Source:        model.SourceWales,
			CaseReference: "RAC/0002/2022",
		},
	}

	require.NoError(t, WriteXLSX(path, decisions))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["Decisions"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Legal Acts Cited", sheet.Rows[0].Cells[len(header)-1].String())

	row := sheet.Rows[1]
	assert.Equal(t, "/d/1", row.Cells[0].String())
	assert.Equal(t, "govuk", row.Cells[1].String())
	assert.Equal(t, "LON/00AB/LSC/2024/0001", row.Cells[2].String())
	assert.Equal(t, "Judge S Brilliant; Mr T Johnson MRICS", row.Cells[13].String())
	assert.Equal(t, "£950.00; £120.50", row.Cells[16].String())

	// Records without structured fields still export their metadata.
	assert.Equal(t, "rac-0002", sheet.Rows[2].Cells[0].String())
	assert.Equal(t, "", sheet.Rows[2].Cells[10].String())
}
