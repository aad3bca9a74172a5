package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

var header = []string{
	"ID",
	"Source",
	"Case Reference",
	"Property Address",
	"Region",
	"Category",
	"Sub-category",
	"Decision Date",
	"Published At",
	"URL",
	"Applicant",
	"Respondent",
	"Application Type",
	"Tribunal Members",
	"Presiding Judge",
	"Decision Outcome",
	"Financial Amounts",
	"Hearing Date",
	"Legal Acts Cited",
}

// WriteXLSX writes decisions to a spreadsheet, one row per decision with
// structured fields flattened into columns. Repeated values within a field
// are joined with "; ".
func WriteXLSX(path string, decisions []*model.Decision) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Decisions")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	headerRow := sheet.AddRow()
	for _, h := range header {
		headerRow.AddCell().SetString(h)
	}

	for _, d := range decisions {
		addRow(sheet, d)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save spreadsheet")
	}

	zap.L().Info("spreadsheet written",
		zap.String("path", path),
		zap.Int("rows", len(decisions)),
	)
	return nil
}

func addRow(sheet *xlsx.Sheet, d *model.Decision) {
	s := d.Structured
	if s == nil {
		s = &model.Structured{}
	}

	row := sheet.AddRow()
	for _, v := range []string{
		d.ID,
		string(d.Source),
		d.CaseReference,
		d.PropertyAddress,
		d.RegionCode,
		d.CategoryLabel,
		d.SubCategoryLabel,
		d.DecisionDate,
		d.PublishedAt,
		d.URL,
		s.Applicant,
		s.Respondent,
		s.ApplicationType,
		strings.Join(s.TribunalMembers, "; "),
		s.PresidingJudge,
		s.DecisionOutcome,
		joinAmounts(s.FinancialAmounts),
		s.HearingDate,
		strings.Join(s.LegalActsCited, "; "),
	} {
		row.AddCell().SetString(v)
	}
}

func joinAmounts(amounts []float64) string {
	if len(amounts) == 0 {
		return ""
	}
	parts := make([]string, len(amounts))
	for i, a := range amounts {
		parts[i] = fmt.Sprintf("£%.2f", a)
	}
	return strings.Join(parts, "; ")
}
