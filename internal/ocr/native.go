package ocr

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Native extracts embedded text directly from the PDF structure without
// external tools. Scanned documents carry no text layer and come back
// near-empty; those are flagged for OCR downstream, not errors here.
type Native struct{}

// NewNative creates a Native extractor.
func NewNative() *Native {
	return &Native{}
}

// ExtractText reads the text layer of every page.
func (n *Native) ExtractText(ctx context.Context, pdfPath string) (*Result, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: open %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	pages := r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "ocr: canceled at page %d of %s", i, pdfPath)
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not discard the rest.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return &Result{Text: strings.TrimSpace(sb.String()), Pages: pages}, nil
}
