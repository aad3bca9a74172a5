package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/grantley-gardens/tribunal-cli/internal/config"
)

// Result is the outcome of extracting text from one PDF.
type Result struct {
	Text  string
	Pages int
}

// Extractor extracts text content from PDF files. Extraction never judges
// the text; callers compare Result.Text length against the OCR threshold.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (*Result, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "native", "":
		return NewNative(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
