package port

import (
	"context"

	"silkroute/internal/extraction"
)

// OCRInput carries the data for one OCR recognition request.
type OCRInput struct {
	FileBytes   []byte
	ContentType string
	Languages   []string
}

// OCRProvider abstracts an OCR engine (cloud API or local). The returned
// output is provider-shaped raw text or a token list; normalization into
// lines is the extraction engine's job, not the provider's.
type OCRProvider interface {
	Recognize(ctx context.Context, input OCRInput) (*extraction.RawOCROutput, error)
	Name() string
}
