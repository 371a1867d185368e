package ocr

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFPageCount returns the number of pages in a PDF.
func PDFPageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return count, nil
}

// ValidatePDF checks that the bytes are a structurally sound PDF.
func ValidatePDF(data []byte) error {
	if err := api.Validate(bytes.NewReader(data), nil); err != nil {
		return fmt.Errorf("pdf validation: %w", err)
	}
	return nil
}

// SplitPDFPages splits a multi-page PDF into single-page PDFs, in page order.
// A single-page PDF is returned as a one-element slice with the input bytes.
func SplitPDFPages(data []byte) ([][]byte, error) {
	count, err := PDFPageCount(data)
	if err != nil {
		return nil, err
	}
	if count <= 1 {
		return [][]byte{data}, nil
	}

	pages := make([][]byte, 0, count)
	for i := 1; i <= count; i++ {
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(data), &buf, []string{strconv.Itoa(i)}, nil); err != nil {
			return nil, fmt.Errorf("pdf split page %d: %w", i, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}
