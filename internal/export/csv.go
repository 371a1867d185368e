// Package export renders assembled declaration records as CSV and XLSX
// files for downstream filing tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"silkroute/internal/extraction"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Section",
	"Field",
	"Label",
	"Required",
	"Value",
	"Confidence",
	"Filled",
	"Source Document Type",
}

// CSVWriter wraps csv.Writer for exporting declaration records.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes CSV to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecord writes one row per record field, in record order.
func (w *CSVWriter) WriteRecord(record *extraction.DeclarationRecord) error {
	for i := range record.Fields {
		if err := w.csv.Write(fieldToRow(&record.Fields[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the full CSV export (BOM, header, rows) to w.
func WriteCSV(w io.Writer, record *extraction.DeclarationRecord) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteRecord(record); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func fieldToRow(f *extraction.RecordField) []string {
	return []string{
		f.Section,
		f.Name,
		f.Label,
		formatBool(f.Required),
		f.Value,
		formatConfidence(f.Confidence),
		formatBool(f.Filled),
		string(f.SourceDocumentType),
	}
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatConfidence(c float64) string {
	if c == 0 {
		return ""
	}
	return strconv.FormatFloat(c, 'f', 2, 64)
}
