// Package extraction implements the template-driven field extraction
// engine: OCR output normalization, rule-based field extraction,
// multi-document aggregation, and declaration assembly. The package is a
// pure library: it performs no I/O and holds no shared state, so one
// extraction run never affects another.
package extraction

import (
	"time"

	"github.com/google/uuid"

	"silkroute/internal/domain"
)

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the rectangle's area.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, W: r.W + 2*margin, H: r.H + 2*margin}
}

// Intersection returns the overlap area between two rectangles.
func (r Rect) Intersection(o Rect) float64 {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.W, o.X+o.W)
	y2 := min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Union returns the smallest rectangle covering both rectangles.
func (r Rect) Union(o Rect) Rect {
	x1 := min(r.X, o.X)
	y1 := min(r.Y, o.Y)
	x2 := max(r.X+r.W, o.X+o.W)
	y2 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Token is a single recognized token from a provider that reports
// token-level bounding boxes.
type Token struct {
	Text       string  `json:"text"`
	Box        Rect    `json:"bounding_box"`
	Confidence float64 `json:"confidence"`
}

// RawOCROutput is the provider-shaped OCR payload: either flat Text with
// an overall Confidence, or a Tokens list with per-token boxes.
type RawOCROutput struct {
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Tokens     []Token `json:"tokens,omitempty"`
}

// TextLine is one line of the normalized OCR result, in reading order.
// Box is nil when the provider supplied no positional data.
type TextLine struct {
	Content    string  `json:"content"`
	Box        *Rect   `json:"bounding_box,omitempty"`
	Confidence float64 `json:"confidence"`
}

// NormalizedResult is the engine's line-oriented representation of
// recognized document text. Line order reflects top-to-bottom,
// left-to-right reading order and is never reordered downstream.
type NormalizedResult struct {
	Lines []TextLine `json:"lines"`
}

// HasBoxes reports whether any line carries a bounding rectangle.
func (n *NormalizedResult) HasBoxes() bool {
	for i := range n.Lines {
		if n.Lines[i].Box != nil {
			return true
		}
	}
	return false
}

// ExtractedField is the result of applying one extraction rule to one
// normalized OCR result. A rule that matches nothing yields Value="" and
// Confidence=0; absence is a value, never an error.
type ExtractedField struct {
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Confidence  float64 `json:"confidence"`
	SourceLines []int   `json:"source_lines,omitempty"`
}

// DocumentExtraction is the full set of extracted fields for one
// document, tagged with the document type used for conflict resolution.
type DocumentExtraction struct {
	DocumentID   uuid.UUID           `json:"document_id"`
	DocumentType domain.DocumentType `json:"document_type"`
	ProcessedAt  time.Time           `json:"processed_at"`
	Fields       []ExtractedField    `json:"fields"`
}

// ResolvedField is the single winning value for one field after
// aggregation across documents.
type ResolvedField struct {
	Name         string              `json:"name"`
	Value        string              `json:"value,omitempty"`
	Confidence   float64             `json:"confidence"`
	Filled       bool                `json:"filled"`
	DocumentID   uuid.UUID           `json:"document_id,omitempty"`
	DocumentType domain.DocumentType `json:"document_type,omitempty"`
}

// AggregatedDeclaration maps field name to its resolved value. Fields
// seen in some document but never with a non-empty value appear with
// Filled=false.
type AggregatedDeclaration map[string]ResolvedField

// RecordField is one entry of the final declaration record, carrying the
// field definition metadata plus the resolved value (or unfilled marker).
type RecordField struct {
	Name               string               `json:"name"`
	Label              string               `json:"label"`
	Section            string               `json:"section,omitempty"`
	Required           bool                 `json:"required"`
	DataType           domain.FieldDataType `json:"data_type"`
	Filled             bool                 `json:"filled"`
	Value              string               `json:"value,omitempty"`
	Confidence         float64              `json:"confidence"`
	SourceDocumentID   uuid.UUID            `json:"source_document_id,omitempty"`
	SourceDocumentType domain.DocumentType  `json:"source_document_type,omitempty"`
}

// Stats holds the completion statistics of a declaration record.
type Stats struct {
	TotalFields    int `json:"total_fields"`
	FilledFields   int `json:"filled_fields"`
	RequiredFields int `json:"required_fields"`
	FilledRequired int `json:"filled_required"`
}

// DeclarationRecord is the final output: one entry per template field in
// template order, plus completion statistics.
type DeclarationRecord struct {
	TemplateID   uuid.UUID     `json:"template_id"`
	TemplateName string        `json:"template_name"`
	Fields       []RecordField `json:"fields"`
	Stats        Stats         `json:"stats"`
}
