package extraction_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silkroute/internal/extraction"
)

func mustRule(t *testing.T, cfg string) *extraction.Rule {
	t.Helper()
	rule, err := extraction.ParseRule(json.RawMessage(cfg))
	require.NoError(t, err)
	return rule
}

func flatResult(t *testing.T, text string, confidence float64) *extraction.NormalizedResult {
	t.Helper()
	res, err := extraction.Normalize(&extraction.RawOCROutput{Text: text, Confidence: confidence})
	require.NoError(t, err)
	return res
}

func TestExtractField_RegexFirstMatch(t *testing.T) {
	res := flatResult(t, "Отправитель: ООО Ромашка\nВес брутто 120 кг", 0.9)
	spec := extraction.FieldSpec{
		Name: "sender_name",
		Rule: mustRule(t, `{"type":"regex","pattern":"Отправитель:\\s*(.+)"}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Equal(t, "ООО Ромашка", f.Value)
	assert.Equal(t, 0.9, f.Confidence)
	assert.Equal(t, []int{0}, f.SourceLines)
}

func TestExtractField_RegexDeterminism(t *testing.T) {
	res := flatResult(t, "Код ТН ВЭД: 8471300000\nКод ТН ВЭД: 9999999999", 0.8)
	spec := extraction.FieldSpec{
		Name: "hs_code",
		Rule: mustRule(t, `{"type":"regex","pattern":"Код ТН ВЭД:\\s*(\\d{10})"}`),
	}

	first := extraction.ExtractField(spec, res)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, extraction.ExtractField(spec, res))
	}
	// First matching line wins, later matches are ignored.
	assert.Equal(t, "8471300000", first.Value)
}

func TestExtractField_KeywordSameLine(t *testing.T) {
	res := flatResult(t, "Отправитель: ООО Ромашка\nВес брутто 120 кг", 0.9)
	spec := extraction.FieldSpec{
		Name: "total_weight",
		Rule: mustRule(t, `{"type":"keyword","anchor":"Вес брутто"}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Equal(t, "120 кг", f.Value)
	assert.Equal(t, 0.9, f.Confidence)
}

func TestExtractField_KeywordCaseInsensitiveAnchor(t *testing.T) {
	res := flatResult(t, "INVOICE NO: 2025-0042", 1.0)
	spec := extraction.FieldSpec{
		Name: "invoice_number",
		Rule: mustRule(t, `{"type":"keyword","anchor":"invoice no:"}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Equal(t, "2025-0042", f.Value)
}

func TestExtractField_KeywordFoldedAnchorOffset(t *testing.T) {
	// U+212A KELVIN SIGN folds to "k" but shrinks from three bytes to
	// one under ToLower; the remainder must still start after the anchor.
	res := flatResult(t, "NET WEIGHT (KG): 120", 0.9)
	spec := extraction.FieldSpec{
		Name: "net_weight",
		Rule: mustRule(t, `{"type":"keyword","anchor":"net weight (kg):"}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Equal(t, "120", f.Value)
	assert.Equal(t, 0.9, f.Confidence)
}

func TestExtractField_KeywordNextLines(t *testing.T) {
	res := flatResult(t, "Получатель:\nООО 星空 Trading\nг. Ташкент", 0.8)
	spec := extraction.FieldSpec{
		Name: "recipient",
		Rule: mustRule(t, `{"type":"keyword","anchor":"Получатель","mode":"next_lines","lines":2}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Equal(t, "ООО 星空 Trading г. Ташкент", f.Value)
	assert.InDelta(t, 0.8, f.Confidence, 1e-9)
	assert.Equal(t, []int{1, 2}, f.SourceLines)
}

func TestExtractField_KeywordAnchorFoundValueEmpty(t *testing.T) {
	// "Found label but not value" is a distinguishable partial state:
	// empty value with halved (non-zero) confidence.
	res := flatResult(t, "Вес брутто\nследующая строка", 0.8)
	spec := extraction.FieldSpec{
		Name: "total_weight",
		Rule: mustRule(t, `{"type":"keyword","anchor":"Вес брутто"}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Empty(t, f.Value)
	assert.InDelta(t, 0.4, f.Confidence, 1e-9)
}

func TestExtractField_KeywordAbsent(t *testing.T) {
	res := flatResult(t, "ничего подходящего", 0.9)
	spec := extraction.FieldSpec{
		Name: "total_weight",
		Rule: mustRule(t, `{"type":"keyword","anchor":"Вес брутто"}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Empty(t, f.Value)
	assert.Zero(t, f.Confidence)
	assert.Nil(t, f.SourceLines)
}

func TestExtractField_PositionOverlap(t *testing.T) {
	tokens := []extraction.Token{
		{Text: "ООО", Box: extraction.Rect{X: 100, Y: 100, W: 40, H: 20}, Confidence: 0.9},
		{Text: "Ромашка", Box: extraction.Rect{X: 150, Y: 102, W: 80, H: 20}, Confidence: 0.7},
		{Text: "далеко", Box: extraction.Rect{X: 500, Y: 600, W: 60, H: 20}, Confidence: 0.9},
	}
	res, err := extraction.Normalize(&extraction.RawOCROutput{Tokens: tokens})
	require.NoError(t, err)

	spec := extraction.FieldSpec{
		Name: "sender_name",
		Rule: mustRule(t, `{"type":"position","rect":{"x":90,"y":90,"w":200,"h":40},"tolerance":5}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Equal(t, "ООО Ромашка", f.Value)
	assert.InDelta(t, 0.8, f.Confidence, 1e-9)
}

func TestExtractField_PositionNoOverlap(t *testing.T) {
	tokens := []extraction.Token{
		{Text: "далеко", Box: extraction.Rect{X: 500, Y: 600, W: 60, H: 20}, Confidence: 0.9},
	}
	res, err := extraction.Normalize(&extraction.RawOCROutput{Tokens: tokens})
	require.NoError(t, err)

	spec := extraction.FieldSpec{
		Name: "sender_name",
		Rule: mustRule(t, `{"type":"position","rect":{"x":0,"y":0,"w":100,"h":50}}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Empty(t, f.Value)
	assert.Zero(t, f.Confidence)
}

func TestExtractField_PositionInapplicableToFlatText(t *testing.T) {
	res := flatResult(t, "просто текст без координат", 1.0)
	spec := extraction.FieldSpec{
		Name: "sender_name",
		Rule: mustRule(t, `{"type":"position","rect":{"x":0,"y":0,"w":100,"h":50}}`),
	}

	f := extraction.ExtractField(spec, res)
	assert.Empty(t, f.Value)
	assert.Zero(t, f.Confidence)
}

func TestExtractDocument_InvoiceFieldsExtracted(t *testing.T) {
	// Invoice with both template fields present.
	res := flatResult(t, "Отправитель: ООО Ромашка\nВес брутто 120 кг", 0.95)
	specs := []extraction.FieldSpec{
		{Name: "sender_name", Required: true, Rule: mustRule(t, `{"type":"regex","pattern":"Отправитель:\\s*(.+)"}`)},
		{Name: "total_weight", Required: true, Rule: mustRule(t, `{"type":"keyword","anchor":"Вес брутто"}`)},
	}

	docID := uuid.New()
	now := time.Now()
	ext := extraction.ExtractDocument(docID, "invoice", specs, res, now)

	assert.Equal(t, docID, ext.DocumentID)
	require.Len(t, ext.Fields, 2)
	assert.Equal(t, "ООО Ромашка", ext.Fields[0].Value)
	assert.Greater(t, ext.Fields[0].Confidence, 0.0)
	assert.Equal(t, "120 кг", ext.Fields[1].Value)
	assert.Greater(t, ext.Fields[1].Confidence, 0.0)
}
