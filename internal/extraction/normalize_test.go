package extraction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silkroute/internal/domain"
	"silkroute/internal/extraction"
)

func TestNormalize_FlatTextRoundTrip(t *testing.T) {
	text := "Отправитель: ООО Ромашка\nВес брутто 120 кг\n\nИтого: 45 000"
	res, err := extraction.Normalize(&extraction.RawOCROutput{Text: text, Confidence: 0.9})
	require.NoError(t, err)

	var contents []string
	for _, line := range res.Lines {
		contents = append(contents, line.Content)
		assert.Nil(t, line.Box)
		assert.Equal(t, 0.9, line.Confidence)
	}
	assert.Equal(t, text, strings.Join(contents, "\n"))
}

func TestNormalize_FlatTextDefaultsConfidence(t *testing.T) {
	res, err := extraction.Normalize(&extraction.RawOCROutput{Text: "single line"})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 1.0, res.Lines[0].Confidence)
}

func TestNormalize_CRLFLineBreaks(t *testing.T) {
	res, err := extraction.Normalize(&extraction.RawOCROutput{Text: "first\r\nsecond"})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "first", res.Lines[0].Content)
	assert.Equal(t, "second", res.Lines[1].Content)
}

func TestNormalize_TokensClusterIntoLines(t *testing.T) {
	// Two visual lines, tokens deliberately out of reading order.
	tokens := []extraction.Token{
		{Text: "брутто", Box: extraction.Rect{X: 80, Y: 52, W: 60, H: 12}, Confidence: 0.8},
		{Text: "Отправитель:", Box: extraction.Rect{X: 10, Y: 10, W: 100, H: 12}, Confidence: 0.9},
		{Text: "Вес", Box: extraction.Rect{X: 10, Y: 50, W: 40, H: 12}, Confidence: 0.9},
		{Text: "Ромашка", Box: extraction.Rect{X: 160, Y: 12, W: 80, H: 12}, Confidence: 0.7},
		{Text: "ООО", Box: extraction.Rect{X: 120, Y: 11, W: 30, H: 12}, Confidence: 0.95},
	}
	res, err := extraction.Normalize(&extraction.RawOCROutput{Tokens: tokens})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)

	assert.Equal(t, "Отправитель: ООО Ромашка", res.Lines[0].Content)
	assert.Equal(t, "Вес брутто", res.Lines[1].Content)

	// Line confidence is the mean of its token confidences.
	assert.InDelta(t, (0.9+0.95+0.7)/3, res.Lines[0].Confidence, 1e-9)
	assert.InDelta(t, (0.9+0.8)/2, res.Lines[1].Confidence, 1e-9)

	// Line box is the union of its token boxes.
	require.NotNil(t, res.Lines[0].Box)
	assert.Equal(t, 10.0, res.Lines[0].Box.X)
	assert.Equal(t, 230.0, res.Lines[0].Box.W)
}

func TestNormalize_TokenTextLossless(t *testing.T) {
	tokens := []extraction.Token{
		{Text: "alpha", Box: extraction.Rect{X: 0, Y: 0, W: 20, H: 10}},
		{Text: "beta", Box: extraction.Rect{X: 30, Y: 1, W: 20, H: 10}},
		{Text: "gamma", Box: extraction.Rect{X: 0, Y: 40, W: 20, H: 10}},
	}
	res, err := extraction.Normalize(&extraction.RawOCROutput{Tokens: tokens})
	require.NoError(t, err)

	var all []string
	for _, line := range res.Lines {
		all = append(all, line.Content)
	}
	assert.Equal(t, "alpha beta gamma", strings.Join(all, " "))
}

func TestNormalize_EmptyPayloadIsMalformed(t *testing.T) {
	_, err := extraction.Normalize(&extraction.RawOCROutput{})
	assert.ErrorIs(t, err, domain.ErrMalformedOCROutput)

	_, err = extraction.Normalize(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedOCROutput)
}

func TestParseRawOutput(t *testing.T) {
	raw, err := extraction.ParseRawOutput([]byte(`{"text":"hello","confidence":0.75}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", raw.Text)
	assert.Equal(t, 0.75, raw.Confidence)

	raw, err = extraction.ParseRawOutput([]byte(`{"tokens":[{"text":"a","bounding_box":{"x":1,"y":2,"w":3,"h":4},"confidence":0.5}]}`))
	require.NoError(t, err)
	require.Len(t, raw.Tokens, 1)
	assert.Equal(t, extraction.Rect{X: 1, Y: 2, W: 3, H: 4}, raw.Tokens[0].Box)

	_, err = extraction.ParseRawOutput([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrMalformedOCROutput)

	_, err = extraction.ParseRawOutput([]byte(`{"unrelated":true}`))
	assert.ErrorIs(t, err, domain.ErrMalformedOCROutput)
}
