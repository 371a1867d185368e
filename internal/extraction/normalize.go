package extraction

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"silkroute/internal/domain"
)

// DefaultLineTolerance is the vertical clustering tolerance, in page
// pixels, used to group tokens into lines when none is configured.
const DefaultLineTolerance = 10.0

// ParseRawOutput decodes a provider payload into RawOCROutput. Payloads
// that fit neither the flat-text nor the token-list shape fail with
// domain.ErrMalformedOCROutput.
func ParseRawOutput(payload []byte) (*RawOCROutput, error) {
	var raw RawOCROutput
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOCROutput, err)
	}
	if raw.Text == "" && len(raw.Tokens) == 0 {
		return nil, domain.ErrMalformedOCROutput
	}
	return &raw, nil
}

// Normalize converts provider OCR output into the engine's line-oriented
// representation using the default line tolerance.
func Normalize(raw *RawOCROutput) (*NormalizedResult, error) {
	return NormalizeWithTolerance(raw, DefaultLineTolerance)
}

// NormalizeWithTolerance converts provider OCR output into a
// NormalizedResult. Token-level output is clustered into lines by
// vertical position within tolerance; flat text is split on line breaks.
// Normalization is lossless with respect to reading-order text content.
func NormalizeWithTolerance(raw *RawOCROutput, tolerance float64) (*NormalizedResult, error) {
	if raw == nil || (raw.Text == "" && len(raw.Tokens) == 0) {
		return nil, domain.ErrMalformedOCROutput
	}
	if len(raw.Tokens) > 0 {
		return normalizeTokens(raw.Tokens, tolerance), nil
	}
	return normalizeFlatText(raw.Text, raw.Confidence), nil
}

func normalizeFlatText(text string, confidence float64) *NormalizedResult {
	if confidence <= 0 {
		confidence = 1.0
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	split := strings.Split(text, "\n")

	lines := make([]TextLine, 0, len(split))
	for _, s := range split {
		lines = append(lines, TextLine{Content: s, Confidence: confidence})
	}
	return &NormalizedResult{Lines: lines}
}

// normalizeTokens groups tokens into lines by clustering vertical
// centers within tolerance, orders clusters top-to-bottom and tokens
// within a cluster left-to-right, and joins token text with spaces.
func normalizeTokens(tokens []Token, tolerance float64) *NormalizedResult {
	if tolerance <= 0 {
		tolerance = DefaultLineTolerance
	}

	ordered := make([]Token, len(tokens))
	copy(ordered, tokens)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Box.CenterY() < ordered[j].Box.CenterY()
	})

	type cluster struct {
		tokens  []Token
		sumY    float64 // running sum of vertical centers
	}
	var clusters []*cluster
	for _, tok := range ordered {
		var target *cluster
		for _, c := range clusters {
			mean := c.sumY / float64(len(c.tokens))
			if abs(tok.Box.CenterY()-mean) <= tolerance {
				target = c
				break
			}
		}
		if target == nil {
			target = &cluster{}
			clusters = append(clusters, target)
		}
		target.tokens = append(target.tokens, tok)
		target.sumY += tok.Box.CenterY()
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].sumY/float64(len(clusters[i].tokens)) <
			clusters[j].sumY/float64(len(clusters[j].tokens))
	})

	lines := make([]TextLine, 0, len(clusters))
	for _, c := range clusters {
		sort.SliceStable(c.tokens, func(i, j int) bool {
			return c.tokens[i].Box.X < c.tokens[j].Box.X
		})

		var sb strings.Builder
		var confSum float64
		box := c.tokens[0].Box
		for i, tok := range c.tokens {
			if i > 0 {
				sb.WriteByte(' ')
				box = box.Union(tok.Box)
			}
			sb.WriteString(tok.Text)
			conf := tok.Confidence
			if conf <= 0 {
				conf = 1.0
			}
			confSum += conf
		}
		lineBox := box
		lines = append(lines, TextLine{
			Content:    sb.String(),
			Box:        &lineBox,
			Confidence: confSum / float64(len(c.tokens)),
		})
	}
	return &NormalizedResult{Lines: lines}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
