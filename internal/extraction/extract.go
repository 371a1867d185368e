package extraction

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"silkroute/internal/domain"
)

// ExtractField applies one field spec to a normalized OCR result. A rule
// that matches nothing yields Value="" with Confidence=0; extraction
// never fails for "not found".
func ExtractField(spec FieldSpec, res *NormalizedResult) ExtractedField {
	out := ExtractedField{Name: spec.Name}
	if res == nil || spec.Rule == nil {
		return out
	}

	switch spec.Rule.Type {
	case domain.RuleTypeRegex:
		out.Value, out.Confidence, out.SourceLines = extractRegex(spec.Rule.Regex, res)
	case domain.RuleTypeKeyword:
		out.Value, out.Confidence, out.SourceLines = extractKeyword(spec.Rule.Keyword, res)
	case domain.RuleTypePosition:
		out.Value, out.Confidence, out.SourceLines = extractPosition(spec.Rule.Position, res)
	}
	return out
}

// ExtractDocument runs every field spec against one normalized result,
// producing the document's full extraction.
func ExtractDocument(docID uuid.UUID, docType domain.DocumentType, specs []FieldSpec, res *NormalizedResult, processedAt time.Time) DocumentExtraction {
	fields := make([]ExtractedField, 0, len(specs))
	for _, spec := range specs {
		fields = append(fields, ExtractField(spec, res))
	}
	return DocumentExtraction{
		DocumentID:   docID,
		DocumentType: docType,
		ProcessedAt:  processedAt.UTC(),
		Fields:       fields,
	}
}

// extractRegex scans lines in order and takes the configured capture
// group from the first matching line.
func extractRegex(rule *RegexRule, res *NormalizedResult) (string, float64, []int) {
	for i, line := range res.Lines {
		m := rule.re.FindStringSubmatch(line.Content)
		if m == nil {
			continue
		}
		if rule.Group >= len(m) {
			continue
		}
		return strings.TrimSpace(m[rule.Group]), line.Confidence, []int{i}
	}
	return "", 0, nil
}

// extractKeyword locates the anchor (case-insensitive substring) and
// captures either the remainder of the anchor line or the following N
// lines. Finding the anchor without a value is a distinguishable partial
// state: the confidence is halved rather than zeroed.
func extractKeyword(rule *KeywordRule, res *NormalizedResult) (string, float64, []int) {
	for i, line := range res.Lines {
		end := anchorEnd(line.Content, rule.Anchor)
		if end < 0 {
			continue
		}

		switch rule.Mode {
		case KeywordModeNextLines:
			var parts []string
			var confSum float64
			var src []int
			for j := i + 1; j <= i+rule.Lines && j < len(res.Lines); j++ {
				parts = append(parts, res.Lines[j].Content)
				confSum += res.Lines[j].Confidence
				src = append(src, j)
			}
			value := strings.TrimSpace(strings.Join(parts, " "))
			if value == "" {
				return "", line.Confidence / 2, []int{i}
			}
			return value, confSum / float64(len(src)), src

		default: // same_line
			value := strings.TrimSpace(line.Content[end:])
			if value == "" {
				return "", line.Confidence / 2, []int{i}
			}
			return value, line.Confidence, []int{i}
		}
	}
	return "", 0, nil
}

// anchorEnd returns the byte offset in line just past the first
// occurrence of anchor under simple case folding, or -1. Offsets taken
// from a ToLower copy cannot be applied to the original line: lowering
// changes the byte length of runes such as U+212A.
func anchorEnd(line, anchor string) int {
	n := len([]rune(anchor))
	if n == 0 {
		return -1
	}
	runes := []rune(line)
	for i := 0; i+n <= len(runes); i++ {
		if strings.EqualFold(string(runes[i:i+n]), anchor) {
			return len(string(runes[:i+n]))
		}
	}
	return -1
}

// extractPosition selects lines whose rectangle overlaps the
// tolerance-expanded target by more than half the line's own area.
// Flat-text results carry no rectangles, making position rules
// inapplicable, which is a recoverable empty outcome, not an error.
func extractPosition(rule *PositionRule, res *NormalizedResult) (string, float64, []int) {
	target := rule.Rect.Expand(rule.Tolerance)

	var parts []string
	var confSum float64
	var src []int
	for i, line := range res.Lines {
		if line.Box == nil {
			continue
		}
		area := line.Box.Area()
		if area <= 0 {
			continue
		}
		if line.Box.Intersection(target) > 0.5*area {
			parts = append(parts, line.Content)
			confSum += line.Confidence
			src = append(src, i)
		}
	}
	if len(src) == 0 {
		return "", 0, nil
	}
	value := strings.TrimSpace(strings.Join(parts, " "))
	if value == "" {
		return "", 0, nil
	}
	return value, confSum / float64(len(src)), src
}
