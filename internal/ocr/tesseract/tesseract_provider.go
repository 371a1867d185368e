package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"silkroute/internal/config"
	"silkroute/internal/extraction"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
)

func init() {
	ocr.RegisterProvider("tesseract", func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using a local Tesseract install via
// gosseract. It is the offline fallback when cloud providers are down. Word
// bounding boxes come from Tesseract's word-level iterator, so downstream
// normalization gets positional tokens just like the cloud providers.
type Provider struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewProvider creates a Tesseract-backed OCR provider.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"rus", "eng"}
	}
	return &Provider{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

func (p *Provider) Name() string { return "tesseract" }

func (p *Provider) Recognize(ctx context.Context, input port.OCRInput) (*extraction.RawOCROutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := p.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetImageFromBytes(input.FileBytes); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	languages := toTesseractLanguages(input.Languages)
	if len(languages) == 0 {
		languages = p.languages
	}
	if err := c.SetLanguage(languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	out := &extraction.RawOCROutput{}
	out.Tokens, out.Confidence = extractTokens(c)
	if len(out.Tokens) == 0 {
		out.Text = strings.TrimSpace(text)
	}
	return out, nil
}

func extractTokens(c *gosseract.Client) ([]extraction.Token, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	tokens := make([]extraction.Token, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		conf := b.Confidence / 100.0
		sum += conf
		tokens = append(tokens, extraction.Token{
			Text:       b.Word,
			Confidence: conf,
			Box: extraction.Rect{
				X: float64(b.Box.Min.X),
				Y: float64(b.Box.Min.Y),
				W: float64(b.Box.Dx()),
				H: float64(b.Box.Dy()),
			},
		})
	}
	if len(tokens) == 0 {
		return nil, 0
	}
	return tokens, sum / float64(len(tokens))
}

// toTesseractLanguages maps ISO 639-1 hints to Tesseract traineddata codes.
// Unknown hints are dropped.
func toTesseractLanguages(hints []string) []string {
	var out []string
	for _, h := range hints {
		switch strings.ToLower(h) {
		case "ru", "rus":
			out = append(out, "rus")
		case "en", "eng":
			out = append(out, "eng")
		case "uz", "uzb":
			out = append(out, "uzb")
		}
	}
	return out
}
