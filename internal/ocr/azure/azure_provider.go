package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"silkroute/internal/config"
	"silkroute/internal/extraction"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
)

func init() {
	ocr.RegisterProvider("azure", func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using the Azure Computer Vision
// OCR API. Word bounding boxes are mapped to tokens so that downstream
// normalization can reconstruct reading-order lines.
type Provider struct {
	client   *computervision.BaseClient
	language computervision.OcrLanguages
}

// NewProvider creates an Azure Computer Vision OCR provider.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.APIKey)

	return &Provider{
		client:   &client,
		language: toOcrLanguage(cfg.Languages),
	}
}

func (p *Provider) Name() string { return "azure" }

func (p *Provider) Recognize(ctx context.Context, input port.OCRInput) (*extraction.RawOCROutput, error) {
	reader := io.NopCloser(bytes.NewReader(input.FileBytes))

	lang := p.language
	if len(input.Languages) > 0 {
		lang = toOcrLanguage(input.Languages)
	}

	result, err := p.client.RecognizePrintedTextInStream(ctx, true, reader, lang)
	if err != nil {
		if de, ok := err.(autorest.DetailedError); ok {
			if sc, ok := de.StatusCode.(int); ok && sc == http.StatusTooManyRequests {
				return nil, ocr.NewRateLimitError("azure", err, 0)
			}
		}
		return nil, fmt.Errorf("calling azure OCR API: %w", err)
	}

	return ocrResultToOutput(result), nil
}

// toOcrLanguage maps the first configured language hint to an Azure OCR
// language code. Unsupported hints fall back to automatic detection.
func toOcrLanguage(languages []string) computervision.OcrLanguages {
	for _, lang := range languages {
		switch strings.ToLower(lang) {
		case "ru":
			return computervision.OcrLanguagesRu
		case "en":
			return computervision.OcrLanguagesEn
		}
	}
	return computervision.OcrLanguagesUnk
}

func ocrResultToOutput(result computervision.OcrResult) *extraction.RawOCROutput {
	out := &extraction.RawOCROutput{}
	if result.Regions == nil {
		return out
	}

	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			for _, word := range *line.Words {
				if word.Text == nil || *word.Text == "" {
					continue
				}
				tok := extraction.Token{Text: *word.Text}
				if word.BoundingBox != nil {
					if box, ok := parseBoundingBox(*word.BoundingBox); ok {
						tok.Box = box
					}
				}
				out.Tokens = append(out.Tokens, tok)
			}
		}
	}
	return out
}

// parseBoundingBox parses Azure's "x,y,width,height" box format.
func parseBoundingBox(s string) (extraction.Rect, bool) {
	parts := strings.Split(s, ",")
	if len(parts) < 4 {
		return extraction.Rect{}, false
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return extraction.Rect{}, false
		}
		vals[i] = float64(n)
	}
	return extraction.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, true
}
