package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"silkroute/internal/config"
	"silkroute/internal/extraction"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
)

const apiBaseURL = "https://vision.googleapis.com/v1/images:annotate"

func init() {
	ocr.RegisterProvider("vision", func(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using the Google Cloud Vision API's
// DOCUMENT_TEXT_DETECTION feature.
type Provider struct {
	apiKey    string
	endpoint  string
	languages []string
	client    *http.Client
}

// NewProvider creates a Vision-based OCR provider.
func NewProvider(cfg *config.OCRProviderConfig) *Provider {
	return newProvider(cfg, "")
}

// NewProviderWithEndpoint creates a provider pointing at a custom API endpoint (for testing).
func NewProviderWithEndpoint(cfg *config.OCRProviderConfig, endpoint string) *Provider {
	return newProvider(cfg, endpoint)
}

func newProvider(cfg *config.OCRProviderConfig, endpoint string) *Provider {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s?key=%s", apiBaseURL, cfg.APIKey)
	}
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"ru", "uz", "en"}
	}
	return &Provider{
		apiKey:    cfg.APIKey,
		endpoint:  endpoint,
		languages: languages,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "vision" }

func (p *Provider) Recognize(ctx context.Context, input port.OCRInput) (*extraction.RawOCROutput, error) {
	languages := input.Languages
	if len(languages) == 0 {
		languages = p.languages
	}

	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)

	reqBody := map[string]interface{}{
		"requests": []map[string]interface{}{
			{
				"image": map[string]interface{}{
					"content": encoded,
				},
				"features": []map[string]interface{}{
					{"type": "DOCUMENT_TEXT_DETECTION"},
				},
				"imageContext": map[string]interface{}{
					"languageHints": languages,
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling vision API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("vision API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := ocr.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, ocr.NewRateLimitError("vision", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody)
}

// visionResponse models the parts of the annotate response we consume.
type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Blocks []struct {
					Paragraphs []struct {
						Words []visionWord `json:"words"`
					} `json:"paragraphs"`
				} `json:"blocks"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

type visionWord struct {
	Symbols []struct {
		Text string `json:"text"`
	} `json:"symbols"`
	Confidence  float64 `json:"confidence"`
	BoundingBox struct {
		Vertices []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"vertices"`
	} `json:"boundingBox"`
}

func parseResponse(body []byte) (*extraction.RawOCROutput, error) {
	var resp visionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("empty response from vision API")
	}

	first := resp.Responses[0]
	if first.Error != nil {
		return nil, fmt.Errorf("vision API error %d: %s", first.Error.Code, first.Error.Message)
	}

	out := &extraction.RawOCROutput{}
	if first.FullTextAnnotation == nil {
		return out, nil
	}

	out.Text = first.FullTextAnnotation.Text

	var confSum float64
	var confCount int
	for _, page := range first.FullTextAnnotation.Pages {
		for _, block := range page.Blocks {
			for _, para := range block.Paragraphs {
				for _, word := range para.Words {
					tok := wordToToken(word)
					if tok.Text == "" {
						continue
					}
					out.Tokens = append(out.Tokens, tok)
					if tok.Confidence > 0 {
						confSum += tok.Confidence
						confCount++
					}
				}
			}
		}
	}
	if confCount > 0 {
		out.Confidence = confSum / float64(confCount)
	}
	return out, nil
}

func wordToToken(word visionWord) extraction.Token {
	var sb strings.Builder
	for _, sym := range word.Symbols {
		sb.WriteString(sym.Text)
	}

	tok := extraction.Token{
		Text:       sb.String(),
		Confidence: word.Confidence,
	}
	if len(word.BoundingBox.Vertices) > 0 {
		minX, minY := word.BoundingBox.Vertices[0].X, word.BoundingBox.Vertices[0].Y
		maxX, maxY := minX, minY
		for _, v := range word.BoundingBox.Vertices[1:] {
			minX = min(minX, v.X)
			minY = min(minY, v.Y)
			maxX = max(maxX, v.X)
			maxY = max(maxY, v.Y)
		}
		tok.Box = extraction.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
	}
	return tok
}
