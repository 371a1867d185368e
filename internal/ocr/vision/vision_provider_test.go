package vision_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silkroute/internal/config"
	"silkroute/internal/ocr"
	"silkroute/internal/ocr/vision"
	"silkroute/internal/port"
)

func newVisionTestProvider(serverURL string) *vision.Provider {
	cfg := &config.OCRProviderConfig{
		Provider:    "vision",
		APIKey:      "test-vision-key",
		Languages:   []string{"ru", "uz", "en"},
		TimeoutSecs: 30,
	}
	return vision.NewProviderWithEndpoint(cfg, serverURL)
}

func visionWord(text string, confidence float64, x, y, w, h float64) map[string]interface{} {
	symbols := make([]map[string]interface{}, 0, len([]rune(text)))
	for _, r := range text {
		symbols = append(symbols, map[string]interface{}{"text": string(r)})
	}
	return map[string]interface{}{
		"symbols":    symbols,
		"confidence": confidence,
		"boundingBox": map[string]interface{}{
			"vertices": []map[string]interface{}{
				{"x": x, "y": y},
				{"x": x + w, "y": y},
				{"x": x + w, "y": y + h},
				{"x": x, "y": y + h},
			},
		},
	}
}

func visionSuccessResponse(text string, words ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"responses": []map[string]interface{}{
			{
				"fullTextAnnotation": map[string]interface{}{
					"text": text,
					"pages": []map[string]interface{}{
						{
							"blocks": []map[string]interface{}{
								{
									"paragraphs": []map[string]interface{}{
										{"words": words},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestVisionProvider_Recognize_Success(t *testing.T) {
	responseBody := visionSuccessResponse(
		"Вес брутто 120 кг",
		visionWord("Вес", 0.98, 10, 100, 40, 20),
		visionWord("брутто", 0.96, 60, 100, 80, 20),
		visionWord("120", 0.99, 150, 102, 40, 18),
		visionWord("кг", 0.95, 200, 102, 25, 18),
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&reqBody)
		assert.NoError(t, err)

		requests := reqBody["requests"].([]interface{})
		assert.Len(t, requests, 1)
		first := requests[0].(map[string]interface{})

		image := first["image"].(map[string]interface{})
		assert.NotEmpty(t, image["content"])

		features := first["features"].([]interface{})
		feature := features[0].(map[string]interface{})
		assert.Equal(t, "DOCUMENT_TEXT_DETECTION", feature["type"])

		imageContext := first["imageContext"].(map[string]interface{})
		hints := imageContext["languageHints"].([]interface{})
		assert.Equal(t, []interface{}{"ru", "uz", "en"}, hints)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(responseBody)
	}))
	defer server.Close()

	p := newVisionTestProvider(server.URL)

	result, err := p.Recognize(context.Background(), port.OCRInput{
		FileBytes:   []byte("fake image bytes"),
		ContentType: "image/jpeg",
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Вес брутто 120 кг", result.Text)
	require.Len(t, result.Tokens, 4)
	assert.Equal(t, "Вес", result.Tokens[0].Text)
	assert.Equal(t, "брутто", result.Tokens[1].Text)
	assert.InDelta(t, 0.98, result.Tokens[0].Confidence, 1e-9)
	assert.InDelta(t, 10.0, result.Tokens[0].Box.X, 1e-9)
	assert.InDelta(t, 40.0, result.Tokens[0].Box.W, 1e-9)
	assert.Greater(t, result.Confidence, 0.9)
}

func TestVisionProvider_Recognize_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"responses": []map[string]interface{}{{}},
		})
	}))
	defer server.Close()

	p := newVisionTestProvider(server.URL)

	result, err := p.Recognize(context.Background(), port.OCRInput{FileBytes: []byte("blank"), ContentType: "image/png"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Text)
	assert.Empty(t, result.Tokens)
}

func TestVisionProvider_Recognize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"responses": []map[string]interface{}{
				{"error": map[string]interface{}{"code": 3, "message": "Bad image data"}},
			},
		})
	}))
	defer server.Close()

	p := newVisionTestProvider(server.URL)

	result, err := p.Recognize(context.Background(), port.OCRInput{FileBytes: []byte("junk"), ContentType: "image/png"})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad image data")
}

func TestVisionProvider_Recognize_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := newVisionTestProvider(server.URL)

	result, err := p.Recognize(context.Background(), port.OCRInput{FileBytes: []byte("img"), ContentType: "image/jpeg"})

	assert.Nil(t, result)
	require.Error(t, err)

	var rlErr *ocr.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "vision", rlErr.Provider)
	assert.Equal(t, float64(30), rlErr.RetryAfter.Seconds())
}

func TestVisionProvider_Recognize_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newVisionTestProvider(server.URL)

	result, err := p.Recognize(context.Background(), port.OCRInput{FileBytes: []byte("img"), ContentType: "image/jpeg"})

	assert.Nil(t, result)
	require.Error(t, err)

	var rlErr *ocr.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}
