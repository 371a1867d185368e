package ocr_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"silkroute/internal/extraction"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
	"silkroute/mocks"
)

func recognizedText(text string) *extraction.RawOCROutput {
	return &extraction.RawOCROutput{Text: text, Confidence: 0.9}
}

func newNamedProvider(name string) *mocks.MockOCRProvider {
	p := new(mocks.MockOCRProvider)
	p.On("Name").Return(name).Maybe()
	return p
}

func TestFallbackProvider_FirstSucceeds(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")
	p3 := newNamedProvider("tesseract")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}
	p1.On("Recognize", mock.Anything, input).Return(recognizedText("from vision"), nil)

	fp := ocr.NewFallbackProvider(p1, p2, p3)

	result, err := fp.Recognize(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "from vision", result.Text)
	p2.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
	p3.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestFallbackProvider_FirstFails_SecondSucceeds(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}
	p1.On("Recognize", mock.Anything, input).Return(nil, errors.New("generic error"))
	p2.On("Recognize", mock.Anything, input).Return(recognizedText("from azure"), nil)

	fp := ocr.NewFallbackProvider(p1, p2)

	result, err := fp.Recognize(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "from azure", result.Text)
}

func TestFallbackProvider_FirstRateLimited_SecondSucceeds(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}
	rlErr := ocr.NewRateLimitError("vision", errors.New("429"), 60)
	p1.On("Recognize", mock.Anything, input).Return(nil, rlErr)
	p2.On("Recognize", mock.Anything, input).Return(recognizedText("from azure"), nil)

	fp := ocr.NewFallbackProvider(p1, p2)

	result, err := fp.Recognize(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "from azure", result.Text)
}

func TestFallbackProvider_AllRateLimited(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}
	p1.On("Recognize", mock.Anything, input).Return(nil, ocr.NewRateLimitError("vision", errors.New("429"), 60))
	p2.On("Recognize", mock.Anything, input).Return(nil, ocr.NewRateLimitError("azure", errors.New("429"), 30))

	fp := ocr.NewFallbackProvider(p1, p2)

	result, err := fp.Recognize(context.Background(), input)

	assert.Nil(t, result)
	assert.Error(t, err)

	var rlErr *ocr.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "all", rlErr.Provider)
}

func TestFallbackProvider_AllFail_NonRateLimit(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}
	p1.On("Recognize", mock.Anything, input).Return(nil, errors.New("error 1"))
	p2.On("Recognize", mock.Anything, input).Return(nil, errors.New("error 2"))

	fp := ocr.NewFallbackProvider(p1, p2)

	result, err := fp.Recognize(context.Background(), input)

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all OCR providers failed")

	var rlErr *ocr.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestFallbackProvider_CircuitAutoCloses(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}

	// First call: p1 rate limited with 1s retry, p2 succeeds
	p1.On("Recognize", mock.Anything, input).Return(nil, ocr.NewRateLimitError("vision", errors.New("429"), 1)).Once()
	p2.On("Recognize", mock.Anything, input).Return(recognizedText("from azure"), nil).Once()

	fp := ocr.NewFallbackProvider(p1, p2)

	result, err := fp.Recognize(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, "from azure", result.Text)

	// Wait for circuit to auto-close
	time.Sleep(1100 * time.Millisecond)

	// Second call: p1 should be retried and succeed
	p1.On("Recognize", mock.Anything, input).Return(recognizedText("from vision"), nil).Once()

	result, err = fp.Recognize(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, "from vision", result.Text)
}

func TestFallbackProvider_SkipsOpenCircuit(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}

	// First call: p1 rate limited with 60s, p2 succeeds
	p1.On("Recognize", mock.Anything, input).Return(nil, ocr.NewRateLimitError("vision", errors.New("429"), 60)).Once()
	p2.On("Recognize", mock.Anything, input).Return(recognizedText("from azure"), nil)

	fp := ocr.NewFallbackProvider(p1, p2)

	result, err := fp.Recognize(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, "from azure", result.Text)

	// Second call immediately: p1 should be skipped (circuit still open)
	result, err = fp.Recognize(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, "from azure", result.Text)

	// p1 should have been called only once total
	p1.AssertNumberOfCalls(t, "Recognize", 1)
}

func TestFallbackProvider_ConcurrentSafety(t *testing.T) {
	p1 := newNamedProvider("vision")
	p2 := newNamedProvider("azure")

	input := port.OCRInput{FileBytes: []byte("test"), ContentType: "image/jpeg"}
	p1.On("Recognize", mock.Anything, input).Return(nil, ocr.NewRateLimitError("vision", errors.New("429"), 5)).Maybe()
	p2.On("Recognize", mock.Anything, input).Return(recognizedText("from azure"), nil).Maybe()

	fp := ocr.NewFallbackProvider(p1, p2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := fp.Recognize(context.Background(), input)
			assert.NoError(t, err)
			assert.NotNil(t, result)
		}()
	}
	wg.Wait()
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, ocr.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, ocr.ParseRetryAfterHeader("not-a-number"))
	assert.Equal(t, 30, ocr.ParseRetryAfterHeader("30"))
}
