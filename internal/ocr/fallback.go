package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"silkroute/internal/extraction"
	"silkroute/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackProvider tries providers in order, skipping those with open circuits.
// It implements port.OCRProvider.
type FallbackProvider struct {
	providers []port.OCRProvider
	circuits  []*circuitState
}

// NewFallbackProvider creates a FallbackProvider from an ordered list of providers.
func NewFallbackProvider(providers ...port.OCRProvider) *FallbackProvider {
	circuits := make([]*circuitState, len(providers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackProvider{
		providers: providers,
		circuits:  circuits,
	}
}

func (f *FallbackProvider) Name() string { return "fallback" }

func (f *FallbackProvider) Recognize(ctx context.Context, input port.OCRInput) (*extraction.RawOCROutput, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, p := range f.providers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("ocr.FallbackProvider: skipping %s (circuit open until %s)", p.Name(), resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := p.Recognize(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("ocr.FallbackProvider: %s failed: %v", p.Name(), err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil {
		// All providers were skipped due to open circuits
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all OCR providers rate limited"), int(retryAfter.Seconds()))
	}

	if allRateLimited {
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all OCR providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all OCR providers failed: %w", lastErr)
}
