// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcribe turns one rendered PDF page into Markdown by calling a
// hosted multimodal completion API.
package transcribe

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Page is one unit of transcription work: a rendered page image and, in
// vision-and-text mode, the plain text extracted from the same page.
type Page struct {
	// Index is the zero-based physical page index.
	Index int

	// ImagePath is the rendered page image on disk.
	ImagePath string

	// PriorText is the extracted page text; empty in vision-only mode.
	PriorText string
}

// Backend sends one page to a multimodal completion API and returns the
// response text verbatim as the page's Markdown. Implementations handle a
// single page per call so tests can supply a mock.
type Backend interface {
	Transcribe(ctx context.Context, page Page) (string, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// WithRetry calls the backend with exponential backoff on failure. The
// per-page network call is the dominant cost of the whole run, so a
// transient failure is worth a few retries before the document is abandoned.
func WithRetry(ctx context.Context, backend Backend, page Page, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		markdown, err := backend.Transcribe(ctx, page)
		if err == nil {
			return markdown, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("page %d: after %d retries: %w", page.Index+1, maxRetries, lastErr)
}
