// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr is the ingestion boundary: it turns raw document bytes into
// unstructured text via an external extraction service. Unlike every later
// stage, a failure here is fatal for the document — there is nothing to
// degrade to before text exists.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/meshintel/fiscal-engine/internal/httputil"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

// TextExtractor converts raw document bytes into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, raw []byte, mimeType string) (string, error)
}

// HTTPExtractor posts document bytes to an OCR/text-extraction endpoint.
type HTTPExtractor struct {
	cfg    types.OCRConfig
	client *http.Client
}

// NewHTTPExtractor builds an extractor for the configured endpoint.
func NewHTTPExtractor(cfg types.OCRConfig) *HTTPExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// ocrResponse is the extraction service payload: either a single text
// field or a list of layout blocks.
type ocrResponse struct {
	Text   string `json:"text"`
	Blocks []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"blocks"`
	Error string `json:"error"`
}

// ExtractText sends the raw bytes with their MIME type and returns the
// extracted text. Block responses are joined in order.
func (e *HTTPExtractor) ExtractText(ctx context.Context, raw []byte, mimeType string) (string, error) {
	if e.cfg.Endpoint == "" {
		return "", fmt.Errorf("no extraction endpoint configured")
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty document")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, e.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("extraction service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extraction service returned HTTP %d", resp.StatusCode)
	}

	var or ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", fmt.Errorf("parsing extraction response: %w", err)
	}
	if or.Error != "" {
		return "", fmt.Errorf("extraction service: %s", or.Error)
	}

	text := or.Text
	if text == "" && len(or.Blocks) > 0 {
		parts := make([]string, 0, len(or.Blocks))
		for _, b := range or.Blocks {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		text = strings.Join(parts, "\n")
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extraction service returned no text")
	}
	return text, nil
}
