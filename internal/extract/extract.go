// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw document text into a structured DocumentRecord
// via a language-model structuring service. Extraction is best-effort: a
// malformed service response yields the canonical default record, never an
// error, so a bad response cannot stall the pipeline.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

// StructuringBackend abstracts the language-model API so tests can supply
// a mock. The system prompt carries the instruction schema; user carries
// the document text.
type StructuringBackend interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Extractor converts raw extracted text into DocumentRecords. Safe for
// concurrent use; it holds no per-run state.
type Extractor struct {
	backend    StructuringBackend
	maxRetries int
	fallbacks  atomic.Int64
}

// New builds an Extractor over the given backend. MaxRetries below 1
// defaults to 3.
func New(backend StructuringBackend, cfg types.ExtractionConfig) *Extractor {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Extractor{backend: backend, maxRetries: maxRetries}
}

// FallbackCount reports how many extractions fell back to the default
// record since construction.
func (e *Extractor) FallbackCount() int64 {
	return e.fallbacks.Load()
}

// Extract structures rawText into a DocumentRecord. Any backend or parse
// failure is recorded on w and the canonical default record is returned.
func (e *Extractor) Extract(ctx context.Context, rawText string, w io.Writer) types.DocumentRecord {
	resp, err := e.callWithRetry(ctx, rawText)
	if err != nil {
		return e.fallback(w, fmt.Errorf("structuring service: %w", err))
	}

	record, err := parseRecord(resp)
	if err != nil {
		return e.fallback(w, fmt.Errorf("parsing structuring output: %w", err))
	}
	return record
}

func (e *Extractor) fallback(w io.Writer, err error) types.DocumentRecord {
	e.fallbacks.Add(1)
	fmt.Fprintf(w, "warning: extraction fell back to default record: %v\n", err)
	return types.DefaultDocumentRecord()
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the structuring backend with exponential backoff.
func (e *Extractor) callWithRetry(ctx context.Context, rawText string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := e.backend.Chat(ctx, structuringInstruction, rawText)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", e.maxRetries, lastErr)
}

// parseRecord decodes the service response into a DocumentRecord. The
// response is decoded loosely (any JSON object) and each field coerced,
// since model output does not reliably respect types.
func parseRecord(resp string) (types.DocumentRecord, error) {
	payload := extractJSON(resp)
	if payload == "" {
		return types.DocumentRecord{}, fmt.Errorf("no JSON object in response")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return types.DocumentRecord{}, fmt.Errorf("decoding response object: %w", err)
	}

	record := types.DefaultDocumentRecord()
	record.DocumentType = types.ParseDocumentType(stringField(fields, "document_type"))

	// Missing or invalid numerics coerce to 0; negatives clamp to 0 so the
	// non-negative base invariant holds downstream.
	if v := numberField(fields, "total_value"); v > 0 {
		record.TotalValue = v
	}

	if v := stringField(fields, "operation_type"); v != "" {
		record.OperationType = strings.ToUpper(v)
	}
	if v := stringField(fields, "state"); len(v) == 2 {
		record.State = strings.ToUpper(v)
	}
	if v := stringField(fields, "municipality"); v != "" {
		record.Municipality = v
	}

	if raw, ok := fields["tax_info"].(map[string]any); ok {
		for k, v := range raw {
			if s := coerceString(v); s != "" {
				record.TaxInfo[k] = s
			}
		}
	}

	return record, nil
}

// extractJSON returns the outermost JSON object in s, tolerating markdown
// fences and prose around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func stringField(fields map[string]any, key string) string {
	return coerceString(fields[key])
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func numberField(fields map[string]any, key string) float64 {
	switch t := fields[key].(type) {
	case float64:
		return t
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
	}
	return 0
}
