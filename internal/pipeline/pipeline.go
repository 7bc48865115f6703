// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the document stages: ingestion, extraction,
// rule retrieval, calculation, and validation. Every stage past ingestion
// has a degraded mode, so a run that produces a DocumentRecord always
// produces a complete PipelineResult. Runs are independent; the only
// shared state is the read-only rate tables inside the calculator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meshintel/fiscal-engine/internal/retrieve"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

// State names one phase of a pipeline run. Transitions are strictly
// forward; Done and Failed are terminal.
type State string

const (
	StateIngesting       State = "ingesting"
	StateExtracting      State = "extracting"
	StateRetrievingRules State = "retrieving_rules"
	StateCalculating     State = "calculating"
	StateValidating      State = "validating"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// IngestionError marks the one fatal failure class: no text could be
// produced from the raw document, so no record exists to degrade to.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingesting document: %v", e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Stage dependencies, injected at construction. Each is implemented by
// its internal package; tests supply fakes.
type (
	// TextExtractor is the ingestion boundary (internal/ocr).
	TextExtractor interface {
		ExtractText(ctx context.Context, raw []byte, mimeType string) (string, error)
	}

	// RecordExtractor structures raw text (internal/extract).
	RecordExtractor interface {
		Extract(ctx context.Context, rawText string, w io.Writer) types.DocumentRecord
	}

	// RuleRetriever finds relevant legal excerpts (internal/retrieve).
	RuleRetriever interface {
		Retrieve(ctx context.Context, query string, hints retrieve.Hints) ([]types.TaxRuleExcerpt, error)
	}

	// Calculator computes taxes (internal/calc).
	Calculator interface {
		Calculate(rec types.DocumentRecord, rules []types.TaxRuleExcerpt) types.TaxCalculation
	}

	// Validator judges compliance (internal/validate).
	Validator interface {
		Validate(ctx context.Context, rec types.DocumentRecord, rules []types.TaxRuleExcerpt, w io.Writer) types.ComplianceResult
	}

	// DocumentStore persists finished runs (internal/store).
	DocumentStore interface {
		SaveDocument(ctx context.Context, userID string, result *types.PipelineResult) (string, error)
	}
)

// Deps bundles the orchestrator's injected collaborators. Store may be
// nil to disable persistence; Progress may be nil to discard progress
// output.
type Deps struct {
	OCR       TextExtractor
	Extractor RecordExtractor
	Retriever RuleRetriever
	Registry  Calculator
	Validator Validator
	Store     DocumentStore
	Progress  io.Writer
}

// Orchestrator runs documents through the pipeline. Safe for concurrent
// use; each Process call is an independent run.
type Orchestrator struct {
	deps Deps
}

// New builds an Orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	if deps.Progress == nil {
		deps.Progress = io.Discard
	}
	return &Orchestrator{deps: deps}
}

// Process runs one document through every stage and returns the complete
// result. The only error cases are ingestion failure and context
// cancellation; every later stage degrades instead of failing.
func (o *Orchestrator) Process(ctx context.Context, userID string, raw []byte, mimeType string) (*types.PipelineResult, error) {
	w := o.deps.Progress
	r := newRun(w)

	r.advance(StateIngesting)
	rawText, err := o.deps.OCR.ExtractText(ctx, raw, mimeType)
	if err != nil {
		r.advance(StateFailed)
		return nil, &IngestionError{Err: err}
	}

	if err := r.next(ctx, StateExtracting); err != nil {
		return nil, err
	}
	record := o.deps.Extractor.Extract(ctx, rawText, w)

	if err := r.next(ctx, StateRetrievingRules); err != nil {
		return nil, err
	}
	rules := o.retrieveRules(ctx, record, w)

	if err := r.next(ctx, StateCalculating); err != nil {
		return nil, err
	}
	calculation := o.deps.Registry.Calculate(record, rules)

	if err := r.next(ctx, StateValidating); err != nil {
		return nil, err
	}
	compliance := o.deps.Validator.Validate(ctx, record, rules, w)

	result := &types.PipelineResult{
		DocumentData:    record,
		TaxCalculation:  calculation,
		ComplianceCheck: compliance,
		ApplicableRules: ensureRules(rules),
	}

	// Persistence failures are reported but never block the result.
	if o.deps.Store != nil {
		if id, err := o.deps.Store.SaveDocument(ctx, userID, result); err != nil {
			fmt.Fprintf(w, "warning: could not persist document: %v\n", err)
		} else {
			fmt.Fprintf(w, "stored document %s\n", id)
		}
	}

	r.advance(StateDone)
	return result, nil
}

// retrieveRules applies the degradation policy: any retrieval failure
// reduces to an empty rule set and the run continues.
func (o *Orchestrator) retrieveRules(ctx context.Context, record types.DocumentRecord, w io.Writer) []types.TaxRuleExcerpt {
	query := buildRuleQuery(record)
	hints := retrieve.Hints{
		DocumentType: record.DocumentType,
		State:        record.State,
	}

	rules, err := o.deps.Retriever.Retrieve(ctx, query, hints)
	if err != nil {
		var rerr *retrieve.RetrievalError
		if errors.As(err, &rerr) {
			fmt.Fprintf(w, "warning: rule retrieval degraded, continuing without rules: %v\n", rerr)
		} else {
			fmt.Fprintf(w, "warning: rule retrieval failed, continuing without rules: %v\n", err)
		}
		return nil
	}
	return rules
}

// buildRuleQuery derives the retrieval query from the structured record.
func buildRuleQuery(record types.DocumentRecord) string {
	return fmt.Sprintf("tributação %s operação %s %s %s",
		record.DocumentType, record.OperationType, record.State, record.Municipality)
}

// ensureRules normalizes a nil rule set to an empty slice so the result
// always serializes with applicableRules present.
func ensureRules(rules []types.TaxRuleExcerpt) []types.TaxRuleExcerpt {
	if rules == nil {
		return []types.TaxRuleExcerpt{}
	}
	return rules
}

// run tracks the state machine for one document. States only move
// forward; next refuses to start a stage once the context is cancelled.
type run struct {
	state State
	w     io.Writer
}

func newRun(w io.Writer) *run {
	return &run{w: w}
}

func (r *run) advance(next State) {
	r.state = next
	fmt.Fprintf(r.w, "stage: %s\n", next)
}

func (r *run) next(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		r.advance(StateFailed)
		return fmt.Errorf("run abandoned before %s: %w", next, err)
	}
	r.advance(next)
	return nil
}
