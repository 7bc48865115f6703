// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate judges a structured document against retrieved tax
// rules via a language-model judgment service. Like extraction, it is
// best-effort: unparseable judgments degrade to a warning result instead
// of failing the run.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

// fallbackIssue is the single issue reported when the judgment output
// cannot be parsed.
const fallbackIssue = "could not parse upstream response"

// JudgmentBackend abstracts the language-model API so tests can supply a
// mock.
type JudgmentBackend interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Validator checks documents for compliance issues. Safe for concurrent
// use.
type Validator struct {
	backend JudgmentBackend
}

// New builds a Validator over the given backend.
func New(backend JudgmentBackend, _ types.ValidationConfig) *Validator {
	return &Validator{backend: backend}
}

// Validate judges record against rules. Backend or parse failures are
// recorded on w and degrade to a warning result; Validate never errors.
func (v *Validator) Validate(ctx context.Context, record types.DocumentRecord, rules []types.TaxRuleExcerpt, w io.Writer) types.ComplianceResult {
	resp, err := v.backend.Chat(ctx, judgmentInstruction, buildJudgmentPrompt(record, rules))
	if err != nil {
		return fallback(w, fmt.Errorf("judgment service: %w", err))
	}

	result, err := parseResult(resp)
	if err != nil {
		return fallback(w, fmt.Errorf("parsing judgment output: %w", err))
	}
	return result
}

func fallback(w io.Writer, err error) types.ComplianceResult {
	fmt.Fprintf(w, "warning: compliance check fell back: %v\n", err)
	return types.ComplianceResult{
		Status:      types.StatusWarning,
		Issues:      []string{fallbackIssue},
		Suggestions: []string{},
	}
}

// judgmentInstruction tells the service what to check and the exact
// response shape.
const judgmentInstruction = `You audit Brazilian fiscal documents for compliance.
Check the document against the provided legal excerpts for: required
fields and formats, calculation plausibility, filing-deadline risk, and
special regime requirements. Respond with ONLY a JSON object:

{"status": "ok" | "warning" | "error", "issues": ["..."], "suggestions": ["..."]}

No markdown, no commentary.`

// buildJudgmentPrompt renders the record and rule excerpts for the service.
func buildJudgmentPrompt(record types.DocumentRecord, rules []types.TaxRuleExcerpt) string {
	var b strings.Builder
	b.WriteString("Documento:\n")
	doc, _ := json.MarshalIndent(record, "", "  ")
	b.Write(doc)
	b.WriteString("\n\nRegras aplicáveis:\n")
	if len(rules) == 0 {
		b.WriteString("(nenhuma regra recuperada)\n")
	}
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, r.SourceURI, r.Text)
	}
	return b.String()
}

// parseResult decodes the judgment response, tolerating fences and prose
// around the JSON object. An unrecognized status is a parse failure.
func parseResult(resp string) (types.ComplianceResult, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start < 0 || end <= start {
		return types.ComplianceResult{}, fmt.Errorf("no JSON object in response")
	}

	var result types.ComplianceResult
	if err := json.Unmarshal([]byte(resp[start:end+1]), &result); err != nil {
		return types.ComplianceResult{}, fmt.Errorf("decoding response object: %w", err)
	}

	switch result.Status {
	case types.StatusOK, types.StatusWarning, types.StatusError:
	default:
		return types.ComplianceResult{}, fmt.Errorf("unknown status %q", result.Status)
	}

	if result.Issues == nil {
		result.Issues = []string{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	return result, nil
}
