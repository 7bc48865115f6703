// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders monthly aggregates of stored documents. The
// report JSON is persisted through the store; a Markdown rendering is
// written alongside for human readers.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/meshintel/fiscal-engine/internal/store"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

// MonthStore is the slice of the document store the reporter needs.
type MonthStore interface {
	DocumentsForMonth(ctx context.Context, userID string, month time.Month, year int) ([][]byte, error)
	SaveMonthlyReport(ctx context.Context, userID string, month time.Month, year int, reportData []byte) (string, error)
}

// Generate aggregates one user's documents for a month, persists the
// report, and writes a Markdown rendering to cfg.OutputDir. A persistence
// failure is reported on w but does not fail generation.
func Generate(ctx context.Context, st MonthStore, userID string, month time.Month, year int, cfg types.ReportConfig, w io.Writer) (store.MonthlySummary, error) {
	blobs, err := st.DocumentsForMonth(ctx, userID, month, year)
	if err != nil {
		return store.MonthlySummary{}, fmt.Errorf("loading documents for %04d-%02d: %w", year, month, err)
	}

	summary := store.Aggregate(blobs)
	if summary.Unparseable > 0 {
		fmt.Fprintf(w, "warning: %d stored document(s) could not be parsed and were excluded\n", summary.Unparseable)
	}

	reportData, err := json.Marshal(summary)
	if err != nil {
		return store.MonthlySummary{}, fmt.Errorf("encoding report: %w", err)
	}

	if id, err := st.SaveMonthlyReport(ctx, userID, month, year, reportData); err != nil {
		fmt.Fprintf(w, "warning: could not persist monthly report: %v\n", err)
	} else {
		fmt.Fprintf(w, "stored report %s\n", id)
	}

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Join("output", "reports")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(outDir, fmt.Sprintf("%s-%04d-%02d.md", userID, year, int(month)))
	if err := os.WriteFile(path, []byte(renderMarkdown(userID, month, year, summary)), 0o644); err != nil {
		return summary, fmt.Errorf("writing report: %w", err)
	}

	fmt.Fprintf(w, "report written to %s\n", path)
	return summary, nil
}

// renderMarkdown produces the human-readable report body.
func renderMarkdown(userID string, month time.Month, year int, summary store.MonthlySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Relatório fiscal mensal — %04d-%02d\n\n", year, int(month))
	fmt.Fprintf(&b, "Usuário: %s\n\n", userID)
	fmt.Fprintf(&b, "- Documentos processados: %d\n", summary.TotalDocuments)
	fmt.Fprintf(&b, "- Valor total: R$ %.2f\n", summary.TotalValue)
	if summary.Unparseable > 0 {
		fmt.Fprintf(&b, "- Registros ilegíveis excluídos: %d\n", summary.Unparseable)
	}

	b.WriteString("\n## Impostos\n\n")
	if len(summary.Taxes) == 0 {
		b.WriteString("Nenhum imposto apurado no período.\n")
		return b.String()
	}

	names := make([]string, 0, len(summary.Taxes))
	for name := range summary.Taxes {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("| Imposto | Valor |\n|---|---|\n")
	for _, name := range names {
		fmt.Fprintf(&b, "| %s | R$ %.2f |\n", name, summary.Taxes[name])
	}
	return b.String()
}
