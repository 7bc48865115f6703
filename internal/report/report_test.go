package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

type fakeMonthStore struct {
	blobs     [][]byte
	loadErr   error
	saveErr   error
	savedData []byte
}

func (f *fakeMonthStore) DocumentsForMonth(_ context.Context, _ string, _ time.Month, _ int) ([][]byte, error) {
	return f.blobs, f.loadErr
}

func (f *fakeMonthStore) SaveMonthlyReport(_ context.Context, _ string, _ time.Month, _ int, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.savedData = data
	return "01JREPORTULID", nil
}

func resultBlob(t *testing.T, total float64, taxes map[string]float64) []byte {
	t.Helper()
	rec := types.DefaultDocumentRecord()
	rec.TotalValue = total
	blob, err := json.Marshal(types.PipelineResult{
		DocumentData:   rec,
		TaxCalculation: types.TaxCalculation{BaseValue: total, Taxes: taxes},
	})
	if err != nil {
		t.Fatal(err)
	}
	return blob
}

func TestGenerate(t *testing.T) {
	st := &fakeMonthStore{blobs: [][]byte{
		resultBlob(t, 1000, map[string]float64{"ICMS": 180, "PIS": 16.5}),
		resultBlob(t, 500, map[string]float64{"ICMS": 90}),
	}}
	outDir := t.TempDir()

	summary, err := Generate(context.Background(), st, "user-1", time.March, 2026,
		types.ReportConfig{OutputDir: outDir}, io.Discard)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if summary.TotalDocuments != 2 {
		t.Errorf("documents = %d, want 2", summary.TotalDocuments)
	}
	if summary.TotalValue != 1500 {
		t.Errorf("total = %v, want 1500", summary.TotalValue)
	}
	if summary.Taxes["ICMS"] != 270 {
		t.Errorf("ICMS = %v, want 270", summary.Taxes["ICMS"])
	}

	// The persisted blob is the summary JSON.
	var persisted map[string]any
	if err := json.Unmarshal(st.savedData, &persisted); err != nil {
		t.Fatalf("persisted report: %v", err)
	}
	if persisted["totalDocuments"].(float64) != 2 {
		t.Errorf("persisted totalDocuments = %v", persisted["totalDocuments"])
	}

	// The Markdown rendering exists and carries the tax table.
	data, err := os.ReadFile(filepath.Join(outDir, "user-1-2026-03.md"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	body := string(data)
	for _, want := range []string{"2026-03", "Documentos processados: 2", "| ICMS | R$ 270.00 |"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q:\n%s", want, body)
		}
	}
}

func TestGenerateStorageFailureIsNonFatal(t *testing.T) {
	st := &fakeMonthStore{
		blobs:   [][]byte{resultBlob(t, 100, map[string]float64{"ICMS": 18})},
		saveErr: fmt.Errorf("disk full"),
	}

	var log strings.Builder
	summary, err := Generate(context.Background(), st, "user-1", time.January, 2026,
		types.ReportConfig{OutputDir: t.TempDir()}, &log)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.TotalDocuments != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if !strings.Contains(log.String(), "could not persist") {
		t.Errorf("storage failure not logged: %q", log.String())
	}
}

func TestGenerateLoadFailure(t *testing.T) {
	st := &fakeMonthStore{loadErr: fmt.Errorf("database locked")}

	_, err := Generate(context.Background(), st, "user-1", time.January, 2026,
		types.ReportConfig{OutputDir: t.TempDir()}, io.Discard)
	if err == nil {
		t.Fatal("expected error when documents cannot be loaded")
	}
}

func TestGenerateEmptyMonth(t *testing.T) {
	st := &fakeMonthStore{}
	outDir := t.TempDir()

	summary, err := Generate(context.Background(), st, "user-1", time.July, 2026,
		types.ReportConfig{OutputDir: outDir}, io.Discard)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.TotalDocuments != 0 {
		t.Errorf("documents = %d, want 0", summary.TotalDocuments)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "user-1-2026-07.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Nenhum imposto apurado") {
		t.Error("empty-month report missing placeholder text")
	}
}
