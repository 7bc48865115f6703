package retrieve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

func TestLegisBackendSearch(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"url": "https://planalto.gov.br/lei1", "title": "Lei 1", "content": "texto integral"},
			{"url": "https://sefaz.sp.gov.br/port2", "title": "Portaria 2", "snippet": "apenas trecho"},
			{"url": "", "title": "sem url", "content": "descartado"},
			{"url": "https://gov.br/vazio", "title": "sem conteudo"}
		]}`))
	}))
	defer server.Close()

	b := &LegisBackend{Client: server.Client(), APIKey: "chave"}
	cfg := types.RetrievalConfig{SearchEndpoint: server.URL}

	docs, err := b.Search(context.Background(), "icms site:planalto.gov.br", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "icms site:planalto.gov.br" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Bearer chave" {
		t.Errorf("auth header = %q", gotAuth)
	}

	// Entries without a URL or content are dropped; snippet substitutes
	// for missing content.
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Content != "texto integral" {
		t.Errorf("doc 0 content = %q", docs[0].Content)
	}
	if docs[1].Content != "apenas trecho" {
		t.Errorf("doc 1 content = %q, want snippet fallback", docs[1].Content)
	}
}

func TestLegisBackendHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b := &LegisBackend{Client: server.Client()}
	_, err := b.Search(context.Background(), "icms", types.RetrievalConfig{SearchEndpoint: server.URL})
	if err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestLegisBackendNoEndpoint(t *testing.T) {
	b := &LegisBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), "icms", types.RetrievalConfig{})
	if err == nil {
		t.Fatal("expected error with no endpoint configured")
	}
}
