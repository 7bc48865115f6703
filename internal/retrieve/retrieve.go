// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve finds legal-text excerpts relevant to a fiscal document.
// It scopes a search to official legal sources, windows the retrieved
// documents into embedding-sized chunks, and ranks the chunks against the
// query by cosine similarity. The index is ephemeral: nothing is cached
// between calls.
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

// defaultTrustedDomains restricts retrieval to official legal sources when
// the configuration does not name its own list.
var defaultTrustedDomains = []string{
	"planalto.gov.br",
	"receita.economia.gov.br",
	"confaz.fazenda.gov.br",
	"sefaz.sp.gov.br",
}

// SearchBackend queries a legal-source search API and returns candidate
// documents. Implemented by the legis HTTP backend; tests supply a mock.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.RetrievalConfig) ([]Document, error)
}

// Document is one retrieved source document, prior to windowing.
type Document struct {
	SourceURI string
	Content   string
}

// Embedder produces embedding vectors for a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// RetrievalError wraps any search or embedding failure. The orchestrator
// matches on it to apply degradation policy; this package never swallows
// failures itself.
type RetrievalError struct {
	Backend string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieving tax rules via %s: %v", e.Backend, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Hints scope a retrieval query to a document's context.
type Hints struct {
	DocumentType types.DocumentType
	State        string
	Sector       string
}

// Retriever ranks legal excerpts for one query at a time. Safe for
// concurrent use.
type Retriever struct {
	backend  SearchBackend
	embedder Embedder
	cfg      types.RetrievalConfig
}

// New builds a Retriever. Zero-valued limits take their defaults:
// 5 excerpts, 1000-char windows with 200-char overlap.
func New(backend SearchBackend, embedder Embedder, cfg types.RetrievalConfig) *Retriever {
	if cfg.MaxExcerpts <= 0 {
		cfg.MaxExcerpts = 5
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 200
	}
	if len(cfg.TrustedDomains) == 0 {
		cfg.TrustedDomains = defaultTrustedDomains
	}
	return &Retriever{backend: backend, embedder: embedder, cfg: cfg}
}

// Retrieve returns up to MaxExcerpts excerpts ordered by descending
// relevance, ties kept in retrieval order. Search or embedding failures
// return a *RetrievalError.
func (r *Retriever) Retrieve(ctx context.Context, query string, hints Hints) ([]types.TaxRuleExcerpt, error) {
	scoped := buildScopedQuery(query, hints, r.cfg.TrustedDomains)

	docs, err := r.backend.Search(ctx, scoped, r.cfg)
	if err != nil {
		return nil, &RetrievalError{Backend: r.backend.Name(), Err: err}
	}

	type chunk struct {
		sourceURI string
		text      string
	}
	var chunks []chunk
	for _, doc := range docs {
		for _, win := range windows(doc.Content, r.cfg.ChunkSize, r.cfg.ChunkOverlap) {
			chunks = append(chunks, chunk{sourceURI: doc.SourceURI, text: win})
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	// One embedding call covers the query and every chunk.
	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, query)
	for _, c := range chunks {
		texts = append(texts, c.text)
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &RetrievalError{Backend: "embeddings", Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &RetrievalError{
			Backend: "embeddings",
			Err:     fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)),
		}
	}

	queryVec := vectors[0]
	excerpts := make([]types.TaxRuleExcerpt, len(chunks))
	for i, c := range chunks {
		excerpts[i] = types.TaxRuleExcerpt{
			SourceURI:      c.sourceURI,
			Text:           c.text,
			RelevanceScore: cosine(queryVec, vectors[i+1]),
		}
	}

	sort.SliceStable(excerpts, func(i, j int) bool {
		return excerpts[i].RelevanceScore > excerpts[j].RelevanceScore
	})

	if len(excerpts) > r.cfg.MaxExcerpts {
		excerpts = excerpts[:r.cfg.MaxExcerpts]
	}
	return excerpts, nil
}

// buildScopedQuery combines the free-text query, scoping hints, and
// trusted-domain filters into one search string.
func buildScopedQuery(query string, hints Hints, domains []string) string {
	var parts []string
	if query != "" {
		parts = append(parts, query)
	}
	if hints.DocumentType != "" {
		parts = append(parts, string(hints.DocumentType))
	}
	if hints.State != "" {
		parts = append(parts, "estado "+hints.State)
	}
	if hints.Sector != "" {
		parts = append(parts, hints.Sector)
	}

	sites := make([]string, len(domains))
	for i, d := range domains {
		sites[i] = "site:" + d
	}
	parts = append(parts, "("+strings.Join(sites, " OR ")+")")

	return strings.Join(parts, " ")
}

// cosine returns the cosine similarity of two vectors, 0 when either has
// zero norm or the lengths differ.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
