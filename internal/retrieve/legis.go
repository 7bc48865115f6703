// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/meshintel/fiscal-engine/internal/httputil"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

// LegisBackend queries a JSON search API for legal texts. Any SearXNG-style
// endpoint works; the scoped query carries the domain restrictions.
type LegisBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *LegisBackend) Name() string { return "legis" }

// Search runs the scoped query and returns candidate documents. Results
// without content fall back to their snippet text.
func (b *LegisBackend) Search(ctx context.Context, query string, cfg types.RetrievalConfig) ([]Document, error) {
	if cfg.SearchEndpoint == "" {
		return nil, fmt.Errorf("no search endpoint configured")
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}
	reqURL := cfg.SearchEndpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("search API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	var sr legisResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	var docs []Document
	for _, r := range sr.Results {
		content := r.Content
		if content == "" {
			content = r.Snippet
		}
		if r.URL == "" || content == "" {
			continue
		}
		docs = append(docs, Document{SourceURI: r.URL, Content: content})
	}
	return docs, nil
}

// Search API JSON structures.
type legisResponse struct {
	Results []legisResult `json:"results"`
}

type legisResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Snippet string `json:"snippet"`
}
