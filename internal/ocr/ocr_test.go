package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

func testExtractor(url string, client *http.Client) *HTTPExtractor {
	e := NewHTTPExtractor(types.OCRConfig{Endpoint: url, APIKey: "chave"})
	e.client = client
	return e
}

func TestExtractTextPlainField(t *testing.T) {
	var gotMIME, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMIME = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"text": "NOTA FISCAL ELETRÔNICA\nVALOR TOTAL R$ 1.000,00"}`))
	}))
	defer server.Close()

	e := testExtractor(server.URL, server.Client())
	text, err := e.ExtractText(context.Background(), []byte("%PDF-raw"), "application/pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}

	if gotMIME != "application/pdf" {
		t.Errorf("mime = %q", gotMIME)
	}
	if gotBody != "%PDF-raw" {
		t.Errorf("body = %q", gotBody)
	}
	if text == "" {
		t.Error("empty text")
	}
}

func TestExtractTextJoinsBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"blocks": [
			{"text": "linha um", "confidence": 0.99},
			{"text": "", "confidence": 0.1},
			{"text": "linha dois", "confidence": 0.87}
		]}`))
	}))
	defer server.Close()

	e := testExtractor(server.URL, server.Client())
	text, err := e.ExtractText(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "linha um\nlinha dois" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTextFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "service error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error": "unsupported format"}`))
			},
		},
		{
			name: "no text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"text": "   "}`))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"text": `))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			e := testExtractor(server.URL, server.Client())
			if _, err := e.ExtractText(context.Background(), []byte("raw"), "application/pdf"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExtractTextEmptyInput(t *testing.T) {
	e := NewHTTPExtractor(types.OCRConfig{Endpoint: "http://localhost:1"})
	if _, err := e.ExtractText(context.Background(), nil, "application/pdf"); err == nil {
		t.Error("expected error for empty document")
	}
}
