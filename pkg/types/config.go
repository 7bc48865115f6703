// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that call an
// external collaborator.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fiscal-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a language model API.
type AIConfig struct {
	// BaseURL is the root of an OpenAI-compatible API.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier used for chat completions.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// OCRConfig holds settings for the ingestion (text extraction) boundary.
type OCRConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the text-extraction service URL. Raw document bytes are
	// POSTed with their MIME type.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey authenticates against the extraction service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ExtractionConfig holds settings for the data-structuring stage.
type ExtractionConfig struct {
	AIConfig `yaml:",inline"`
}

// ValidationConfig holds settings for the compliance-judgment stage.
type ValidationConfig struct {
	AIConfig `yaml:",inline"`
}

// RetrievalConfig holds settings for the tax-rule retrieval stage.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// SearchEndpoint is the legal-source search API URL.
	SearchEndpoint string `json:"search_endpoint" yaml:"search_endpoint"`

	// SearchAPIKey authenticates against the search API.
	SearchAPIKey string `json:"search_api_key,omitempty" yaml:"search_api_key,omitempty"`

	// EmbeddingModel is the model identifier used for similarity ranking.
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`

	// TrustedDomains restricts search results to official legal sources.
	// Empty uses the built-in government domain list.
	TrustedDomains []string `json:"trusted_domains,omitempty" yaml:"trusted_domains,omitempty"`

	// MaxExcerpts is the number of excerpts returned per query (default 5).
	MaxExcerpts int `json:"max_excerpts" yaml:"max_excerpts"`

	// ChunkSize is the similarity window size in characters (default 1000).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// ChunkOverlap is the overlap between adjacent windows (default 200).
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// RatesConfig holds settings for the jurisdiction rate tables.
type RatesConfig struct {
	// TablesPath is an optional YAML file overriding the built-in rates.
	TablesPath string `json:"tables_path,omitempty" yaml:"tables_path,omitempty"`
}

// StorageConfig holds settings for the persistent document store.
type StorageConfig struct {
	// DataDir is the base directory for the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ReportConfig holds settings for monthly report generation.
type ReportConfig struct {
	// OutputDir is the directory for rendered reports (default "output/reports").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	OCR        OCRConfig        `json:"ocr" yaml:"ocr"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Rates      RatesConfig      `json:"rates" yaml:"rates"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Report     ReportConfig     `json:"report" yaml:"report"`
}
