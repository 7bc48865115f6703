// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/fiscal-engine/internal/calc"
	"github.com/meshintel/fiscal-engine/internal/extract"
	"github.com/meshintel/fiscal-engine/internal/llm"
	"github.com/meshintel/fiscal-engine/internal/ocr"
	"github.com/meshintel/fiscal-engine/internal/pipeline"
	"github.com/meshintel/fiscal-engine/internal/rates"
	"github.com/meshintel/fiscal-engine/internal/retrieve"
	"github.com/meshintel/fiscal-engine/internal/store"
	"github.com/meshintel/fiscal-engine/internal/validate"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process [documents...]",
	Short: "Run fiscal documents through the processing pipeline",
	Long: `Process ingests each document file (PDF, image, or XML), structures it
into a fiscal record, retrieves applicable legal rules, calculates taxes,
and validates the result. The complete result for each document is printed
as JSON; processed documents are persisted for monthly reporting unless
--no-store is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	noStore, _ := cmd.Flags().GetBool("no-store")

	deps, closeStore, err := buildPipelineDeps(cmd, noStore)
	if err != nil {
		return err
	}
	defer closeStore()

	orch := pipeline.New(deps)
	ctx := context.Background()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	var failed int
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading %s: %v\n", path, err)
			failed++
			continue
		}

		result, err := orch.Process(ctx, userID, raw, mimeTypeFor(path))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: processing %s: %v\n", path, err)
			failed++
			continue
		}

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result for %s: %w", path, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed processing", failed)
	}
	return nil
}

// buildPipelineDeps wires the pipeline stages from flags, config, and
// secrets. The returned func closes the document store (a no-op when
// persistence is disabled).
func buildPipelineDeps(cmd *cobra.Command, noStore bool) (pipeline.Deps, func(), error) {
	client := &llm.Client{
		BaseURL:        setting(cmd, "llm-base-url", "llm.base_url"),
		APIKey:         secretDefault("llm-api-key", viper.GetString("llm.api_key")),
		Model:          setting(cmd, "llm-model", "llm.model"),
		EmbeddingModel: setting(cmd, "embedding-model", "llm.embedding_model"),
	}

	ocrCfg := types.OCRConfig{
		Endpoint: setting(cmd, "ocr-endpoint", "ocr.endpoint"),
		APIKey:   secretDefault("ocr-api-key", viper.GetString("ocr.api_key")),
	}

	retrievalCfg := types.RetrievalConfig{
		SearchEndpoint: setting(cmd, "search-endpoint", "retrieval.search_endpoint"),
		SearchAPIKey:   secretDefault("search-api-key", viper.GetString("retrieval.search_api_key")),
		TrustedDomains: viper.GetStringSlice("retrieval.trusted_domains"),
		MaxExcerpts:    viper.GetInt("retrieval.max_excerpts"),
		ChunkSize:      viper.GetInt("retrieval.chunk_size"),
		ChunkOverlap:   viper.GetInt("retrieval.chunk_overlap"),
	}

	tables, err := loadRateTables(cmd)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	deps := pipeline.Deps{
		OCR:       ocr.NewHTTPExtractor(ocrCfg),
		Extractor: extract.New(client, types.ExtractionConfig{}),
		Retriever: retrieve.New(&retrieve.LegisBackend{Client: http.DefaultClient, APIKey: retrievalCfg.SearchAPIKey}, client, retrievalCfg),
		Registry:  calc.NewRegistry(tables),
		Validator: validate.New(client, types.ValidationConfig{}),
		Progress:  os.Stderr,
	}

	closeStore := func() {}
	if !noStore {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		if dataDir == "" {
			dataDir = viper.GetString("storage.data_dir")
		}
		st, err := store.Open(types.StorageConfig{DataDir: dataDir})
		if err != nil {
			return pipeline.Deps{}, nil, err
		}
		deps.Store = st
		closeStore = func() { st.Close() }
	}

	return deps, closeStore, nil
}

// loadRateTables loads the YAML rate tables named by --rate-tables or the
// config file, falling back to the built-in defaults.
func loadRateTables(cmd *cobra.Command) (*rates.Tables, error) {
	path, _ := cmd.Flags().GetString("rate-tables")
	if path == "" {
		path = viper.GetString("rates.tables_path")
	}
	if path == "" {
		return rates.Default(), nil
	}
	return rates.Load(path)
}

// setting prefers an explicitly set flag, then the viper key, then the
// flag default.
func setting(cmd *cobra.Command, flag, viperKey string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

// mimeTypeFor maps a document filename to the MIME type sent to the
// text-extraction service.
func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".xml":
		return "application/xml"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func init() {
	processCmd.Flags().String("user", "default", "user the documents belong to")
	processCmd.Flags().String("llm-base-url", "", "OpenAI-compatible API root for structuring and validation")
	processCmd.Flags().String("llm-model", "", "model identifier for chat completions")
	processCmd.Flags().String("embedding-model", "", "model identifier for similarity ranking")
	processCmd.Flags().String("ocr-endpoint", "", "text-extraction service URL")
	processCmd.Flags().String("search-endpoint", "", "legal-source search API URL")
	processCmd.Flags().String("rate-tables", "", "YAML file overriding the built-in rate tables")
	processCmd.Flags().String("data-dir", "", "base directory for the document store (default: data)")
	processCmd.Flags().Bool("no-store", false, "do not persist processed documents")

	rootCmd.AddCommand(processCmd)
}
