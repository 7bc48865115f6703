// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

// MonthlySummary is the aggregate over one month of stored documents.
type MonthlySummary struct {
	TotalDocuments int                `json:"totalDocuments"`
	TotalValue     float64            `json:"totalValue"`
	Taxes          map[string]float64 `json:"taxes"`

	// Unparseable counts stored blobs that no longer decode as a
	// PipelineResult. They are excluded from the sums.
	Unparseable int `json:"unparseable,omitempty"`
}

// Aggregate sums document totals and per-tax amounts across raw_data
// blobs. Blobs that fail to decode are counted, not fatal.
func Aggregate(blobs [][]byte) MonthlySummary {
	summary := MonthlySummary{Taxes: map[string]float64{}}

	for _, blob := range blobs {
		var result types.PipelineResult
		if err := json.Unmarshal(blob, &result); err != nil {
			summary.Unparseable++
			continue
		}
		summary.TotalDocuments++
		summary.TotalValue += result.DocumentData.TotalValue
		for name, amount := range result.TaxCalculation.Taxes {
			summary.Taxes[name] += amount
		}
	}
	return summary
}
