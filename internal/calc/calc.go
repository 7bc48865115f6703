// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package calc computes tax amounts for structured fiscal documents.
// Calculators are pure functions of the record and retrieved rules over
// shared read-only rate tables, so concurrent runs need no locking.
package calc

import (
	"math"

	"github.com/meshintel/fiscal-engine/internal/rates"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

// Tax component names used in TaxCalculation.Taxes.
const (
	TaxICMS   = "ICMS"
	TaxISS    = "ISS"
	TaxIPI    = "IPI"
	TaxPIS    = "PIS"
	TaxCOFINS = "COFINS"
)

// Shared contribution rates applied across document types, in percent.
const (
	pisRate    = 1.65
	cofinsRate = 7.6
	ipiRate    = 4.0
	cteRate    = 12.0
)

// Registry dispatches a document type to its calculator and applies the
// regime adjustment chain afterwards. Regime rules are appended at
// construction time; the registry is read-only while serving runs.
type Registry struct {
	tables  *rates.Tables
	regimes []RegimeRule
}

// NewRegistry builds a Registry over the given rate tables with the
// built-in regime rules installed.
func NewRegistry(tables *rates.Tables) *Registry {
	r := &Registry{tables: tables}
	r.AddRegimeRule(simplesNacionalRule())
	return r
}

// AddRegimeRule appends a regime rule to the adjustment chain. Rules run
// in insertion order, after the base calculator.
func (r *Registry) AddRegimeRule(rule RegimeRule) {
	r.regimes = append(r.regimes, rule)
}

// Calculate computes the taxes for one document. Unknown document types
// use the NFE calculator. Deterministic: identical inputs produce an
// identical calculation.
func (r *Registry) Calculate(rec types.DocumentRecord, rules []types.TaxRuleExcerpt) types.TaxCalculation {
	base := rec.TotalValue
	if base < 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		base = 0
	}

	var out types.TaxCalculation
	switch rec.DocumentType {
	case types.DocNFSE:
		out = r.calculateNFSE(base, rec, rules)
	case types.DocNFCE:
		out = r.calculateNFCE(base, rec, rules)
	case types.DocCTE:
		out = r.calculateCTE(base, rec, rules)
	default:
		// NFE, empty, and unknown types all take the NFE formulas.
		out = r.calculateNFE(base, rec, rules)
	}

	r.adjust(rec, &out)
	return out
}

// calculateNFE applies the goods-invoice formulas: ICMS at the standard
// state rate, IPI only for the "basic" category, plus PIS and COFINS.
func (r *Registry) calculateNFE(base float64, rec types.DocumentRecord, _ []types.TaxRuleExcerpt) types.TaxCalculation {
	icms := r.tables.ICMS(rec.State, rec.OperationType)

	ipi := 0.0
	if rec.TaxInfo[types.TaxInfoIPICategory] == "basic" {
		ipi = pct(base, ipiRate)
	}

	return types.TaxCalculation{
		BaseValue: base,
		Taxes: map[string]float64{
			TaxICMS:   pct(base, icms.Standard),
			TaxIPI:    ipi,
			TaxPIS:    pct(base, pisRate),
			TaxCOFINS: pct(base, cofinsRate),
		},
	}
}

// calculateNFSE applies the service-invoice formulas: municipal ISS plus
// PIS and COFINS.
func (r *Registry) calculateNFSE(base float64, rec types.DocumentRecord, _ []types.TaxRuleExcerpt) types.TaxCalculation {
	iss := r.tables.ISS(rec.Municipality, rec.TaxInfo[types.TaxInfoServiceCode])

	return types.TaxCalculation{
		BaseValue: base,
		Taxes: map[string]float64{
			TaxISS:    pct(base, iss),
			TaxPIS:    pct(base, pisRate),
			TaxCOFINS: pct(base, cofinsRate),
		},
	}
}

// calculateNFCE applies the consumer-invoice formulas: ICMS at the reduced
// state rate plus PIS and COFINS.
func (r *Registry) calculateNFCE(base float64, rec types.DocumentRecord, _ []types.TaxRuleExcerpt) types.TaxCalculation {
	icms := r.tables.ICMS(rec.State, rec.OperationType)

	return types.TaxCalculation{
		BaseValue: base,
		Taxes: map[string]float64{
			TaxICMS:   pct(base, icms.Reduced),
			TaxPIS:    pct(base, pisRate),
			TaxCOFINS: pct(base, cofinsRate),
		},
	}
}

// calculateCTE applies the transport-document formula: a fixed 12% ICMS.
func (r *Registry) calculateCTE(base float64, _ types.DocumentRecord, _ []types.TaxRuleExcerpt) types.TaxCalculation {
	return types.TaxCalculation{
		BaseValue: base,
		Taxes: map[string]float64{
			TaxICMS: pct(base, cteRate),
		},
	}
}

// pct returns rate% of base, rounded to centavos.
func pct(base, rate float64) float64 {
	return round2(base * rate / 100)
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
