// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"github.com/diegoholiveira/jsonlogic/v3"

	"github.com/meshintel/fiscal-engine/pkg/types"
)

// RegimeRule is one predicate→transform pair in the special-regime chain.
// The predicate is a jsonlogic expression evaluated against the document
// (keys "document_type" and "tax_info"); when it holds, the transform
// rewrites the calculation in place. New regimes are added as rules, never
// by editing calculators.
type RegimeRule struct {
	Name      string
	Predicate map[string]any
	Transform func(calc *types.TaxCalculation)
}

// adjust evaluates the regime chain in order against the record. A rule
// whose predicate fails to evaluate is skipped.
func (r *Registry) adjust(rec types.DocumentRecord, calc *types.TaxCalculation) {
	data := regimeData(rec)
	for _, rule := range r.regimes {
		out, err := jsonlogic.ApplyInterface(rule.Predicate, data)
		if err != nil {
			continue
		}
		if matched, _ := out.(bool); matched {
			rule.Transform(calc)
		}
	}
}

// regimeData exposes the record fields regime predicates may reference.
func regimeData(rec types.DocumentRecord) map[string]any {
	taxInfo := make(map[string]any, len(rec.TaxInfo))
	for k, v := range rec.TaxInfo {
		taxInfo[k] = v
	}
	return map[string]any{
		"document_type": string(rec.DocumentType),
		"tax_info":      taxInfo,
	}
}

// simplesNacionalRule halves the ICMS component for documents under the
// Simples Nacional regime. Other components are untouched.
func simplesNacionalRule() RegimeRule {
	return RegimeRule{
		Name: "simples-nacional-icms",
		Predicate: map[string]any{
			"==": []any{
				map[string]any{"var": "tax_info.regime"},
				"Simples Nacional",
			},
		},
		Transform: func(calc *types.TaxCalculation) {
			if icms, ok := calc.Taxes[TaxICMS]; ok {
				calc.Taxes[TaxICMS] = round2(icms / 2)
			}
		},
	}
}
