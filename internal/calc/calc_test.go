package calc

import (
	"reflect"
	"testing"

	"github.com/meshintel/fiscal-engine/internal/rates"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

func testRegistry() *Registry {
	return NewRegistry(rates.Default())
}

func TestCalculateNFE(t *testing.T) {
	rec := types.DocumentRecord{
		DocumentType:  types.DocNFE,
		TotalValue:    1000,
		State:         "SP",
		OperationType: "VENDA",
		TaxInfo:       map[string]string{},
	}

	got := testRegistry().Calculate(rec, nil)

	want := map[string]float64{
		TaxICMS:   180.00,
		TaxIPI:    0,
		TaxPIS:    16.50,
		TaxCOFINS: 76.00,
	}
	if !reflect.DeepEqual(got.Taxes, want) {
		t.Errorf("taxes = %v, want %v", got.Taxes, want)
	}
	if got.BaseValue != 1000 {
		t.Errorf("base = %v, want 1000", got.BaseValue)
	}
}

func TestCalculateNFEWithIPI(t *testing.T) {
	rec := types.DocumentRecord{
		DocumentType: types.DocNFE,
		TotalValue:   1000,
		TaxInfo:      map[string]string{types.TaxInfoIPICategory: "basic"},
	}

	got := testRegistry().Calculate(rec, nil)
	if got.Taxes[TaxIPI] != 40.00 {
		t.Errorf("IPI = %v, want 40", got.Taxes[TaxIPI])
	}
}

func TestCalculateNFSE(t *testing.T) {
	tests := []struct {
		name         string
		municipality string
		wantISS      float64
	}{
		{"são paulo rate", "São Paulo", 50.00},
		{"generic rate", "Campinas", 30.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := types.DocumentRecord{
				DocumentType: types.DocNFSE,
				TotalValue:   1000,
				Municipality: tt.municipality,
				TaxInfo:      map[string]string{types.TaxInfoServiceCode: "101"},
			}
			got := testRegistry().Calculate(rec, nil)

			if got.Taxes[TaxISS] != tt.wantISS {
				t.Errorf("ISS = %v, want %v", got.Taxes[TaxISS], tt.wantISS)
			}
			if got.Taxes[TaxPIS] != 16.50 || got.Taxes[TaxCOFINS] != 76.00 {
				t.Errorf("contributions = PIS %v COFINS %v", got.Taxes[TaxPIS], got.Taxes[TaxCOFINS])
			}
			if _, ok := got.Taxes[TaxICMS]; ok {
				t.Error("NFSE must not carry ICMS")
			}
		})
	}
}

func TestCalculateNFCE(t *testing.T) {
	rec := types.DocumentRecord{
		DocumentType:  types.DocNFCE,
		TotalValue:    1000,
		State:         "SP",
		OperationType: "VENDA",
	}

	got := testRegistry().Calculate(rec, nil)
	if got.Taxes[TaxICMS] != 120.00 {
		t.Errorf("reduced ICMS = %v, want 120", got.Taxes[TaxICMS])
	}
}

func TestCalculateCTE(t *testing.T) {
	rec := types.DocumentRecord{DocumentType: types.DocCTE, TotalValue: 1000}

	got := testRegistry().Calculate(rec, nil)
	want := map[string]float64{TaxICMS: 120.00}
	if !reflect.DeepEqual(got.Taxes, want) {
		t.Errorf("taxes = %v, want only ICMS 120", got.Taxes)
	}
}

func TestUnknownTypeDispatchesToNFE(t *testing.T) {
	for _, typ := range []types.DocumentType{"", "BOLETO", "RECIBO"} {
		rec := types.DocumentRecord{DocumentType: typ, TotalValue: 1000}
		got := testRegistry().Calculate(rec, nil)
		if got.Taxes[TaxICMS] != 180.00 {
			t.Errorf("type %q: ICMS = %v, want NFE standard 180", typ, got.Taxes[TaxICMS])
		}
		if _, ok := got.Taxes[TaxIPI]; !ok {
			t.Errorf("type %q: missing IPI component", typ)
		}
	}
}

func TestSimplesNacionalHalvesICMS(t *testing.T) {
	rec := types.DocumentRecord{
		DocumentType: types.DocNFE,
		TotalValue:   1000,
		TaxInfo:      map[string]string{types.TaxInfoRegime: "Simples Nacional"},
	}

	got := testRegistry().Calculate(rec, nil)

	if got.Taxes[TaxICMS] != 90.00 {
		t.Errorf("adjusted ICMS = %v, want 90 (exactly halved)", got.Taxes[TaxICMS])
	}
	// Other components unchanged.
	if got.Taxes[TaxPIS] != 16.50 || got.Taxes[TaxCOFINS] != 76.00 {
		t.Errorf("contributions changed: PIS %v COFINS %v", got.Taxes[TaxPIS], got.Taxes[TaxCOFINS])
	}
}

func TestSimplesNacionalWithoutICMSComponent(t *testing.T) {
	// NFSE has no ICMS; the regime rule must not invent one.
	rec := types.DocumentRecord{
		DocumentType: types.DocNFSE,
		TotalValue:   1000,
		TaxInfo:      map[string]string{types.TaxInfoRegime: "Simples Nacional"},
	}

	got := testRegistry().Calculate(rec, nil)
	if _, ok := got.Taxes[TaxICMS]; ok {
		t.Error("regime rule added ICMS to an NFSE calculation")
	}
}

func TestAddRegimeRuleExtendsChain(t *testing.T) {
	r := testRegistry()
	r.AddRegimeRule(RegimeRule{
		Name: "mei-zeroes-cofins",
		Predicate: map[string]any{
			"==": []any{map[string]any{"var": "tax_info.regime"}, "MEI"},
		},
		Transform: func(calc *types.TaxCalculation) {
			calc.Taxes[TaxCOFINS] = 0
		},
	})

	rec := types.DocumentRecord{
		DocumentType: types.DocNFE,
		TotalValue:   1000,
		TaxInfo:      map[string]string{types.TaxInfoRegime: "MEI"},
	}

	got := r.Calculate(rec, nil)
	if got.Taxes[TaxCOFINS] != 0 {
		t.Errorf("COFINS = %v, want 0 via appended rule", got.Taxes[TaxCOFINS])
	}
	// The built-in rule did not fire for a different regime.
	if got.Taxes[TaxICMS] != 180.00 {
		t.Errorf("ICMS = %v, want unadjusted 180", got.Taxes[TaxICMS])
	}
}

func TestAmountsNonNegativeAndMonotonic(t *testing.T) {
	r := testRegistry()
	for _, typ := range []types.DocumentType{types.DocNFE, types.DocNFSE, types.DocNFCE, types.DocCTE} {
		prev := map[string]float64{}
		for _, base := range []float64{0, 10, 100, 1000, 100000} {
			rec := types.DocumentRecord{DocumentType: typ, TotalValue: base}
			got := r.Calculate(rec, nil)
			for name, amount := range got.Taxes {
				if amount < 0 {
					t.Errorf("%s %s at base %v is negative: %v", typ, name, base, amount)
				}
				if amount < prev[name] {
					t.Errorf("%s %s decreased: %v -> %v", typ, name, prev[name], amount)
				}
				prev[name] = amount
			}
		}
	}
}

func TestNegativeBaseClampsToZero(t *testing.T) {
	rec := types.DocumentRecord{DocumentType: types.DocNFE, TotalValue: -500}
	got := testRegistry().Calculate(rec, nil)
	if got.BaseValue != 0 {
		t.Errorf("base = %v, want 0", got.BaseValue)
	}
	for name, amount := range got.Taxes {
		if amount != 0 {
			t.Errorf("%s = %v, want 0 on clamped base", name, amount)
		}
	}
}

func TestCalculateIdempotent(t *testing.T) {
	rec := types.DocumentRecord{
		DocumentType:  types.DocNFE,
		TotalValue:    1234.56,
		State:         "SP",
		OperationType: "VENDA",
		TaxInfo:       map[string]string{types.TaxInfoRegime: "Simples Nacional"},
	}
	rules := []types.TaxRuleExcerpt{{SourceURI: "https://gov.br", Text: "regra", RelevanceScore: 0.9}}

	r := testRegistry()
	first := r.Calculate(rec, rules)
	second := r.Calculate(rec, rules)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("calculations differ:\n%+v\n%+v", first, second)
	}
}
