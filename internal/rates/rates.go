// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rates provides jurisdiction tax-rate lookup for the calculators.
// Tables are loaded once at startup and read-only afterwards; concurrent
// pipeline runs share a single instance.
package rates

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Built-in fallbacks applied when a jurisdiction is not in the tables.
// Rates are percentages (18 means 18%).
const (
	DefaultICMSStandard = 18.0
	DefaultICMSReduced  = 12.0
	DefaultISS          = 3.0
	DefaultISSSaoPaulo  = 5.0
)

// ICMSRate holds the standard and reduced ICMS percentages for one
// state/operation pair.
type ICMSRate struct {
	Standard float64 `yaml:"standard"`
	Reduced  float64 `yaml:"reduced"`
}

// Tables maps jurisdictions to tax rates. ICMS is keyed by state then
// operation type; ISS by municipality then service code.
type Tables struct {
	icms map[string]map[string]ICMSRate
	iss  map[string]map[string]float64
}

// tablesFile is the YAML on-disk form of Tables.
type tablesFile struct {
	ICMS map[string]map[string]ICMSRate `yaml:"icms"`
	ISS  map[string]map[string]float64  `yaml:"iss"`
}

// Default returns tables containing only the built-in fallback rates.
func Default() *Tables {
	return &Tables{
		icms: map[string]map[string]ICMSRate{},
		iss:  map[string]map[string]float64{},
	}
}

// Load reads rate tables from a YAML file. Municipality keys are matched
// case-insensitively at lookup time.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rate tables %s: %w", path, err)
	}

	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rate tables %s: %w", path, err)
	}

	t := Default()
	for state, ops := range f.ICMS {
		key := strings.ToUpper(state)
		t.icms[key] = map[string]ICMSRate{}
		for op, rate := range ops {
			t.icms[key][strings.ToUpper(op)] = rate
		}
	}
	for mun, codes := range f.ISS {
		key := strings.ToLower(mun)
		t.iss[key] = map[string]float64{}
		for code, rate := range codes {
			t.iss[key][code] = rate
		}
	}
	return t, nil
}

// ICMS returns the ICMS rate for a state and operation type. Unknown
// jurisdictions fall back to 18% standard / 12% reduced.
func (t *Tables) ICMS(state, operation string) ICMSRate {
	if ops, ok := t.icms[strings.ToUpper(state)]; ok {
		if rate, ok := ops[strings.ToUpper(operation)]; ok {
			return rate
		}
	}
	return ICMSRate{Standard: DefaultICMSStandard, Reduced: DefaultICMSReduced}
}

// ISS returns the ISS rate for a municipality and service code. Unknown
// jurisdictions fall back to 3%, except São Paulo which uses 5%. The
// municipality compare is case-insensitive.
func (t *Tables) ISS(municipality, serviceCode string) float64 {
	if codes, ok := t.iss[strings.ToLower(municipality)]; ok {
		if rate, ok := codes[serviceCode]; ok {
			return rate
		}
	}
	if strings.EqualFold(municipality, "São Paulo") {
		return DefaultISSSaoPaulo
	}
	return DefaultISS
}
