// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model and per-stage configuration
// for the fiscal document pipeline.
package types

// DocumentType identifies a Brazilian fiscal document class.
type DocumentType string

const (
	// DocNFE is an electronic goods invoice (Nota Fiscal Eletrônica).
	DocNFE DocumentType = "NFE"
	// DocNFSE is an electronic service invoice.
	DocNFSE DocumentType = "NFSE"
	// DocNFCE is an electronic consumer invoice.
	DocNFCE DocumentType = "NFCE"
	// DocCTE is an electronic transport document.
	DocCTE DocumentType = "CTE"
)

// ParseDocumentType maps a free-form type string to a DocumentType.
// Unknown values map to DocNFE, the default document class.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocNFSE:
		return DocNFSE
	case DocNFCE:
		return DocNFCE
	case DocCTE:
		return DocCTE
	default:
		return DocNFE
	}
}

// Well-known TaxInfo keys produced by the structuring stage.
const (
	TaxInfoServiceCode = "serviceCode"
	TaxInfoIPICategory = "ipiCategory"
	TaxInfoRegime      = "regime"
)

// DocumentRecord is the structured form of one fiscal document. It is
// produced once by the extraction stage and treated as immutable by every
// stage downstream.
type DocumentRecord struct {
	DocumentType  DocumentType      `json:"document_type" yaml:"document_type"`
	TotalValue    float64           `json:"total_value" yaml:"total_value"`
	OperationType string            `json:"operation_type" yaml:"operation_type"`
	State         string            `json:"state" yaml:"state"`
	Municipality  string            `json:"municipality" yaml:"municipality"`
	TaxInfo       map[string]string `json:"tax_info,omitempty" yaml:"tax_info,omitempty"`
}

// DefaultDocumentRecord returns the canonical record used when the
// structuring service output cannot be parsed.
func DefaultDocumentRecord() DocumentRecord {
	return DocumentRecord{
		DocumentType:  DocNFE,
		TotalValue:    0,
		OperationType: "VENDA",
		State:         "SP",
		Municipality:  "São Paulo",
		TaxInfo:       map[string]string{},
	}
}

// TaxRuleExcerpt is one ranked legal-text excerpt returned by the rule
// retrieval stage. Excerpts are produced fresh per query and never cached.
type TaxRuleExcerpt struct {
	SourceURI      string  `json:"source_uri" yaml:"source_uri"`
	Text           string  `json:"text" yaml:"text"`
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// TaxCalculation holds the computed tax amounts for one document. Every
// amount is a deterministic, non-negative function of BaseValue, the
// applicable rate, and any regime adjustment.
type TaxCalculation struct {
	BaseValue float64            `json:"base_value" yaml:"base_value"`
	Taxes     map[string]float64 `json:"taxes" yaml:"taxes"`
}

// ComplianceStatus is the overall judgment of a compliance check.
type ComplianceStatus string

const (
	StatusOK      ComplianceStatus = "ok"
	StatusWarning ComplianceStatus = "warning"
	StatusError   ComplianceStatus = "error"
)

// ComplianceResult is the outcome of validating a document against the
// retrieved rules.
type ComplianceResult struct {
	Status      ComplianceStatus `json:"status" yaml:"status"`
	Issues      []string         `json:"issues" yaml:"issues"`
	Suggestions []string         `json:"suggestions" yaml:"suggestions"`
}

// PipelineResult is the aggregate output of one pipeline run. It is built
// all-or-nothing at the orchestrator boundary: a caller either receives a
// complete result or an error, never a partial one.
type PipelineResult struct {
	DocumentData    DocumentRecord   `json:"documentData" yaml:"document_data"`
	TaxCalculation  TaxCalculation   `json:"taxCalculation" yaml:"tax_calculation"`
	ComplianceCheck ComplianceResult `json:"complianceCheck" yaml:"compliance_check"`
	ApplicableRules []TaxRuleExcerpt `json:"applicableRules" yaml:"applicable_rules"`
}
