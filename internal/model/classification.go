package model

import "fmt"

// Provenance identifies which tier produced a classification result.
type Provenance string

// Provenance constants.
const (
	ProvenanceRule            Provenance = "rule"
	ProvenanceBusinessPattern Provenance = "business_pattern"
	ProvenanceHybrid          Provenance = "hybrid"
	ProvenanceAI              Provenance = "ai"
	ProvenanceNeedsReview     Provenance = "needs_review"
)

// Well-known category labels. Categories are open-ended (tenants learn their
// own through corrections); these are the ones the deterministic tiers emit.
const (
	CategorySale        = "sale"
	CategoryExpense     = "expense"
	CategoryLoan        = "loan"
	CategoryCapital     = "capital"
	CategoryRefund      = "refund"
	CategoryPersonal    = "personal"
	CategoryNonRevenue  = "non_revenue"
	CategoryNeedsReview = "needs_review"

	// CategoryUnknown is a sentinel meaning "defer to later tiers",
	// never a final answer.
	CategoryUnknown = "unknown"
)

// ClassificationResult is the engine's final answer for one transaction.
type ClassificationResult struct {
	Category          string          `json:"category"`
	Reasoning         string          `json:"reasoning,omitempty"`
	Provenance        Provenance      `json:"provenance"`
	SignalFlags       SignalFlags     `json:"signal_flags"`
	TaxImplications   TaxImplications `json:"tax_implications"`
	Confidence        float64         `json:"confidence"`
	NeedsConfirmation bool            `json:"needs_confirmation"`
}

// Validate enforces the result invariants: confidence stays in [0,1], and a
// zero confidence is reserved for the terminal needs_review provenance.
func (r *ClassificationResult) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", r.Confidence)
	}

	switch r.Provenance {
	case ProvenanceRule, ProvenanceBusinessPattern, ProvenanceHybrid, ProvenanceAI:
		if r.Confidence == 0 {
			return fmt.Errorf("provenance %s requires confidence > 0", r.Provenance)
		}
	case ProvenanceNeedsReview:
		if r.Confidence != 0 {
			return fmt.Errorf("needs_review results must carry confidence 0, got %f", r.Confidence)
		}
	default:
		return fmt.Errorf("invalid provenance: %q", r.Provenance)
	}

	if r.Category == "" {
		return fmt.Errorf("category is required")
	}

	return nil
}
