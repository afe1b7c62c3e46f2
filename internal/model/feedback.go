package model

import (
	"fmt"
	"time"
)

// CorrectionType describes how a user correction relates to the prediction.
type CorrectionType string

// Correction type constants.
const (
	CorrectionConfirmation CorrectionType = "confirmation"
	CorrectionFullOverride CorrectionType = "full_override"

	// CorrectionPartialAdjustment is declared so stored data can express it,
	// but no derivation logic produces it yet.
	CorrectionPartialAdjustment CorrectionType = "partial_adjustment"
)

// FeedbackRecord captures one user correction against a prediction.
// Immutable after creation except for the consumed flag, which an external
// training process flips in batches.
type FeedbackRecord struct {
	CreatedAt           time.Time      `json:"created_at"`
	TenantID            string         `json:"tenant_id"`
	TransactionID       string         `json:"transaction_id,omitempty"`
	PredictedCategory   string         `json:"predicted_category"`
	PredictedProvenance Provenance     `json:"predicted_provenance"`
	CorrectedCategory   string         `json:"corrected_category"`
	CorrectionType      CorrectionType `json:"correction_type"`
	ConsumedBatchID     string         `json:"consumed_batch_id,omitempty"`
	ID                  int64          `json:"id"`
	PredictedConfidence float64        `json:"predicted_confidence"`
	Consumed            bool           `json:"consumed"`
}

// Validate checks the record before persistence.
func (f *FeedbackRecord) Validate() error {
	if f.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if f.CorrectedCategory == "" {
		return fmt.Errorf("corrected category is required")
	}
	switch f.CorrectionType {
	case CorrectionConfirmation, CorrectionFullOverride, CorrectionPartialAdjustment:
	default:
		return fmt.Errorf("invalid correction type: %q", f.CorrectionType)
	}
	return nil
}
