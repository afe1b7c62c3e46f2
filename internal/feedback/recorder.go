// Package feedback records user corrections and folds them back into the
// per-tenant pattern store.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taxpadi/taxpadi/internal/common"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/pattern"
	"github.com/taxpadi/taxpadi/internal/service"
)

// Correction is a user's verdict on a prior prediction.
type Correction struct {
	TenantID          string
	TransactionID     string
	Narration         string
	CorrectedCategory string
	Flags             model.SignalFlags
}

// Recorder persists corrections and updates the pattern store.
type Recorder struct {
	patterns service.PatternStore
	feedback service.FeedbackStore
	logger   *slog.Logger
}

// NewRecorder creates a feedback recorder.
func NewRecorder(patterns service.PatternStore, feedback service.FeedbackStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		patterns: patterns,
		feedback: feedback,
		logger:   logger,
	}
}

// RecordCorrection persists the feedback record and, best-effort, upserts the
// learned pattern for the narration. The pattern write happens in the
// background and its failure is never surfaced: losing one learning update is
// acceptable, failing a user correction is not.
func (r *Recorder) RecordCorrection(ctx context.Context, prediction model.ClassificationResult, correction Correction) (*model.FeedbackRecord, error) {
	if correction.TenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if correction.CorrectedCategory == "" {
		return nil, fmt.Errorf("corrected category is required")
	}

	record := &model.FeedbackRecord{
		TenantID:            correction.TenantID,
		TransactionID:       correction.TransactionID,
		PredictedCategory:   prediction.Category,
		PredictedConfidence: prediction.Confidence,
		PredictedProvenance: prediction.Provenance,
		CorrectedCategory:   normalizeCategory(correction.CorrectedCategory),
		CorrectionType:      deriveCorrectionType(prediction.Category, correction.CorrectedCategory),
	}

	if err := r.feedback.SaveFeedback(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	r.logger.Info("recorded correction",
		"tenant_id", record.TenantID,
		"correction_type", record.CorrectionType,
		"predicted", record.PredictedCategory,
		"corrected", record.CorrectedCategory)

	r.learnPattern(record, correction)

	return record, nil
}

// deriveCorrectionType compares prediction and correction categories after
// normalization. Equal means the user confirmed the prediction; anything else
// is a full override. A partial_adjustment type exists in the model but no
// derivation for it is defined.
func deriveCorrectionType(predicted, corrected string) model.CorrectionType {
	if normalizeCategory(predicted) == normalizeCategory(corrected) {
		return model.CorrectionConfirmation
	}
	return model.CorrectionFullOverride
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// learnPattern upserts the business pattern for the corrected narration in
// the background, detached from the caller's context. The storage layer
// performs the increment-and-recompute atomically, so concurrent corrections
// on the same (tenant, pattern) key cannot lose updates.
func (r *Recorder) learnPattern(record *model.FeedbackRecord, correction Correction) {
	normalized := pattern.Normalize(correction.Narration)
	if normalized == "" {
		return
	}
	patternText := pattern.ChannelPrefix(correction.Flags) + normalized

	confirmed := record.CorrectionType == model.CorrectionConfirmation

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := common.WithRetry(ctx, func() error {
			return r.patterns.UpsertPatternOnCorrection(ctx,
				record.TenantID, patternText, record.CorrectedCategory, confirmed)
		}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
		if err != nil {
			r.logger.Warn("failed to update pattern from correction",
				"tenant_id", record.TenantID,
				"pattern", patternText,
				"error", err)
		}
	}()
}
