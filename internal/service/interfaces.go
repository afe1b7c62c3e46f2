// Package service defines the interfaces between the classification engine
// and its external collaborators.
package service

import (
	"context"
	"time"

	"github.com/taxpadi/taxpadi/internal/model"
)

// PatternStore provides access to the per-tenant learned pattern store.
type PatternStore interface {
	// GetPatternByText returns the pattern exactly matching the normalized
	// text for a tenant, or common.ErrNotFound.
	GetPatternByText(ctx context.Context, tenantID, patternText string) (*model.BusinessPattern, error)

	// GetTopPatterns returns up to limit patterns for a tenant ordered by
	// confidence descending, then recency.
	GetTopPatterns(ctx context.Context, tenantID string, limit int) ([]model.BusinessPattern, error)

	// IncrementPatternUsage bumps occurrence count and last-seen for a
	// pattern. Callers treat failures as best-effort.
	IncrementPatternUsage(ctx context.Context, id int64) error

	// UpsertPatternOnCorrection atomically creates or updates the pattern for
	// (tenant, text): occurrence is incremented, correct count is incremented
	// when confirmed, and confidence is recomputed in the same statement.
	UpsertPatternOnCorrection(ctx context.Context, tenantID, patternText, category string, confirmed bool) error
}

// FeedbackStore persists user corrections for the external training process.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, record *model.FeedbackRecord) error

	// GetUnconsumedFeedback returns records not yet picked up by training.
	GetUnconsumedFeedback(ctx context.Context, tenantID string, limit int) ([]model.FeedbackRecord, error)

	// MarkFeedbackConsumed flags records as consumed under a batch identifier.
	MarkFeedbackConsumed(ctx context.Context, batchID string, ids []int64) error
}

// Storage combines the persistence interfaces the engine depends on.
type Storage interface {
	PatternStore
	FeedbackStore

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
