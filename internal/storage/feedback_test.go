package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxpadi/taxpadi/internal/model"
)

func seedFeedback(t *testing.T, store *SQLiteStorage, tenantID string, n int) []int64 {
	t.Helper()

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		record := &model.FeedbackRecord{
			TenantID:            tenantID,
			TransactionID:       fmt.Sprintf("txn-%d", i),
			PredictedCategory:   "sale",
			PredictedConfidence: 0.8,
			PredictedProvenance: model.ProvenanceAI,
			CorrectedCategory:   "expense",
			CorrectionType:      model.CorrectionFullOverride,
		}
		require.NoError(t, store.SaveFeedback(context.Background(), record))
		ids = append(ids, record.ID)
	}
	return ids
}

func TestSaveFeedbackAssignsID(t *testing.T) {
	store := setupStorage(t)

	record := &model.FeedbackRecord{
		TenantID:            "t1",
		PredictedCategory:   "sale",
		PredictedConfidence: 0.88,
		PredictedProvenance: model.ProvenanceBusinessPattern,
		CorrectedCategory:   "sale",
		CorrectionType:      model.CorrectionConfirmation,
	}
	require.NoError(t, store.SaveFeedback(context.Background(), record))

	assert.NotZero(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestSaveFeedbackValidates(t *testing.T) {
	store := setupStorage(t)

	err := store.SaveFeedback(context.Background(), &model.FeedbackRecord{
		CorrectedCategory: "sale",
		CorrectionType:    model.CorrectionConfirmation,
	})
	assert.Error(t, err, "missing tenant")

	err = store.SaveFeedback(context.Background(), nil)
	assert.Error(t, err, "nil record")
}

func TestGetUnconsumedFeedbackOldestFirst(t *testing.T) {
	store := setupStorage(t)
	ids := seedFeedback(t, store, "t1", 3)

	records, err := store.GetUnconsumedFeedback(context.Background(), "t1", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, ids[0], records[0].ID)
	assert.Equal(t, ids[2], records[2].ID)
	for _, r := range records {
		assert.False(t, r.Consumed)
	}
}

func TestGetUnconsumedFeedbackTenantIsolation(t *testing.T) {
	store := setupStorage(t)
	seedFeedback(t, store, "t1", 2)
	seedFeedback(t, store, "t2", 1)

	records, err := store.GetUnconsumedFeedback(context.Background(), "t1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMarkFeedbackConsumed(t *testing.T) {
	store := setupStorage(t)
	ids := seedFeedback(t, store, "t1", 3)

	require.NoError(t, store.MarkFeedbackConsumed(context.Background(), "batch-1", ids[:2]))

	records, err := store.GetUnconsumedFeedback(context.Background(), "t1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ids[2], records[0].ID)
}

func TestMarkFeedbackConsumedIsIdempotent(t *testing.T) {
	store := setupStorage(t)
	ids := seedFeedback(t, store, "t1", 1)

	require.NoError(t, store.MarkFeedbackConsumed(context.Background(), "batch-1", ids))
	// A second batch cannot claim already-consumed records.
	require.NoError(t, store.MarkFeedbackConsumed(context.Background(), "batch-2", ids))

	records, err := store.GetUnconsumedFeedback(context.Background(), "t1", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMarkFeedbackConsumedEmptyIDs(t *testing.T) {
	store := setupStorage(t)

	assert.NoError(t, store.MarkFeedbackConsumed(context.Background(), "batch-1", nil))
	assert.Error(t, store.MarkFeedbackConsumed(context.Background(), "", []int64{1}))
}
