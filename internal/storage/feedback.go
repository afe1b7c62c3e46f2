package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/taxpadi/taxpadi/internal/model"
)

// SaveFeedback persists a feedback record and fills in its ID and timestamp.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, record *model.FeedbackRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("feedback record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid feedback record: %w", err)
	}

	query := `INSERT INTO feedback_records
			(tenant_id, transaction_id, predicted_category, predicted_confidence,
			predicted_provenance, corrected_category, correction_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		record.TenantID, record.TransactionID,
		record.PredictedCategory, record.PredictedConfidence,
		string(record.PredictedProvenance),
		record.CorrectedCategory, string(record.CorrectionType),
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feedback ID: %w", err)
	}

	record.ID = id
	record.CreatedAt = time.Now()

	return nil
}

// GetUnconsumedFeedback returns records not yet picked up by the external
// training process, oldest first.
func (s *SQLiteStorage) GetUnconsumedFeedback(ctx context.Context, tenantID string, limit int) ([]model.FeedbackRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, tenant_id, transaction_id, predicted_category,
			predicted_confidence, predicted_provenance, corrected_category,
			correction_type, consumed, consumed_batch_id, created_at
		FROM feedback_records
		WHERE tenant_id = ? AND consumed = 0
		ORDER BY created_at ASC, id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get unconsumed feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FeedbackRecord
	for rows.Next() {
		var r model.FeedbackRecord
		var provenance, correctionType string
		var batchID sql.NullString
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.TransactionID, &r.PredictedCategory,
			&r.PredictedConfidence, &provenance, &r.CorrectedCategory,
			&correctionType, &r.Consumed, &batchID, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback record: %w", err)
		}
		r.PredictedProvenance = model.Provenance(provenance)
		r.CorrectionType = model.CorrectionType(correctionType)
		if batchID.Valid {
			r.ConsumedBatchID = batchID.String
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback records: %w", err)
	}

	return records, nil
}

// MarkFeedbackConsumed flags the given records as consumed under a batch
// identifier. Already-consumed records are left untouched.
func (s *SQLiteStorage) MarkFeedbackConsumed(ctx context.Context, batchID string, ids []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`UPDATE feedback_records
		SET consumed = 1, consumed_batch_id = ?
		WHERE consumed = 0 AND id IN (%s)`, placeholders)

	args := make([]any, 0, len(ids)+1)
	args = append(args, batchID)
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark feedback consumed: %w", err)
	}

	return nil
}
