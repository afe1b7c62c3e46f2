package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taxpadi/taxpadi/internal/common"
	"github.com/taxpadi/taxpadi/internal/model"
)

// Confidence recomputation constants for corrected patterns. The formula
// keeps a floor for any pattern that exists at all while rewarding the
// confirmation ratio: confidence = base + weight * correct/occurrence.
const (
	patternSeedConfidence   = 0.60
	patternConfidenceBase   = 0.3
	patternConfidenceWeight = 0.7
)

const patternColumns = `id, tenant_id, pattern_text, category, confidence,
	occurrence_count, correct_count, last_seen_at, created_at`

// GetPatternByText returns the pattern exactly matching the normalized text
// for a tenant, or common.ErrNotFound.
func (s *SQLiteStorage) GetPatternByText(ctx context.Context, tenantID, patternText string) (*model.BusinessPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(patternText, "patternText"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM business_patterns WHERE tenant_id = ? AND pattern_text = ?`, patternColumns)

	var p model.BusinessPattern
	err := s.db.QueryRowContext(ctx, query, tenantID, patternText).Scan(
		&p.ID, &p.TenantID, &p.PatternText, &p.Category, &p.Confidence,
		&p.OccurrenceCount, &p.CorrectCount, &p.LastSeenAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pattern %q for tenant %s: %w", patternText, tenantID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	return &p, nil
}

// GetTopPatterns returns up to limit patterns for a tenant ordered by
// confidence descending, then most recently seen.
func (s *SQLiteStorage) GetTopPatterns(ctx context.Context, tenantID string, limit int) ([]model.BusinessPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM business_patterns
		WHERE tenant_id = ?
		ORDER BY confidence DESC, last_seen_at DESC
		LIMIT ?`, patternColumns)

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.BusinessPattern
	for rows.Next() {
		var p model.BusinessPattern
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.PatternText, &p.Category, &p.Confidence,
			&p.OccurrenceCount, &p.CorrectCount, &p.LastSeenAt, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	return patterns, nil
}

// IncrementPatternUsage bumps the occurrence counter and last-seen timestamp
// for a pattern in a single statement.
func (s *SQLiteStorage) IncrementPatternUsage(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	query := `UPDATE business_patterns
		SET occurrence_count = occurrence_count + 1,
			last_seen_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment pattern usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pattern %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// UpsertPatternOnCorrection creates or updates the pattern for a corrected
// transaction. The whole increment-and-recompute runs as one conditional
// statement so concurrent corrections serialize at the storage layer instead
// of losing updates to a read-modify-write race.
func (s *SQLiteStorage) UpsertPatternOnCorrection(ctx context.Context, tenantID, patternText, category string, confirmed bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateString(patternText, "patternText"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	correct := 0
	if confirmed {
		correct = 1
	}

	query := `INSERT INTO business_patterns
			(tenant_id, pattern_text, category, confidence, occurrence_count, correct_count)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(tenant_id, pattern_text) DO UPDATE SET
			category = excluded.category,
			occurrence_count = occurrence_count + 1,
			correct_count = correct_count + excluded.correct_count,
			confidence = MIN(1.0, ? + ? * CAST(correct_count + excluded.correct_count AS REAL) / (occurrence_count + 1)),
			last_seen_at = CURRENT_TIMESTAMP`

	_, err := s.db.ExecContext(ctx, query,
		tenantID, patternText, category, patternSeedConfidence, correct,
		patternConfidenceBase, patternConfidenceWeight,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}

	return nil
}
