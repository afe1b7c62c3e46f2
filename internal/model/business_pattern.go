package model

import (
	"fmt"
	"time"
)

// BusinessPattern is a tenant-scoped learned association between a normalized
// narration fragment and a category. Confidence moves only through the
// feedback recorder; the engine never deletes patterns.
type BusinessPattern struct {
	CreatedAt       time.Time `json:"created_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
	TenantID        string    `json:"tenant_id"`
	PatternText     string    `json:"pattern_text"`
	Category        string    `json:"category"`
	ID              int64     `json:"id"`
	Confidence      float64   `json:"confidence"`
	OccurrenceCount int       `json:"occurrence_count"`
	CorrectCount    int       `json:"correct_count"`
}

// Validate ensures the pattern's statistics are internally consistent.
func (p *BusinessPattern) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if p.PatternText == "" {
		return fmt.Errorf("pattern text is required")
	}
	if p.Category == "" {
		return fmt.Errorf("category is required")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", p.Confidence)
	}
	if p.OccurrenceCount < p.CorrectCount {
		return fmt.Errorf("occurrence count %d cannot be below correct count %d",
			p.OccurrenceCount, p.CorrectCount)
	}
	return nil
}
