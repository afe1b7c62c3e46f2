// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// TransactionDirection indicates whether money entered or left the account.
type TransactionDirection string

// Transaction direction constants.
const (
	DirectionCredit TransactionDirection = "credit"
	DirectionDebit  TransactionDirection = "debit"
)

// Transaction represents a single bank line item submitted for classification.
// It is resolved once at the engine boundary; the tiers never see raw payloads.
type Transaction struct {
	Date      time.Time            `json:"date"`
	ID        string               `json:"id,omitempty"`
	TenantID  string               `json:"tenant_id"`
	Narration string               `json:"narration"`
	Direction TransactionDirection `json:"direction"`
	Amount    float64              `json:"amount"`
}

// IsCredit reports whether the transaction moved money into the account.
func (t *Transaction) IsCredit() bool {
	return t.Direction == DirectionCredit
}

// Hash creates a stable key over narration and amount, used for result caching.
func (t *Transaction) Hash() string {
	data := fmt.Sprintf("%s:%s:%.2f",
		t.TenantID,
		strings.ToLower(strings.TrimSpace(t.Narration)),
		t.Amount)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

// Validate checks the fields the engine cannot degrade gracefully around.
func (t *Transaction) Validate() error {
	if t.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	switch t.Direction {
	case DirectionCredit, DirectionDebit:
	default:
		return fmt.Errorf("invalid transaction direction: %q", t.Direction)
	}
	return nil
}
