package engine

import (
	"context"

	"github.com/taxpadi/taxpadi/internal/llm"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/pattern"
	"github.com/taxpadi/taxpadi/internal/rules"
)

// SignalDetector annotates narrations with payment-channel flags.
type SignalDetector interface {
	Detect(narration string, amount float64) model.SignalFlags
	TaxImplications(flags model.SignalFlags, isCredit bool) model.TaxImplications
}

// RuleClassifier is the deterministic first tier.
type RuleClassifier interface {
	Classify(txn model.Transaction, flags model.SignalFlags) rules.Result
}

// PatternMatcher looks up learned per-tenant patterns.
type PatternMatcher interface {
	Find(ctx context.Context, tenantID, text string, flags model.SignalFlags) *pattern.Match
}

// AIGateway routes prompts to the AI provider configured for a role.
type AIGateway interface {
	Classify(ctx context.Context, role llm.Role, prompt string) (llm.ClassificationResponse, error)
}

// ResultCache caches final classification results by transaction hash.
type ResultCache interface {
	Get(ctx context.Context, hash string) (*model.ClassificationResult, bool)
	Set(ctx context.Context, hash string, result model.ClassificationResult) error
}
