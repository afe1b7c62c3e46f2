// Package engine implements the tiered classification decision pipeline:
// RULE -> PATTERN -> AI_PRIMARY -> AI_FALLBACK -> NEEDS_REVIEW.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/taxpadi/taxpadi/internal/llm"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/pattern"
)

// Tier thresholds and blending constants.
const (
	// ruleThreshold terminates the pipeline at the rule tier.
	ruleThreshold = 0.90
	// patternStrongThreshold returns a pattern match outright; matches in
	// (matchFloor, patternStrongThreshold] are held for AI confirmation.
	patternStrongThreshold = 0.80
	// aiConfidenceThreshold is the bar for accepting a lone AI verdict.
	aiConfidenceThreshold = 0.75
	// hybridBoost is added to AI confidence when it agrees with a pending
	// pattern; the blend never exceeds hybridCeiling.
	hybridBoost       = 0.20
	hybridCeiling     = 0.99
	aiOverrideMargin  = 0.25
	needsReviewReason = "AI systems failed"
)

// errZeroConfidence marks a provider verdict carrying confidence 0. Accepting
// one would mint an AI result indistinguishable from the needs_review terminal
// state, so it is treated as a provider failure and the tier escalates.
var errZeroConfidence = errors.New("provider returned zero confidence")

// Engine orchestrates the classification tiers. All dependencies are
// injected so each tier can be substituted in tests.
type Engine struct {
	detector SignalDetector
	rules    RuleClassifier
	patterns PatternMatcher
	gateway  AIGateway
	cache    ResultCache
	logger   *slog.Logger
}

// New creates a classification engine. cache may be nil.
func New(detector SignalDetector, ruleClassifier RuleClassifier, patterns PatternMatcher, gateway AIGateway, cache ResultCache, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		detector: detector,
		rules:    ruleClassifier,
		patterns: patterns,
		gateway:  gateway,
		cache:    cache,
		logger:   logger,
	}
}

// Classify runs a transaction through the tiers and always returns a result.
// The only failure mode visible to callers is the needs_review terminal state
// with confidence 0. SignalFlags and tax implications are computed once here
// and stamped on every result regardless of which tier decided.
func (e *Engine) Classify(ctx context.Context, txn model.Transaction) model.ClassificationResult {
	flags := e.detector.Detect(txn.Narration, txn.Amount)
	implications := e.detector.TaxImplications(flags, txn.IsCredit())

	hash := txn.Hash()
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, hash); ok {
			e.logger.Debug("classification cache hit", "tenant_id", txn.TenantID)
			return *cached
		}
	}

	result := e.classify(ctx, txn, flags, implications)
	result.SignalFlags = flags
	result.TaxImplications = implications

	// Never cache the terminal failure state; a later call may have
	// providers back.
	if e.cache != nil && result.Provenance != model.ProvenanceNeedsReview {
		if err := e.cache.Set(ctx, hash, result); err != nil {
			e.logger.Debug("failed to cache classification", "error", err)
		}
	}

	e.logger.Info("transaction classified",
		"tenant_id", txn.TenantID,
		"category", result.Category,
		"confidence", result.Confidence,
		"provenance", result.Provenance)

	return result
}

func (e *Engine) classify(ctx context.Context, txn model.Transaction, flags model.SignalFlags, implications model.TaxImplications) model.ClassificationResult {
	// Tier 1: deterministic rules.
	ruleResult := e.rules.Classify(txn, flags)
	if ruleResult.Confidence > ruleThreshold {
		return model.ClassificationResult{
			Category:          ruleResult.Category,
			Confidence:        ruleResult.Confidence,
			Provenance:        model.ProvenanceRule,
			Reasoning:         ruleResult.Reason,
			NeedsConfirmation: ruleResult.NeedsConfirmation,
		}
	}

	// Tier 2: learned patterns. Strong matches return outright; medium
	// matches are carried into the AI tier for confirmation.
	var pending *pattern.Match
	if match := e.patterns.Find(ctx, txn.TenantID, txn.Narration, flags); match != nil {
		if match.Score > patternStrongThreshold {
			return patternResult(match, false)
		}
		pending = match
	}

	// Cancellation gate: if the caller gave up before the AI tiers, make no
	// external call.
	if ctx.Err() != nil {
		if pending != nil {
			return patternResult(pending, true)
		}
		return needsReview("classification canceled before AI review")
	}

	return e.classifyWithAI(ctx, txn, flags, implications, pending)
}

// classifyWithAI runs the AI tiers. Once a provider call is in flight it is
// allowed to complete under its own timeout rather than being abandoned
// mid-flight, so provider usage is never orphaned without a recorded result.
func (e *Engine) classifyWithAI(ctx context.Context, txn model.Transaction, flags model.SignalFlags, implications model.TaxImplications, pending *pattern.Match) model.ClassificationResult {
	prompt := llm.BuildPrompt(txn, flags, implications)
	aiCtx := context.WithoutCancel(ctx)

	var primary *llm.ClassificationResponse
	response, err := e.gateway.Classify(aiCtx, llm.RolePrimary, prompt)
	if err == nil && response.Confidence == 0 {
		err = errZeroConfidence
	}
	switch {
	case err == nil:
		if pending != nil {
			return e.blend(pending, response)
		}
		if response.Confidence > aiConfidenceThreshold {
			return aiResult(response)
		}
		// Low-confidence primary: hold the result, ask the fallback.
		primary = &response
	case errors.Is(err, llm.ErrProviderUnavailable):
		e.logger.Debug("primary AI provider unavailable, trying fallback")
	default:
		e.logger.Warn("primary AI provider failed", "error", err)
	}

	fallbackResponse, fallbackErr := e.gateway.Classify(aiCtx, llm.RoleFallback, prompt)
	if fallbackErr == nil && fallbackResponse.Confidence == 0 {
		fallbackErr = errZeroConfidence
	}
	if fallbackErr == nil {
		best := fallbackResponse
		if primary != nil && primary.Confidence >= fallbackResponse.Confidence {
			best = *primary
		}
		if pending != nil {
			return e.blend(pending, best)
		}
		return aiResult(best)
	}

	if !errors.Is(fallbackErr, llm.ErrProviderUnavailable) {
		e.logger.Warn("fallback AI provider failed", "error", fallbackErr)
	}

	if primary != nil {
		if pending != nil {
			return e.blend(pending, *primary)
		}
		return aiResult(*primary)
	}

	// AI exhausted. A medium-confidence pattern is still a better answer
	// than nothing, but it must be confirmed by a human.
	if pending != nil {
		return patternResult(pending, true)
	}

	return needsReview(needsReviewReason)
}

// blend resolves a medium-confidence pattern against an AI verdict.
func (e *Engine) blend(pending *pattern.Match, ai llm.ClassificationResponse) model.ClassificationResult {
	patternCategory := strings.ToLower(strings.TrimSpace(pending.Pattern.Category))
	aiCategory := strings.ToLower(strings.TrimSpace(ai.Category))

	// Agreement: the pattern corroborates the AI, boost and report hybrid.
	if patternCategory == aiCategory {
		confidence := ai.Confidence + hybridBoost
		if confidence > hybridCeiling {
			confidence = hybridCeiling
		}
		return model.ClassificationResult{
			Category:   aiCategory,
			Confidence: confidence,
			Provenance: model.ProvenanceHybrid,
			Reasoning:  ai.Reasoning,
		}
	}

	// Clear disagreement with a much more confident AI: trust the AI.
	if ai.Confidence-pending.Score > aiOverrideMargin {
		reasoning := ai.Reasoning
		if reasoning != "" {
			reasoning += " "
		}
		reasoning += "(overriding weak pattern " + pending.Pattern.PatternText + ")"
		return model.ClassificationResult{
			Category:   aiCategory,
			Confidence: ai.Confidence,
			Provenance: model.ProvenanceAI,
			Reasoning:  reasoning,
		}
	}

	// Otherwise the tenant's own history wins, but a human should check.
	return patternResult(pending, true)
}

func patternResult(match *pattern.Match, needsConfirmation bool) model.ClassificationResult {
	return model.ClassificationResult{
		Category:          match.Pattern.Category,
		Confidence:        match.Score,
		Provenance:        model.ProvenanceBusinessPattern,
		Reasoning:         "learned pattern: " + match.Pattern.PatternText,
		NeedsConfirmation: needsConfirmation,
	}
}

func aiResult(response llm.ClassificationResponse) model.ClassificationResult {
	return model.ClassificationResult{
		Category:          response.Category,
		Confidence:        response.Confidence,
		Provenance:        model.ProvenanceAI,
		Reasoning:         response.Reasoning,
		NeedsConfirmation: response.Confidence <= aiConfidenceThreshold,
	}
}

func needsReview(reason string) model.ClassificationResult {
	return model.ClassificationResult{
		Category:   model.CategoryNeedsReview,
		Confidence: 0,
		Provenance: model.ProvenanceNeedsReview,
		Reasoning:  reason,
	}
}
