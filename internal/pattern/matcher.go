// Package pattern implements lookup and scoring against the per-tenant
// learned pattern store.
package pattern

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/taxpadi/taxpadi/internal/common"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/service"
)

// Scoring constants. The engine only acts on matches scoring above
// matchFloor; fuzzy candidates additionally must clear fuzzyFloor.
const (
	matchFloor        = 0.50
	fuzzyFloor        = 0.40
	containmentFactor = 0.70
	overlapFactor     = 0.50
	topPatternLimit   = 20
)

// Match is a scored pattern-store hit.
type Match struct {
	Pattern model.BusinessPattern
	Score   float64
}

// Matcher performs exact, prefixed and fuzzy lookups against a PatternStore.
type Matcher struct {
	store  service.PatternStore
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(store service.PatternStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{store: store, logger: logger}
}

// Normalize lower-cases, trims and collapses whitespace in pattern text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ChannelPrefix derives the transaction-type tag prepended to pattern text so
// that identical narrations arriving over different channels are tracked
// separately.
func ChannelPrefix(flags model.SignalFlags) string {
	switch {
	case flags.IsPOS:
		return "pos:"
	case flags.IsMobileMoney:
		return "mm_" + flags.MobileMoneyProvider + ":"
	case flags.IsUSSD:
		return "ussd:"
	default:
		return ""
	}
}

// Find looks up the best pattern for a tenant's narration. Lookup order:
// exact match on channel-prefixed text, exact match on plain text, then a
// fuzzy scan of the tenant's top patterns. Each stage short-circuits only
// when its score clears matchFloor. A nil result means no usable match.
//
// Store failures are logged and treated as "no pattern found" — a broken
// pattern store must never fail a classification.
func (m *Matcher) Find(ctx context.Context, tenantID, text string, flags model.SignalFlags) *Match {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	if prefix := ChannelPrefix(flags); prefix != "" {
		if match := m.exact(ctx, tenantID, prefix+normalized); match != nil {
			return match
		}
	}

	if match := m.exact(ctx, tenantID, normalized); match != nil {
		return match
	}

	return m.fuzzy(ctx, tenantID, normalized)
}

func (m *Matcher) exact(ctx context.Context, tenantID, patternText string) *Match {
	p, err := m.store.GetPatternByText(ctx, tenantID, patternText)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			m.logger.Warn("pattern lookup failed",
				"tenant_id", tenantID,
				"error", err)
		}
		return nil
	}

	if p.Confidence <= matchFloor {
		return nil
	}

	m.recordUsage(p.ID, tenantID)

	return &Match{Pattern: *p, Score: p.Confidence}
}

func (m *Matcher) fuzzy(ctx context.Context, tenantID, normalized string) *Match {
	candidates, err := m.store.GetTopPatterns(ctx, tenantID, topPatternLimit)
	if err != nil {
		m.logger.Warn("pattern scan failed",
			"tenant_id", tenantID,
			"error", err)
		return nil
	}

	var best *Match
	for i := range candidates {
		p := &candidates[i]
		score := Score(normalized, stripChannelPrefix(p.PatternText), p.Confidence)
		if score < fuzzyFloor {
			continue
		}
		if best == nil || score > best.Score || (score == best.Score && tieBreak(p, &best.Pattern)) {
			best = &Match{Pattern: *p, Score: score}
		}
	}

	if best == nil || best.Score <= matchFloor {
		return nil
	}

	m.recordUsage(best.Pattern.ID, tenantID)

	return best
}

// Score computes the fuzzy match score between an input narration and a
// stored pattern, both normalized. Exact equality scores the pattern's own
// confidence; containment in either direction scales by length ratio;
// otherwise token overlap applies.
func Score(input, patternText string, confidence float64) float64 {
	if input == patternText {
		return confidence
	}

	if strings.Contains(input, patternText) || strings.Contains(patternText, input) {
		shorter, longer := len(input), len(patternText)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return confidence * containmentFactor * (float64(shorter) / float64(longer))
	}

	inputTokens := tokenSet(input)
	patternTokens := tokenSet(patternText)
	if len(inputTokens) == 0 || len(patternTokens) == 0 {
		return 0
	}

	shared := 0
	for tok := range inputTokens {
		if _, ok := patternTokens[tok]; ok {
			shared++
		}
	}

	denom := len(inputTokens)
	if len(patternTokens) > denom {
		denom = len(patternTokens)
	}

	return confidence * (float64(shared) / float64(denom)) * overlapFactor
}

// tieBreak prefers the pattern with higher stored confidence, then the one
// used most recently.
func tieBreak(candidate, current *model.BusinessPattern) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return candidate.LastSeenAt.After(current.LastSeenAt)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func stripChannelPrefix(patternText string) string {
	if idx := strings.Index(patternText, ":"); idx > 0 && idx < 16 && !strings.Contains(patternText[:idx], " ") {
		return patternText[idx+1:]
	}
	return patternText
}

// recordUsage bumps occurrence and last-seen counters in the background.
// The write is best-effort: it runs detached from the request context so a
// slow or failing store never delays the classification result. Transient
// store errors are retried before the update is abandoned.
func (m *Matcher) recordUsage(id int64, tenantID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := common.WithRetry(ctx, func() error {
			return m.store.IncrementPatternUsage(ctx, id)
		}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
		if err != nil {
			m.logger.Warn("failed to record pattern usage",
				"pattern_id", id,
				"tenant_id", tenantID,
				"error", err)
		}
	}()
}
