// Package llm provides the gateway to external AI classification providers.
//
// Providers are interchangeable and addressed by role (primary or fallback).
// Two failure modes are kept distinct on purpose: a provider with no
// credentials is Unavailable (the tier is skipped), while a transport or
// malformed-response failure is a ProviderError (the tier escalates).
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client defines the interface a single AI provider must implement.
type Client interface {
	// Classify sends a classification prompt and returns the provider's
	// structured verdict. Malformed responses are hard failures.
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
}

// ClassificationResponse contains one provider's classification result.
type ClassificationResponse struct {
	Category   string
	Reasoning  string
	Confidence float64
}

// Role selects which configured provider handles a call.
type Role string

// Provider roles.
const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
)

// ErrProviderUnavailable indicates no credential/configuration exists for the
// requested role. Callers skip the tier rather than treating this as a
// provider failure.
var ErrProviderUnavailable = errors.New("provider not configured")

// ProviderError wraps transport and malformed-response failures from a
// provider call.
type ProviderError struct {
	Err      error
	Provider string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Config holds configuration for one provider client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	RateLimit   int
}
