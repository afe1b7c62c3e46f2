package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Gateway routes classification calls to the provider configured for each
// role. Roles with no usable configuration simply have no client; calling
// them returns ErrProviderUnavailable.
type Gateway struct {
	clients  map[Role]Client
	limiters map[Role]*rateLimiter
	logger   *slog.Logger
}

// NewGateway builds provider clients for the configured roles. A role whose
// configuration lacks credentials is skipped, not failed: the orchestrator
// treats the tier as unavailable at call time.
func NewGateway(configs map[Role]Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		clients:  make(map[Role]Client),
		limiters: make(map[Role]*rateLimiter),
		logger:   logger,
	}

	for role, cfg := range configs {
		client, err := newClient(cfg)
		if err != nil {
			if err == ErrProviderUnavailable {
				logger.Info("AI provider not configured, tier will be skipped",
					"role", role,
					"provider", cfg.Provider)
				continue
			}
			return nil, fmt.Errorf("failed to create %s provider: %w", role, err)
		}
		g.clients[role] = client
		g.limiters[role] = newRateLimiter(cfg.RateLimit)
	}

	return g, nil
}

// newClient creates a raw provider client based on the provided configuration.
func newClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "":
		return nil, ErrProviderUnavailable
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Classify sends the prompt to the provider holding the given role. The call
// is made exactly once; retries across providers are the orchestrator's job.
func (g *Gateway) Classify(ctx context.Context, role Role, prompt string) (ClassificationResponse, error) {
	client, ok := g.clients[role]
	if !ok {
		return ClassificationResponse{}, ErrProviderUnavailable
	}

	if limiter, ok := g.limiters[role]; ok {
		if err := limiter.wait(ctx); err != nil {
			return ClassificationResponse{}, &ProviderError{Provider: string(role), Err: err}
		}
	}

	response, err := client.Classify(ctx, prompt)
	if err != nil {
		g.logger.Warn("AI provider call failed",
			"role", role,
			"error", err)
		return ClassificationResponse{}, err
	}

	g.logger.Debug("AI provider classified transaction",
		"role", role,
		"category", response.Category,
		"confidence", response.Confidence)

	return response, nil
}

// Available reports whether a client exists for the role.
func (g *Gateway) Available(role Role) bool {
	_, ok := g.clients[role]
	return ok
}

// Close stops the rate limiter goroutines.
func (g *Gateway) Close() error {
	for _, limiter := range g.limiters {
		limiter.Close()
	}
	return nil
}
