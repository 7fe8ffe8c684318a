package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/budgetbuddy/internal/common"
)

// Supported provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Providers lists the supported provider names.
var Providers = []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini}

// NewClient creates a provider client wrapped with the configured rate limit
// and response cache. The returned client implements io.Closer when the
// provider holds resources.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		client, err = newOpenAIClient(cfg)
	case ProviderAnthropic:
		client, err = newAnthropicClient(cfg)
	case ProviderGemini:
		client, err = newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		client = newRateLimitedClient(client, cfg.RateLimit)
	}
	if cfg.CacheTTL > 0 {
		client = newCachedClient(client, cfg.CacheSize, cfg.CacheTTL)
	}

	return client, nil
}

// Close releases client resources when it holds any.
func Close(client Client) error {
	if closer, ok := client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
