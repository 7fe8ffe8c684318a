package llm

import (
	"context"
	"time"
)

// Client sends a prompt to a text-generation service and returns its raw text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds provider settings shared by all clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	CacheTTL    time.Duration
	CacheSize   int
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

const (
	defaultMaxTokens = 1000
	defaultTimeout   = 30 * time.Second
)

// systemPrompt steers every provider toward bare JSON output.
const systemPrompt = "You extract expenses from short messages. Respond with ONLY a valid JSON object. Do not include explanations or markdown formatting."

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}
