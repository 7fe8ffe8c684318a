package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedClient blocks each call until the limiter grants a token.
type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// newRateLimitedClient allows requestsPerMinute calls, with bursts of the same size.
func newRateLimitedClient(next Client, requestsPerMinute int) *rateLimitedClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

func (c *rateLimitedClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter canceled: %w", err)
	}
	return c.next.Generate(ctx, prompt)
}

func (c *rateLimitedClient) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
