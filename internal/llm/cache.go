package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 256

// cachedClient memoizes successful responses keyed by prompt.
type cachedClient struct {
	next    Client
	entries *expirable.LRU[string, string]
}

func newCachedClient(next Client, size int, ttl time.Duration) *cachedClient {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &cachedClient{
		next:    next,
		entries: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *cachedClient) Generate(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)
	if text, ok := c.entries.Get(key); ok {
		return text, nil
	}

	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.entries.Add(key, text)
	return text, nil
}

func (c *cachedClient) Close() error {
	c.entries.Purge()
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
