package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DocumentCache stores rendered invoice documents keyed by invoice id and
// format, so repeated downloads skip the render round trip.
type DocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDocumentCache builds a DocumentCache with the given TTL.
func NewDocumentCache(client *redis.Client, ttl time.Duration) *DocumentCache {
	return &DocumentCache{client: client, ttl: ttl}
}

func documentKey(invoiceID int64, format string) string {
	return fmt.Sprintf("crestline:doc:%d:%s", invoiceID, format)
}

// Get returns the cached document bytes, or (nil, nil) on a miss.
func (c *DocumentCache) Get(ctx context.Context, invoiceID int64, format string) ([]byte, error) {
	data, err := c.client.Get(ctx, documentKey(invoiceID, format)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("platform/cache: get document: %w", err)
	}
	return data, nil
}

// Set stores the document bytes under the cache TTL.
func (c *DocumentCache) Set(ctx context.Context, invoiceID int64, format string, data []byte) error {
	if err := c.client.Set(ctx, documentKey(invoiceID, format), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set document: %w", err)
	}
	return nil
}

// Invalidate drops every cached rendering of an invoice. Called when the
// payment state changes so downloads never show a stale balance.
func (c *DocumentCache) Invalidate(ctx context.Context, invoiceID int64, formats ...string) error {
	keys := make([]string, 0, len(formats))
	for _, f := range formats {
		keys = append(keys, documentKey(invoiceID, f))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("platform/cache: invalidate documents: %w", err)
	}
	return nil
}
