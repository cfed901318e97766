package gateway

import (
	"context"
	"time"

	"github.com/ahrav/ragconsole/internal/ports"
)

// cachedTransport serves idempotent requests from a CacheStore and drops
// stale entries after successful mutating calls.
type cachedTransport struct {
	next  CoreTransport
	store ports.CacheStore
	ttl   time.Duration
}

// CacheMiddleware creates middleware that caches successful idempotent
// responses in store for ttl. A nil store disables caching.
func CacheMiddleware(store ports.CacheStore, ttl time.Duration) Middleware {
	return func(next CoreTransport) CoreTransport {
		if store == nil {
			return next
		}
		return &cachedTransport{next: next, store: store, ttl: ttl}
	}
}

// DoRequest answers idempotent requests from the cache when possible.
// Cache failures never fail the request.
func (c *cachedTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	if !req.Idempotent {
		resp, err := c.next.DoRequest(ctx, req)
		if err == nil {
			for _, key := range req.Invalidates {
				_ = c.store.Delete(ctx, key)
			}
		}
		return resp, err
	}

	key := req.CacheKey()
	if v, ok, err := c.store.Get(ctx, key); err == nil && ok {
		if resp, ok := v.(*Response); ok {
			return resp, nil
		}
	}

	resp, err := c.next.DoRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = c.store.Set(ctx, key, resp, c.ttl)
	return resp, nil
}
