package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores response bodies by key. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Cached wraps a Fetcher and serves Download from a response cache.
// DownloadToFile is passed through untouched.
type Cached struct {
	inner Fetcher
	cache Cache
	ttl   time.Duration
}

// NewCached returns a caching decorator around inner.
func NewCached(inner Fetcher, cache Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: ttl}
}

// CacheKey hashes a URL so API keys never land in the cache table.
func CacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Download returns the cached body for url, or fetches and stores it.
func (c *Cached) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	key := CacheKey(url)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "cache: get")
	}
	if data != nil {
		zap.L().Debug("response cache hit", zap.String("key", key))
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	body, err := c.inner.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err = io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "cache: read body")
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		return nil, eris.Wrap(err, "cache: set")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// DownloadToFile delegates to the wrapped fetcher.
func (c *Cached) DownloadToFile(ctx context.Context, url string, path string) (int64, error) {
	return c.inner.DownloadToFile(ctx, url, path)
}
