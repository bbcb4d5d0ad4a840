package lilagif

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/park285/pgn2gif/pkg/gifdto"
	"go.uber.org/zap"
)

// Store keeps rendered bytes by request key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Cached serves repeated requests from a Store. Store failures are logged and
// fall through to the wrapped renderer; render failures are never stored.
type Cached struct {
	next   Renderer
	store  Store
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCached(next Renderer, store Store, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, store: store, logger: logger}
}

func (c *Cached) Render(ctx context.Context, req *gifdto.GameRequest) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	key, err := RequestKey(req)
	if err != nil {
		return nil, err
	}

	if data, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn("render_cache_get_failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		c.hits.Add(1)
		c.logger.Debug("render_cache_hit", zap.String("key", key))
		return data, nil
	}
	c.misses.Add(1)

	data, err := c.next.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, key, data); err != nil {
		c.logger.Warn("render_cache_put_failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

func (c *Cached) Hits() int64   { return c.hits.Load() }
func (c *Cached) Misses() int64 { return c.misses.Load() }

// RequestKey is the hex SHA-256 of the request's JSON body.
func RequestKey(req *gifdto.GameRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
