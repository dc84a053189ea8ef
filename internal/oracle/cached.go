package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"plainview/internal/cache"
	"plainview/internal/logging"
)

// Cached wraps an oracle with a read-through cache. Decompositions are
// pure functions of (provider, model, narrative), so a hit is always
// safe to reuse.
type Cached struct {
	inner     Oracle
	store     cache.Cache
	ttl       time.Duration
	modelName string
	log       *slog.Logger
}

// WithCache wraps inner so repeated transforms of the same narrative
// skip the provider entirely.
func WithCache(inner Oracle, store cache.Cache, ttl time.Duration, modelName string) *Cached {
	return &Cached{
		inner:     inner,
		store:     store,
		ttl:       ttl,
		modelName: modelName,
		log:       logging.New("oracle.cache"),
	}
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) IsAvailable(ctx context.Context) bool { return c.inner.IsAvailable(ctx) }

func (c *Cached) Decompose(ctx context.Context, narrative string) (*Proposal, error) {
	key := cache.Key(c.inner.Name(), c.modelName, narrative)

	if data, ok := c.store.Get(key); ok {
		var p Proposal
		if err := json.Unmarshal(data, &p); err == nil {
			c.log.Debug("cache hit", "provider", c.inner.Name())
			return &p, nil
		}
		// A corrupt entry is just a miss.
		_ = c.store.Delete(key)
	}

	p, err := c.inner.Decompose(ctx, narrative)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := c.store.Set(key, data, c.ttl); err != nil {
			c.log.Warn("cache write failed", "error", err)
		}
	}
	return p, nil
}
