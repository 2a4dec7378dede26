package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"thyrd_spaces/internal/domain"
)

// Loader fetches the complete space collection.
type Loader func(ctx context.Context) ([]domain.Space, error)

// Refresh outcomes reported to OnRefresh.
const (
	RefreshCommitted  = "committed"
	RefreshSuperseded = "superseded"
	RefreshError      = "error"
)

// Catalog is the in-process snapshot that browse queries run against.
// Refreshes may overlap; each takes a generation when it starts and only
// commits if no newer refresh has committed in the meantime.
type Catalog struct {
	load      Loader
	ttl       time.Duration
	now       func() time.Time
	OnRefresh func(result string)

	mu        sync.Mutex
	started   uint64
	committed uint64
	spaces    []domain.Space
	loadedAt  time.Time
}

func NewCatalog(load Loader, ttl time.Duration) *Catalog {
	return &Catalog{load: load, ttl: ttl, now: time.Now}
}

// Refresh loads a new snapshot. committed is false when the result was
// discarded because a later refresh already landed.
func (c *Catalog) Refresh(ctx context.Context) (committed bool, err error) {
	c.mu.Lock()
	c.started++
	gen := c.started
	c.mu.Unlock()

	spaces, err := c.load(ctx)
	if err != nil {
		c.report(RefreshError)
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen <= c.committed {
		c.report(RefreshSuperseded)
		return false, nil
	}
	c.committed = gen
	c.spaces = spaces
	c.loadedAt = c.now()
	c.report(RefreshCommitted)
	return true, nil
}

// Snapshot returns the current collection, refreshing it first when it
// is stale. A failed refresh falls back to the previous snapshot if any.
func (c *Catalog) Snapshot(ctx context.Context) ([]domain.Space, error) {
	c.mu.Lock()
	fresh := c.committed > 0 && !c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl
	spaces := c.spaces
	c.mu.Unlock()
	if fresh {
		return spaces, nil
	}

	if _, err := c.Refresh(ctx); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.committed > 0 {
			log.Warn().Err(err).Msg("catalog refresh failed; serving previous snapshot")
			return c.spaces, nil
		}
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spaces, nil
}

// Invalidate marks the snapshot stale so the next read reloads it.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Catalog) report(result string) {
	if c.OnRefresh != nil {
		c.OnRefresh(result)
	}
}
